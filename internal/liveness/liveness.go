// Package liveness implements C5: classical backward worklist dataflow
// over an internal/ir.HIRFunction, producing per-block live-in/live-out
// sets plus the mutable instruction-id range each reassigned base
// identifier spans (spec.md §4.5) — internal/scopes needs both to decide a
// reactive scope's dependency set and whether it must widen to cover a
// reassignment.
package liveness

import "reactivec/internal/ir"

// Info is the result of one Analyze call.
type Info struct {
	liveIn  map[ir.BlockID]map[ir.Identifier]struct{}
	liveOut map[ir.BlockID]map[ir.Identifier]struct{}

	// MutableRanges maps each base identifier (pre-SSA numeric id, spanning
	// every version internal/ssa produced for it) that has more than one
	// SSA version, i.e. is reassigned at least once, to the inclusive
	// [first, last] instruction-id range its definitions occupy.
	MutableRanges map[int]Range
}

type Range struct {
	First ir.InstrID
	Last  ir.InstrID
}

func (in *Info) LiveIn(b ir.BlockID) map[ir.Identifier]struct{}  { return in.liveIn[b] }
func (in *Info) LiveOut(b ir.BlockID) map[ir.Identifier]struct{} { return in.liveOut[b] }

// Analyze runs backward dataflow to a fixed point over f's CFG. f must
// already be in SSA form (internal/ssa.Construct) so every Identifier
// value in liveIn/liveOut names a single definition site.
func Analyze(f *ir.HIRFunction) *Info {
	blocks := f.BlockOrder()
	liveIn := make(map[ir.BlockID]map[ir.Identifier]struct{}, len(blocks))
	liveOut := make(map[ir.BlockID]map[ir.Identifier]struct{}, len(blocks))
	for _, b := range blocks {
		liveIn[b] = map[ir.Identifier]struct{}{}
		liveOut[b] = map[ir.Identifier]struct{}{}
	}

	preds := make(map[ir.BlockID][]ir.BlockID, len(blocks))
	for _, b := range blocks {
		for pred := range f.Block(b).Predecessors {
			preds[b] = append(preds[b], pred)
		}
	}
	succs := make(map[ir.BlockID][]ir.BlockID, len(blocks))
	for _, b := range blocks {
		for _, p := range preds[b] {
			succs[p] = append(succs[p], b)
		}
	}

	changed := true
	for changed {
		changed = false
		for i := len(blocks) - 1; i >= 0; i-- {
			b := blocks[i]
			out := map[ir.Identifier]struct{}{}
			for _, s := range succs[b] {
				for id := range liveIn[s] {
					out[id] = struct{}{}
				}
			}
			in := blockTransfer(f.Block(b), out)
			if !sameSet(in, liveIn[b]) {
				liveIn[b] = in
				changed = true
			}
			if !sameSet(out, liveOut[b]) {
				liveOut[b] = out
				changed = true
			}
		}
	}

	return &Info{liveIn: liveIn, liveOut: liveOut, MutableRanges: mutableRanges(f)}
}

// blockTransfer computes live-in from live-out by walking the block
// backward: a use not preceded by a definition in this block propagates to
// live-in, and any definition kills the identifier above it.
func blockTransfer(b *ir.BasicBlock, out map[ir.Identifier]struct{}) map[ir.Identifier]struct{} {
	live := map[ir.Identifier]struct{}{}
	for id := range out {
		live[id] = struct{}{}
	}
	if b.Terminator != nil {
		for _, id := range terminatorUses(b.Terminator) {
			live[id] = struct{}{}
		}
	}
	for i := len(b.Instructions) - 1; i >= 0; i-- {
		instr := b.Instructions[i]
		if instr.LValue != nil {
			delete(live, instr.LValue.Ident)
		}
		for _, id := range valueUses(instr.Value) {
			live[id] = struct{}{}
		}
	}
	return live
}

func sameSet(a, b map[ir.Identifier]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

func terminatorUses(term ir.Terminator) []ir.Identifier {
	switch t := term.(type) {
	case ir.If:
		return []ir.Identifier{t.Test.Ident}
	case ir.Switch:
		ids := make([]ir.Identifier, 0, len(t.Cases)+1)
		ids = append(ids, t.Discriminant.Ident)
		for _, c := range t.Cases {
			ids = append(ids, c.Test.Ident)
		}
		return ids
	case ir.Return:
		if t.Value != nil {
			return []ir.Identifier{t.Value.Ident}
		}
	case ir.Throw:
		return []ir.Identifier{t.Value.Ident}
	}
	return nil
}

// valueUses lists every Place an instruction's Value reads from.
func valueUses(v ir.Value) []ir.Identifier {
	switch x := v.(type) {
	case ir.LoadLocal:
		return []ir.Identifier{x.Src.Ident}
	case ir.StoreLocal:
		return []ir.Identifier{x.Src.Ident}
	case ir.PropertyLoad:
		return []ir.Identifier{x.Object.Ident}
	case ir.PropertyStore:
		return []ir.Identifier{x.Object.Ident, x.Value.Ident}
	case ir.ComputedLoad:
		return []ir.Identifier{x.Object.Ident, x.Index.Ident}
	case ir.ComputedStore:
		return []ir.Identifier{x.Object.Ident, x.Index.Ident, x.Value.Ident}
	case ir.BinaryOp:
		return []ir.Identifier{x.L.Ident, x.R.Ident}
	case ir.UnaryOp:
		return []ir.Identifier{x.Operand.Ident}
	case ir.LogicalOp:
		return []ir.Identifier{x.L.Ident, x.R.Ident}
	case ir.Call:
		ids := make([]ir.Identifier, 0, len(x.Args)+1)
		ids = append(ids, x.Callee.Ident)
		for _, a := range x.Args {
			ids = append(ids, a.Ident)
		}
		return ids
	case ir.NewExpr:
		ids := make([]ir.Identifier, 0, len(x.Args)+1)
		ids = append(ids, x.Constructor.Ident)
		for _, a := range x.Args {
			ids = append(ids, a.Ident)
		}
		return ids
	case ir.ObjectLiteral:
		var ids []ir.Identifier
		for _, p := range x.Props {
			if p.Computed != nil {
				ids = append(ids, p.Computed.Ident)
			}
			ids = append(ids, p.Value.Ident)
		}
		return ids
	case ir.ArrayLiteral:
		var ids []ir.Identifier
		for _, e := range x.Elems {
			ids = append(ids, e.Value.Ident)
		}
		return ids
	case ir.Spread:
		return []ir.Identifier{x.Operand.Ident}
	case ir.DestructureTarget:
		return []ir.Identifier{x.Source.Ident}
	case ir.Phi:
		ids := make([]ir.Identifier, 0, len(x.Incoming))
		for _, p := range x.Incoming {
			ids = append(ids, p.Ident)
		}
		return ids
	case ir.Template:
		ids := make([]ir.Identifier, 0, len(x.Exprs))
		for _, e := range x.Exprs {
			ids = append(ids, e.Ident)
		}
		return ids
	default:
		return nil
	}
}

// mutableRanges finds every base identifier with more than one SSA version
// defined in the function and records the instruction-id span its
// definitions cover (spec.md §4.5's "mutable range" — the window a
// reactive scope must fully contain if it declares any version of that
// base, since a scope that split a reassignment's versions apart would
// observe a stale value).
func mutableRanges(f *ir.HIRFunction) map[int]Range {
	firstByBase := map[int]ir.InstrID{}
	lastByBase := map[int]ir.InstrID{}
	versions := map[int]map[int]struct{}{}

	for _, b := range f.BlockOrder() {
		for _, instr := range f.Block(b).Instructions {
			if instr.LValue == nil {
				continue
			}
			id := instr.LValue.Ident
			if id.ID < 0 {
				continue
			}
			if versions[id.ID] == nil {
				versions[id.ID] = map[int]struct{}{}
			}
			versions[id.ID][id.Version] = struct{}{}
			if _, ok := firstByBase[id.ID]; !ok || instr.ID < firstByBase[id.ID] {
				firstByBase[id.ID] = instr.ID
			}
			if instr.ID > lastByBase[id.ID] {
				lastByBase[id.ID] = instr.ID
			}
		}
	}

	ranges := map[int]Range{}
	for base, vs := range versions {
		if len(vs) < 2 {
			continue
		}
		ranges[base] = Range{First: firstByBase[base], Last: lastByBase[base]}
	}
	return ranges
}
