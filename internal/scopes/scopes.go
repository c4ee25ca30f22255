// Package scopes implements C6: partitioning an SSA HIRFunction's
// instruction stream into internal/ir.ReactiveScope regions (spec.md
// §4.6) — contiguous ranges with a closed dependency set, the unit
// internal/reactivetree wraps in a ScopeNode and internal/emit compiles
// into a cache read/compare/write pattern.
//
// The four steps run in order, each a pure function of the prior step's
// result, mutating f.Scopes in place:
//
//  1. infer        — seed one scope per SSA value that escapes its block
//     or names a source-level let/const binding
//  2. align         — widen every scope so it never splits a basic block,
//     and never splits a branch/loop/protected-region
//     structure (spec.md §9 open question ii: handler
//     edges are a hard scope boundary, exactly like a
//     branch or loop boundary)
//  3. merge         — union scopes with overlapping ranges or mutual
//     references to a fixed point
//  4. dependencies — compute each final scope's closed dependency set
package scopes

import (
	"sort"

	"reactivec/internal/dominators"
	"reactivec/internal/ir"
)

// Analyze runs all four steps over f (which must already be in SSA form)
// and registers the resulting scopes on f.Scopes, keyed by ScopeID.
func Analyze(f *ir.HIRFunction) {
	dom := dominators.Compute(f)
	idx := buildIndex(f)

	scopeList := infer(f, idx)
	align(f, dom, idx, scopeList)
	scopeList = merge(idx, scopeList)
	for _, s := range scopeList {
		dependencies(f, idx, s)
	}

	f.Scopes = map[ir.ScopeID]*ir.ReactiveScope{}
	for _, s := range scopeList {
		f.Scopes[s.ID] = s
	}
}

// index caches the per-function lookups every step needs repeatedly:
// which block owns a given instruction id, each block's own
// [minID, maxID+1) span, and where every identifier (including function
// parameters, which get the sentinel id -1 so they always count as
// external) was defined.
type index struct {
	blockOf    map[ir.InstrID]ir.BlockID
	instrOf    map[ir.InstrID]*ir.Instruction
	blockRange map[ir.BlockID][2]ir.InstrID // [first, last)
	defSite    map[ir.Identifier]ir.InstrID
}

const paramDef ir.InstrID = -1

func buildIndex(f *ir.HIRFunction) *index {
	idx := &index{
		blockOf:    map[ir.InstrID]ir.BlockID{},
		instrOf:    map[ir.InstrID]*ir.Instruction{},
		blockRange: map[ir.BlockID][2]ir.InstrID{},
		defSite:    map[ir.Identifier]ir.InstrID{},
	}
	for _, p := range f.Params {
		idx.defSite[p.Ident] = paramDef
	}
	for _, b := range f.BlockOrder() {
		blk := f.Block(b)
		if len(blk.Instructions) == 0 {
			continue
		}
		lo, hi := blk.Instructions[0].ID, blk.Instructions[0].ID
		for _, instr := range blk.Instructions {
			idx.blockOf[instr.ID] = b
			idx.instrOf[instr.ID] = instr
			if instr.ID < lo {
				lo = instr.ID
			}
			if instr.ID > hi {
				hi = instr.ID
			}
			if instr.LValue != nil {
				idx.defSite[instr.LValue.Ident] = instr.ID
			}
		}
		idx.blockRange[b] = [2]ir.InstrID{lo, hi + 1}
	}
	return idx
}

// blocksOverlapping returns every block with at least one instruction in
// [lo, hi).
func (idx *index) blocksOverlapping(lo, hi ir.InstrID) map[ir.BlockID]struct{} {
	out := map[ir.BlockID]struct{}{}
	for id, b := range idx.blockOf {
		if id >= lo && id < hi {
			out[b] = struct{}{}
		}
	}
	return out
}

// infer seeds one scope candidate per SSA identifier that either escapes
// its defining block (read from another block, or supplied as a phi's
// incoming operand — a join use, even a self-loop's own predecessor
// counts) or names a source-level `let`/`const` binding (any StoreLocal
// whose destination carries a surface name rather than a compiler-minted
// temp). The second half of that criterion matters for a straight-line,
// single-block function: spec.md §8 scenario (f)'s
// `function s(x){ const a = x*2; const b = a+1; return b; }` never has a
// value cross a block boundary, so the escape-only criterion alone would
// seed zero scopes and leave the whole body unmemoized. Every named
// binding gets a candidate regardless of block locality; align()'s
// whole-block widening (and merge()'s overlap union) still collapse
// same-block candidates into one scope the same way they always did.
func infer(f *ir.HIRFunction, idx *index) []*ir.ReactiveScope {
	candidates := map[ir.Identifier]struct{}{}

	for _, b := range f.BlockOrder() {
		blk := f.Block(b)
		for _, instr := range blk.Instructions {
			if store, ok := instr.Value.(ir.StoreLocal); ok && store.Dst.Ident.Name != "" {
				candidates[store.Dst.Ident] = struct{}{}
			}
			if phi, ok := instr.Value.(ir.Phi); ok {
				for _, p := range phi.Incoming {
					candidates[p.Ident] = struct{}{}
				}
			}
			for _, used := range usesOf(instr.Value) {
				if def, ok := idx.blockOf[idx.defSite[used]]; ok && def != b {
					candidates[used] = struct{}{}
				}
			}
		}
		if blk.Terminator != nil {
			for _, used := range terminatorUsesOf(blk.Terminator) {
				if def, ok := idx.blockOf[idx.defSite[used]]; ok && def != b {
					candidates[used] = struct{}{}
				}
			}
		}
	}

	ids := make([]ir.Identifier, 0, len(candidates))
	for id := range candidates {
		if _, ok := idx.defSite[id]; !ok {
			continue // free/global reference with no local definition to scope
		}
		if idx.defSite[id] == paramDef {
			continue // a parameter is never itself scoped, only ever a dependency
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return idx.defSite[ids[i]] < idx.defSite[ids[j]]
	})

	var scopes []*ir.ReactiveScope
	for _, id := range ids {
		def := idx.defSite[id]
		s := ir.NewReactiveScope(f.NewScope(), def)
		s.Declarations[id] = def
		scopes = append(scopes, s)
	}
	return scopes
}

// align widens every scope until its range neither splits a basic block
// nor splits a branch/loop/protected-region structure. A block's
// immediate dominator being a branch test, loop header, or a
// handler-guarded block means that block belongs to that structure's
// region; widening to the structure root's whole dominator subtree pulls
// the branch/loop/try body and its merge or handler block in together,
// so a scope edge never lands inside one arm of a diamond, one iteration
// of a loop, or one side of a protected-region boundary.
func align(f *ir.HIRFunction, dom *dominators.Info, idx *index, scopeList []*ir.ReactiveScope) {
	children := childrenOf(f, dom)

	for _, s := range scopeList {
		for {
			changed := false
			for b := range idx.blocksOverlapping(s.RangeFirst, s.RangeLast) {
				lo, hi := idx.blockRange[b][0], idx.blockRange[b][1]
				if lo < s.RangeFirst || hi > s.RangeLast {
					s.Widen(lo, hi)
					changed = true
				}
				if parent, ok := dom.IDom(b); ok && isRegionRoot(f, parent) {
					plo, phi := subtreeRange(f, idx, children, parent)
					if plo < s.RangeFirst || phi > s.RangeLast {
						s.Widen(plo, phi)
						changed = true
					}
				}
			}
			if !changed {
				break
			}
		}
	}
}

// isRegionRoot reports whether b is the structural root of a
// branch/loop/protected region: an If/Switch test block, a loop header,
// or a block whose exceptional edge targets a handler.
func isRegionRoot(f *ir.HIRFunction, b ir.BlockID) bool {
	blk := f.Block(b)
	if blk.Kind == ir.BlockLoopHeader || blk.HasHandler {
		return true
	}
	switch blk.Terminator.(type) {
	case ir.If, ir.Switch:
		return true
	}
	return false
}

// subtreeRange returns the instruction-id span covering root and every
// block its dominator subtree contains.
func subtreeRange(f *ir.HIRFunction, idx *index, children map[ir.BlockID][]ir.BlockID, root ir.BlockID) (ir.InstrID, ir.InstrID) {
	var lo, hi ir.InstrID
	first := true
	var walk func(ir.BlockID)
	walk = func(b ir.BlockID) {
		if r, ok := idx.blockRange[b]; ok {
			if first || r[0] < lo {
				lo, first = r[0], false
			}
			if r[1] > hi {
				hi = r[1]
			}
		}
		for _, kid := range children[b] {
			walk(kid)
		}
	}
	walk(root)
	return lo, hi
}

func childrenOf(f *ir.HIRFunction, dom *dominators.Info) map[ir.BlockID][]ir.BlockID {
	children := map[ir.BlockID][]ir.BlockID{}
	for _, b := range dom.ReversePostOrder() {
		if idomB, ok := dom.IDom(b); ok {
			children[idomB] = append(children[idomB], b)
		}
	}
	return children
}

// merge unions scopes whose ranges intersect, or whose bodies cross-read
// an identifier the other defines, to a fixed point.
func merge(idx *index, scopeList []*ir.ReactiveScope) []*ir.ReactiveScope {
	for {
		mergedAny := false
		for i := 0; i < len(scopeList); i++ {
			for j := i + 1; j < len(scopeList); j++ {
				a, b := scopeList[i], scopeList[j]
				if a.Overlaps(b) || crossReferences(idx, a, b) || crossReferences(idx, b, a) {
					a.Widen(b.RangeFirst, b.RangeLast)
					for id, def := range b.Declarations {
						a.Declarations[id] = def
					}
					for name := range b.Reassigned {
						a.Reassigned[name] = struct{}{}
					}
					scopeList = append(scopeList[:j], scopeList[j+1:]...)
					mergedAny = true
					break
				}
			}
			if mergedAny {
				break
			}
		}
		if !mergedAny {
			break
		}
	}
	return scopeList
}

// crossReferences reports whether any instruction in a's range reads an
// identifier defined by an instruction inside b's range.
func crossReferences(idx *index, a, b *ir.ReactiveScope) bool {
	for id := range idx.blocksOverlapping(a.RangeFirst, a.RangeLast) {
		for _, instr := range instructionsOf(idx, id, a) {
			for _, used := range usesOf(instr.Value) {
				if def, ok := idx.defSite[used]; ok && def >= b.RangeFirst && def < b.RangeLast {
					return true
				}
			}
		}
	}
	return false
}

func instructionsOf(idx *index, b ir.BlockID, s *ir.ReactiveScope) []*ir.Instruction {
	var out []*ir.Instruction
	for id, owner := range idx.blockOf {
		if owner != b || id < s.RangeFirst || id >= s.RangeLast {
			continue
		}
		out = append(out, idx.instrOf[id])
	}
	return out
}

// dependencies fills in s.Dependencies and s.Reassigned from its final
// range: every place read inside the range whose definition lies outside
// it is a dependency, unless that definition is a compile-time constant
// (provably invariant, so a change-detection check against it can never
// fire) or lies within the range itself.
func dependencies(f *ir.HIRFunction, idx *index, s *ir.ReactiveScope) {
	versionsByBase := map[int]map[int]struct{}{}

	for id, instr := range idx.instrOf {
		if id < s.RangeFirst || id >= s.RangeLast {
			continue
		}
		if instr.LValue != nil && instr.LValue.Ident.ID >= 0 {
			base := instr.LValue.Ident.ID
			if versionsByBase[base] == nil {
				versionsByBase[base] = map[int]struct{}{}
			}
			versionsByBase[base][instr.LValue.Ident.Version] = struct{}{}
		}
		for _, used := range usesOf(instr.Value) {
			addDependency(f, idx, s, used)
		}
	}
	for b := range idx.blocksOverlapping(s.RangeFirst, s.RangeLast) {
		blk := f.Block(b)
		if blk.Terminator == nil {
			continue
		}
		for _, used := range terminatorUsesOf(blk.Terminator) {
			addDependency(f, idx, s, used)
		}
	}

	for base, vs := range versionsByBase {
		if len(vs) < 2 {
			continue
		}
		for declID := range s.Declarations {
			if declID.ID == base && declID.Name != "" {
				s.Reassigned[declID.Name] = struct{}{}
			}
		}
	}
}

func addDependency(f *ir.HIRFunction, idx *index, s *ir.ReactiveScope, used ir.Identifier) {
	def, ok := idx.defSite[used]
	if ok && def >= s.RangeFirst && def < s.RangeLast {
		return // defined inside this scope: not an external dependency
	}
	if ok && def != paramDef {
		if instr, ok := idx.instrOf[def]; ok {
			if _, isConst := instr.Value.(ir.ConstantValue); isConst {
				return // compile-time constant: provably invariant, never a real dependency
			}
		}
	}
	s.Dependencies[ir.Place{Ident: used, Effect: ir.EffectRead}] = struct{}{}
}

// usesOf and terminatorUsesOf mirror internal/liveness's operand walk;
// duplicated locally rather than exported from internal/liveness to keep
// each analysis pass independent of the others' internals.
func usesOf(v ir.Value) []ir.Identifier {
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

func terminatorUsesOf(term ir.Terminator) []ir.Identifier {
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
