// Package ssa implements C4: promoting internal/ir's LoadLocal/StoreLocal
// traffic over named identifiers into SSA form (spec.md §4.4) — phi
// placement via dominance-frontier iteration (Cytron et al.) followed by a
// dominator-tree renaming pass that gives every definition a fresh
// Identifier.Version and rewrites reads to the version live at that point.
package ssa

import (
	"sort"

	"reactivec/internal/dominators"
	"reactivec/internal/ir"
)

// Construct mutates f in place: every StoreLocal/LoadLocal against a named
// identifier is rewritten to reference a distinct SSA version, with Phi
// instructions inserted at the dominance-frontier join points Cytron's
// algorithm identifies. Compiler temporaries (Identifier.ID < 0) are left
// untouched: the StoreLocals that If-diamond lowering writes into them and
// the merge Phi that reads them keep the one unversioned temp identifier.
func Construct(f *ir.HIRFunction) {
	dom := dominators.Compute(f)
	defs := definitionSites(f)

	bases := make([]baseName, 0, len(defs))
	for base := range defs {
		bases = append(bases, base)
	}
	sort.Ints(bases)

	for _, base := range bases {
		sites := defs[base]
		if len(sites) < 2 {
			continue // a single definition site needs no phi: every read already sees it
		}
		placePhis(f, dom, base, sites)
	}

	rename(f, dom)
}

// baseName identifies one surface variable: its declaring Identifier.ID
// (stable across StoreLocal reassignments — internal/lower allocates one
// identifier per declaration, not per assignment).
type baseName = int

// definitionSites maps each named local's base identifier to the blocks
// containing a StoreLocal that defines it; every parameter also counts the
// entry block as a definition site.
func definitionSites(f *ir.HIRFunction) map[baseName]map[ir.BlockID]struct{} {
	sites := map[baseName]map[ir.BlockID]struct{}{}
	add := func(id int, block ir.BlockID) {
		if sites[id] == nil {
			sites[id] = map[ir.BlockID]struct{}{}
		}
		sites[id][block] = struct{}{}
	}
	for _, b := range f.BlockOrder() {
		for _, instr := range f.Block(b).Instructions {
			if store, ok := instr.Value.(ir.StoreLocal); ok && store.Dst.Ident.ID >= 0 {
				add(store.Dst.Ident.ID, b)
			}
		}
	}
	for _, p := range f.Params {
		add(p.Ident.ID, f.Body)
	}
	return sites
}

// placePhis runs the classical worklist over dominance frontiers: any
// block in the frontier of a block that defines base gets a phi (unless it
// already has one), and newly-phi'd blocks are themselves definition sites.
func placePhis(f *ir.HIRFunction, dom *dominators.Info, base baseName, sites map[ir.BlockID]struct{}) {
	hasPhi := map[ir.BlockID]struct{}{}
	worklist := make([]ir.BlockID, 0, len(sites))
	for b := range sites {
		worklist = append(worklist, b)
	}

	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for front := range dom.Frontier(b) {
			if _, done := hasPhi[front]; done {
				continue
			}
			hasPhi[front] = struct{}{}
			insertPhi(f, front, base)
			if _, already := sites[front]; !already {
				sites[front] = struct{}{}
				worklist = append(worklist, front)
			}
		}
	}
}

// insertPhi prepends an unresolved Phi instruction to block for base;
// rename fills in its real operands and identifier once reachable
// definitions are known. Incoming starts empty as a placeholder — rename
// populates one entry per predecessor.
func insertPhi(f *ir.HIRFunction, block ir.BlockID, base baseName) {
	ident := ir.Identifier{ID: base, Version: -1}
	lvalue := ir.Place{Ident: ident, Effect: ir.EffectRead}
	phi := &ir.Instruction{
		ID:     f.NextInstrID(),
		LValue: &lvalue,
		Value:  ir.Phi{Block: block, Incoming: map[ir.BlockID]ir.Place{}},
		Effect: ir.PureEffect,
	}
	b := f.Block(block)
	b.Instructions = append([]*ir.Instruction{phi}, b.Instructions...)
}

// rename performs the dominator-tree walk that assigns each definition a
// fresh SSA version and rewrites every read to the version live at that
// program point, then fills in phi operands from each predecessor's
// incoming version.
func rename(f *ir.HIRFunction, dom *dominators.Info) {
	counters := map[baseName]int{}
	current := map[baseName]ir.Identifier{}
	for _, p := range f.Params {
		current[p.Ident.ID] = versioned(p.Ident, bump(counters, p.Ident.ID))
	}

	children := childrenOf(f, dom)

	var walk func(ir.BlockID, map[baseName]ir.Identifier)
	walk = func(b ir.BlockID, incoming map[baseName]ir.Identifier) {
		local := copyVersions(incoming)

		for _, instr := range f.Block(b).Instructions {
			renameOperands(instr, local)
			if instr.LValue != nil && instr.LValue.Ident.ID >= 0 {
				if _, isPhi := instr.Value.(ir.Phi); isPhi {
					local[instr.LValue.Ident.ID] = versioned(instr.LValue.Ident, bump(counters, instr.LValue.Ident.ID))
					instr.LValue.Ident = local[instr.LValue.Ident.ID]
					continue
				}
			}
			if store, ok := instr.Value.(ir.StoreLocal); ok && store.Dst.Ident.ID >= 0 {
				v := versioned(store.Dst.Ident, bump(counters, store.Dst.Ident.ID))
				local[store.Dst.Ident.ID] = v
				store.Dst.Ident = v
				instr.Value = store
				if instr.LValue != nil {
					instr.LValue.Ident = v // the store is this version's defining instruction
				}
			}
		}
		renameTerminator(f.Block(b), local)

		for _, succ := range successors(f, b) {
			fillPhiOperand(f, succ, b, local)
		}

		for _, kid := range children[b] {
			walk(kid, local)
		}
	}
	walk(f.Body, current)
}

func bump(counters map[baseName]int, base baseName) int {
	v := counters[base]
	counters[base]++
	return v
}

func versioned(id ir.Identifier, version int) ir.Identifier {
	id.Version = version
	return id
}

func copyVersions(m map[baseName]ir.Identifier) map[baseName]ir.Identifier {
	out := make(map[baseName]ir.Identifier, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// renameOperands rewrites every Place this instruction's Value reads
// through to its currently-live SSA version, in place.
func renameOperands(instr *ir.Instruction, local map[baseName]ir.Identifier) {
	rewrite := func(p *ir.Place) {
		if v, ok := local[p.Ident.ID]; ok {
			p.Ident = v
		}
	}
	switch v := instr.Value.(type) {
	case ir.LoadLocal:
		rewrite(&v.Src)
		instr.Value = v
	case ir.StoreLocal:
		rewrite(&v.Src)
		instr.Value = v
	case ir.PropertyLoad:
		rewrite(&v.Object)
		instr.Value = v
	case ir.PropertyStore:
		rewrite(&v.Object)
		rewrite(&v.Value)
		instr.Value = v
	case ir.ComputedLoad:
		rewrite(&v.Object)
		rewrite(&v.Index)
		instr.Value = v
	case ir.ComputedStore:
		rewrite(&v.Object)
		rewrite(&v.Index)
		rewrite(&v.Value)
		instr.Value = v
	case ir.BinaryOp:
		rewrite(&v.L)
		rewrite(&v.R)
		instr.Value = v
	case ir.UnaryOp:
		rewrite(&v.Operand)
		instr.Value = v
	case ir.LogicalOp:
		rewrite(&v.L)
		rewrite(&v.R)
		instr.Value = v
	case ir.Call:
		rewrite(&v.Callee)
		for i := range v.Args {
			rewrite(&v.Args[i])
		}
		instr.Value = v
	case ir.NewExpr:
		rewrite(&v.Constructor)
		for i := range v.Args {
			rewrite(&v.Args[i])
		}
		instr.Value = v
	case ir.ObjectLiteral:
		for i := range v.Props {
			if v.Props[i].Computed != nil {
				rewrite(v.Props[i].Computed)
			}
			rewrite(&v.Props[i].Value)
		}
		instr.Value = v
	case ir.ArrayLiteral:
		for i := range v.Elems {
			rewrite(&v.Elems[i].Value)
		}
		instr.Value = v
	case ir.Spread:
		rewrite(&v.Operand)
		instr.Value = v
	case ir.DestructureTarget:
		rewrite(&v.Source)
		instr.Value = v
	case ir.Template:
		for i := range v.Exprs {
			rewrite(&v.Exprs[i])
		}
		instr.Value = v
	}
}

// renameTerminator rewrites b's terminator operands to their live SSA
// versions. Terminator values are stored in the interface by value, so the
// rewritten copy is written back onto the block explicitly.
func renameTerminator(b *ir.BasicBlock, local map[baseName]ir.Identifier) {
	rewrite := func(p *ir.Place) {
		if v, ok := local[p.Ident.ID]; ok {
			p.Ident = v
		}
	}
	switch t := b.Terminator.(type) {
	case ir.If:
		rewrite(&t.Test)
		b.Terminator = t
	case ir.Switch:
		rewrite(&t.Discriminant)
		for i := range t.Cases {
			rewrite(&t.Cases[i].Test)
		}
		b.Terminator = t
	case ir.Return:
		if t.Value != nil {
			rewrite(t.Value)
			b.Terminator = t
		}
	case ir.Throw:
		rewrite(&t.Value)
		b.Terminator = t
	}
}

// successors mirrors internal/ir's private traversal; SSA needs it to find
// which blocks to feed phi operands into.
func successors(f *ir.HIRFunction, id ir.BlockID) []ir.BlockID {
	b := f.Block(id)
	if b.Terminator == nil {
		return nil
	}
	switch t := b.Terminator.(type) {
	case ir.Goto:
		return []ir.BlockID{t.Target}
	case ir.If:
		return []ir.BlockID{t.Then, t.Else}
	case ir.Switch:
		targets := make([]ir.BlockID, 0, len(t.Cases)+1)
		for _, c := range t.Cases {
			targets = append(targets, c.Target)
		}
		if t.HasDefault {
			targets = append(targets, t.Default)
		}
		return targets
	default:
		return nil
	}
}

// fillPhiOperand records block's live version of every phi'd base in
// succ's phi instructions' Incoming map, keyed by block.
func fillPhiOperand(f *ir.HIRFunction, succ, block ir.BlockID, local map[baseName]ir.Identifier) {
	for _, instr := range f.Block(succ).Instructions {
		phi, ok := instr.Value.(ir.Phi)
		if !ok {
			continue
		}
		base := instr.LValue.Ident.ID
		if v, ok := local[base]; ok {
			phi.Incoming[block] = ir.Place{Ident: v, Effect: ir.EffectRead}
			instr.Value = phi
		}
	}
}

// childrenOf inverts the immediate-dominator map into a dominator-tree
// adjacency list, traversed root to leaves by rename's walk.
func childrenOf(f *ir.HIRFunction, dom *dominators.Info) map[ir.BlockID][]ir.BlockID {
	children := map[ir.BlockID][]ir.BlockID{}
	for _, b := range dom.ReversePostOrder() {
		if idom, ok := dom.IDom(b); ok {
			children[idom] = append(children[idom], b)
		}
	}
	for k := range children {
		sort.Slice(children[k], func(i, j int) bool { return children[k][i] < children[k][j] })
	}
	return children
}
