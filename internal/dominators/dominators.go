// Package dominators computes dominator trees and dominance frontiers over
// an internal/ir.HIRFunction's control-flow graph, the classical
// Cooper-Harvey-Kennedy iterative algorithm (C3, spec.md §4.3). internal/ssa
// consumes both to place phi nodes and rename variables.
package dominators

import "reactivec/internal/ir"

// Info is the result of one Compute call: each reachable block's immediate
// dominator and dominance frontier, keyed by BlockID. Internally the entry
// block maps to itself in idom (the usual fixed-point sentinel); IDom hides
// that and reports entry as having none.
type Info struct {
	entry    ir.BlockID
	order    []ir.BlockID
	idom     map[ir.BlockID]ir.BlockID
	frontier map[ir.BlockID]map[ir.BlockID]struct{}
}

// IDom returns b's immediate dominator. The entry block has no immediate
// dominator; ok is false for it and for any unreachable block.
func (in *Info) IDom(b ir.BlockID) (ir.BlockID, bool) {
	if b == in.entry {
		return 0, false
	}
	id, ok := in.idom[b]
	return id, ok
}

// Dominates reports whether a dominates b (every path from entry to b
// passes through a), reflexively: a dominates itself.
func (in *Info) Dominates(a, b ir.BlockID) bool {
	for cur := b; ; {
		if cur == a {
			return true
		}
		if cur == in.entry {
			return false
		}
		next, ok := in.idom[cur]
		if !ok {
			return false
		}
		cur = next
	}
}

// Frontier returns b's dominance frontier: the set of blocks b dominates a
// predecessor of but does not strictly dominate.
func (in *Info) Frontier(b ir.BlockID) map[ir.BlockID]struct{} {
	return in.frontier[b]
}

// ReversePostOrder returns blocks in the reverse-postorder traversal order
// Compute used, reused by internal/reactivetree for its own traversal.
func (in *Info) ReversePostOrder() []ir.BlockID {
	return in.order
}

// Compute builds dominator and dominance-frontier information for f,
// reachable from f.Body. Unreachable blocks (dead code the parser/lowerer
// never produces except via always-true/always-false literal conditions)
// are simply absent from the result.
func Compute(f *ir.HIRFunction) *Info {
	order := reversePostOrder(f)
	rpoIndex := make(map[ir.BlockID]int, len(order))
	for i, b := range order {
		rpoIndex[b] = i
	}

	idom := make(map[ir.BlockID]ir.BlockID, len(order))
	idom[f.Body] = f.Body

	changed := true
	for changed {
		changed = false
		for _, b := range order[1:] {
			var newIdom ir.BlockID
			has := false
			for pred := range f.Block(b).Predecessors {
				if _, ok := rpoIndex[pred]; !ok {
					continue
				}
				if _, ok := idom[pred]; !ok {
					continue
				}
				if !has {
					newIdom = pred
					has = true
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, pred)
			}
			if !has {
				continue
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	frontier := make(map[ir.BlockID]map[ir.BlockID]struct{}, len(order))
	for _, b := range order {
		frontier[b] = map[ir.BlockID]struct{}{}
	}
	for _, b := range order {
		preds := f.Block(b).Predecessors
		if len(preds) < 2 {
			continue
		}
		for pred := range preds {
			if _, ok := idom[pred]; !ok {
				continue
			}
			for runner := pred; runner != idom[b]; runner = idom[runner] {
				frontier[runner][b] = struct{}{}
			}
		}
	}

	return &Info{entry: f.Body, order: order, idom: idom, frontier: frontier}
}

// intersect walks two blocks up the partially-built dominator tree until
// their paths meet, using reverse-postorder index as the "finger" ordering
// Cooper-Harvey-Kennedy relies on (a block with a smaller RPO index is
// always closer to the entry along the dominator tree).
func intersect(idom map[ir.BlockID]ir.BlockID, rpo map[ir.BlockID]int, a, b ir.BlockID) ir.BlockID {
	for a != b {
		for rpo[a] > rpo[b] {
			a = idom[a]
		}
		for rpo[b] > rpo[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostOrder walks f's CFG depth-first from f.Body and returns blocks
// in reverse postorder, the traversal both dominator computation and
// internal/reactivetree's reconstruction rely on.
func reversePostOrder(f *ir.HIRFunction) []ir.BlockID {
	visited := map[ir.BlockID]struct{}{}
	var post []ir.BlockID

	var visit func(ir.BlockID)
	visit = func(b ir.BlockID) {
		if _, ok := visited[b]; ok {
			return
		}
		visited[b] = struct{}{}
		for _, succ := range successorsOf(f, b) {
			visit(succ)
		}
		post = append(post, b)
	}
	visit(f.Body)

	order := make([]ir.BlockID, len(post))
	for i, b := range post {
		order[len(post)-1-i] = b
	}
	return order
}

// successorsOf mirrors the unexported successors() walk in internal/ir by
// re-deriving targets from the public Terminator union.
func successorsOf(f *ir.HIRFunction, id ir.BlockID) []ir.BlockID {
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
	case ir.ScopeStart:
		return []ir.BlockID{t.Body}
	default:
		return nil
	}
}
