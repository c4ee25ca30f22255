// Package reactivetree implements C7: reconstructing a structured,
// block-tree form from an SSA HIRFunction's CFG (spec.md §4.7), the shape
// internal/emit walks to produce source text.
//
// Reconstruction leans on a fact about internal/lower's output rather than
// running generic back-edge discovery: every loop, branch, and
// protected-region is built from one of a small number of canonical
// BasicBlock-kind shapes (internal/lower/stmt.go's header/body/latch/merge
// pattern), so the CFG's own BlockKind tags are enough to recognize each
// construct directly instead of re-deriving it from raw edges.
package reactivetree

import (
	"sort"

	"reactivec/internal/dominators"
	"reactivec/internal/ir"
)

// Node is implemented by every reconstructed tree node.
type Node interface {
	nodeKind()
}

// SeqElem is either a real HIR instruction or (when Instr is nil) a
// synthetic copy `StoreDst = StoreSrc` standing in for a phi operand —
// spec.md §4.7: "Phi nodes at merge blocks become explicit store
// instructions in each arm to a materialized merge place."
type SeqElem struct {
	Instr    *ir.Instruction
	StoreDst ir.Identifier
	StoreSrc ir.Place
}

// Seq is a straight-line run of instructions followed by whatever comes
// next — another Seq, a control node, or a terminal.
type Seq struct {
	Elems []SeqElem
	Next  Node
}

func (*Seq) nodeKind() {}

// If is a forward branch diamond. Else is nil when the source had no else
// clause and the false edge goes straight to the merge block.
type If struct {
	Test ir.Place
	Then Node
	Else Node
	Next Node
}

func (*If) nodeKind() {}

type SwitchCase struct {
	Test    ir.Place
	HasTest bool // false for the default case
	Body    Node
}

type Switch struct {
	Discriminant ir.Place
	Cases        []SwitchCase
	Next         Node
}

func (*Switch) nodeKind() {}

// Loop unifies while/do-while/for/for-in-of: Cond is the instruction
// sequence computing Test, re-run at the top of every iteration; Update is
// non-empty only for a canonical for-shape (header + separate latch),
// letting emission choose `for (; test; update)` so a native `continue`
// still runs the update, matching the source's for-loop semantics exactly
// (see internal/lower/stmt.go's lowerFor latch).
type Loop struct {
	Cond   []SeqElem
	Test   ir.Place
	Update []SeqElem
	Body   Node
	Next   Node
}

func (*Loop) nodeKind() {}

type Return struct{ Value *ir.Place }

func (*Return) nodeKind() {}

type Throw struct{ Value ir.Place }

func (*Throw) nodeKind() {}

// Break and Continue carry a label only when they target an outer
// construct than the innermost one — internal/lower's IR no longer
// remembers the source label text, so reconstruction mints its own when a
// jump skips past the nearest enclosing loop/switch.
type Break struct{ Label string }

func (*Break) nodeKind() {}

type Continue struct{ Label string }

func (*Continue) nodeKind() {}

// ScopeNode wraps the subtree internal/scopes identified as one reactive
// scope's range, pushed out to the nearest enclosing block boundary by
// construction (internal/scopes' alignment step already guarantees the
// range never splits a block or a branch/loop/protected-region structure).
type ScopeNode struct {
	Scope *ir.ReactiveScope
	Body  Node
	Next  Node
}

func (*ScopeNode) nodeKind() {}

// Build reconstructs f's body as a Node tree. f must already be in SSA
// form with internal/scopes.Analyze having populated f.Scopes.
func Build(f *ir.HIRFunction) Node {
	bld := newBuilder(f)
	node, _, _ := bld.buildFrom(f.Body)
	return node
}

type frame struct {
	target ir.BlockID
	label  string
}

type loopMeta struct {
	bodyEntry      ir.BlockID
	exit           ir.BlockID
	continueTarget ir.BlockID
	updateBlock    ir.BlockID
	hasUpdate      bool
}

type builder struct {
	f       *ir.HIRFunction
	dom     *dominators.Info
	visited map[ir.BlockID]bool

	blockLo map[ir.BlockID]ir.InstrID
	blockHi map[ir.BlockID]ir.InstrID

	loops        map[ir.BlockID]*loopMeta // keyed by test block (header, or the do-while latch itself)
	scopeStartAt map[ir.BlockID]*ir.ReactiveScope
	activeScope  *ir.ReactiveScope

	breakStack    []frame
	continueStack []frame
	labelSeq      int

	// switchBoundaries tracks, per currently-open switch, the set of
	// sibling case/default blocks a Goto into should be treated as plain
	// fallthrough rather than recursed into right there.
	switchBoundaries []map[ir.BlockID]bool
}

func (bld *builder) atCaseBoundary(target ir.BlockID) bool {
	if len(bld.switchBoundaries) == 0 {
		return false
	}
	return bld.switchBoundaries[len(bld.switchBoundaries)-1][target]
}

func newBuilder(f *ir.HIRFunction) *builder {
	bld := &builder{
		f:            f,
		dom:          dominators.Compute(f),
		visited:      map[ir.BlockID]bool{},
		blockLo:      map[ir.BlockID]ir.InstrID{},
		blockHi:      map[ir.BlockID]ir.InstrID{},
		loops:        map[ir.BlockID]*loopMeta{},
		scopeStartAt: map[ir.BlockID]*ir.ReactiveScope{},
	}
	for _, b := range f.BlockOrder() {
		blk := f.Block(b)
		if len(blk.Instructions) == 0 {
			continue
		}
		lo, hi := blk.Instructions[0].ID, blk.Instructions[0].ID
		for _, instr := range blk.Instructions {
			if instr.ID < lo {
				lo = instr.ID
			}
			if instr.ID > hi {
				hi = instr.ID
			}
		}
		bld.blockLo[b] = lo
		bld.blockHi[b] = hi + 1
	}
	bld.computeLoops()
	bld.computeScopeStarts()
	return bld
}

// computeLoops finds every loop's test/body/exit/continue/update blocks
// directly from BlockKind tags rather than discovering them through
// back-edge traversal, since internal/lower only ever emits these shapes:
// a BlockLoopHeader with an If (while/for), paired with an optional
// BlockLoopLatch that Gotos back to it (for/for-in-of's update step), or a
// lone BlockLoopLatch whose own terminator is the If (do-while).
func (bld *builder) computeLoops() {
	latchOfHeader := map[ir.BlockID]ir.BlockID{}
	for _, b := range bld.f.BlockOrder() {
		blk := bld.f.Block(b)
		if blk.Kind != ir.BlockLoopLatch {
			continue
		}
		if g, ok := blk.Terminator.(ir.Goto); ok {
			latchOfHeader[g.Target] = b
		}
	}

	pickBodyExit := func(then, els ir.BlockID) (body, exit ir.BlockID) {
		if bld.f.Block(then).Kind == ir.BlockBranchMerge {
			return els, then
		}
		return then, els
	}

	for _, b := range bld.f.BlockOrder() {
		blk := bld.f.Block(b)
		switch blk.Kind {
		case ir.BlockLoopHeader:
			ifT, ok := blk.Terminator.(ir.If)
			if !ok {
				continue
			}
			body, exit := pickBodyExit(ifT.Then, ifT.Else)
			meta := &loopMeta{bodyEntry: body, exit: exit, continueTarget: b}
			if latch, ok := latchOfHeader[b]; ok {
				meta.hasUpdate = true
				meta.updateBlock = latch
				meta.continueTarget = latch
			}
			bld.loops[b] = meta
		case ir.BlockLoopLatch:
			ifT, ok := blk.Terminator.(ir.If)
			if !ok {
				continue // the for/for-in-of latch shape: a plain Goto, handled above via latchOfHeader
			}
			body, exit := pickBodyExit(ifT.Then, ifT.Else)
			bld.loops[b] = &loopMeta{bodyEntry: body, exit: exit, continueTarget: b}
		}
	}
}

// computeScopeStarts records, for each scope, the block owning its first
// instruction — the point buildFrom opens a ScopeNode.
func (bld *builder) computeScopeStarts() {
	starts := make([]*ir.ReactiveScope, 0, len(bld.f.Scopes))
	for _, s := range bld.f.Scopes {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].RangeFirst < starts[j].RangeFirst })
	for _, s := range starts {
		for _, b := range bld.f.BlockOrder() {
			lo, ok := bld.blockLo[b]
			if !ok {
				continue
			}
			hi := bld.blockHi[b]
			if s.RangeFirst >= lo && s.RangeFirst < hi {
				bld.scopeStartAt[b] = s
				break
			}
		}
	}
}

func (bld *builder) seqElems(b ir.BlockID) []SeqElem {
	blk := bld.f.Block(b)
	elems := make([]SeqElem, 0, len(blk.Instructions))
	for _, instr := range blk.Instructions {
		if _, isPhi := instr.Value.(ir.Phi); isPhi {
			continue
		}
		elems = append(elems, SeqElem{Instr: instr})
	}
	return elems
}

// edgeStores returns the synthetic phi-resolution stores for the CFG edge
// from -> to: one assignment per phi instruction at to, reading from's
// incoming operand.
func (bld *builder) edgeStores(from, to ir.BlockID) []SeqElem {
	var out []SeqElem
	for _, instr := range bld.f.Block(to).Instructions {
		phi, ok := instr.Value.(ir.Phi)
		if !ok {
			continue
		}
		src, ok := phi.Incoming[from]
		if !ok {
			continue
		}
		out = append(out, SeqElem{StoreDst: instr.LValue.Ident, StoreSrc: src})
	}
	return out
}

func (bld *builder) findFrame(stack []frame, label string) (frame, bool) {
	if label == "" {
		if len(stack) == 0 {
			return frame{}, false
		}
		return stack[len(stack)-1], true
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].label == label {
			return stack[i], true
		}
	}
	return frame{}, false
}

func (bld *builder) newLabel() string {
	bld.labelSeq++
	return labelName(bld.labelSeq)
}

func labelName(n int) string {
	const letters = "LMNPQR"
	return "loop_" + string(letters[n%len(letters)])
}

// buildFrom constructs the subtree starting at b. It returns the built
// node plus, when an active scope boundary cut the chain short, the block
// id control continues at and true — otherwise ok is false and the chain
// is already complete (terminated by Return/Throw/Break/Continue, or ended
// because the function has no more blocks).
func (bld *builder) buildFrom(b ir.BlockID) (Node, ir.BlockID, bool) {
	if bld.activeScope != nil && bld.blockLo[b] >= bld.activeScope.RangeLast {
		return nil, b, true
	}
	if bld.visited[b] {
		return nil, 0, false
	}

	if scope, ok := bld.scopeStartAt[b]; ok && bld.activeScope != scope {
		outer := bld.activeScope
		bld.activeScope = scope
		body, cont, hasCont := bld.buildFrom(b)
		bld.activeScope = outer
		node := &ScopeNode{Scope: scope, Body: body}
		if hasCont {
			next, c2, h2 := bld.buildFrom(cont)
			node.Next = next
			return node, c2, h2
		}
		return node, 0, false
	}

	if meta, ok := bld.loops[b]; ok {
		return bld.buildLoop(b, meta)
	}

	bld.visited[b] = true
	blk := bld.f.Block(b)
	elems := bld.seqElems(b)

	switch t := blk.Terminator.(type) {
	case ir.Return:
		return &Seq{Elems: elems, Next: &Return{Value: t.Value}}, 0, false
	case ir.Throw:
		return &Seq{Elems: elems, Next: &Throw{Value: t.Value}}, 0, false
	case ir.Goto:
		if fr, ok := bld.findFrame(bld.continueStack, ""); ok && fr.target == t.Target {
			elems = append(elems, bld.edgeStores(b, t.Target)...)
			return &Seq{Elems: elems, Next: &Continue{}}, 0, false
		}
		if fr, ok := bld.findLabeledTarget(bld.continueStack, t.Target); ok {
			elems = append(elems, bld.edgeStores(b, t.Target)...)
			return &Seq{Elems: elems, Next: &Continue{Label: fr.label}}, 0, false
		}
		if fr, ok := bld.findFrame(bld.breakStack, ""); ok && fr.target == t.Target {
			elems = append(elems, bld.edgeStores(b, t.Target)...)
			return &Seq{Elems: elems, Next: &Break{}}, 0, false
		}
		if fr, ok := bld.findLabeledTarget(bld.breakStack, t.Target); ok {
			elems = append(elems, bld.edgeStores(b, t.Target)...)
			return &Seq{Elems: elems, Next: &Break{Label: fr.label}}, 0, false
		}
		if bld.atCaseBoundary(t.Target) {
			// A case body falling straight into the next case's block
			// (JS fallthrough): stop without consuming that block here so
			// its own SwitchCase entry builds it fresh.
			return &Seq{Elems: elems, Next: nil}, 0, false
		}
		elems = append(elems, bld.edgeStores(b, t.Target)...)
		child, cont, hasCont := bld.buildFrom(t.Target)
		return &Seq{Elems: elems, Next: child}, cont, hasCont
	case ir.If:
		return bld.buildIf(b, elems, t)
	case ir.Switch:
		return bld.buildSwitch(b, elems, t)
	default:
		return &Seq{Elems: elems, Next: nil}, 0, false
	}
}

// findLabeledTarget looks for a non-innermost frame matching target,
// minting a label for it on first discovery so later references agree.
func (bld *builder) findLabeledTarget(stack []frame, target ir.BlockID) (frame, bool) {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].target == target {
			if stack[i].label == "" {
				stack[i].label = bld.newLabel()
			}
			return stack[i], true
		}
	}
	return frame{}, false
}

func (bld *builder) buildIf(b ir.BlockID, elems []SeqElem, t ir.If) (Node, ir.BlockID, bool) {
	merge := bld.mergeChild(b)

	var thenNode Node
	if t.Then == merge {
		thenNode = &Seq{Elems: bld.edgeStores(b, merge)}
	} else {
		thenNode, _, _ = bld.buildFrom(t.Then)
	}

	var elseNode Node
	if t.Else == merge {
		stores := bld.edgeStores(b, merge)
		if len(stores) > 0 {
			elseNode = &Seq{Elems: stores}
		}
	} else {
		elseNode, _, _ = bld.buildFrom(t.Else)
	}

	ifNode := &If{Test: t.Test, Then: thenNode, Else: elseNode}
	if merge == 0 {
		// Both arms terminated (return/throw/break/continue): the merge
		// block lowerIf allocated is unreachable, so the If itself is
		// terminal — there is nothing to fall through to.
		return &Seq{Elems: elems, Next: ifNode}, 0, false
	}
	next, cont, hasCont := bld.buildFrom(merge)
	ifNode.Next = next
	return &Seq{Elems: elems, Next: ifNode}, cont, hasCont
}

// mergeChild finds the dominator-tree child of b that is the branch's
// merge block (Kind BlockBranchMerge) — robust whether the If has one or
// two real arms, since the merge block is always dominated directly by
// the test block itself, never by either arm alone.
func (bld *builder) mergeChild(b ir.BlockID) ir.BlockID {
	for _, kid := range bld.dom.ReversePostOrder() {
		if idomB, ok := bld.dom.IDom(kid); ok && idomB == b && bld.f.Block(kid).Kind == ir.BlockBranchMerge {
			return kid
		}
	}
	return 0
}

func (bld *builder) buildSwitch(b ir.BlockID, elems []SeqElem, t ir.Switch) (Node, ir.BlockID, bool) {
	after := bld.switchAfter(b, t)
	bld.breakStack = append(bld.breakStack, frame{target: after})

	boundary := map[ir.BlockID]bool{}
	for _, c := range t.Cases {
		boundary[c.Target] = true
	}
	if t.HasDefault {
		boundary[t.Default] = true
	}
	bld.switchBoundaries = append(bld.switchBoundaries, boundary)

	cases := make([]SwitchCase, 0, len(t.Cases)+1)
	for _, c := range t.Cases {
		raw, _, _ := bld.buildFrom(c.Target)
		body := prependStores(bld.edgeStores(b, c.Target), raw)
		cases = append(cases, SwitchCase{Test: c.Test, HasTest: true, Body: body})
	}
	if t.HasDefault {
		raw, _, _ := bld.buildFrom(t.Default)
		body := prependStores(bld.edgeStores(b, t.Default), raw)
		cases = append(cases, SwitchCase{Body: body})
	}

	bld.switchBoundaries = bld.switchBoundaries[:len(bld.switchBoundaries)-1]
	bld.breakStack = bld.breakStack[:len(bld.breakStack)-1]

	sw := &Switch{Discriminant: t.Discriminant, Cases: cases}
	if after == 0 {
		// Every case (and the default) terminated: the exit block lowerSwitch
		// allocated is unreachable, so the switch itself is terminal.
		return &Seq{Elems: elems, Next: sw}, 0, false
	}
	next, cont, hasCont := bld.buildFrom(after)
	sw.Next = next
	return &Seq{Elems: elems, Next: sw}, cont, hasCont
}

// switchAfter is the switch's shared exit block: when there's no default
// case, lowerSwitch already points Default straight at it; otherwise it's
// the dominator-tree child of b (the switch's own block) tagged
// BlockBranchMerge, found the same way an If's merge is.
func (bld *builder) switchAfter(b ir.BlockID, t ir.Switch) ir.BlockID {
	if !t.HasDefault {
		return t.Default
	}
	return bld.mergeChild(b)
}

func (bld *builder) buildLoop(test ir.BlockID, meta *loopMeta) (Node, ir.BlockID, bool) {
	label := ""
	bld.continueStack = append(bld.continueStack, frame{target: meta.continueTarget, label: label})
	bld.breakStack = append(bld.breakStack, frame{target: meta.exit, label: label})

	bld.visited[test] = true
	testElems := bld.seqElems(test)
	testIf := bld.f.Block(test).Terminator.(ir.If)

	rawBody, _, _ := bld.buildFrom(meta.bodyEntry)
	body := prependStores(bld.edgeStores(test, meta.bodyEntry), rawBody)

	var update []SeqElem
	if meta.hasUpdate {
		bld.visited[meta.updateBlock] = true
		update = bld.seqElems(meta.updateBlock)
	}

	bld.continueStack = bld.continueStack[:len(bld.continueStack)-1]
	bld.breakStack = bld.breakStack[:len(bld.breakStack)-1]

	loop := &Loop{Cond: testElems, Test: testIf.Test, Update: update, Body: body}
	rawNext, cont, hasCont := bld.buildFrom(meta.exit)
	loop.Next = prependStores(bld.edgeStores(test, meta.exit), rawNext)
	return loop, cont, hasCont
}

// prependStores splices synthetic phi-resolution stores onto the front of
// an already-built subtree, used for CFG edges (a loop test's true/false
// branches, an If's direct-to-merge arm) that aren't represented by a
// Goto instruction of their own.
func prependStores(stores []SeqElem, n Node) Node {
	if len(stores) == 0 {
		return n
	}
	return &Seq{Elems: stores, Next: n}
}
