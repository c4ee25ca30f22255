// Package lower implements C2: translating a parsed internal/ast.Function
// into an internal/ir.HIRFunction (spec.md §4.2).
//
// Lowering is a single depth-first walk that threads a "current block"
// cursor through every statement and expression: each lowerStmt/lowerExpr
// call either appends instructions to the cursor block and returns it
// unchanged, or allocates new blocks for control flow and returns whichever
// block control continues in afterward. Once a block receives a terminator
// (Return, Throw, Goto into a loop back-edge, ...) it is never touched
// again — lowering simply stops feeding it further statements.
package lower

import (
	"reactivec/internal/ast"
	"reactivec/internal/diag"
	"reactivec/internal/ir"
	"reactivec/internal/token"
)

// loopCtx records the continue target for one enclosing loop (switch
// statements do not push one: unlabeled continue always targets the
// nearest loop, skipping any intervening switch).
type loopCtx struct {
	label     string
	continueT ir.BlockID
}

// breakCtx records the break target for one enclosing loop or switch.
type breakCtx struct {
	label  string
	breakT ir.BlockID
}

// lowerer carries the mutable state threaded through one function's
// lowering: the HIR being built, the scope chain mapping source names to
// their current storage identifier, and the loop/break/handler stacks that
// give break/continue/throw their targets.
type lowerer struct {
	fn   *ir.HIRFunction
	bag  *diag.Bag
	envs []map[string]ir.Identifier
	loop []loopCtx
	brk  []breakCtx

	// handlers is a stack of catch-block entry points; the innermost
	// enclosing try's handler is handlers[len(handlers)-1]. Empty means no
	// protected region is active.
	handlers []ir.BlockID
}

// Lower runs C2 on fn, producing a fresh HIRFunction and any diagnostics
// raised along the way (UnsupportedSyntax for constructs this compiler does
// not model; InvalidIR should never occur here since internal/ast is
// already well-formed by construction).
func Lower(fn *ast.Function) (*ir.HIRFunction, *diag.Bag) {
	hir := ir.NewFunction(fn.Name)
	bag := &diag.Bag{}
	lw := &lowerer{fn: hir, bag: bag}

	lw.pushScope()
	entry := hir.NewBlock(ir.BlockEntry)
	hir.Body = entry

	cur := entry
	for _, p := range fn.Params {
		cur = lw.bindParam(cur, p)
	}

	ok := true
	for _, s := range fn.Body {
		if !ok {
			break
		}
		cur, ok = lw.lowerStmt(cur, s)
	}
	if ok {
		hir.Terminate(cur, ir.Return{Value: nil})
	}
	lw.popScope()

	hir.RebuildPredecessors()
	return hir, bag
}

func (lw *lowerer) pushScope() {
	lw.envs = append(lw.envs, map[string]ir.Identifier{})
}

func (lw *lowerer) popScope() {
	lw.envs = lw.envs[:len(lw.envs)-1]
}

// declareLocal introduces name in the innermost scope, shadowing any outer
// binding of the same name, and returns its fresh storage identifier.
func (lw *lowerer) declareLocal(name string) ir.Identifier {
	ident := lw.fn.NewNamedIdentifier(name)
	lw.envs[len(lw.envs)-1][name] = ident
	return ident
}

// resolve finds name's current storage identifier, walking outward through
// enclosing scopes. A name never declared in this function is treated as a
// free reference to an outer/global binding: lowering allocates one stable
// identifier for it the first time it's seen so every use agrees.
func (lw *lowerer) resolve(name string) ir.Identifier {
	for i := len(lw.envs) - 1; i >= 0; i-- {
		if id, ok := lw.envs[i][name]; ok {
			return id
		}
	}
	id := lw.fn.NewNamedIdentifier(name)
	lw.envs[0][name] = id
	return id
}

// newBlock allocates a block and, when a try's protected region is active,
// marks it with that region's handler — so every block lowering creates
// while inside a try body is automatically wired to the right catch target
// without a separate post-hoc walk.
func (lw *lowerer) newBlock(kind ir.BlockKind) ir.BlockID {
	id := lw.fn.NewBlock(kind)
	if h, ok := lw.currentHandler(); ok {
		lw.fn.MarkHandler(id, h)
	}
	return id
}

func (lw *lowerer) currentHandler() (ir.BlockID, bool) {
	if len(lw.handlers) == 0 {
		return 0, false
	}
	return lw.handlers[len(lw.handlers)-1], true
}

func (lw *lowerer) pushLoop(label string, continueT, breakT ir.BlockID) {
	lw.loop = append(lw.loop, loopCtx{label: label, continueT: continueT})
	lw.brk = append(lw.brk, breakCtx{label: label, breakT: breakT})
}

func (lw *lowerer) popLoop() {
	lw.loop = lw.loop[:len(lw.loop)-1]
	lw.brk = lw.brk[:len(lw.brk)-1]
}

// pushSwitch registers only a break target: a switch is breakable but is
// never a continue target.
func (lw *lowerer) pushSwitch(label string, breakT ir.BlockID) {
	lw.brk = append(lw.brk, breakCtx{label: label, breakT: breakT})
}

func (lw *lowerer) popSwitch() {
	lw.brk = lw.brk[:len(lw.brk)-1]
}

// findBreak resolves a break label (empty label = innermost breakable
// construct, loop or switch).
func (lw *lowerer) findBreak(label string) (ir.BlockID, bool) {
	if label == "" {
		if len(lw.brk) == 0 {
			return 0, false
		}
		return lw.brk[len(lw.brk)-1].breakT, true
	}
	for i := len(lw.brk) - 1; i >= 0; i-- {
		if lw.brk[i].label == label {
			return lw.brk[i].breakT, true
		}
	}
	return 0, false
}

// findContinue resolves a continue label (empty label = innermost loop,
// switches are transparent to it).
func (lw *lowerer) findContinue(label string) (ir.BlockID, bool) {
	if label == "" {
		if len(lw.loop) == 0 {
			return 0, false
		}
		return lw.loop[len(lw.loop)-1].continueT, true
	}
	for i := len(lw.loop) - 1; i >= 0; i-- {
		if lw.loop[i].label == label {
			return lw.loop[i].continueT, true
		}
	}
	return 0, false
}

// unsupported records an UnsupportedSyntax diagnostic for a construct this
// compiler does not lower. It returns nothing; each caller decides how its
// own walk continues.
func (lw *lowerer) unsupported(span token.Span, construct string) {
	lw.bag.Add(diag.NewUnsupportedSyntax(1, span, construct))
}

func (lw *lowerer) pushInstr(cur ir.BlockID, v ir.Value, span token.Span) ir.Place {
	return lw.fn.PushInstruction(cur, v, span, ir.PureEffect)
}

func (lw *lowerer) pushCall(cur ir.BlockID, v ir.Value, span token.Span) ir.Place {
	return lw.fn.PushInstruction(cur, v, span, ir.CallEffect)
}

func (lw *lowerer) constPlace(cur ir.BlockID, c ir.Constant, span token.Span) ir.Place {
	return lw.pushInstr(cur, ir.ConstantValue{Constant: c}, span)
}

func (lw *lowerer) undefinedPlace(cur ir.BlockID, span token.Span) ir.Place {
	return lw.constPlace(cur, ir.Constant{Kind: ir.ConstUndefined}, span)
}
