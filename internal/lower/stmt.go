package lower

import (
	"reactivec/internal/ast"
	"reactivec/internal/ir"
)

// lowerStmt lowers one statement starting in cur. ok is false when s
// unconditionally transfers control away (return/throw/break/continue, or a
// block ending in one) — the caller must stop feeding cur further
// statements once ok is false, since it has already been terminated.
func (lw *lowerer) lowerStmt(cur ir.BlockID, s ast.Stmt) (next ir.BlockID, ok bool) {
	switch st := s.(type) {
	case *ast.VarDecl:
		return lw.lowerVarDecl(cur, st), true

	case *ast.ExprStmt:
		_, cur := lw.lowerExpr(cur, st.X)
		return cur, true

	case *ast.BlockStmt:
		lw.pushScope()
		defer lw.popScope()
		return lw.lowerStmtList(cur, st.Body)

	case *ast.IfStmt:
		return lw.lowerIf(cur, st)

	case *ast.WhileStmt:
		return lw.lowerWhile(cur, st)

	case *ast.DoWhileStmt:
		return lw.lowerDoWhile(cur, st)

	case *ast.ForStmt:
		return lw.lowerFor(cur, st)

	case *ast.ForInOfStmt:
		return lw.lowerForInOf(cur, st)

	case *ast.SwitchStmt:
		return lw.lowerSwitch(cur, st)

	case *ast.BreakStmt:
		target, found := lw.findBreak(st.Label)
		if !found {
			lw.unsupported(st.Span(), "break with no enclosing loop or switch")
			return cur, false
		}
		lw.fn.Terminate(cur, ir.Goto{Target: target})
		return cur, false

	case *ast.ContinueStmt:
		target, found := lw.findContinue(st.Label)
		if !found {
			lw.unsupported(st.Span(), "continue with no enclosing loop")
			return cur, false
		}
		lw.fn.Terminate(cur, ir.Goto{Target: target})
		return cur, false

	case *ast.ReturnStmt:
		if st.Value == nil {
			lw.fn.Terminate(cur, ir.Return{Value: nil})
			return cur, false
		}
		val, cur := lw.lowerExpr(cur, st.Value)
		lw.fn.Terminate(cur, ir.Return{Value: &val})
		return cur, false

	case *ast.ThrowStmt:
		val, cur := lw.lowerExpr(cur, st.Value)
		lw.fn.Terminate(cur, ir.Throw{Value: val})
		return cur, false

	case *ast.TryStmt:
		return lw.lowerTry(cur, st)

	case *ast.LabeledStmt:
		return lw.lowerLabeled(cur, st)

	default:
		lw.unsupported(s.Span(), "statement")
		return cur, true
	}
}

// lowerStmtList lowers a sequence of statements, stopping early once one of
// them terminates its block.
func (lw *lowerer) lowerStmtList(cur ir.BlockID, stmts []ast.Stmt) (ir.BlockID, bool) {
	ok := true
	for _, s := range stmts {
		if !ok {
			break
		}
		cur, ok = lw.lowerStmt(cur, s)
	}
	return cur, ok
}

func (lw *lowerer) lowerVarDecl(cur ir.BlockID, d *ast.VarDecl) ir.BlockID {
	for _, decl := range d.Declarators {
		var src ir.Place
		if decl.Init != nil {
			src, cur = lw.lowerExpr(cur, decl.Init)
		} else {
			src = lw.undefinedPlace(cur, d.Span())
		}
		cur = lw.bindPattern(cur, decl.Target, src, nil)
	}
	return cur
}

func (lw *lowerer) lowerIf(cur ir.BlockID, st *ast.IfStmt) (ir.BlockID, bool) {
	test, cur := lw.lowerExpr(cur, st.Test)
	thenBlock := lw.newBlock(ir.BlockBody)
	elseBlock := lw.newBlock(ir.BlockBody)

	if st.Else == nil {
		merge := lw.newBlock(ir.BlockBranchMerge)
		lw.fn.Terminate(cur, ir.If{Test: test, Then: thenBlock, Else: merge})
		thenEnd, thenOK := lw.lowerStmt(thenBlock, st.Then)
		if thenOK {
			lw.fn.Terminate(thenEnd, ir.Goto{Target: merge})
		}
		return merge, true
	}

	lw.fn.Terminate(cur, ir.If{Test: test, Then: thenBlock, Else: elseBlock})
	thenEnd, thenOK := lw.lowerStmt(thenBlock, st.Then)
	elseEnd, elseOK := lw.lowerStmt(elseBlock, st.Else)

	if !thenOK && !elseOK {
		return thenEnd, false
	}
	merge := lw.newBlock(ir.BlockBranchMerge)
	if thenOK {
		lw.fn.Terminate(thenEnd, ir.Goto{Target: merge})
	}
	if elseOK {
		lw.fn.Terminate(elseEnd, ir.Goto{Target: merge})
	}
	return merge, true
}

// lowerWhile: header tests, body loops back to header, break target is the
// block after the loop (spec.md §4.2, BlockLoopHeader/BlockLoopLatch).
func (lw *lowerer) lowerWhile(cur ir.BlockID, st *ast.WhileStmt) (ir.BlockID, bool) {
	header := lw.newBlock(ir.BlockLoopHeader)
	body := lw.newBlock(ir.BlockBody)
	after := lw.newBlock(ir.BlockBranchMerge)
	lw.fn.Terminate(cur, ir.Goto{Target: header})

	test, headerEnd := lw.lowerExpr(header, st.Test)
	lw.fn.Terminate(headerEnd, ir.If{Test: test, Then: body, Else: after})

	lw.pushLoop(st.Label, header, after)
	bodyEnd, bodyOK := lw.lowerStmt(body, st.Body)
	lw.popLoop()
	if bodyOK {
		lw.fn.Terminate(bodyEnd, ir.Goto{Target: header})
	}
	return after, true
}

func (lw *lowerer) lowerDoWhile(cur ir.BlockID, st *ast.DoWhileStmt) (ir.BlockID, bool) {
	body := lw.newBlock(ir.BlockBody)
	latch := lw.newBlock(ir.BlockLoopLatch)
	after := lw.newBlock(ir.BlockBranchMerge)
	lw.fn.Terminate(cur, ir.Goto{Target: body})

	lw.pushLoop(st.Label, latch, after)
	bodyEnd, bodyOK := lw.lowerStmt(body, st.Body)
	lw.popLoop()
	if bodyOK {
		lw.fn.Terminate(bodyEnd, ir.Goto{Target: latch})
	}

	test, latchEnd := lw.lowerExpr(latch, st.Test)
	lw.fn.Terminate(latchEnd, ir.If{Test: test, Then: body, Else: after})
	return after, true
}

// lowerFor follows the canonical for-shape C7 recognizes: init runs once,
// header tests, body runs, latch runs the update and loops back to header.
func (lw *lowerer) lowerFor(cur ir.BlockID, st *ast.ForStmt) (ir.BlockID, bool) {
	lw.pushScope()
	defer lw.popScope()

	if st.Init != nil {
		var ok bool
		cur, ok = lw.lowerStmt(cur, st.Init)
		if !ok {
			return cur, false
		}
	}

	header := lw.newBlock(ir.BlockLoopHeader)
	body := lw.newBlock(ir.BlockBody)
	latch := lw.newBlock(ir.BlockLoopLatch)
	after := lw.newBlock(ir.BlockBranchMerge)
	lw.fn.Terminate(cur, ir.Goto{Target: header})

	headerEnd := header
	if st.Test != nil {
		var test ir.Place
		test, headerEnd = lw.lowerExpr(header, st.Test)
		lw.fn.Terminate(headerEnd, ir.If{Test: test, Then: body, Else: after})
	} else {
		lw.fn.Terminate(headerEnd, ir.Goto{Target: body})
	}

	lw.pushLoop(st.Label, latch, after)
	bodyEnd, bodyOK := lw.lowerStmt(body, st.Body)
	lw.popLoop()
	if bodyOK {
		lw.fn.Terminate(bodyEnd, ir.Goto{Target: latch})
	}

	latchEnd := latch
	if st.Update != nil {
		_, latchEnd = lw.lowerExpr(latch, st.Update)
	}
	lw.fn.Terminate(latchEnd, ir.Goto{Target: header})

	return after, true
}

// lowerForInOf lowers `for (x in/of expr) body` via reserved iteration
// helpers ($forInKeys / $forOfIterator + $iterNext), the same
// runtime-helper strategy destructuring rest elements use.
func (lw *lowerer) lowerForInOf(cur ir.BlockID, st *ast.ForInOfStmt) (ir.BlockID, bool) {
	lw.pushScope()
	defer lw.popScope()

	right, cur := lw.lowerExpr(cur, st.Right)
	helperName := "$forInKeys"
	if st.Of {
		helperName = "$forOfIterator"
	}
	helper := lw.resolve(helperName)
	iter := lw.pushCall(cur, ir.Call{Callee: ir.Place{Ident: helper, Effect: ir.EffectRead}, Args: []ir.Place{right}}, st.Span())

	header := lw.newBlock(ir.BlockLoopHeader)
	body := lw.newBlock(ir.BlockBody)
	latch := lw.newBlock(ir.BlockLoopLatch)
	after := lw.newBlock(ir.BlockBranchMerge)
	lw.fn.Terminate(cur, ir.Goto{Target: header})

	nextFn := lw.resolve("$iterNext")
	step := lw.pushCall(header, ir.Call{Callee: ir.Place{Ident: nextFn, Effect: ir.EffectRead}, Args: []ir.Place{iter}}, st.Span())
	done := lw.pushInstr(header, ir.PropertyLoad{Object: step, Key: "done"}, st.Span())
	lw.fn.Terminate(header, ir.If{Test: done, Then: after, Else: body})

	value := lw.pushInstr(body, ir.PropertyLoad{Object: step, Key: "value"}, st.Span())
	bodyCur := body
	if st.IsDecl {
		bodyCur = lw.bindPattern(bodyCur, st.Target, value, nil)
	} else {
		bodyCur = lw.assignPattern(bodyCur, st.Target, value)
	}

	lw.pushLoop(st.Label, latch, after)
	bodyEnd, bodyOK := lw.lowerStmt(bodyCur, st.Body)
	lw.popLoop()
	if bodyOK {
		lw.fn.Terminate(bodyEnd, ir.Goto{Target: latch})
	}
	lw.fn.Terminate(latch, ir.Goto{Target: header})

	return after, true
}

// lowerSwitch builds a genuine ir.Switch terminator (see
// internal/ir/block.go's Switch doc comment): the discriminant is
// evaluated once, each case tests strict equality, and fall-through is
// realized by case bodies Goto-chaining into the next case's body block.
func (lw *lowerer) lowerSwitch(cur ir.BlockID, st *ast.SwitchStmt) (ir.BlockID, bool) {
	disc, cur := lw.lowerExpr(cur, st.Discriminant)
	after := lw.newBlock(ir.BlockBranchMerge)

	type caseBlock struct {
		body ir.BlockID
	}
	blocks := make([]caseBlock, len(st.Cases))
	for i, c := range st.Cases {
		kind := ir.BlockCaseBody
		if c.Test == nil {
			kind = ir.BlockDefaultBody
		}
		blocks[i] = caseBlock{body: lw.newBlock(kind)}
	}

	cases := make([]ir.SwitchCase, 0, len(st.Cases))
	var defaultBlock ir.BlockID
	hasDefault := false
	testCur := cur
	for i, c := range st.Cases {
		if c.Test == nil {
			defaultBlock = blocks[i].body
			hasDefault = true
			continue
		}
		var test ir.Place
		test, testCur = lw.lowerExpr(testCur, c.Test)
		cases = append(cases, ir.SwitchCase{Test: test, Target: blocks[i].body})
	}
	if !hasDefault {
		defaultBlock = after
	}
	lw.fn.Terminate(testCur, ir.Switch{Discriminant: disc, Cases: cases, Default: defaultBlock, HasDefault: hasDefault})

	lw.pushSwitch(st.Label, after)
	for i, c := range st.Cases {
		bodyEnd, bodyOK := lw.lowerStmtList(blocks[i].body, c.Body)
		if bodyOK {
			if i+1 < len(blocks) {
				lw.fn.Terminate(bodyEnd, ir.Goto{Target: blocks[i+1].body})
			} else {
				lw.fn.Terminate(bodyEnd, ir.Goto{Target: after})
			}
		}
	}
	lw.popSwitch()

	return after, true
}

// lowerTry lowers try/catch/finally: the protected block's throwing
// instructions target catchBlock when present (MarkHandler), and
// finallyBlock — when present — is threaded after both the normal and
// caught paths (spec.md §4.2; §9 resolved open question ii treats the
// protected region as a hard reactive-scope boundary, enforced in
// internal/scopes rather than here).
func (lw *lowerer) lowerTry(cur ir.BlockID, st *ast.TryStmt) (ir.BlockID, bool) {
	// catchBlock is allocated before the protected region's own blocks so
	// pushing it onto the handler stack first makes newBlock mark every
	// block the try body creates, tryBlock included.
	var catchBlock ir.BlockID
	if st.HasCatch {
		catchBlock = lw.fn.NewBlock(ir.BlockBody)
		lw.handlers = append(lw.handlers, catchBlock)
	}

	tryBlock := lw.newBlock(ir.BlockBody)
	lw.fn.Terminate(cur, ir.Goto{Target: tryBlock})
	tryEnd, tryOK := lw.lowerStmt(tryBlock, st.Block)

	var catchEnd ir.BlockID
	catchOK := true
	if st.HasCatch {
		lw.handlers = lw.handlers[:len(lw.handlers)-1]
		lw.pushScope()
		bodyStart := catchBlock
		if st.CatchParam != nil {
			errPlace := lw.fn.NewTemp()
			bodyStart = lw.bindPattern(catchBlock, st.CatchParam, ir.Place{Ident: errPlace, Effect: ir.EffectRead}, nil)
		}
		catchEnd, catchOK = lw.lowerStmt(bodyStart, st.CatchBlock)
		lw.popScope()
	}

	after := lw.newBlock(ir.BlockBranchMerge)
	anyOK := false
	if tryOK {
		lw.fn.Terminate(tryEnd, ir.Goto{Target: after})
		anyOK = true
	}
	if st.HasCatch && catchOK {
		lw.fn.Terminate(catchEnd, ir.Goto{Target: after})
		anyOK = true
	}

	if st.FinallyBlock != nil {
		finallyStart := lw.newBlock(ir.BlockBody)
		// Rewire: both normal exits land in finallyStart instead of after.
		if tryOK {
			lw.retarget(tryEnd, after, finallyStart)
		}
		if st.HasCatch && catchOK {
			lw.retarget(catchEnd, after, finallyStart)
		}
		finallyEnd, finallyOK := lw.lowerStmt(finallyStart, st.FinallyBlock)
		if !finallyOK {
			return finallyEnd, false
		}
		lw.fn.Terminate(finallyEnd, ir.Goto{Target: after})
		return after, true
	}

	if !anyOK {
		return after, false
	}
	return after, true
}

// retarget rewrites a Goto terminator's target, used to splice a finally
// block between a try/catch body's normal exit and the statement's true
// continuation.
func (lw *lowerer) retarget(block, from, to ir.BlockID) {
	b := lw.fn.Block(block)
	if g, ok := b.Terminator.(ir.Goto); ok && g.Target == from {
		b.Terminator = ir.Goto{Target: to}
	}
}

func (lw *lowerer) lowerLabeled(cur ir.BlockID, st *ast.LabeledStmt) (ir.BlockID, bool) {
	switch body := st.Body.(type) {
	case *ast.WhileStmt:
		body.Label = st.Label
		return lw.lowerWhile(cur, body)
	case *ast.DoWhileStmt:
		body.Label = st.Label
		return lw.lowerDoWhile(cur, body)
	case *ast.ForStmt:
		body.Label = st.Label
		return lw.lowerFor(cur, body)
	case *ast.ForInOfStmt:
		body.Label = st.Label
		return lw.lowerForInOf(cur, body)
	case *ast.SwitchStmt:
		body.Label = st.Label
		return lw.lowerSwitch(cur, body)
	default:
		return lw.lowerStmt(cur, st.Body)
	}
}
