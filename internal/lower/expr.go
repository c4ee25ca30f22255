package lower

import (
	"reactivec/internal/ast"
	"reactivec/internal/ir"
	"reactivec/internal/token"
)

// lowerExpr evaluates e starting in cur and returns its result place
// together with the block execution continues in — control-flow-bearing
// expressions (&&, ||, ??, ?:, ?.) allocate If-diamonds and hand back the
// merge block, everything else returns cur unchanged.
func (lw *lowerer) lowerExpr(cur ir.BlockID, e ast.Expr) (ir.Place, ir.BlockID) {
	switch x := e.(type) {
	case *ast.Literal:
		return lw.constPlace(cur, litConstant(x), x.Span()), cur

	case *ast.Ident:
		ident := lw.resolve(x.Name)
		return lw.pushInstr(cur, ir.LoadLocal{Src: ir.Place{Ident: ident, Effect: ir.EffectRead}}, x.Span()), cur

	case *ast.BinaryExpr:
		l, cur := lw.lowerExpr(cur, x.Left)
		r, cur := lw.lowerExpr(cur, x.Right)
		return lw.pushInstr(cur, ir.BinaryOp{Op: x.Op, L: l, R: r}, x.Span()), cur

	case *ast.LogicalExpr:
		return lw.lowerLogical(cur, x)

	case *ast.UnaryExpr:
		operand, cur := lw.lowerExpr(cur, x.Operand)
		return lw.pushInstr(cur, ir.UnaryOp{Op: x.Op, Operand: operand}, x.Span()), cur

	case *ast.UpdateExpr:
		return lw.lowerUpdate(cur, x)

	case *ast.AssignExpr:
		return lw.lowerAssign(cur, x)

	case *ast.ConditionalExpr:
		return lw.lowerConditional(cur, x)

	case *ast.CallExpr:
		return lw.lowerCall(cur, x)

	case *ast.NewExpr:
		callee, cur := lw.lowerExpr(cur, x.Callee)
		args, cur := lw.lowerArgs(cur, x.Args)
		return lw.pushCall(cur, ir.NewExpr{Constructor: callee, Args: args}, x.Span()), cur

	case *ast.MemberExpr:
		return lw.lowerMember(cur, x)

	case *ast.SpreadExpr:
		operand, cur := lw.lowerExpr(cur, x.Arg)
		return lw.pushInstr(cur, ir.Spread{Operand: operand}, x.Span()), cur

	case *ast.SequenceExpr:
		var last ir.Place
		for _, sub := range x.Exprs {
			last, cur = lw.lowerExpr(cur, sub)
		}
		return last, cur

	case *ast.ObjectExpr:
		return lw.lowerObject(cur, x)

	case *ast.ArrayExpr:
		return lw.lowerArray(cur, x)

	case *ast.TemplateExpr:
		return lw.lowerTemplate(cur, x)

	case *ast.TaggedTemplateExpr:
		return lw.lowerTaggedTemplate(cur, x)

	case *ast.FunctionExpr:
		nested, _ := Lower(x.Fn)
		return lw.pushInstr(cur, ir.FunctionValue{Fn: nested}, x.Span()), cur

	case *ast.JSXExpr:
		return lw.lowerJSX(cur, x)

	case *ast.PatternExpr:
		lw.unsupported(x.Span(), "bare pattern expression")
		return lw.undefinedPlace(cur, x.Span()), cur

	default:
		lw.unsupported(e.Span(), "expression")
		return lw.undefinedPlace(cur, e.Span()), cur
	}
}

func litConstant(l *ast.Literal) ir.Constant {
	kind := ir.ConstKind(l.Kind)
	return ir.Constant{Kind: kind, Bool: l.Bool, Int: l.Int, Float: l.Float, Cooked: l.Cooked, Raw: l.Raw}
}

// lowerArgs evaluates a call/new argument list left to right, preserving
// the parallel Spreads marker.
func (lw *lowerer) lowerArgs(cur ir.BlockID, args []ast.Expr) ([]ir.Place, ir.BlockID) {
	places := make([]ir.Place, len(args))
	for i, a := range args {
		var p ir.Place
		p, cur = lw.lowerExpr(cur, a)
		places[i] = p
	}
	return places, cur
}

// lowerLogical lowers &&, ||, ?? as an If-diamond over a shared temp
// (spec.md §4.2): the left operand's value is reused if it alone
// determines the result, the right operand is only evaluated on the
// short-circuit-false path.
func (lw *lowerer) lowerLogical(cur ir.BlockID, x *ast.LogicalExpr) (ir.Place, ir.BlockID) {
	left, cur := lw.lowerExpr(cur, x.Left)
	temp := lw.fn.NewTemp()
	lw.fn.PushInstruction(cur, ir.StoreLocal{Dst: ir.Place{Ident: temp, Effect: ir.EffectStore}, Src: left}, x.Span(), ir.PureEffect)

	var test ir.Place
	switch x.Op {
	case "&&":
		test = lw.pushInstr(cur, ir.UnaryOp{Op: "!", Operand: left}, x.Span())
	case "||":
		test = lw.pushInstr(cur, ir.UnaryOp{Op: "!", Operand: left}, x.Span())
		test = lw.pushInstr(cur, ir.UnaryOp{Op: "!", Operand: test}, x.Span())
	default: // "??"
		test = lw.pushInstr(cur, ir.UnaryOp{Op: "IsNullish", Operand: left}, x.Span())
	}

	evalRight := lw.newBlock(ir.BlockBody)
	skip := lw.newBlock(ir.BlockBody)
	merge := lw.newBlock(ir.BlockBranchMerge)

	switch x.Op {
	case "??":
		// the test is IsNullish(left): a nullish left evaluates right
		lw.fn.Terminate(cur, ir.If{Test: test, Then: evalRight, Else: skip})
	default: // "&&" and "||" evaluate right only when the short-circuit test is false
		lw.fn.Terminate(cur, ir.If{Test: test, Then: skip, Else: evalRight})
	}

	right, rightEnd := lw.lowerExpr(evalRight, x.Right)
	lw.fn.PushInstruction(rightEnd, ir.StoreLocal{Dst: ir.Place{Ident: temp, Effect: ir.EffectStore}, Src: right}, x.Span(), ir.PureEffect)
	lw.fn.Terminate(rightEnd, ir.Goto{Target: merge})
	lw.fn.Terminate(skip, ir.Goto{Target: merge})

	result := lw.fn.PushInstruction(merge, ir.Phi{Block: merge, Incoming: map[ir.BlockID]ir.Place{
		rightEnd: {Ident: temp, Effect: ir.EffectRead},
		skip:     {Ident: temp, Effect: ir.EffectRead},
	}}, x.Span(), ir.PureEffect)
	return result, merge
}

func (lw *lowerer) lowerConditional(cur ir.BlockID, x *ast.ConditionalExpr) (ir.Place, ir.BlockID) {
	test, cur := lw.lowerExpr(cur, x.Test)
	temp := lw.fn.NewTemp()

	thenBlock := lw.newBlock(ir.BlockBody)
	elseBlock := lw.newBlock(ir.BlockBody)
	merge := lw.newBlock(ir.BlockBranchMerge)
	lw.fn.Terminate(cur, ir.If{Test: test, Then: thenBlock, Else: elseBlock})

	thenVal, thenEnd := lw.lowerExpr(thenBlock, x.Then)
	lw.fn.PushInstruction(thenEnd, ir.StoreLocal{Dst: ir.Place{Ident: temp, Effect: ir.EffectStore}, Src: thenVal}, x.Span(), ir.PureEffect)
	lw.fn.Terminate(thenEnd, ir.Goto{Target: merge})

	elseVal, elseEnd := lw.lowerExpr(elseBlock, x.Else)
	lw.fn.PushInstruction(elseEnd, ir.StoreLocal{Dst: ir.Place{Ident: temp, Effect: ir.EffectStore}, Src: elseVal}, x.Span(), ir.PureEffect)
	lw.fn.Terminate(elseEnd, ir.Goto{Target: merge})

	result := lw.fn.PushInstruction(merge, ir.Phi{Block: merge, Incoming: map[ir.BlockID]ir.Place{
		thenEnd: {Ident: temp, Effect: ir.EffectRead},
		elseEnd: {Ident: temp, Effect: ir.EffectRead},
	}}, x.Span(), ir.PureEffect)
	return result, merge
}

// lowerMember lowers property access; optional chaining (`?.`) expands to
// an If-diamond short-circuiting to undefined when the object is nullish
// (spec.md §4.2).
func (lw *lowerer) lowerMember(cur ir.BlockID, x *ast.MemberExpr) (ir.Place, ir.BlockID) {
	obj, cur := lw.lowerExpr(cur, x.Object)
	if !x.Optional {
		if x.Computed {
			idx, cur := lw.lowerExpr(cur, x.Index)
			return lw.pushInstr(cur, ir.ComputedLoad{Object: obj, Index: idx}, x.Span()), cur
		}
		return lw.pushInstr(cur, ir.PropertyLoad{Object: obj, Key: x.Property}, x.Span()), cur
	}
	return lw.shortCircuitNullish(cur, obj, x.Span(), func(c ir.BlockID) (ir.Place, ir.BlockID) {
		if x.Computed {
			idx, c2 := lw.lowerExpr(c, x.Index)
			return lw.pushInstr(c2, ir.ComputedLoad{Object: obj, Index: idx}, x.Span()), c2
		}
		return lw.pushInstr(c, ir.PropertyLoad{Object: obj, Key: x.Property}, x.Span()), c
	})
}

// shortCircuitNullish implements the common `obj?.x` / `obj?.()` shape:
// test IsNullish(obj), skip evaluating cont when nullish, merge into a temp
// holding either undefined or cont's result.
func (lw *lowerer) shortCircuitNullish(cur ir.BlockID, obj ir.Place, span token.Span, cont func(ir.BlockID) (ir.Place, ir.BlockID)) (ir.Place, ir.BlockID) {
	test := lw.pushInstr(cur, ir.UnaryOp{Op: "IsNullish", Operand: obj}, span)
	temp := lw.fn.NewTemp()

	nullBlock := lw.newBlock(ir.BlockBody)
	evalBlock := lw.newBlock(ir.BlockBody)
	merge := lw.newBlock(ir.BlockBranchMerge)
	lw.fn.Terminate(cur, ir.If{Test: test, Then: nullBlock, Else: evalBlock})

	lw.fn.PushInstruction(nullBlock, ir.StoreLocal{Dst: ir.Place{Ident: temp, Effect: ir.EffectStore}, Src: lw.undefinedPlace(nullBlock, span)}, span, ir.PureEffect)
	lw.fn.Terminate(nullBlock, ir.Goto{Target: merge})

	val, evalEnd := cont(evalBlock)
	lw.fn.PushInstruction(evalEnd, ir.StoreLocal{Dst: ir.Place{Ident: temp, Effect: ir.EffectStore}, Src: val}, span, ir.PureEffect)
	lw.fn.Terminate(evalEnd, ir.Goto{Target: merge})

	result := lw.fn.PushInstruction(merge, ir.Phi{Block: merge, Incoming: map[ir.BlockID]ir.Place{
		nullBlock: {Ident: temp, Effect: ir.EffectRead},
		evalEnd:   {Ident: temp, Effect: ir.EffectRead},
	}}, span, ir.PureEffect)
	return result, merge
}

func (lw *lowerer) lowerCall(cur ir.BlockID, x *ast.CallExpr) (ir.Place, ir.BlockID) {
	callee, cur := lw.lowerExpr(cur, x.Callee)
	if !x.Optional {
		args, cur := lw.lowerArgs(cur, x.Args)
		return lw.pushCall(cur, ir.Call{Callee: callee, Args: args, Spreads: x.Spreads}, x.Span()), cur
	}
	return lw.shortCircuitNullish(cur, callee, x.Span(), func(c ir.BlockID) (ir.Place, ir.BlockID) {
		args, c2 := lw.lowerArgs(c, x.Args)
		return lw.pushCall(c2, ir.Call{Callee: callee, Args: args, Spreads: x.Spreads}, x.Span()), c2
	})
}

func (lw *lowerer) lowerObject(cur ir.BlockID, x *ast.ObjectExpr) (ir.Place, ir.BlockID) {
	props := make([]ir.ObjectProp, len(x.Props))
	for i, p := range x.Props {
		var computed *ir.Place
		if p.Computed != nil {
			cp, c2 := lw.lowerExpr(cur, p.Computed)
			cur = c2
			computed = &cp
		}
		val, c2 := lw.lowerExpr(cur, p.Value)
		cur = c2
		props[i] = ir.ObjectProp{Key: p.Key, Computed: computed, Value: val, Spread: p.Spread}
	}
	return lw.pushInstr(cur, ir.ObjectLiteral{Props: props}, x.Span()), cur
}

func (lw *lowerer) lowerArray(cur ir.BlockID, x *ast.ArrayExpr) (ir.Place, ir.BlockID) {
	elems := make([]ir.ArrayElem, len(x.Elements))
	for i, e := range x.Elements {
		if e.Value == nil {
			continue
		}
		val, c2 := lw.lowerExpr(cur, e.Value)
		cur = c2
		elems[i] = ir.ArrayElem{Value: val, Spread: e.Spread}
	}
	return lw.pushInstr(cur, ir.ArrayLiteral{Elems: elems}, x.Span()), cur
}

// lowerTemplate lowers a template literal to a left-associative chain of
// string-addition BinaryOps over the cooked quasis and evaluated
// expressions (spec.md §4.2; ir.Template is never constructed — see
// internal/ir/values.go).
func (lw *lowerer) lowerTemplate(cur ir.BlockID, x *ast.TemplateExpr) (ir.Place, ir.BlockID) {
	acc := lw.constPlace(cur, ir.Constant{Kind: ir.ConstString, Cooked: x.Quasis[0], Raw: `"` + x.Quasis[0] + `"`}, x.Span())
	for i, e := range x.Exprs {
		val, c2 := lw.lowerExpr(cur, e)
		cur = c2
		acc = lw.pushInstr(cur, ir.BinaryOp{Op: "+", L: acc, R: val}, x.Span())
		quasi := x.Quasis[i+1]
		if quasi != "" {
			lit := lw.constPlace(cur, ir.Constant{Kind: ir.ConstString, Cooked: quasi, Raw: `"` + quasi + `"`}, x.Span())
			acc = lw.pushInstr(cur, ir.BinaryOp{Op: "+", L: acc, R: lit}, x.Span())
		}
	}
	return acc, cur
}

func (lw *lowerer) lowerTaggedTemplate(cur ir.BlockID, x *ast.TaggedTemplateExpr) (ir.Place, ir.BlockID) {
	tag, cur := lw.lowerExpr(cur, x.Tag)
	strs := make([]ir.ArrayElem, len(x.Template.Quasis))
	for i, q := range x.Template.Quasis {
		strs[i] = ir.ArrayElem{Value: lw.constPlace(cur, ir.Constant{Kind: ir.ConstString, Cooked: q, Raw: `"` + q + `"`}, x.Span())}
	}
	strsPlace := lw.pushInstr(cur, ir.ArrayLiteral{Elems: strs}, x.Span())
	args := []ir.Place{strsPlace}
	for _, e := range x.Template.Exprs {
		v, c2 := lw.lowerExpr(cur, e)
		cur = c2
		args = append(args, v)
	}
	return lw.pushCall(cur, ir.Call{Callee: tag, Args: args, Spreads: make([]bool, len(args))}, x.Span()), cur
}

func (lw *lowerer) lowerUpdate(cur ir.BlockID, x *ast.UpdateExpr) (ir.Place, ir.BlockID) {
	old, cur := lw.lowerExpr(cur, x.Operand)
	one := lw.constPlace(cur, ir.Constant{Kind: ir.ConstInt, Int: 1}, x.Span())
	op := "+"
	if x.Op == "--" {
		op = "-"
	}
	updated := lw.pushInstr(cur, ir.BinaryOp{Op: op, L: old, R: one}, x.Span())
	cur = lw.storeInto(cur, x.Operand, updated)
	if x.Prefix {
		return updated, cur
	}
	return old, cur
}

func (lw *lowerer) lowerAssign(cur ir.BlockID, x *ast.AssignExpr) (ir.Place, ir.BlockID) {
	if x.Op == "=" {
		if pe, ok := x.Target.(*ast.PatternExpr); ok {
			val, c2 := lw.lowerExpr(cur, x.Value)
			cur = lw.assignPattern(c2, pe.Pattern, val)
			return val, cur
		}
		val, c2 := lw.lowerExpr(cur, x.Value)
		cur = lw.storeInto(c2, x.Target, val)
		return val, cur
	}
	// Compound assignment: `a op= b` reads a, computes a op b, stores back.
	cur2 := cur
	old, cur2 := lw.lowerExpr(cur2, x.Target)
	rhs, cur2 := lw.lowerExpr(cur2, x.Value)
	op := x.Op[:len(x.Op)-1] // strip trailing '='
	combined := lw.pushInstr(cur2, ir.BinaryOp{Op: op, L: old, R: rhs}, x.Span())
	cur2 = lw.storeInto(cur2, x.Target, combined)
	return combined, cur2
}

// storeInto writes val back to an lvalue expression: an identifier, a
// member expression, or (for update/compound-assign targets written as a
// plain expression) nothing else is legal surface syntax.
func (lw *lowerer) storeInto(cur ir.BlockID, target ast.Expr, val ir.Place) ir.BlockID {
	switch t := target.(type) {
	case *ast.Ident:
		ident := lw.resolve(t.Name)
		lw.fn.PushInstruction(cur, ir.StoreLocal{Dst: ir.Place{Ident: ident, Effect: ir.EffectStore}, Src: val}, t.Span(), ir.PureEffect)
		return cur
	case *ast.MemberExpr:
		obj, cur := lw.lowerExpr(cur, t.Object)
		if t.Computed {
			idx, cur := lw.lowerExpr(cur, t.Index)
			lw.fn.PushInstruction(cur, ir.ComputedStore{Object: obj, Index: idx, Value: val}, t.Span(), ir.PureEffect)
			return cur
		}
		lw.fn.PushInstruction(cur, ir.PropertyStore{Object: obj, Key: t.Property, Value: val}, t.Span(), ir.PureEffect)
		return cur
	default:
		lw.unsupported(target.Span(), "assignment target")
		return cur
	}
}

// lowerJSX lowers a JSX element to a call of the reserved `jsx` factory
// (spec.md §4.2: "fileType jsx/tsx ... lowered as a call to a reserved
// jsx(tag, props, ...children) factory").
func (lw *lowerer) lowerJSX(cur ir.BlockID, x *ast.JSXExpr) (ir.Place, ir.BlockID) {
	tag := lw.constPlace(cur, ir.Constant{Kind: ir.ConstString, Cooked: x.Tag, Raw: `"` + x.Tag + `"`}, x.Span())
	propObj, cur := lw.lowerObject(cur, &ast.ObjectExpr{Base: ast.NewBase(x.Span()), Props: x.Props})
	args := []ir.Place{tag, propObj}
	spreads := []bool{false, false}
	for _, child := range x.Children {
		v, c2 := lw.lowerExpr(cur, child)
		cur = c2
		args = append(args, v)
		spreads = append(spreads, false)
	}
	jsxFactory := lw.resolve("jsx")
	return lw.pushCall(cur, ir.Call{Callee: ir.Place{Ident: jsxFactory, Effect: ir.EffectRead}, Args: args, Spreads: spreads}, x.Span()), cur
}
