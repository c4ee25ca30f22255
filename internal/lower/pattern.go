package lower

import (
	"reactivec/internal/ast"
	"reactivec/internal/ir"
	"reactivec/internal/token"
)

// bindParam lowers one function parameter. A plain identifier parameter
// with no default is itself the declared binding; any other parameter gets
// a raw identifier that receives the argument, then bindPattern
// destructures and/or defaults it into the declared bindings.
func (lw *lowerer) bindParam(cur ir.BlockID, p ast.Param) ir.BlockID {
	if id, ok := p.Pattern.(*ast.IdentPattern); ok && p.Default == nil {
		lw.fn.Params = append(lw.fn.Params, ir.Param{Ident: lw.declareLocal(id.Name)})
		return cur
	}
	raw := lw.fn.NewNamedIdentifier("")
	lw.fn.Params = append(lw.fn.Params, ir.Param{Ident: raw})
	src := ir.Place{Ident: raw, Effect: ir.EffectRead}
	return lw.bindPattern(cur, p.Pattern, src, p.Default)
}

// applyDefault rewrites src to `src ?? default` semantics when def != nil:
// an If-diamond tests IsNullish(src) and merges src with the lowered
// default into a fresh temp (spec.md §4.2 destructuring defaults use the
// same IsNullish test as `??`).
func (lw *lowerer) applyDefault(cur ir.BlockID, src ir.Place, def ast.Expr, span token.Span) (ir.BlockID, ir.Place) {
	if def == nil {
		return cur, src
	}
	test := lw.pushInstr(cur, ir.UnaryOp{Op: "IsNullish", Operand: src}, span)

	thenBlock := lw.newBlock(ir.BlockBody)
	elseBlock := lw.newBlock(ir.BlockBody)
	mergeBlock := lw.newBlock(ir.BlockBranchMerge)
	lw.fn.Terminate(cur, ir.If{Test: test, Then: thenBlock, Else: elseBlock})

	defPlace, thenEnd := lw.lowerExpr(thenBlock, def)
	temp := lw.fn.NewTemp()
	lw.fn.PushInstruction(thenEnd, ir.StoreLocal{Dst: ir.Place{Ident: temp, Effect: ir.EffectStore}, Src: defPlace}, span, ir.PureEffect)
	lw.fn.Terminate(thenEnd, ir.Goto{Target: mergeBlock})

	lw.fn.PushInstruction(elseBlock, ir.StoreLocal{Dst: ir.Place{Ident: temp, Effect: ir.EffectStore}, Src: src}, span, ir.PureEffect)
	lw.fn.Terminate(elseBlock, ir.Goto{Target: mergeBlock})

	result := lw.fn.PushInstruction(mergeBlock, ir.Phi{Block: mergeBlock, Incoming: map[ir.BlockID]ir.Place{
		thenEnd:   {Ident: temp, Effect: ir.EffectRead},
		elseBlock: {Ident: temp, Effect: ir.EffectRead},
	}}, span, ir.PureEffect)
	return mergeBlock, result
}

// bindPattern recursively destructures src into pat's bindings, declaring
// every name it introduces. def, when non-nil, supplies a default applied
// to src itself before recursing (used for parameter defaults and
// object-property defaults). An array element's default arrives wrapped in
// the parser's defaulted pattern node, which is unwrapped here and bound
// with its own default.
func (lw *lowerer) bindPattern(cur ir.BlockID, pat ast.Pattern, src ir.Place, def ast.Expr) ir.BlockID {
	if def != nil {
		cur, src = lw.applyDefault(cur, src, def, pat.Span())
	}
	if d, ok := pat.(interface {
		Inner() (ast.Pattern, ast.Expr)
	}); ok {
		inner, innerDef := d.Inner()
		return lw.bindPattern(cur, inner, src, innerDef)
	}
	switch p := pat.(type) {
	case *ast.IdentPattern:
		ident := lw.declareLocal(p.Name)
		lw.fn.PushInstruction(cur, ir.StoreLocal{Dst: ir.Place{Ident: ident, Effect: ir.EffectStore}, Src: src}, p.Span(), ir.PureEffect)
		return cur

	case *ast.ArrayPattern:
		lw.fn.PushInstruction(cur, ir.DestructureTarget{Pattern: pat, Source: src}, p.Span(), ir.PureEffect)
		for i, elem := range p.Elements {
			if elem == nil {
				continue
			}
			idx := lw.constPlace(cur, ir.Constant{Kind: ir.ConstInt, Int: int64(i)}, p.Span())
			elemPlace := lw.pushInstr(cur, ir.ComputedLoad{Object: src, Index: idx}, p.Span())
			cur = lw.bindPattern(cur, elem, elemPlace, nil)
		}
		if p.Rest != nil {
			start := lw.constPlace(cur, ir.Constant{Kind: ir.ConstInt, Int: int64(len(p.Elements))}, p.Span())
			restCallee := lw.resolve("$restArray")
			restPlace := lw.pushCall(cur, ir.Call{Callee: ir.Place{Ident: restCallee, Effect: ir.EffectRead}, Args: []ir.Place{src, start}}, p.Span())
			cur = lw.bindPattern(cur, p.Rest, restPlace, nil)
		}
		return cur

	case *ast.ObjectPattern:
		lw.fn.PushInstruction(cur, ir.DestructureTarget{Pattern: pat, Source: src}, p.Span(), ir.PureEffect)
		seen := make([]string, 0, len(p.Props))
		for _, prop := range p.Props {
			propPlace := lw.pushInstr(cur, ir.PropertyLoad{Object: src, Key: prop.Key}, p.Span())
			cur = lw.bindPattern(cur, prop.Value, propPlace, prop.Default)
			seen = append(seen, prop.Key)
		}
		if p.Rest != nil {
			restCallee := lw.resolve("$restObject")
			excluded := lw.pushInstr(cur, ir.ArrayLiteral{Elems: lw.stringKeyElems(cur, seen, p.Span())}, p.Span())
			restPlace := lw.pushCall(cur, ir.Call{Callee: ir.Place{Ident: restCallee, Effect: ir.EffectRead}, Args: []ir.Place{src, excluded}}, p.Span())
			cur = lw.bindPattern(cur, p.Rest, restPlace, nil)
		}
		return cur

	default:
		lw.unsupported(pat.Span(), "destructuring pattern")
		return cur
	}
}

func (lw *lowerer) stringKeyElems(cur ir.BlockID, keys []string, span token.Span) []ir.ArrayElem {
	elems := make([]ir.ArrayElem, len(keys))
	for i, k := range keys {
		elems[i] = ir.ArrayElem{Value: lw.constPlace(cur, ir.Constant{Kind: ir.ConstString, Cooked: k, Raw: `"` + k + `"`}, span)}
	}
	return elems
}

// assignPattern is bindPattern's counterpart for `[a, b] = expr` assignment
// targets: it stores into already-declared bindings (or member targets)
// instead of declaring fresh ones.
func (lw *lowerer) assignPattern(cur ir.BlockID, pat ast.Pattern, src ir.Place) ir.BlockID {
	switch p := pat.(type) {
	case *ast.IdentPattern:
		ident := lw.resolve(p.Name)
		lw.fn.PushInstruction(cur, ir.StoreLocal{Dst: ir.Place{Ident: ident, Effect: ir.EffectStore}, Src: src}, p.Span(), ir.PureEffect)
		return cur
	case *ast.ArrayPattern:
		lw.fn.PushInstruction(cur, ir.DestructureTarget{Pattern: pat, Source: src}, p.Span(), ir.PureEffect)
		for i, elem := range p.Elements {
			if elem == nil {
				continue
			}
			idx := lw.constPlace(cur, ir.Constant{Kind: ir.ConstInt, Int: int64(i)}, p.Span())
			elemPlace := lw.pushInstr(cur, ir.ComputedLoad{Object: src, Index: idx}, p.Span())
			cur = lw.assignPattern(cur, elem, elemPlace)
		}
		return cur
	case *ast.ObjectPattern:
		lw.fn.PushInstruction(cur, ir.DestructureTarget{Pattern: pat, Source: src}, p.Span(), ir.PureEffect)
		for _, prop := range p.Props {
			propPlace := lw.pushInstr(cur, ir.PropertyLoad{Object: src, Key: prop.Key}, p.Span())
			cur = lw.assignPattern(cur, prop.Value, propPlace)
		}
		return cur
	default:
		lw.unsupported(pat.Span(), "destructuring assignment target")
		return cur
	}
}
