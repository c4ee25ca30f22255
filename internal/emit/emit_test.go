package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reactivec/internal/ir"
	"reactivec/internal/token"
)

func TestLiteralReescapesNamedCharacters(t *testing.T) {
	got := literal(ir.Constant{Kind: ir.ConstString, Cooked: "a\nb\tc\"d\\e"})
	assert.Equal(t, `"a\nb\tc\"d\\e"`, got)
}

func TestLiteralNumbersAndBool(t *testing.T) {
	assert.Equal(t, "null", literal(ir.Constant{Kind: ir.ConstNull}))
	assert.Equal(t, "undefined", literal(ir.Constant{Kind: ir.ConstUndefined}))
	assert.Equal(t, "true", literal(ir.Constant{Kind: ir.ConstBool, Bool: true}))
	assert.Equal(t, "42", literal(ir.Constant{Kind: ir.ConstInt, Int: 42}))
	assert.Equal(t, "1.5", literal(ir.Constant{Kind: ir.ConstFloat, Float: 1.5}))
}

func TestPropAccessorDotVsBracket(t *testing.T) {
	assert.Equal(t, "foo", propAccessor("foo"))
	assert.Equal(t, `["foo-bar"]`, propAccessor("foo-bar"))
	assert.Equal(t, "$weird", propAccessor("$weird"))
}

func TestFunctionEmitsParamsAndReturn(t *testing.T) {
	f := ir.NewFunction("add")
	f.Body = f.NewBlock(ir.BlockEntry)
	a := f.NewNamedIdentifier("a")
	b := f.NewNamedIdentifier("b")
	f.Params = []ir.Param{{Ident: a}, {Ident: b}}

	sum := f.PushInstruction(f.Body, ir.BinaryOp{
		Op: "+",
		L:  ir.Place{Ident: a, Effect: ir.EffectRead},
		R:  ir.Place{Ident: b, Effect: ir.EffectRead},
	}, token.Span{}, ir.PureEffect)
	f.Terminate(f.Body, ir.Return{Value: &sum})

	out := Function(f, Options{})
	assert.Contains(t, out, "function add(a, b) {")
	assert.Contains(t, out, "(a + b)")
	assert.Contains(t, out, "return $t")
}
