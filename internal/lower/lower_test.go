package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactivec/internal/ir"
	"reactivec/internal/parser"
)

func lowerSource(t *testing.T, src string) *ir.HIRFunction {
	t.Helper()
	fn, err := parser.ParseFunction("t.js", src, parser.FileJS)
	require.NoError(t, err)
	hir, bag := Lower(fn)
	require.False(t, bag.HasErrors(), "diags: %v", bag.All())
	return hir
}

func TestLowerStraightLineFunction(t *testing.T) {
	hir := lowerSource(t, `function add(a, b) {
  return a + b;
}`)
	assert.Equal(t, "add", hir.Name)
	assert.Len(t, hir.Params, 2)
	assert.Equal(t, "a", hir.Params[0].Ident.Name)
	assert.Equal(t, "b", hir.Params[1].Ident.Name)
}

func TestLowerIfProducesTwoArmsAndMerge(t *testing.T) {
	hir := lowerSource(t, `function choose(cond) {
  let result;
  if (cond) {
    result = 1;
  } else {
    result = 2;
  }
  return result;
}`)
	var ifCount int
	for _, b := range hir.BlockOrder() {
		if _, ok := hir.Block(b).Terminator.(ir.If); ok {
			ifCount++
		}
	}
	assert.Equal(t, 1, ifCount)
}

func TestLowerBareContinueIsUnsupported(t *testing.T) {
	fn, err := parser.ParseFunction("t.js", `function g() {
  continue;
}`, parser.FileJS)
	require.NoError(t, err)
	_, bag := Lower(fn)
	require.True(t, bag.HasErrors())
	assert.Equal(t, "unsupported syntax", bag.All()[0].Kind.String())
}

func TestLowerBareBreakIsUnsupported(t *testing.T) {
	fn, err := parser.ParseFunction("t.js", `function g() {
  break;
}`, parser.FileJS)
	require.NoError(t, err)
	_, bag := Lower(fn)
	require.True(t, bag.HasErrors())
	assert.Equal(t, "unsupported syntax", bag.All()[0].Kind.String())
}

func TestLowerForLoopHeaderShape(t *testing.T) {
	hir := lowerSource(t, `function sum() {
  let total = 0;
  for (let i = 0; i < 10; i = i + 1) {
    total = total + i;
  }
  return total;
}`)
	var loopHeaders int
	for _, b := range hir.BlockOrder() {
		if hir.Block(b).Kind == ir.BlockLoopHeader {
			loopHeaders++
		}
	}
	assert.Equal(t, 1, loopHeaders)
}
