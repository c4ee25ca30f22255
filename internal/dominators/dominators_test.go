package dominators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactivec/internal/ir"
	"reactivec/internal/lower"
	"reactivec/internal/parser"
)

func computeFrom(t *testing.T, src string) (*ir.HIRFunction, *Info) {
	t.Helper()
	fn, err := parser.ParseFunction("t.js", src, parser.FileJS)
	require.NoError(t, err)
	hir, bag := lower.Lower(fn)
	require.False(t, bag.HasErrors(), "diags: %v", bag.All())
	return hir, Compute(hir)
}

// the entry block dominates every reachable block, including both arms of
// an if/else and the block after it.
func TestEntryDominatesEveryBlock(t *testing.T) {
	hir, info := computeFrom(t, `function choose(cond) {
  let result = 0;
  if (cond) {
    result = 1;
  } else {
    result = 2;
  }
  return result;
}`)

	for _, b := range hir.BlockOrder() {
		assert.True(t, info.Dominates(hir.Body, b), "entry should dominate block %d", b)
	}
}

// the entry block has no immediate dominator.
func TestEntryHasNoImmediateDominator(t *testing.T) {
	hir, info := computeFrom(t, `function f() {
  return 1;
}`)
	_, ok := info.IDom(hir.Body)
	assert.False(t, ok)
}

// the merge block after an if/else has both arms in its dominance frontier
// computation path: neither arm strictly dominates the merge block, but the
// branch test block does.
func TestIfTestDominatesMergeButArmsDoNot(t *testing.T) {
	hir, info := computeFrom(t, `function choose(cond) {
  let result = 0;
  if (cond) {
    result = 1;
  } else {
    result = 2;
  }
  return result;
}`)

	testBlock := hir.Body
	termIf, ok := hir.Block(testBlock).Terminator.(ir.If)
	require.True(t, ok, "expected the entry block to end in an If terminator")

	var merge ir.BlockID
	for _, b := range hir.BlockOrder() {
		if b != termIf.Then && b != termIf.Else && b != testBlock {
			merge = b
			break
		}
	}
	require.NotZero(t, merge)

	assert.True(t, info.Dominates(testBlock, merge))
	assert.False(t, info.Dominates(termIf.Then, merge))
	assert.False(t, info.Dominates(termIf.Else, merge))
}
