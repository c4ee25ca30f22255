package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactivec/internal/ir"
	"reactivec/internal/lower"
	"reactivec/internal/parser"
)

func constructFrom(t *testing.T, src string) *ir.HIRFunction {
	t.Helper()
	fn, err := parser.ParseFunction("t.js", src, parser.FileJS)
	require.NoError(t, err)
	hir, bag := lower.Lower(fn)
	require.False(t, bag.HasErrors(), "diags: %v", bag.All())
	Construct(hir)
	return hir
}

// a value reassigned on both arms of an if/else and read afterward must get
// a phi at the merge block, with one incoming operand per predecessor.
func TestConstructInsertsPhiAtIfMerge(t *testing.T) {
	hir := constructFrom(t, `function choose(cond) {
  let result = 0;
  if (cond) {
    result = 1;
  } else {
    result = 2;
  }
  return result;
}`)

	var phis []ir.Phi
	for _, b := range hir.BlockOrder() {
		for _, instr := range hir.Block(b).Instructions {
			if phi, ok := instr.Value.(ir.Phi); ok {
				phis = append(phis, phi)
			}
		}
	}
	require.Len(t, phis, 1)
	assert.Len(t, phis[0].Incoming, 2)
}

// every definition of a reassigned local gets its own SSA version: after
// Construct, the instructions that store n carry more than one distinct
// Identifier.Version on their LValues.
func TestConstructVersionsReassignedLocals(t *testing.T) {
	hir := constructFrom(t, `function count() {
  let n = 0;
  n = n + 1;
  n = n + 1;
  return n;
}`)

	versions := map[int]struct{}{}
	for _, b := range hir.BlockOrder() {
		for _, instr := range hir.Block(b).Instructions {
			if instr.LValue != nil {
				versions[instr.LValue.Ident.Version] = struct{}{}
			}
		}
	}
	assert.Greater(t, len(versions), 1, "reassigning n three times should produce more than one SSA version")
}
