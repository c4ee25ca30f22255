package liveness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactivec/internal/ir"
	"reactivec/internal/lower"
	"reactivec/internal/parser"
	"reactivec/internal/ssa"
)

func analyzeFrom(t *testing.T, src string) (*ir.HIRFunction, *Info) {
	t.Helper()
	fn, err := parser.ParseFunction("t.js", src, parser.FileJS)
	require.NoError(t, err)
	hir, bag := lower.Lower(fn)
	require.False(t, bag.HasErrors(), "diags: %v", bag.All())
	ssa.Construct(hir)
	return hir, Analyze(hir)
}

// a parameter used only in the function's final return is live across every
// block between entry and that return, including the if/else arms that
// never touch it.
func TestLiveInCarriesAcrossUnrelatedBranch(t *testing.T) {
	_, info := analyzeFrom(t, `function f(kept, cond) {
  let x = 0;
  if (cond) {
    x = 1;
  } else {
    x = 2;
  }
  return kept;
}`)

	var sawKept bool
	for _, set := range info.liveIn {
		for id := range set {
			if id.Name == "kept" {
				sawKept = true
			}
		}
	}
	assert.True(t, sawKept, "kept should be live-in somewhere before its only use")
}

// n reassigned three times produces a mutable range spanning its first and
// last definitions, not a single-point range.
func TestMutableRangesSpansReassignments(t *testing.T) {
	_, info := analyzeFrom(t, `function count() {
  let n = 0;
  n = n + 1;
  n = n + 1;
  return n;
}`)

	require.NotEmpty(t, info.MutableRanges)
	for _, r := range info.MutableRanges {
		assert.Less(t, r.First, r.Last)
	}
}
