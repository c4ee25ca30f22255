package scopes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactivec/internal/ir"
	"reactivec/internal/lower"
	"reactivec/internal/parser"
	"reactivec/internal/ssa"
)

func analyzeFrom(t *testing.T, src string) *ir.HIRFunction {
	t.Helper()
	fn, err := parser.ParseFunction("t.js", src, parser.FileJS)
	require.NoError(t, err)
	hir, bag := lower.Lower(fn)
	require.False(t, bag.HasErrors(), "diags: %v", bag.All())
	ssa.Construct(hir)
	Analyze(hir)
	return hir
}

// a value computed from a branch's own result must widen its scope to cover
// the whole if/else structure rather than splitting one arm from the merge
// (spec.md §9 open question ii: branch edges are a hard scope boundary).
func TestScopeWidensAroundIfElse(t *testing.T) {
	hir := analyzeFrom(t, `function choose(cond) {
  let result = 0;
  if (cond) {
    result = 1;
  } else {
    result = 2;
  }
  return result + 1;
}`)

	require.NotEmpty(t, hir.Scopes)
	for _, s := range hir.Scopes {
		assert.True(t, s.RangeLast > s.RangeFirst+1, "scope spanning a reassigned-in-both-arms value should cover more than one instruction")
	}
}

// a scope's dependency set never names a place this same scope itself
// declares.
func TestScopeDependenciesExcludeOwnDeclarations(t *testing.T) {
	hir := analyzeFrom(t, `function twice(a) {
  let b = a + 1;
  return b + b;
}`)

	for _, s := range hir.Scopes {
		for dep := range s.Dependencies {
			_, declared := s.Declarations[dep.Ident]
			assert.False(t, declared, "dependency %v should not be one of this scope's own declarations", dep.Ident)
		}
	}
}

// spec.md §8 scenario (f): a straight-line, single-block function never
// has a value cross a block boundary, so the whole body must still get
// memoized via the broadened infer() criterion (every named let/const
// binding is a candidate, not just ones that escape their block) —
// otherwise the compiled output would recompute "a" on every call.
func TestScopeFormsForStraightLineFunction(t *testing.T) {
	hir := analyzeFrom(t, `function s(x) {
  const a = x * 2;
  const b = a + 1;
  return b;
}`)

	require.Len(t, hir.Scopes, 1, "a and b in one block should merge into a single scope")
	var scope *ir.ReactiveScope
	for _, s := range hir.Scopes {
		scope = s
	}

	var declaredNames []string
	for id := range scope.Declarations {
		declaredNames = append(declaredNames, id.Name)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, declaredNames)

	var depNames []string
	for dep := range scope.Dependencies {
		depNames = append(depNames, dep.Ident.Name)
	}
	assert.Equal(t, []string{"x"}, depNames, "the only external input to a straight-line scope is its parameter")
}

// a compile-time constant is never recorded as a dependency, since a
// change-detection check against it could never fire.
func TestScopeDependenciesExcludeConstants(t *testing.T) {
	hir := analyzeFrom(t, `function f(cond) {
  let x = 0;
  if (cond) {
    x = 1;
  } else {
    x = 2;
  }
  return x;
}`)

	for _, s := range hir.Scopes {
		for dep := range s.Dependencies {
			assert.NotEqual(t, "", dep.Ident.Name, "a constant has no surface name, so a named dependency can never resolve to one")
		}
	}
}
