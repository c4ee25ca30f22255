package reactivetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactivec/internal/lower"
	"reactivec/internal/parser"
	"reactivec/internal/scopes"
	"reactivec/internal/ssa"
)

func buildFrom(t *testing.T, src string) Node {
	t.Helper()
	fn, err := parser.ParseFunction("t.js", src, parser.FileJS)
	require.NoError(t, err)
	hir, bag := lower.Lower(fn)
	require.False(t, bag.HasErrors(), "diags: %v", bag.All())
	ssa.Construct(hir)
	scopes.Analyze(hir)
	return Build(hir)
}

func findLoop(n Node) *Loop {
	for n != nil {
		switch t := n.(type) {
		case *Seq:
			if l := findLoop(t.Next); l != nil {
				return l
			}
			n = nil
		case *Loop:
			return t
		case *ScopeNode:
			if l := findLoop(t.Body); l != nil {
				return l
			}
			n = t.Next
		case *If:
			if l := findLoop(t.Then); l != nil {
				return l
			}
			if l := findLoop(t.Else); l != nil {
				return l
			}
			n = t.Next
		default:
			n = nil
		}
	}
	return nil
}

// a canonical C-style for-loop must reconstruct with a non-empty Update, so
// internal/emit can choose the genuine `for (; test; update)` header that
// keeps continue's native update-then-retest semantics.
func TestBuildForLoopHasUpdate(t *testing.T) {
	tree := buildFrom(t, `function sum() {
  let total = 0;
  for (let i = 0; i < 10; i = i + 1) {
    total = total + i;
  }
  return total;
}`)

	loop := findLoop(tree)
	require.NotNil(t, loop, "expected a Loop node in the reconstructed tree")
	assert.NotEmpty(t, loop.Update, "canonical for-shape must populate Update")
}

// a while-loop has no separate latch block, so its Update must stay empty.
func TestBuildWhileLoopHasNoUpdate(t *testing.T) {
	tree := buildFrom(t, `function sum(n) {
  let total = 0;
  while (n > 0) {
    total = total + n;
    n = n - 1;
  }
  return total;
}`)

	loop := findLoop(tree)
	require.NotNil(t, loop, "expected a Loop node in the reconstructed tree")
	assert.Empty(t, loop.Update, "a while-loop has no latch, so Update must stay empty")
}

// a reactive scope identified by internal/scopes must appear as exactly one
// ScopeNode wrapping its body, not inlined as plain statements.
func TestBuildWrapsScopeInScopeNode(t *testing.T) {
	tree := buildFrom(t, `function twice(a) {
  let b = a + 1;
  return b + b;
}`)

	var found bool
	var walk func(Node)
	walk = func(n Node) {
		if n == nil || found {
			return
		}
		if _, ok := n.(*ScopeNode); ok {
			found = true
			return
		}
		switch t := n.(type) {
		case *Seq:
			walk(t.Next)
		case *If:
			walk(t.Then)
			walk(t.Else)
			walk(t.Next)
		}
	}
	walk(tree)
	assert.True(t, found, "expected a ScopeNode wrapping the scoped computation of b")
}
