package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactivec/internal/parser"
)

func TestCompileSimpleFunction(t *testing.T) {
	source := `function add(a, b) {
  return a + b;
}`
	res := Compile("add.js", source, Options{FileType: parser.FileJS})
	require.True(t, res.Success, "expected compilation to succeed, diags: %v", res.Diags)
	assert.Contains(t, res.Code, "function add(")
	assert.Contains(t, res.Code, "return")
}

// TestCompileContinueInsideForReachesUpdate grounds spec.md scenario (b):
// a continue nested in a switch inside a for-loop must still execute the
// loop's increment step, which requires the canonical for-shape to emit a
// genuine `for (; test; update)` header rather than a `for(;;){...}` body
// with the update appended after the loop body.
func TestCompileContinueInsideForReachesUpdate(t *testing.T) {
	source := `function m() {
  let total = 0;
  for (let i = 0; i < 10; i = i + 1) {
    switch (i) {
      case 3:
        continue;
      default:
        total = total + i;
    }
  }
  return total;
}`
	res := Compile("m.js", source, Options{FileType: parser.FileJS})
	require.True(t, res.Success, "expected compilation to succeed, diags: %v", res.Diags)
	assert.Contains(t, res.Code, "for (;", "canonical for-shape must keep a genuine for(;;) header, not a for(;;){...break} desugaring")
	assert.False(t, strings.Contains(res.Code, "for (;;)"), "update clause must live in the header so continue still reaches it")
	assert.Contains(t, res.Code, "continue;")
	assert.Contains(t, res.Code, "switch (")
}

// TestCompileStraightLineFunctionEmitsCachePattern grounds spec.md
// scenario (f): a straight-line function with no branch or loop must
// still get the cache read/compare/write pattern wrapping its
// computation, and the unit must carry its own $equal definition rather
// than reference an undefined global.
func TestCompileStraightLineFunctionEmitsCachePattern(t *testing.T) {
	source := `function s(x) {
  const a = x * 2;
  const b = a + 1;
  return b;
}`
	res := Compile("s.js", source, Options{FileType: parser.FileJS})
	require.True(t, res.Success, "expected compilation to succeed, diags: %v", res.Diags)

	assert.True(t, strings.HasPrefix(res.Code, "function $equal("), "compiled unit must define its own $equal helper")
	assert.Contains(t, res.Code, "$c(")
	assert.Contains(t, res.Code, "$cache[")
	assert.Contains(t, res.Code, "$equal($cache[")
	assert.Contains(t, res.Code, "} else {")
}

func TestCompilePassThroughOnUnsupportedSyntax(t *testing.T) {
	// a bare `continue` with no enclosing loop parses fine but has no
	// lowering (internal/lower/stmt.go), so it is the realistic way to
	// reach an UnsupportedSyntax diagnostic from valid source text.
	source := `function g() {
  continue;
}`
	res := Compile("g.js", source, Options{FileType: parser.FileJS, PassThroughOnFailure: true})
	assert.False(t, res.Success)
	assert.Equal(t, source, res.Code)
	require.NotEmpty(t, res.Diags.All())
	assert.Equal(t, "unsupported syntax", res.Diags.All()[0].Kind.String())
}

func TestCompileAbortsWithoutPassThrough(t *testing.T) {
	source := `function g() {
  continue;
}`
	res := Compile("g.js", source, Options{FileType: parser.FileJS})
	assert.False(t, res.Success)
	assert.Empty(t, res.Code)
}
