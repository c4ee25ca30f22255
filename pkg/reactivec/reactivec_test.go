package reactivec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileStraightLineFunctionCaches(t *testing.T) {
	// spec.md §8 scenario (f): the second call's intermediate
	// multiplication must be served from cache, which requires the
	// compiled unit to both define $equal itself and wrap the body in a
	// cache read/compare/write pattern.
	res := Compile(`function s(x) {
  const a = x * 2;
  const b = a + 1;
  return b;
}`, CompileOptions{})

	require.True(t, res.Success)
	require.Nil(t, res.Error)
	assert.Contains(t, res.Code, "function $equal(")
	assert.Contains(t, res.Code, "function s(x)")
	assert.Contains(t, res.Code, "$cache[")
}

func TestCompileUnsupportedSyntaxWithoutPassThrough(t *testing.T) {
	res := Compile(`function g() {
  continue;
}`, CompileOptions{})

	assert.False(t, res.Success)
	assert.Empty(t, res.Code)
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "unsupported syntax")
}

func TestCompilePassThroughReturnsOriginalSource(t *testing.T) {
	source := `function g() {
  continue;
}`
	res := Compile(source, CompileOptions{PassThroughOnFailure: true})

	assert.False(t, res.Success)
	assert.Equal(t, source, res.Code)
}

func TestVersionIsNonEmpty(t *testing.T) {
	assert.NotEmpty(t, Version())
}
