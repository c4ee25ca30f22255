// Package diag defines the compiler's diagnostic data model and the
// caret-style terminal renderer every stage reports through (spec.md §7).
//
// Four kinds cover the pipeline end to end: ParseError (internal/parser),
// UnsupportedSyntax (internal/lower, for surface constructs this compiler
// does not model), InvalidIR (any stage finding a structural invariant
// violated in its input — always a compiler bug, never user-triggered),
// and EmissionError (internal/emit). Each kind owns a stable code range so a
// code alone tells a reader which stage produced it, the way the teacher's
// internal/errors partitions E00xx by category.
package diag

import (
	"fmt"

	"github.com/pkg/errors"

	"reactivec/internal/token"
)

// Kind distinguishes the pipeline stage a Diagnostic originates from.
type Kind int

const (
	KindParseError Kind = iota
	KindUnsupportedSyntax
	KindInvalidIR
	KindEmissionError
)

func (k Kind) String() string {
	switch k {
	case KindParseError:
		return "parse error"
	case KindUnsupportedSyntax:
		return "unsupported syntax"
	case KindInvalidIR:
		return "internal error"
	case KindEmissionError:
		return "emission error"
	default:
		return "error"
	}
}

// Code ranges, in the teacher's E00xx style: the leading digit names the
// kind, so E1042 is immediately recognizable as a parse error without
// consulting a table.
const (
	CodeParseBase       = 1000
	CodeUnsupportedBase = 2000
	CodeEmissionBase    = 3000
	CodeInternalBase    = 9000
)

// Diagnostic is one reported problem, positioned at a source span.
type Diagnostic struct {
	Kind    Kind
	Code    int
	Message string
	Span    token.Span
	Notes   []string

	// Cause is set for KindInvalidIR: the underlying Go error, wrapped with
	// github.com/pkg/errors so a stack trace survives to whoever logs it.
	Cause error
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s[E%d]: %s", d.Kind, d.Code, d.Message)
}

// NewParseError reports malformed source text (internal/parser).
func NewParseError(code int, span token.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: KindParseError, Code: CodeParseBase + code, Message: fmt.Sprintf(format, args...), Span: span}
}

// NewUnsupportedSyntax reports a surface construct this compiler does not
// lower (spec.md §4.2: "Any unsupported surface construct fails with an
// UnsupportedSyntax{kind, span} diagnostic").
func NewUnsupportedSyntax(code int, span token.Span, construct string) *Diagnostic {
	return &Diagnostic{
		Kind:    KindUnsupportedSyntax,
		Code:    CodeUnsupportedBase + code,
		Message: fmt.Sprintf("unsupported syntax: %s", construct),
		Span:    span,
	}
}

// NewInvalidIR reports a structural invariant violated by a prior stage's
// output — always fatal, never attributable to the input program (spec.md
// §4.1, §9: "Any structural invariant failure ... is fatal"). cause is
// wrapped with errors.WithStack so the original call site survives to logs.
func NewInvalidIR(code int, span token.Span, cause error) *Diagnostic {
	return &Diagnostic{
		Kind:    KindInvalidIR,
		Code:    CodeInternalBase + code,
		Message: cause.Error(),
		Span:    span,
		Cause:   errors.WithStack(cause),
	}
}

// NewEmissionError reports a failure while serializing IR back to source
// text (internal/emit).
func NewEmissionError(code int, span token.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: KindEmissionError, Code: CodeEmissionBase + code, Message: fmt.Sprintf(format, args...), Span: span}
}

// WithNote appends a secondary note line rendered under the primary message.
func (d *Diagnostic) WithNote(note string) *Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}
