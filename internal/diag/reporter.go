package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter renders Diagnostics against one source file as caret-marked,
// colorized terminal output, in the teacher's ErrorReporter style
// (internal/errors/reporter.go): a "kind[code]: message" header line
// followed by a gutter-numbered source line and a caret underline spanning
// the diagnostic's columns.
type Reporter struct {
	filename string
	lines    []string
}

// NewReporter splits source into lines once so repeated Format calls don't
// re-split on every diagnostic.
func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

var (
	colorParse       = color.New(color.FgRed, color.Bold)
	colorUnsupported = color.New(color.FgYellow, color.Bold)
	colorInternal    = color.New(color.FgMagenta, color.Bold)
	colorEmission    = color.New(color.FgRed, color.Bold)
	colorGutter      = color.New(color.FgBlue)
	colorCaret       = color.New(color.FgRed, color.Bold)
	colorNote        = color.New(color.FgCyan)
)

func kindColor(k Kind) *color.Color {
	switch k {
	case KindParseError:
		return colorParse
	case KindUnsupportedSyntax:
		return colorUnsupported
	case KindInvalidIR:
		return colorInternal
	case KindEmissionError:
		return colorEmission
	default:
		return colorParse
	}
}

// Format renders d as a multi-line string ready to print to stderr.
func (r *Reporter) Format(d *Diagnostic) string {
	var b strings.Builder

	kc := kindColor(d.Kind)
	fmt.Fprintf(&b, "%s: %s\n", kc.Sprintf("%s[E%04d]", d.Kind, d.Code), d.Message)
	fmt.Fprintf(&b, "  --> %s:%d:%d\n", r.filename, d.Span.Start.Line, d.Span.Start.Column)

	line := d.Span.Start.Line
	if line >= 1 && line <= len(r.lines) {
		gutter := fmt.Sprintf("%d", line)
		pad := strings.Repeat(" ", len(gutter))

		fmt.Fprintf(&b, "%s |\n", pad)
		fmt.Fprintf(&b, "%s | %s\n", colorGutter.Sprint(gutter), r.lines[line-1])
		fmt.Fprintf(&b, "%s | %s\n", pad, colorCaret.Sprint(r.marker(d)))
	}

	for _, note := range d.Notes {
		fmt.Fprintf(&b, "  %s %s\n", colorNote.Sprint("note:"), note)
	}
	if d.Cause != nil {
		fmt.Fprintf(&b, "  %s %+v\n", colorNote.Sprint("cause:"), d.Cause)
	}
	return b.String()
}

// marker builds the whitespace-then-caret underline beneath the offending
// span on its start line.
func (r *Reporter) marker(d *Diagnostic) string {
	col := d.Span.Start.Column
	if col < 1 {
		col = 1
	}
	width := d.Span.End.Column - d.Span.Start.Column
	if d.Span.End.Line != d.Span.Start.Line || width < 1 {
		width = 1
	}
	return strings.Repeat(" ", col-1) + strings.Repeat("^", width)
}
