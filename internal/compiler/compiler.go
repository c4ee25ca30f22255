// Package compiler orchestrates the full pipeline — parse, lower, SSA,
// liveness, scopes, reactive-tree reconstruction, emit — over a single
// function, and implements the propagation policy spec.md §7 mandates: a
// compilation is atomic, and the only locally recoverable condition is an
// UnsupportedSyntax diagnostic when the caller has opted into
// pass-through-on-failure mode. On success the returned Code is prefixed
// with the $equal change-detection helper's own definition (internal/emit
// never declares it, only calls it), so the output is a complete,
// standalone unit a host can drop in without supplying anything beyond
// the cache allocator spec.md §6 already requires it to provide.
package compiler

import (
	"reactivec/internal/diag"
	"reactivec/internal/emit"
	"reactivec/internal/liveness"
	"reactivec/internal/lower"
	"reactivec/internal/parser"
	"reactivec/internal/scopes"
	"reactivec/internal/ssa"
	"reactivec/internal/token"
)

// Options configures one Compile call.
type Options struct {
	FileType parser.FileType

	// PassThroughOnFailure, when true, recovers from an UnsupportedSyntax
	// diagnostic by returning the original source unchanged with
	// Success=false instead of aborting with no output at all (spec.md §7).
	PassThroughOnFailure bool

	Emit emit.Options
}

// Result is the outcome of one Compile call.
type Result struct {
	Code    string
	Success bool
	Diags   *diag.Bag
}

// Compile runs filename/source through the full pipeline. Any ParseError,
// InvalidIR, or EmissionError aborts unconditionally — only
// UnsupportedSyntax honors Options.PassThroughOnFailure.
func Compile(filename, source string, opts Options) Result {
	bag := &diag.Bag{}

	fn, err := parser.ParseFunction(filename, source, opts.FileType)
	if err != nil {
		bag.Add(diag.NewParseError(1, token.Span{}, "%s", err.Error()))
		return Result{Success: false, Diags: bag}
	}

	hir, lowerBag := lower.Lower(fn)
	for _, d := range lowerBag.All() {
		bag.Add(d)
	}
	if bag.HasFatal() {
		return Result{Success: false, Diags: bag}
	}
	if bag.HasErrors() {
		// every non-fatal diagnostic lower.Lower can produce is
		// UnsupportedSyntax (spec.md §7) — the only recoverable case.
		if opts.PassThroughOnFailure {
			return Result{Code: source, Success: false, Diags: bag}
		}
		return Result{Success: false, Diags: bag}
	}

	ssa.Construct(hir)
	liveness.Analyze(hir)
	scopes.Analyze(hir)

	code := emit.EqualHelperSource(opts.Emit) + "\n" + emit.Function(hir, opts.Emit)
	return Result{Code: code, Success: true, Diags: bag}
}
