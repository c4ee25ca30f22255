// Package reactivec is the embedding interface spec.md §6 and SPEC_FULL.md
// §6 describe: the boundary a host toolchain (a bundler plugin, a test
// harness, cmd/reactivec) calls across instead of reaching into the
// compiler's internal packages directly.
package reactivec

import (
	"reactivec/internal/compiler"
	"reactivec/internal/diag"
	"reactivec/internal/emit"
	"reactivec/internal/parser"
)

// version is bumped alongside any change to the emitted cache protocol:
// the $c cache-slot allocator a host runtime must still provide (spec.md
// §6). $equal, the change-detection helper, is emitted as part of Code
// itself and needs nothing from the host.
const version = "0.1.0"

// Version reports the compiler's semver string.
func Version() string { return version }

// CompileOptions carries every knob a host can set without reaching past
// this package (SPEC_FULL.md §6).
type CompileOptions struct {
	FileType parser.FileType

	// PassThroughOnFailure recovers from an unsupported-syntax diagnostic
	// by returning the original source with Success=false rather than
	// aborting the whole call with no Code at all (spec.md §7).
	PassThroughOnFailure bool

	// CacheSlotSymbol names the host's cache-allocator function; "" uses
	// the default "$c" (spec.md §6).
	CacheSlotSymbol string

	// EqualHelper names the Object.is-semantics change-detection helper
	// Code defines and calls for itself; "" uses the default "$equal"
	// (spec.md §9 open question i).
	EqualHelper string
}

// Result is what Compile hands back to the caller.
type Result struct {
	Code    string
	Success bool
	Error   *string
}

// Compile lowers one function's source text to its reactive-cache
// equivalent. It allocates no state outside this call, so it is safe to
// invoke concurrently from multiple goroutines (SPEC_FULL.md §5).
func Compile(source string, opts CompileOptions) Result {
	res := compiler.Compile("input", source, compiler.Options{
		FileType:             opts.FileType,
		PassThroughOnFailure: opts.PassThroughOnFailure,
		Emit: emit.Options{
			CacheSlotSymbol: opts.CacheSlotSymbol,
			EqualHelper:     opts.EqualHelper,
		},
	})

	out := Result{Code: res.Code, Success: res.Success}
	if !res.Success {
		out.Error = firstErrorMessage(res.Diags)
	}
	return out
}

func firstErrorMessage(bag *diag.Bag) *string {
	if bag == nil {
		return nil
	}
	for _, d := range bag.All() {
		msg := d.Error()
		return &msg
	}
	return nil
}
