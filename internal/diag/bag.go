package diag

// Bag accumulates diagnostics across a pipeline run. Every stage appends to
// the same Bag rather than failing on the first problem, so
// internal/compiler's pass-through-on-failure mode can report everything
// wrong with a function in one pass instead of one-error-at-a-time.
type Bag struct {
	diags []*Diagnostic
}

func (b *Bag) Add(d *Diagnostic) {
	b.diags = append(b.diags, d)
}

func (b *Bag) HasErrors() bool {
	return len(b.diags) > 0
}

func (b *Bag) All() []*Diagnostic {
	return b.diags
}

// HasFatal reports whether any accumulated diagnostic is KindInvalidIR —
// the only kind spec.md treats as unconditionally fatal regardless of
// pass-through mode.
func (b *Bag) HasFatal() bool {
	for _, d := range b.diags {
		if d.Kind == KindInvalidIR {
			return true
		}
	}
	return false
}
