package ir

// ReactiveScope is a contiguous instruction range whose outputs are cached
// keyed by its dependencies (spec.md §3, §4.6).
//
// Invariants maintained by internal/scopes:
//  1. RangeFirst <= RangeLast, and the range is contiguous in instruction-id
//     space.
//  2. every declaration's defining instruction id lies in [RangeFirst, RangeLast).
//  3. Dependencies contain only places whose defining instruction id is
//     strictly less than RangeFirst, OR that are function parameters, OR
//     that are an enclosing scope's output.
type ReactiveScope struct {
	ID           ScopeID
	RangeFirst   InstrID
	RangeLast    InstrID // exclusive
	Dependencies map[Place]struct{}
	Declarations map[Identifier]InstrID
	Reassigned   map[string]struct{} // base names with more than one SSA version in range
}

// NewReactiveScope allocates an empty scope over [first, first+1).
func NewReactiveScope(id ScopeID, first InstrID) *ReactiveScope {
	return &ReactiveScope{
		ID:           id,
		RangeFirst:   first,
		RangeLast:    first + 1,
		Dependencies: map[Place]struct{}{},
		Declarations: map[Identifier]InstrID{},
		Reassigned:   map[string]struct{}{},
	}
}

// Contains reports whether instr lies within the scope's range.
func (s *ReactiveScope) Contains(instr InstrID) bool {
	return instr >= s.RangeFirst && instr < s.RangeLast
}

// Overlaps reports whether two scope ranges intersect.
func (s *ReactiveScope) Overlaps(o *ReactiveScope) bool {
	return s.RangeFirst < o.RangeLast && o.RangeFirst < s.RangeLast
}

// Widen extends the scope's range to also cover [first, last).
func (s *ReactiveScope) Widen(first, last InstrID) {
	if first < s.RangeFirst {
		s.RangeFirst = first
	}
	if last > s.RangeLast {
		s.RangeLast = last
	}
}
