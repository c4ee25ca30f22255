package ir

import "reactivec/internal/ast"

// Value is the tagged union spec.md §3 describes as an Instruction's
// payload. Each concrete kind below implements it with a marker method.
type Value interface {
	valueNode()
}

// ConstantValue wraps a Constant so it can appear as an Instruction's Value.
type ConstantValue struct {
	Constant Constant
}

func (ConstantValue) valueNode() {}

// LoadLocal reads the current value bound to Src.
type LoadLocal struct {
	Src Place
}

func (LoadLocal) valueNode() {}

// StoreLocal assigns Src's value to Dst; pre-SSA this models a mutable
// reassignment, not a definition.
type StoreLocal struct {
	Dst Place
	Src Place
}

func (StoreLocal) valueNode() {}

// PropertyLoad reads a fixed-name property.
type PropertyLoad struct {
	Object Place
	Key    string
}

func (PropertyLoad) valueNode() {}

// PropertyStore writes a fixed-name property.
type PropertyStore struct {
	Object Place
	Key    string
	Value  Place
}

func (PropertyStore) valueNode() {}

// ComputedLoad reads a `object[index]` property.
type ComputedLoad struct {
	Object Place
	Index  Place
}

func (ComputedLoad) valueNode() {}

// ComputedStore writes a `object[index] = value` property.
type ComputedStore struct {
	Object Place
	Index  Place
	Value  Place
}

func (ComputedStore) valueNode() {}

// BinaryOp covers arithmetic, comparison, bitwise, and relational (`in`,
// `instanceof`) binary operators; Op is the surface operator spelling.
type BinaryOp struct {
	Op string
	L  Place
	R  Place
}

func (BinaryOp) valueNode() {}

// UnaryOp covers `!`, `-`, `+`, `~`, `typeof`, `void`, `delete`, and the
// internal `IsNullish` test spec.md §4.2 introduces for optional chaining
// and destructuring defaults.
type UnaryOp struct {
	Op      string
	Operand Place
}

func (UnaryOp) valueNode() {}

// LogicalOp covers `&&`, `||`, `??`. spec.md §4.2 lowers these identically
// to an If-diamond writing a shared merge place (see internal/lower), so
// this kind exists for data-model completeness but is never constructed by
// lowering — kept for any future pass that wants to recognize the pattern
// before it is expanded.
type LogicalOp struct {
	Op string
	L  Place
	R  Place
}

func (LogicalOp) valueNode() {}

// Call is a function invocation, args[i] spread when Spreads[i].
type Call struct {
	Callee  Place
	Args    []Place
	Spreads []bool
}

func (Call) valueNode() {}

// NewExpr is a `new` construction.
type NewExpr struct {
	Constructor Place
	Args        []Place
}

func (NewExpr) valueNode() {}

// ObjectProp is one property of an ObjectLiteral: a fixed Key, or a
// Computed key expression place when Key is unused.
type ObjectProp struct {
	Key      string
	Computed *Place // non-nil for computed keys
	Value    Place
	Spread   bool
}

type ObjectLiteral struct {
	Props []ObjectProp
}

func (ObjectLiteral) valueNode() {}

// ArrayElem is one element of an ArrayLiteral; Value is the zero Place for
// an elision.
type ArrayElem struct {
	Value  Place
	Spread bool
}

type ArrayLiteral struct {
	Elems []ArrayElem
}

func (ArrayLiteral) valueNode() {}

// Spread marks a `...operand` used outside a call/array/object position
// (destructuring rest is represented directly on the pattern instead).
type Spread struct {
	Operand Place
}

func (Spread) valueNode() {}

// DestructureTarget records a destructuring binding: Source is assigned to
// Pattern. internal/lower emits this as a structural marker immediately
// before the recursive PropertyLoad/ComputedLoad/StoreLocal chain that
// performs the actual binding, so later passes can see the pattern shape
// without re-deriving it from the expanded instructions.
type DestructureTarget struct {
	Pattern ast.Pattern
	Source  Place
}

func (DestructureTarget) valueNode() {}

// Phi is the SSA join instruction: Incoming maps each predecessor block to
// the operand live at that predecessor's terminator site.
type Phi struct {
	Block    BlockID
	Incoming map[BlockID]Place
}

func (Phi) valueNode() {}

// Template is a template literal: len(Parts) == len(Exprs)+1. spec.md §4.2
// directs that templates are actually lowered as left-associative
// string-addition BinaryOp chains over the cooked quasis and evaluated
// expressions, so internal/lower never constructs this kind directly —
// it is defined here because spec.md §3's data model lists Template as a
// value kind in its own right.
type Template struct {
	Parts []string
	Exprs []Place
}

func (Template) valueNode() {}

// FunctionValue holds a nested function compiled independently: each
// invocation of the nested function owns its own HIRFunction and runs the
// full pipeline in isolation (SPEC_FULL.md §3 "function-value nesting").
type FunctionValue struct {
	Fn *HIRFunction
}

func (FunctionValue) valueNode() {}
