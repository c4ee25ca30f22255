// Package emit implements C8: walking an internal/reactivetree.Node into
// source text semantically equivalent to the original function, plus the
// cache read/compare/write pattern each reactive scope needs (spec.md
// §4.8).
//
// Emission never reconstructs expression trees by inlining: every
// instruction that isn't a pure constant, a plain variable read, or a
// property/computed store becomes its own assignment to a hoisted `$tN`
// binding, the same one-line-per-value discipline the teacher's
// internal/ir.Printer uses for its own IR dump. This keeps call count and
// evaluation order identical to the source (spec.md §8 invariant 6)
// without needing a separate "is this safe to duplicate" analysis, and it
// lets a canonical for-loop's condition/update (internal/reactivetree's
// Loop.Cond/Update) be re-expressed as a single comma-joined expression in
// a real `for (; cond; update)` header — the only way a native JS
// `continue` still runs the update clause, which spec.md scenario (b)
// requires.
package emit

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"reactivec/internal/ir"
	"reactivec/internal/reactivetree"
)

// Options configures one emission, mirroring the injectable knobs
// SPEC_FULL.md §6 gives pkg/reactivec.CompileOptions.
type Options struct {
	// CacheSlotSymbol names the host cache-allocator the emitted preamble
	// calls; defaults to "$c" (spec.md §6).
	CacheSlotSymbol string

	// EqualHelper names the Object.is-semantics change-detection helper
	// (spec.md §9 open question (i)); defaults to "$equal".
	EqualHelper string
}

func (o Options) cacheFn() string {
	if o.CacheSlotSymbol == "" {
		return "$c"
	}
	return o.CacheSlotSymbol
}

func (o Options) equalFn() string {
	if o.EqualHelper == "" {
		return "$equal"
	}
	return o.EqualHelper
}

var identRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// EqualHelperSource returns the change-detection helper's own function
// source (spec.md §9 open question (i)): Object.is semantics, not `===`,
// so a NaN dependency doesn't spuriously invalidate its cache slot every
// call and +0/-0 compare the way a cache check needs. Every ScopeNode
// this package emits calls this helper by name but never declares it
// itself — spec.md §6 only specifies the cache allocator (`$c`) as
// host-provided — so internal/compiler emits this once per compiled unit
// alongside the function it wraps.
func EqualHelperSource(opts Options) string {
	return fmt.Sprintf(`function %s(a, b) {
  if (a === b) {
    return a !== 0 || 1 / a === 1 / b;
  }
  return a !== a && b !== b;
}
`, opts.equalFn())
}

// Function emits f, which must already be in SSA form with f.Scopes
// populated (internal/ssa.Construct then internal/scopes.Analyze), as a
// standalone JS function declaration.
func Function(f *ir.HIRFunction, opts Options) string {
	e := newEmitter(f, opts)
	e.assignCacheSlots()

	tree := reactivetree.Build(f)

	var body strings.Builder
	e.w = &body
	e.indent = 1
	e.node(tree)

	var out strings.Builder
	fmt.Fprintf(&out, "function %s(%s) {\n", f.Name, e.paramList())
	if e.nextSlot > 0 {
		fmt.Fprintf(&out, "  const %s = %s(%d);\n", e.cacheVar(), opts.cacheFn(), e.nextSlot)
	}
	e.writeDecls(&out)
	out.WriteString(body.String())
	out.WriteString("}\n")
	return out.String()
}

func (e *emitter) cacheVar() string { return "$cache" }

func (e *emitter) paramList() string {
	names := make([]string, len(e.f.Params))
	for i, p := range e.f.Params {
		names[i] = e.nameOf[p.Ident.ID]
	}
	return strings.Join(names, ", ")
}

// writeDecls hoists one `let` for every storage identifier (every
// source-level binding this function ever assigns or phi-joins, besides
// its parameters) and one for every computed-value temporary, so every
// later assignment — including inside a for-header comma chain, where a
// `let`/`const` cannot appear — is a plain `name = expr`.
func (e *emitter) writeDecls(out *strings.Builder) {
	isParam := map[int]bool{}
	for _, p := range e.f.Params {
		isParam[p.Ident.ID] = true
	}
	var locals []string
	for id, name := range e.nameOf {
		if !isParam[id] {
			locals = append(locals, name)
		}
	}
	sort.Strings(locals)
	if len(locals) > 0 {
		fmt.Fprintf(out, "  let %s;\n", strings.Join(locals, ", "))
	}

	temps := make([]string, 0, len(e.tempIDs))
	for _, id := range e.tempIDs {
		temps = append(temps, fmt.Sprintf("$t%d", id))
	}
	if len(temps) > 0 {
		fmt.Fprintf(out, "  let %s;\n", strings.Join(temps, ", "))
	}
}

type emitter struct {
	f    *ir.HIRFunction
	opts Options

	nameOf map[int]string // storage identifiers: params, StoreLocal/Phi bases
	used   map[string]bool

	tempIDs []int          // instruction ids needing a hoisted $tN, in declaration order
	inline  map[int]string // constants/loads/store-aliases: substituted directly, never declared

	// cache slots, scoped per ReactiveScope: one per deduped declared output,
	// one per deduped dependency base (spec.md §4.8).
	depSlot  map[ir.ScopeID]map[int]int
	outSlot  map[ir.ScopeID]map[int]int
	depExpr  map[ir.ScopeID]map[int]ir.Place
	nextSlot int

	w      *strings.Builder
	indent int
}

func newEmitter(f *ir.HIRFunction, opts Options) *emitter {
	e := &emitter{
		f:       f,
		opts:    opts,
		nameOf:  map[int]string{},
		used:    map[string]bool{},
		inline:  map[int]string{},
		depSlot: map[ir.ScopeID]map[int]int{},
		outSlot: map[ir.ScopeID]map[int]int{},
		depExpr: map[ir.ScopeID]map[int]ir.Place{},
	}
	e.buildNames()
	return e
}

// buildNames assigns every storage identifier (params, StoreLocal
// destinations, phi results — the ids insertPhi deliberately reuses from
// their base, see internal/ssa) a disambiguated JS name, preferring the
// original source name and falling back to a synthesized one on collision
// (spec.md §4.8's `$name_k` rule), and records every other instruction
// result that needs its own hoisted `$tN` temporary.
func (e *emitter) buildNames() {
	want := map[int]string{}
	var order []int
	record := func(id int, name string) {
		if _, ok := want[id]; !ok {
			order = append(order, id)
		}
		want[id] = name
	}
	for _, p := range e.f.Params {
		record(p.Ident.ID, p.Ident.Name)
	}
	for _, b := range e.f.BlockOrder() {
		for _, instr := range e.f.Block(b).Instructions {
			if instr.LValue == nil {
				continue
			}
			switch v := instr.Value.(type) {
			case ir.StoreLocal:
				record(v.Dst.Ident.ID, v.Dst.Ident.Name)
			case ir.Phi:
				if _, ok := want[instr.LValue.Ident.ID]; !ok {
					record(instr.LValue.Ident.ID, "")
				}
			case ir.ConstantValue, ir.LoadLocal, ir.DestructureTarget, ir.PropertyStore, ir.ComputedStore:
				// resolved inline at emission time; no declared name needed.
			default:
				e.tempIDs = append(e.tempIDs, int(instr.ID))
			}
		}
	}
	sort.Ints(order)
	for _, id := range order {
		name := want[id]
		if name == "" {
			name = fmt.Sprintf("$s%d", id)
			if id < 0 { // compiler temp ids are negative; "$s-1" is not an identifier
				name = fmt.Sprintf("$m%d", -id)
			}
		}
		e.nameOf[id] = e.claim(name)
	}
}

func (e *emitter) claim(want string) string {
	name := want
	for k := 2; e.used[name]; k++ {
		name = fmt.Sprintf("%s_%d", want, k)
	}
	e.used[name] = true
	return name
}

// assignCacheSlots walks f.Scopes in a deterministic order (ascending
// ScopeID, dependencies before outputs, each deduped and sorted by base
// identifier) handing out one cache slot per entry — the `$c(N)` count
// spec.md §4.8 specifies.
func (e *emitter) assignCacheSlots() {
	ids := make([]ir.ScopeID, 0, len(e.f.Scopes))
	for id := range e.f.Scopes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		scope := e.f.Scopes[id]
		e.depSlot[id] = map[int]int{}
		e.outSlot[id] = map[int]int{}
		e.depExpr[id] = map[int]ir.Place{}

		depBases := map[int]ir.Place{}
		for p := range scope.Dependencies {
			depBases[p.Ident.ID] = p
		}
		depIDs := make([]int, 0, len(depBases))
		for base := range depBases {
			depIDs = append(depIDs, base)
		}
		sort.Ints(depIDs)
		for _, base := range depIDs {
			e.depSlot[id][base] = e.nextSlot
			e.depExpr[id][base] = depBases[base]
			e.nextSlot++
		}

		outIDs := make([]int, 0, len(scope.Declarations))
		seen := map[int]bool{}
		for ident := range scope.Declarations {
			if !seen[ident.ID] {
				seen[ident.ID] = true
				outIDs = append(outIDs, ident.ID)
			}
		}
		sort.Ints(outIDs)
		for _, base := range outIDs {
			e.outSlot[id][base] = e.nextSlot
			e.nextSlot++
		}
	}
}

// exprOf renders a Place as a JS expression: the stable variable name for
// a storage identifier, the substituted text for a constant/load/store
// alias, the identifier's own source name for a free/global reference
// internal/lower resolved but never locally defined (e.g. the reserved
// `$restArray`/`$forInKeys` runtime helpers), or the hoisted `$tN` for
// every other computed value.
func (e *emitter) exprOf(p ir.Place) string {
	if name, ok := e.nameOf[p.Ident.ID]; ok {
		return name
	}
	if text, ok := e.inline[p.Ident.ID]; ok {
		return text
	}
	if p.Ident.Name != "" {
		return p.Ident.Name
	}
	return fmt.Sprintf("$t%d", p.Ident.ID)
}

func (e *emitter) line(format string, args ...any) {
	for i := 0; i < e.indent; i++ {
		e.w.WriteString("  ")
	}
	fmt.Fprintf(e.w, format, args...)
	e.w.WriteString("\n")
}

// node walks one reactivetree.Node, emitting statements for its
// straight-line elements then recursing into control structure.
func (e *emitter) node(n reactivetree.Node) {
	switch t := n.(type) {
	case nil:
		return
	case *reactivetree.Seq:
		for _, el := range t.Elems {
			if clause := e.assignClause(el); clause != "" {
				e.line("%s;", clause)
			}
		}
		e.node(t.Next)
	case *reactivetree.If:
		e.line("if (%s) {", e.exprOf(t.Test))
		e.indent++
		e.node(t.Then)
		e.indent--
		if t.Else != nil {
			e.line("} else {")
			e.indent++
			e.node(t.Else)
			e.indent--
		}
		e.line("}")
		e.node(t.Next)
	case *reactivetree.Switch:
		e.line("switch (%s) {", e.exprOf(t.Discriminant))
		e.indent++
		for _, c := range t.Cases {
			if c.HasTest {
				e.line("case %s:", e.exprOf(c.Test))
			} else {
				e.line("default:")
			}
			e.indent++
			e.node(c.Body)
			e.indent--
		}
		e.indent--
		e.line("}")
		e.node(t.Next)
	case *reactivetree.Loop:
		if len(t.Update) > 0 {
			e.line("for (; %s; %s) {", e.chainExpr(t.Cond, &t.Test), e.chainExpr(t.Update, nil))
		} else {
			e.line("while (%s) {", e.chainExpr(t.Cond, &t.Test))
		}
		e.indent++
		e.node(t.Body)
		e.indent--
		e.line("}")
		e.node(t.Next)
	case *reactivetree.Return:
		if t.Value == nil {
			e.line("return;")
		} else {
			e.line("return %s;", e.exprOf(*t.Value))
		}
	case *reactivetree.Throw:
		e.line("throw %s;", e.exprOf(t.Value))
	case *reactivetree.Break:
		if t.Label != "" {
			e.line("break %s;", t.Label)
		} else {
			e.line("break;")
		}
	case *reactivetree.Continue:
		if t.Label != "" {
			e.line("continue %s;", t.Label)
		} else {
			e.line("continue;")
		}
	case *reactivetree.ScopeNode:
		e.scopeNode(t)
		e.node(t.Next)
	}
}

// chainExpr renders a SeqElem run as a single comma-joined expression,
// ending in final's value when given (a for-loop's condition slot) or
// left as a pure side-effecting chain (its update slot). Used only for a
// for-header's condition/update, the one place emission needs an
// expression rather than a statement list.
func (e *emitter) chainExpr(elems []reactivetree.SeqElem, final *ir.Place) string {
	var clauses []string
	for _, el := range elems {
		if c := e.assignClause(el); c != "" {
			clauses = append(clauses, c)
		}
	}
	if final == nil {
		if len(clauses) == 0 {
			return ""
		}
		return strings.Join(clauses, ", ")
	}
	tail := e.exprOf(*final)
	if len(clauses) == 0 {
		return tail
	}
	return strings.Join(append(clauses, tail), ", ")
}

// assignClause renders one SeqElem as an assignment-expression string with
// no trailing punctuation ("" when the element is a pure constant/load
// with nothing observable to sequence) so it can serve as either a
// statement body (caller appends ";\n") or one comma-chain clause.
func (e *emitter) assignClause(el reactivetree.SeqElem) string {
	if el.Instr == nil {
		dst := e.nameOf[el.StoreDst.ID]
		return fmt.Sprintf("%s = %s", dst, e.exprOf(el.StoreSrc))
	}
	id := int(el.Instr.ID)
	switch v := el.Instr.Value.(type) {
	case ir.ConstantValue:
		e.inline[id] = literal(v.Constant)
		return ""
	case ir.LoadLocal:
		e.inline[id] = e.exprOf(v.Src)
		return ""
	case ir.DestructureTarget:
		return ""
	case ir.StoreLocal:
		dst := e.nameOf[v.Dst.Ident.ID]
		return fmt.Sprintf("%s = %s", dst, e.exprOf(v.Src))
	case ir.PropertyStore:
		rhs := e.exprOf(v.Value)
		e.inline[id] = rhs
		return fmt.Sprintf("%s.%s = %s", e.exprOf(v.Object), propAccessor(v.Key), rhs)
	case ir.ComputedStore:
		rhs := e.exprOf(v.Value)
		e.inline[id] = rhs
		return fmt.Sprintf("%s[%s] = %s", e.exprOf(v.Object), e.exprOf(v.Index), rhs)
	default:
		return fmt.Sprintf("$t%d = %s", id, e.rhsExpr(v))
	}
}

// rhsExpr renders the right-hand side of a computed instruction whose
// result needs its own hoisted temporary.
func (e *emitter) rhsExpr(v ir.Value) string {
	switch x := v.(type) {
	case ir.PropertyLoad:
		return fmt.Sprintf("%s.%s", e.exprOf(x.Object), propAccessor(x.Key))
	case ir.ComputedLoad:
		return fmt.Sprintf("%s[%s]", e.exprOf(x.Object), e.exprOf(x.Index))
	case ir.BinaryOp:
		return fmt.Sprintf("(%s %s %s)", e.exprOf(x.L), x.Op, e.exprOf(x.R))
	case ir.UnaryOp:
		return e.unary(x)
	case ir.LogicalOp:
		return fmt.Sprintf("(%s %s %s)", e.exprOf(x.L), x.Op, e.exprOf(x.R))
	case ir.Call:
		return fmt.Sprintf("%s(%s)", e.exprOf(x.Callee), e.argList(x.Args, x.Spreads))
	case ir.NewExpr:
		return fmt.Sprintf("new %s(%s)", e.exprOf(x.Constructor), e.argList(x.Args, nil))
	case ir.ObjectLiteral:
		return e.objectLiteral(x)
	case ir.ArrayLiteral:
		return e.arrayLiteral(x)
	case ir.Spread:
		return e.exprOf(x.Operand)
	case ir.Template:
		return e.template(x)
	case ir.FunctionValue:
		return "(" + Function(x.Fn, e.opts) + ")"
	default:
		return "undefined"
	}
}

// unary reconstructs a surface unary form; IsNullish is an internal
// marker lowering introduces for `??`/`?.` (spec.md §9 "Logical, ternary,
// and optional-chain unification") and has no JS operator of its own, so
// it is re-expressed as the idiomatic loose nullish check.
func (e *emitter) unary(x ir.UnaryOp) string {
	operand := e.exprOf(x.Operand)
	switch x.Op {
	case "IsNullish":
		return fmt.Sprintf("(%s == null)", operand)
	case "typeof", "void", "delete":
		return fmt.Sprintf("%s %s", x.Op, operand)
	default:
		return fmt.Sprintf("%s%s", x.Op, operand)
	}
}

func (e *emitter) argList(args []ir.Place, spreads []bool) string {
	parts := make([]string, len(args))
	for i, a := range args {
		text := e.exprOf(a)
		if i < len(spreads) && spreads[i] {
			text = "..." + text
		}
		parts[i] = text
	}
	return strings.Join(parts, ", ")
}

func (e *emitter) objectLiteral(x ir.ObjectLiteral) string {
	parts := make([]string, len(x.Props))
	for i, p := range x.Props {
		switch {
		case p.Spread:
			parts[i] = "..." + e.exprOf(p.Value)
		case p.Computed != nil:
			parts[i] = fmt.Sprintf("[%s]: %s", e.exprOf(*p.Computed), e.exprOf(p.Value))
		default:
			parts[i] = fmt.Sprintf("%s: %s", objectKey(p.Key), e.exprOf(p.Value))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (e *emitter) arrayLiteral(x ir.ArrayLiteral) string {
	parts := make([]string, len(x.Elems))
	for i, el := range x.Elems {
		if el.Spread {
			parts[i] = "..." + e.exprOf(el.Value)
			continue
		}
		parts[i] = e.exprOf(el.Value)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// template reconstructs a string-addition chain rather than backtick
// syntax: spec.md §4.8 "Template reconstruction is not required: emitted
// code uses string-addition chains as lowered." Kept for data-model
// completeness (internal/lower never actually constructs ir.Template —
// see internal/ir/values.go).
func (e *emitter) template(x ir.Template) string {
	var b strings.Builder
	b.WriteString(strconv.Quote(x.Parts[0]))
	for i, ex := range x.Exprs {
		fmt.Fprintf(&b, " + %s + %s", e.exprOf(ex), strconv.Quote(x.Parts[i+1]))
	}
	return b.String()
}

// scopeNode emits a ReactiveScope's cache read/compare/write pattern
// (spec.md §4.8): recompute and store when any dependency changed by
// $equal's Object.is semantics, otherwise read the prior outputs back out
// of the cache and skip the body.
func (e *emitter) scopeNode(t *reactivetree.ScopeNode) {
	id := t.Scope.ID
	depSlots := e.depSlot[id]
	outSlots := e.outSlot[id]

	depBases := make([]int, 0, len(depSlots))
	for base := range depSlots {
		depBases = append(depBases, base)
	}
	sort.Ints(depBases)

	outBases := make([]int, 0, len(outSlots))
	for base := range outSlots {
		outBases = append(outBases, base)
	}
	sort.Ints(outBases)

	var conds []string
	for _, base := range depBases {
		slot := depSlots[base]
		expr := e.exprOf(e.depExpr[id][base])
		conds = append(conds, fmt.Sprintf("!%s(%s[%d], %s)", e.opts.equalFn(), e.cacheVar(), slot, expr))
	}
	if len(conds) == 0 {
		conds = []string{"true"}
	}

	e.line("if (%s) {", strings.Join(conds, " || "))
	e.indent++
	e.node(t.Body)
	for _, base := range outBases {
		e.line("%s[%d] = %s;", e.cacheVar(), outSlots[base], e.nameOf[base])
	}
	for _, base := range depBases {
		e.line("%s[%d] = %s;", e.cacheVar(), depSlots[base], e.exprOf(e.depExpr[id][base]))
	}
	e.indent--
	e.line("} else {")
	e.indent++
	for _, base := range outBases {
		e.line("%s = %s[%d];", e.nameOf[base], e.cacheVar(), outSlots[base])
	}
	e.indent--
	e.line("}")
}

func propAccessor(key string) string {
	if identRE.MatchString(key) {
		return key
	}
	return "[" + strconv.Quote(key) + "]"
}

func objectKey(key string) string {
	if identRE.MatchString(key) {
		return key
	}
	return strconv.Quote(key)
}

// literal re-escapes a string constant's cooked form rather than reusing
// its raw source text (spec.md §4.8: "String constants re-escape `\n`,
// `\r`, `\t`, `\0`, `"`, `\\`").
func literal(c ir.Constant) string {
	switch c.Kind {
	case ir.ConstNull:
		return "null"
	case ir.ConstUndefined:
		return "undefined"
	case ir.ConstBool:
		if c.Bool {
			return "true"
		}
		return "false"
	case ir.ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ir.ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case ir.ConstString:
		return quoteString(c.Cooked)
	default:
		return "undefined"
	}
}

// quoteString re-escapes exactly the characters spec.md §4.8 names,
// leaving every other byte (including already-valid UTF-8 text) untouched
// rather than delegating to strconv.Quote's broader escaping rules.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
