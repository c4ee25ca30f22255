package ir

import "reactivec/internal/token"

// Param is a bound function parameter; destructuring defaults are already
// expanded into the entry block's instructions by the time an HIRFunction
// exists (spec.md §4.2).
type Param struct {
	Ident Identifier
}

// HIRFunction is `(name, params[], body, blocks, next_instr_id,
// next_block_id, next_scope_id, next_temp_id)` from spec.md §3. Every
// invocation of internal/lower.Lower allocates a fresh HIRFunction with its
// own id counters — spec.md §5: "no process-wide state".
type HIRFunction struct {
	Name   string
	Params []Param
	Body   BlockID
	Blocks map[BlockID]*BasicBlock

	Scopes map[ScopeID]*ReactiveScope // populated by internal/scopes

	nextInstrID InstrID
	nextBlockID BlockID
	nextScopeID ScopeID
	nextTempID  int
}

// NewFunction allocates an empty function with no blocks; the caller must
// create and wire an entry block via NewBlock before lowering a body into
// it.
func NewFunction(name string) *HIRFunction {
	return &HIRFunction{
		Name:   name,
		Blocks: map[BlockID]*BasicBlock{},
		Scopes: map[ScopeID]*ReactiveScope{},
	}
}

// NewBlock registers a fresh block of the given kind and returns its id —
// spec.md §4.1's `new_block(kind) → BlockId`.
func (f *HIRFunction) NewBlock(kind BlockKind) BlockID {
	id := f.nextBlockID
	f.nextBlockID++
	f.Blocks[id] = newBasicBlock(id, kind)
	return id
}

// Block looks up a block by id, panicking if it does not exist — every
// BlockID handed out by this function is expected to resolve for the
// lifetime of the HIRFunction (spec.md §9: "blocks are created by
// lowering, never deleted").
func (f *HIRFunction) Block(id BlockID) *BasicBlock {
	b, ok := f.Blocks[id]
	if !ok {
		panic("ir: unknown block id")
	}
	return b
}

// PushInstruction appends an instruction to block and returns a Place
// bound to its result identifier — spec.md §4.1's
// `push_instruction(block, value, span) → Place`. Instructions without a
// meaningful result (stores, property writes) still get an identifier so
// every instruction can be addressed uniformly; callers simply ignore the
// returned Place's value in that case.
func (f *HIRFunction) PushInstruction(block BlockID, value Value, span token.Span, effect Effect) Place {
	id := f.nextInstrID
	f.nextInstrID++

	ident := Identifier{ID: int(id), Version: -1}
	lvalue := Place{Ident: ident, Effect: EffectRead}
	instr := &Instruction{ID: id, LValue: &lvalue, Value: value, Span: span, Effect: effect}
	b := f.Block(block)
	b.Instructions = append(b.Instructions, instr)
	return lvalue
}

// NextInstrID mints a fresh instruction id without creating an
// instruction, for passes (internal/ssa's phi insertion) that build
// *Instruction values directly instead of going through PushInstruction.
func (f *HIRFunction) NextInstrID() InstrID {
	id := f.nextInstrID
	f.nextInstrID++
	return id
}

// NewNamedIdentifier allocates a fresh storage identifier for a source-level
// binding (a parameter or a let/const/var declarator). internal/lower calls
// this once per declaration; every read or reassignment of that binding
// then references the same Identifier until internal/ssa renames it.
func (f *HIRFunction) NewNamedIdentifier(name string) Identifier {
	id := f.nextInstrID
	f.nextInstrID++
	return Identifier{ID: int(id), Name: name, Version: -1}
}

// NewTemp allocates a fresh compiler-introduced identifier not bound to
// any instruction yet (used for merge places in If-diamond lowering of
// logical/ternary/optional-chain expressions and for loop-protocol
// temporaries).
func (f *HIRFunction) NewTemp() Identifier {
	id := f.nextTempID
	f.nextTempID++
	return Identifier{ID: -(id + 1), Name: "", Version: -1}
}

// Terminate sets block's terminator and records the edge on every target's
// predecessor set. spec.md §4.1: must be called exactly once per block
// before lowering proceeds past it.
func (f *HIRFunction) Terminate(block BlockID, term Terminator) {
	b := f.Block(block)
	if b.Terminator != nil {
		panic("ir: block already terminated")
	}
	b.Terminator = term
	for _, target := range successors(term) {
		f.Block(target).Predecessors[block] = struct{}{}
	}
}

// MarkHandler tags block as belonging to a try-protected region whose
// exceptional edge targets handler (spec.md §4.2 try/catch).
func (f *HIRFunction) MarkHandler(block, handler BlockID) {
	b := f.Block(block)
	b.HasHandler = true
	b.Handler = handler
}

// NewScope allocates a fresh reactive scope id — spec.md §4.1's
// `next_scope_id` counter, exposed for internal/scopes.
func (f *HIRFunction) NewScope() ScopeID {
	id := f.nextScopeID
	f.nextScopeID++
	return id
}

func successors(term Terminator) []BlockID {
	switch t := term.(type) {
	case Goto:
		return []BlockID{t.Target}
	case If:
		return []BlockID{t.Then, t.Else}
	case Switch:
		targets := make([]BlockID, 0, len(t.Cases)+1)
		for _, c := range t.Cases {
			targets = append(targets, c.Target)
		}
		if t.HasDefault {
			targets = append(targets, t.Default)
		}
		return targets
	case Return, Throw, ScopeEnd:
		return nil
	case ScopeStart:
		return []BlockID{t.Body}
	default:
		return nil
	}
}

// RebuildPredecessors recomputes every block's predecessor set from
// scratch by walking terminators plus each block's handler edge, the
// canonical recovery path spec.md §9 requires ("predecessor lists ... must
// not be a second source of truth"). A protected block's exceptional edge
// to its handler counts as a predecessor relationship too, so liveness and
// dominance see the handler as reachable from every block it guards.
func (f *HIRFunction) RebuildPredecessors() {
	for _, b := range f.Blocks {
		b.Predecessors = map[BlockID]struct{}{}
	}
	for id, b := range f.Blocks {
		if b.HasHandler {
			f.Block(b.Handler).Predecessors[id] = struct{}{}
		}
		if b.Terminator == nil {
			continue
		}
		for _, target := range successors(b.Terminator) {
			f.Block(target).Predecessors[id] = struct{}{}
		}
	}
}

// BlockOrder returns block ids in ascending creation order, a stable
// traversal basis for passes that do not require reverse-post-order.
func (f *HIRFunction) BlockOrder() []BlockID {
	ids := make([]BlockID, 0, len(f.Blocks))
	for id := range f.Blocks {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}
