package scope

import "math"

// shadowEntry is one binding of an identifier, pushed when a local with
// that name is declared and popped when its declaring BlockScope closes,
// so that a later reference from a sibling or enclosing block resolves to
// the right, possibly-outer, binding (shadowing).
type shadowEntry struct {
	reg     Register
	isConst bool
}

// RootScope owns the state shared by every function compiled from the same
// chunk: the global-variable namespace and the identifier shadow stacks.
// Exactly one RootScope exists per compiled chunk.
type RootScope struct {
	globals     map[string]Register
	globalOrder []string

	shadows map[string][]shadowEntry
}

// NewRootScope returns an empty RootScope ready to start compiling a
// chunk's top-level function.
func NewRootScope() *RootScope {
	return &RootScope{
		globals: make(map[string]Register),
		shadows: make(map[string][]shadowEntry),
	}
}

// Globals returns the discovered global variables in first-reference order,
// the order the VM's global register file must be sized and addressed by.
func (r *RootScope) Globals() []string {
	return append([]string(nil), r.globalOrder...)
}

// MainFunction starts the FunctionScope for the chunk's top-level function,
// at depth 1 (see NewFunction).
func (r *RootScope) MainFunction() *FunctionScope {
	return r.NewFunction(1)
}

// NewFunction starts the FunctionScope for a function nested depth levels
// below the chunk's top-level function (the main chunk itself is depth 1).
// depth becomes the Register.Scope every local declared directly in this
// function receives (see BlockScope.NewLocal), which is what lets the VM's
// ScopeSet address "the Nth enclosing function's locals" instead of
// colliding two unrelated functions' same-numbered block nesting levels.
func (r *RootScope) NewFunction(depth int) *FunctionScope {
	return &FunctionScope{
		root:    r,
		depth:   depth,
		scopeID: 1,
		labels:  make(map[LabelID]int),
	}
}

// FunctionScope tracks per-function compiler state: its label namespace,
// the next synthetic if/loop label sequence numbers, and the function's
// register counts (delegated to by every BlockScope nested in it).
type FunctionScope struct {
	root    *RootScope
	depth   int // 1 for the chunk's main function, 2 for a function directly nested in it, and so on
	scopeID int

	labels map[LabelID]int // resolved label -> instruction index

	nextLoopSeq int
	nextIfSeq   int

	localRegisters int
	anonRegisters  int
	isVararg       bool
}

// Depth returns the function's nesting depth from the chunk's main
// function (which is depth 1). Every local register this function declares
// carries this value as its Register.Scope.
func (f *FunctionScope) Depth() int { return f.depth }

// Start opens the function's outermost BlockScope.
func (f *FunctionScope) Start() *BlockScope {
	return &BlockScope{
		fn:              f,
		scopeID:         f.scopeID,
		declaredLocals:  make(map[string]bool),
		declaredLabels:  make(map[LabelID]bool),
		unresolvedJumps: make(map[LabelID][]int),
	}
}

// SetVararg marks the function as accepting '...'.
func (f *FunctionScope) SetVararg(v bool) { f.isVararg = v }

// IsVararg reports whether the function accepts '...'.
func (f *FunctionScope) IsVararg() bool { return f.isVararg }

// LocalRegisterCount returns the number of distinct local-register slots
// the function body needs (its local scope's size, spec §3 ScopeSet.local).
func (f *FunctionScope) LocalRegisterCount() int { return f.localRegisters }

// AnonRegisterCount returns the number of anonymous registers the function
// body needs (its anon file's size, spec §3 ScopeSet.anon_file).
func (f *FunctionScope) AnonRegisterCount() int { return f.anonRegisters }

func (f *FunctionScope) nextIfLabel(scopeID int) LabelID {
	id := LabelID{Kind: IfLabel, ScopeID: scopeID, Seq: f.nextIfSeq}
	f.nextIfSeq++
	return id
}

func (f *FunctionScope) pushLoopLabel(scopeID int) LabelID {
	id := LabelID{Kind: LoopLabel, ScopeID: scopeID, Seq: f.nextLoopSeq}
	f.nextLoopSeq++
	return id
}

func (f *FunctionScope) popLoopLabel() { f.nextLoopSeq-- }

func (f *FunctionScope) currentLoopLabel(scopeID int) (LabelID, bool) {
	if f.nextLoopSeq == 0 {
		return LabelID{}, false
	}
	return LabelID{Kind: LoopLabel, ScopeID: scopeID, Seq: f.nextLoopSeq - 1}, true
}

// BlockScope tracks the identifiers and labels declared directly within one
// lexical block (the body of an if/while/for/do, or a function body). Its
// lifetime brackets exactly the AST Block it compiles; ending it (via End)
// pops every local and label it declared back out of the function's shadow
// stacks, the Go equivalent of the reference allocator's scope-guard Drop.
type BlockScope struct {
	fn      *FunctionScope
	scopeID int

	declaredLocals map[string]bool
	declaredLabels map[LabelID]bool

	unresolvedJumps map[LabelID][]int
}

// Sub opens a nested BlockScope (e.g. for an inner do...end or loop body).
func (b *BlockScope) Sub() *BlockScope {
	return &BlockScope{
		fn:              b.fn,
		scopeID:         b.scopeID + 1,
		declaredLocals:  make(map[string]bool),
		declaredLabels:  make(map[LabelID]bool),
		unresolvedJumps: make(map[LabelID][]int),
	}
}

// ScopeID returns the lexical block nesting identifier used to namespace
// this block's synthetic if/loop labels and user goto labels (LabelID.
// ScopeID), distinct from the function-nesting depth used for Register.Scope.
func (b *BlockScope) ScopeID() int { return b.scopeID }

// End closes the block, unshadowing every local it declared and removing
// its labels from the function's namespace. It must be called exactly once,
// after compiling every statement of the corresponding AST Block.
func (b *BlockScope) End() {
	for name := range b.declaredLocals {
		shadows := b.fn.root.shadows[name]
		if len(shadows) > 0 {
			shadows = shadows[:len(shadows)-1]
		}
		if len(shadows) == 0 {
			delete(b.fn.root.shadows, name)
		} else {
			b.fn.root.shadows[name] = shadows
		}
	}
	for label := range b.declaredLabels {
		delete(b.fn.labels, label)
	}
}

// NextIfLabel allocates a new synthetic label pair for an if/else chain.
func (b *BlockScope) NextIfLabel() LabelID { return b.fn.nextIfLabel(b.scopeID) }

// PushLoopLabel allocates a synthetic label for a new loop nesting level,
// to be used by break statements and the loop's own back edge.
func (b *BlockScope) PushLoopLabel() LabelID { return b.fn.pushLoopLabel(b.scopeID) }

// PopLoopLabel retires the innermost loop label on exiting its body.
func (b *BlockScope) PopLoopLabel() { b.fn.popLoopLabel() }

// CurrentLoopLabel returns the label a bare break should target, or false
// if break appears outside any loop.
func (b *BlockScope) CurrentLoopLabel() (LabelID, bool) { return b.fn.currentLoopLabel(b.scopeID) }

// Resolve looks up an identifier, returning the Register of its innermost
// visible local binding, or allocating (on first reference) a new global
// register if no local with that name is in scope.
func (b *BlockScope) Resolve(name string) (Register, error) {
	if shadows := b.fn.root.shadows[name]; len(shadows) > 0 {
		top := shadows[len(shadows)-1]
		return top.reg, nil
	}

	if reg, ok := b.fn.root.globals[name]; ok {
		return reg, nil
	}
	if len(b.fn.root.globals) >= math.MaxUint16 {
		return Register{}, &CompileError{Kind: TooManyGlobals, Max: math.MaxUint16}
	}
	reg := Register{Scope: GlobalScopeID, Offset: uint16(len(b.fn.root.globals))}
	b.fn.root.globals[name] = reg
	b.fn.root.globalOrder = append(b.fn.root.globalOrder, name)
	return reg, nil
}

// NewAnonymous allocates a fresh anonymous register private to the current
// function, used for intermediate expression results that never need a
// name (spec §3/§4 anon_file).
func (b *BlockScope) NewAnonymous() Register {
	offset := b.fn.anonRegisters
	b.fn.anonRegisters++
	return Register{IsAnonymous: true, Offset: uint16(offset)}
}

// NewLocal declares a new local (optionally const) binding for name in this
// block, shadowing any outer binding with the same name for the remainder
// of the block.
func (b *BlockScope) NewLocal(name string, isConst bool) (Register, error) {
	if b.scopeID >= math.MaxUint16 {
		return Register{}, &CompileError{Kind: ScopeNestingTooDeep, Max: math.MaxUint16 - 1}
	}
	if b.fn.localRegisters >= math.MaxUint16 {
		return Register{}, &CompileError{Kind: TooManyLocals, Max: math.MaxUint16}
	}

	reg := Register{Scope: uint16(b.fn.depth), Offset: uint16(b.fn.localRegisters), IsConst: isConst}
	b.fn.localRegisters++

	entry := shadowEntry{reg: reg, isConst: isConst}
	if b.declaredLocals[name] {
		// Re-declaration of the same name within one block (e.g. repeated
		// `local x` lines): replace this block's own binding rather than
		// pushing a second shadow for it.
		shadows := b.fn.root.shadows[name]
		shadows[len(shadows)-1] = entry
		b.fn.root.shadows[name] = shadows
	} else {
		b.declaredLocals[name] = true
		b.fn.root.shadows[name] = append(b.fn.root.shadows[name], entry)
	}
	return reg, nil
}

// AddLabel declares a user goto label at the current instruction position,
// resolving any jumps that were emitted earlier in the block targeting it.
// It returns the instruction indices that need to be patched to jump to
// `here`.
func (b *BlockScope) AddLabel(name string, here int) ([]int, error) {
	label := LabelID{Kind: UserLabel, ScopeID: b.scopeID, Name: name}
	if b.declaredLabels[label] {
		return nil, &CompileError{Kind: DuplicateLabel, Name: name}
	}
	if _, exists := b.fn.labels[label]; exists {
		return nil, &CompileError{Kind: DuplicateLabel, Name: name}
	}
	b.declaredLabels[label] = true
	b.fn.labels[label] = here

	pending := b.unresolvedJumps[label]
	delete(b.unresolvedJumps, label)
	return pending, nil
}

// ResolveGoto looks up a previously declared user label. If not yet seen,
// the caller should emit a placeholder jump and register its position via
// RecordPendingJump so it can be patched once the label is declared.
func (b *BlockScope) ResolveGoto(name string) (int, bool) {
	label := LabelID{Kind: UserLabel, ScopeID: b.scopeID, Name: name}
	loc, ok := b.fn.labels[label]
	return loc, ok
}

// RecordPendingJump registers instruction position pos as needing to be
// patched once label is later declared via AddLabel.
func (b *BlockScope) RecordPendingJump(name string, pos int) {
	label := LabelID{Kind: UserLabel, ScopeID: b.scopeID, Name: name}
	b.unresolvedJumps[label] = append(b.unresolvedJumps[label], pos)
}
