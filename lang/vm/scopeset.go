// Package vm executes a compiled Chunk (lang/compiler): the register-access
// scheme, the dispatch loop, the call-execution state machine, and the
// top-level Runtime entry point. Its design mirrors the teacher's
// lang/machine package (a Thread driving a fetch-dispatch run loop over a
// single flat code array with an explicit step budget and context
// cancellation) adapted from Starlark's stack machine to this language's
// register machine.
package vm

import "github.com/mna/nenuphar/lang/value"

// ScopeSet is the active bundle of register files a function invocation
// executes against: its ancestors' captured scopes (with the globals
// pseudo-scope always at index 0, prepended by the Runtime at the top-level
// call and carried through every closure's Referenced list), its own local
// scope, a private anonymous-register file, the extra positional arguments
// it received if vararg, and the two buffers the call protocol drains: the
// previous call's pending results, and this function's own return values
// being accumulated for its eventual OpRet.
type ScopeSet struct {
	referenced []*value.Scope // referenced[0] is globals; referenced[d] is the scope of the ancestor function at depth d
	local      *value.Scope   // this invocation's own locals, at depth == len(referenced)
	anon       []value.Value  // anonymous register file, sized to the function's AnonRegisters

	varargs []value.Value // overflow positional arguments, non-empty only for vararg functions

	pending []value.Value // the most recently completed call's results, drained by MapRet/StoreAllRet/SetRetFromRet0/CopyRetFromRetAndRet
	retBuf  []value.Value // this function's own accumulating return values
}

// newScopeSet builds the ScopeSet a callee executes with: referenced is the
// closure's captured-scopes list (or just the globals scope, for the
// top-level chunk call), local is freshly allocated to localRegisters
// cells, anon is freshly allocated to anonRegisters cells, and varargs
// holds the overflow positional arguments when the callee accepts '...'.
func newScopeSet(referenced []*value.Scope, localRegisters, anonRegisters int, varargs []value.Value) *ScopeSet {
	anon := make([]value.Value, anonRegisters)
	for i := range anon {
		anon[i] = value.NilValue
	}
	return &ScopeSet{
		referenced: referenced,
		local:      value.NewScope(localRegisters),
		anon:       anon,
		varargs:    varargs,
	}
}

// depth is this invocation's own nesting depth: 1 for the chunk's main
// function, 2 for a function directly nested in it, and so on. It always
// equals len(referenced), the invariant that OpAllocClosure's capture and
// the register addressing scheme both rely on.
func (s *ScopeSet) depth() int { return len(s.referenced) }

// vararg returns varargs[i], or nil if i is out of range, implementing
// OpLoadVa's indexed load: "..." always denotes the same fixed list of
// extra arguments, so a destructuring assignment like "local a, b = ..."
// addresses it by a fixed index per target (computed at compile time, see
// stmt.go's evalExprList) rather than draining some runtime stream —
// otherwise a second, unrelated "..." later in the same function would
// wrongly continue from where the first left off.
func (s *ScopeSet) vararg(i int) value.Value {
	if i < 0 || i >= len(s.varargs) {
		return value.NilValue
	}
	return s.varargs[i]
}

// varargsFrom returns every vararg from index i onward, for the "spread the
// rest" operations (OpSetAllFromVa, OpAppendAllVa, OpMapVarArgsAndDoCall)
// that bulk-copy the vararg tail rather than indexing a single element.
func (s *ScopeSet) varargsFrom(i int) []value.Value {
	if i >= len(s.varargs) {
		return nil
	}
	if i < 0 {
		i = 0
	}
	return s.varargs[i:]
}

// captured returns the list a closure allocated from this ScopeSet should
// record as its Referenced scopes: every ancestor scope this function can
// see, plus its own local scope (spec: "allocation materialises a closure
// whose referenced_scopes is a copy of the allocating ScopeSet's captured
// scopes plus its current local scope").
func (s *ScopeSet) captured() []*value.Scope {
	out := make([]*value.Scope, len(s.referenced)+1)
	copy(out, s.referenced)
	out[len(s.referenced)] = s.local
	return out
}
