package vm

import (
	"context"
	"fmt"
	"math"

	"github.com/mna/nenuphar/lang/compiler"
	"github.com/mna/nenuphar/lang/value"
)

// Runtime executes one compiled Chunk: it owns the chunk's global register
// file (shared by every invocation, closure, and nested call the chunk's
// functions make) and the step budget shared across the whole call tree,
// mirroring the teacher's machine.Thread (one Thread per program run, its
// MaxSteps/steps shared across every Frame on its callStack).
type Runtime struct {
	chunk       *compiler.Chunk
	globals     *value.Scope
	globalIndex map[string]int

	// MaxSteps bounds the total number of instructions this Runtime will
	// execute across every nested call before aborting with an error,
	// defaulting to effectively unbounded. Set it to cap a sandboxed or
	// untrusted chunk's running time.
	MaxSteps uint64

	steps uint64
}

// NewRuntime prepares a Runtime for chunk, with a freshly zeroed global
// register file sized to the globals the compiler discovered.
func NewRuntime(chunk *compiler.Chunk) *Runtime {
	idx := make(map[string]int, len(chunk.Globals))
	for i, name := range chunk.Globals {
		idx[name] = i
	}
	return &Runtime{
		chunk:       chunk,
		globals:     value.NewScope(len(chunk.Globals)),
		globalIndex: idx,
		MaxSteps:    math.MaxUint64,
	}
}

// RegisterGlobal binds name (a global the compiler saw referenced
// somewhere in the chunk) to v, for predeclaring builtins and library
// tables (print, type, string, table, ...) before Execute runs. Binding a
// name the chunk never referenced is a no-op error, not a panic, since a
// caller predeclaring a generic standard library against many chunks
// shouldn't need to know which globals each one actually uses.
func (r *Runtime) RegisterGlobal(name string, v value.Value) error {
	idx, ok := r.globalIndex[name]
	if !ok {
		return fmt.Errorf("global %q is not referenced by this chunk", name)
	}
	r.globals.Set(idx, v)
	return nil
}

// Execute runs the chunk's top-level function (FunctionDef index 0) with
// args bound as its varargs (a chunk is itself a vararg function, the way
// a Lua script's "..." is bound to the arguments it was invoked with), and
// returns its return values or the first runtime error encountered.
func (r *Runtime) Execute(ctx context.Context, args []value.Value) ([]value.Value, error) {
	if len(r.chunk.Functions) == 0 {
		return nil, fmt.Errorf("chunk %s has no compiled functions", r.chunk.Name)
	}
	def := r.chunk.Functions[0]
	scopes := newScopeSet([]*value.Scope{r.globals}, def.LocalRegisters, def.AnonRegisters, append([]value.Value(nil), args...))
	ec := &executionContext{rt: r, def: def, scopes: scopes}
	return ec.run(ctx)
}
