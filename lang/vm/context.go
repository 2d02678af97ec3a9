package vm

import (
	"context"
	"fmt"

	"github.com/mna/nenuphar/lang/compiler"
	"github.com/mna/nenuphar/lang/ops"
	"github.com/mna/nenuphar/lang/scope"
	"github.com/mna/nenuphar/lang/value"
)

// executionContext drives one function invocation: its instruction stream,
// the ScopeSet it addresses registers against, and the in-flight state of
// whatever call is currently being built (OpMapArg accumulates into
// callArgs; only for a trailing-call argument do the OpMapArgs run before
// the OpStartCallExtending header names the callee, see compiler/call.go). Every
// nested call gets its own executionContext, mirroring one Frame per
// invocation the way the teacher's machine.Thread keeps one Frame per
// call on its callStack, but here the Go call stack itself plays that
// role instead of an explicit slice.
type executionContext struct {
	rt     *Runtime
	def    *compiler.FunctionDef
	scopes *ScopeSet
	ip     int

	pendingCallee value.Value
	callArgs      []value.Value
}

// load reads the value addressed by r. Register.Scope uniformly addresses
// either the current function's own locals (Scope == the ScopeSet's depth)
// or an ancestor's scope via the referenced-scopes list; globals need no
// special case because the Runtime always prepends the globals scope at
// referenced[0], and GlobalScopeID is 0.
func (ec *executionContext) load(r scope.Register) value.Value {
	if r.IsAnonymous {
		return ec.scopes.anon[r.Offset]
	}
	if int(r.Scope) == ec.scopes.depth() {
		return ec.scopes.local.Get(int(r.Offset))
	}
	return ec.scopes.referenced[r.Scope].Get(int(r.Offset))
}

func (ec *executionContext) store(r scope.Register, v value.Value) {
	if r.IsAnonymous {
		ec.scopes.anon[r.Offset] = v
		return
	}
	if int(r.Scope) == ec.scopes.depth() {
		ec.scopes.local.Set(int(r.Offset), v)
		return
	}
	ec.scopes.referenced[r.Scope].Set(int(r.Offset), v)
}

// popPending removes and returns the first not-yet-consumed result of the
// most recently completed call, or nil once exhausted. Consecutive
// OpMapRet instructions drain left to right; a fresh OpDoCall overwrites
// the buffer entirely before the next drain begins, so there is no
// cross-call ordering hazard the way a persistent vararg cursor would have
// had (see ScopeSet.vararg).
func (ec *executionContext) popPending() value.Value {
	if len(ec.scopes.pending) == 0 {
		return value.NilValue
	}
	v := ec.scopes.pending[0]
	ec.scopes.pending = ec.scopes.pending[1:]
	return v
}

// run executes this context's instruction stream to completion, returning
// its accumulated return values (via OpRet/OpCopyRetFromRetAndRet) or the
// first runtime error raised. Modeled on the teacher's machine.run loop: a
// step budget and context cancellation are checked every iteration, but
// unlike the teacher's stack machine there is no inFlightErr/break-loop
// dance to run deferred cleanup, since this language has no defer/catch —
// an error simply unwinds the Go call stack.
func (ec *executionContext) run(ctx context.Context) ([]value.Value, error) {
	code := ec.def.Instructions
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("execution cancelled: %w", err)
		}
		ec.rt.steps++
		if ec.rt.steps >= ec.rt.MaxSteps {
			return nil, fmt.Errorf("execution exceeded step limit %d", ec.rt.MaxSteps)
		}

		instr := code[ec.ip]
		ec.ip++

		switch instr.Op {
		case compiler.OpNop:

		case compiler.OpLoadConstant:
			ec.store(instr.Dst, ec.rt.chunk.Constants[instr.ConstIdx])

		case compiler.OpMove:
			ec.store(instr.Dst, ec.load(instr.Src))

		case compiler.OpLoadVa:
			ec.store(instr.Dst, ec.scopes.vararg(instr.A))

		case compiler.OpBinary:
			v, err := ops.Binary(instr.BinOp, ec.load(instr.Lhs), ec.load(instr.Rhs))
			if err != nil {
				return nil, err
			}
			ec.store(instr.Dst, v)

		case compiler.OpUnary:
			v, err := ops.Unary(instr.UnOp, ec.load(instr.Src))
			if err != nil {
				return nil, err
			}
			ec.store(instr.Dst, v)

		case compiler.OpConcat:
			v, err := ops.ConcatWithPool(ec.rt.chunk.Pool, ec.load(instr.Lhs), ec.load(instr.Rhs))
			if err != nil {
				return nil, err
			}
			ec.store(instr.Dst, v)

		case compiler.OpJump:
			ec.ip = instr.A

		case compiler.OpJumpIfFalse:
			if !value.Truthy(ec.load(instr.Cond)) {
				ec.ip = instr.A
			}

		case compiler.OpJumpIfTrue:
			if value.Truthy(ec.load(instr.Cond)) {
				ec.ip = instr.A
			}

		case compiler.OpRaise:
			return nil, instr.Err

		case compiler.OpAssertNumeric:
			if !value.IsNumber(ec.load(instr.Src)) {
				return nil, instr.Err
			}

		case compiler.OpAllocTable:
			ec.store(instr.Dst, value.NewTable(instr.A))

		case compiler.OpAllocClosure:
			ec.store(instr.Dst, &value.Function{FuncID: instr.FuncID, Referenced: ec.scopes.captured()})

		case compiler.OpGetIndex:
			tbl, ok := ec.load(instr.Table).(*value.Table)
			if !ok {
				return nil, &ops.OpError{Kind: ops.NotATable, TypeName: ec.load(instr.Table).Type()}
			}
			v, _, err := tbl.Get(ec.load(instr.Key))
			if err != nil {
				return nil, err
			}
			ec.store(instr.Dst, v)

		case compiler.OpSetIndex:
			tbl, ok := ec.load(instr.Table).(*value.Table)
			if !ok {
				return nil, &ops.OpError{Kind: ops.NotATable, TypeName: ec.load(instr.Table).Type()}
			}
			if err := tbl.Set(ec.load(instr.Key), ec.load(instr.Src)); err != nil {
				return nil, err
			}

		case compiler.OpSetAllFromVa:
			tbl, ok := ec.load(instr.Table).(*value.Table)
			if !ok {
				return nil, &ops.OpError{Kind: ops.NotATable, TypeName: ec.load(instr.Table).Type()}
			}
			for i, v := range ec.scopes.varargsFrom(instr.B) {
				if err := tbl.Set(value.Integer(instr.A+i), v); err != nil {
					return nil, err
				}
			}

		case compiler.OpStartCall:
			ec.pendingCallee = ec.load(instr.Dst)

		case compiler.OpStartCallExtending:
			ec.pendingCallee = ec.load(instr.Dst)
			ec.callArgs = append(ec.callArgs, ec.scopes.pending...)

		case compiler.OpMapArg:
			ec.callArgs = append(ec.callArgs, ec.load(instr.Src))

		case compiler.OpDoCall:
			results, err := ec.invoke(ctx, ec.pendingCallee, ec.callArgs)
			if err != nil {
				return nil, err
			}
			ec.scopes.pending = results
			ec.pendingCallee = nil
			ec.callArgs = nil

		case compiler.OpMapVarArgsAndDoCall:
			ec.callArgs = append(ec.callArgs, ec.scopes.varargsFrom(0)...)
			results, err := ec.invoke(ctx, ec.pendingCallee, ec.callArgs)
			if err != nil {
				return nil, err
			}
			ec.scopes.pending = results
			ec.pendingCallee = nil
			ec.callArgs = nil

		case compiler.OpMapRet:
			ec.store(instr.Dst, ec.popPending())

		case compiler.OpStoreAllRet:
			tbl, ok := ec.load(instr.Table).(*value.Table)
			if !ok {
				return nil, &ops.OpError{Kind: ops.NotATable, TypeName: ec.load(instr.Table).Type()}
			}
			for i, v := range ec.scopes.pending {
				if err := tbl.Set(value.Integer(instr.A+i), v); err != nil {
					return nil, err
				}
			}
			ec.scopes.pending = nil

		case compiler.OpSetRetFromRet0:
			ec.scopes.retBuf = append(ec.scopes.retBuf, ec.popPending())

		case compiler.OpCopyRetFromRetAndRet:
			ec.scopes.retBuf = append(ec.scopes.retBuf, ec.scopes.pending...)
			return ec.scopes.retBuf, nil

		case compiler.OpAppendRet:
			ec.scopes.retBuf = append(ec.scopes.retBuf, ec.load(instr.Src))

		case compiler.OpAppendAllVa:
			ec.scopes.retBuf = append(ec.scopes.retBuf, ec.scopes.varargsFrom(instr.A)...)

		case compiler.OpRet:
			return ec.scopes.retBuf, nil

		default:
			return nil, &ops.OpError{Kind: ops.ByteCodeError, Offset: ec.ip - 1, Wrapped: fmt.Errorf("unknown opcode %v", instr.Op)}
		}
	}
}

// invoke calls target with args, dispatching on its runtime type: a
// closure compiled from this chunk runs in a freshly built
// executionContext/ScopeSet; a builtin (value.GoFunction) runs directly.
func (ec *executionContext) invoke(ctx context.Context, target value.Value, args []value.Value) ([]value.Value, error) {
	switch fn := target.(type) {
	case *value.Function:
		def := ec.rt.chunk.Functions[fn.FuncID]
		scopes := newScopeSet(fn.Referenced, def.LocalRegisters, def.AnonRegisters, overflowArgs(def, args))
		for i := 0; i < def.NamedArgs; i++ {
			v := value.NilValue
			if i < len(args) {
				v = args[i]
			}
			scopes.local.Set(i, v)
		}
		child := &executionContext{rt: ec.rt, def: def, scopes: scopes}
		return child.run(ctx)

	case *value.GoFunction:
		return fn.Fn(args)

	default:
		return nil, &ops.OpError{Kind: ops.NotACallable, TypeName: target.Type()}
	}
}

// overflowArgs returns the positional arguments beyond a function's named
// parameters, for binding to its ScopeSet.varargs when it accepts '...'.
func overflowArgs(def *compiler.FunctionDef, args []value.Value) []value.Value {
	if !def.IsVararg || len(args) <= def.NamedArgs {
		return nil
	}
	return append([]value.Value(nil), args[def.NamedArgs:]...)
}
