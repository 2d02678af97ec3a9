// Package compiler lowers a resolved AST (lang/ast) into the register-based
// instruction stream the virtual machine (lang/vm) executes, via a small
// intermediate representation compiled in one pass (no separate unasm/asm
// register-renaming stage — lang/scope already hands out final register
// addresses during the same walk that emits instructions, so "assembly" in
// this package is limited to label/jump patching, see compiler.go's
// patchJump).
package compiler

import (
	"fmt"

	"github.com/mna/nenuphar/lang/ops"
	"github.com/mna/nenuphar/lang/scope"
	"github.com/mna/nenuphar/lang/value"
)

// Op identifies an instruction's operation. Instructions are a tagged union
// (one Instruction struct, fields populated per Op) rather than one Go type
// per opcode, matching the Kind-plus-struct convention already used by
// lang/ops.OpError and lang/scope.CompileError.
type Op uint8

const (
	OpNop Op = iota

	// Register movement. Nil/true/false all compile as constants (see
	// compiler.go's constOutput/materialize), so there is no dedicated
	// load-nil/load-bool opcode.
	OpLoadConstant // Dst = Constants[ConstIdx]
	OpMove         // Dst = Src
	OpLoadVa       // Dst = varargs[A] (nil if out of range); a stateless indexed load, not a stream, so repeated "..." destructuring (local a, b = ...) gets a fixed index per slot at compile time

	// Arithmetic / comparison / logic, all typed via ops.BinOp / ops.UnOp.
	OpBinary // Dst = Lhs BinOp Rhs
	OpUnary  // Dst = UnOp Src
	OpConcat // Dst = Lhs .. Rhs (needs the string pool, kept distinct from OpBinary)

	// Control flow.
	OpJump          // ip = A
	OpJumpIfFalse   // if !truthy(Cond) { ip = A }
	OpJumpIfTrue    // if truthy(Cond) { ip = A }
	OpRaise         // abort with Err
	OpAssertNumeric // abort with Err unless Src holds an Integer or a Float; used to guard numeric for's init/limit/step (§4.3, §6 InvalidForInit/InvalidForCond/InvalidForStep)

	// Table operations.
	OpAllocTable   // Dst = new table preallocated for A entries
	OpAllocClosure // Dst = closure over FuncID, capturing the current ScopeSet
	OpGetIndex     // Dst = Table[Key]
	OpSetIndex     // Table[Key] = Src
	OpSetAllFromVa // Table[A], Table[A+1], … = varargs[B:]; spreads the rest

	// Call protocol, see §4.2/§4.4 of the expanded spec: a StartCall header,
	// zero or more argument-mapping ops, a call-invocation terminator, then
	// zero or more return-mapping ops. The VM's call setup interprets this
	// run specially rather than executing each as an independent dispatch
	// step (see lang/vm).
	// OpStartCall(Extending) names the callable and its argument count
	// before any OpMapArg runs (see compiler/call.go, compiler/stmt.go's
	// compileGenericFor): the callee and every argument expression are
	// still fully evaluated first, but the mapping instructions themselves
	// are emitted after the header, onto the shared pending-args buffer,
	// then OpDoCall/OpMapVarArgsAndDoCall invokes. The one exception is a
	// trailing-call argument compiled as OpStartCallExtending: its header
	// appends the previous call's pending results onto callArgs the moment
	// it runs, so the explicit OpMapArg instructions must execute first or
	// the spread results would sort before them instead of after.
	OpStartCall          // name Dst as the callee of the call being built; A counts its explicitly mapped args
	OpStartCallExtending // like OpStartCall, but also appends the previous call's pending results after the args mapped so far
	OpMapArg              // append Src to the pending argument list
	OpDoCall              // invoke with the mapped arguments, storing results in the pending-results buffer
	OpMapVarArgsAndDoCall // like OpDoCall, but appends the entire current vararg list first

	OpMapRet               // Dst = next pending result (nil if exhausted)
	OpStoreAllRet          // Table[A], Table[A+1], … = remaining pending results
	OpSetRetFromRet0       // append the first pending result to this function's own return buffer
	OpCopyRetFromRetAndRet // splice all pending results into this function's return buffer and return

	OpAppendRet   // append Src to this function's own return buffer
	OpAppendAllVa // append varargs[A:] to this function's own return buffer

	OpRet // return the current return-value buffer
)

// Instruction is one IR/final instruction. Only the fields relevant to Op
// are meaningful; the rest are zero.
type Instruction struct {
	Op Op

	Dst  scope.Register
	Lhs  scope.Register
	Rhs  scope.Register
	Cond scope.Register
	Src  scope.Register

	Table scope.Register
	Key   scope.Register

	ConstIdx int
	FuncID   uint32

	BinOp ops.BinOp
	UnOp  ops.UnOp

	A, B int // generic integer operands: jump targets, counts, offsets

	Err *ops.OpError
}

func (i Instruction) String() string {
	switch i.Op {
	case OpNop:
		return "nop"
	case OpLoadConstant:
		return fmt.Sprintf("load_const %s, #%d", i.Dst, i.ConstIdx)
	case OpMove:
		return fmt.Sprintf("move %s, %s", i.Dst, i.Src)
	case OpLoadVa:
		return fmt.Sprintf("load_va %s, %d", i.Dst, i.A)
	case OpBinary:
		return fmt.Sprintf("binary %s, %s, %s, %s", i.BinOp, i.Dst, i.Lhs, i.Rhs)
	case OpUnary:
		return fmt.Sprintf("unary %s, %s, %s", i.UnOp, i.Dst, i.Src)
	case OpConcat:
		return fmt.Sprintf("concat %s, %s, %s", i.Dst, i.Lhs, i.Rhs)
	case OpJump:
		return fmt.Sprintf("jump %d", i.A)
	case OpJumpIfFalse:
		return fmt.Sprintf("jump_if_false %s, %d", i.Cond, i.A)
	case OpJumpIfTrue:
		return fmt.Sprintf("jump_if_true %s, %d", i.Cond, i.A)
	case OpRaise:
		return fmt.Sprintf("raise %v", i.Err)
	case OpAssertNumeric:
		return fmt.Sprintf("assert_numeric %s, %v", i.Src, i.Err)
	case OpAllocTable:
		return fmt.Sprintf("alloc_table %s, %d", i.Dst, i.A)
	case OpAllocClosure:
		return fmt.Sprintf("alloc_closure %s, func#%d", i.Dst, i.FuncID)
	case OpGetIndex:
		return fmt.Sprintf("get_index %s, %s[%s]", i.Dst, i.Table, i.Key)
	case OpSetIndex:
		return fmt.Sprintf("set_index %s[%s], %s", i.Table, i.Key, i.Src)
	case OpSetAllFromVa:
		return fmt.Sprintf("set_all_from_va %s[%d:], va[%d:]", i.Table, i.A, i.B)
	case OpStartCall:
		return fmt.Sprintf("start_call %s, argc=%d", i.Dst, i.A)
	case OpStartCallExtending:
		return fmt.Sprintf("start_call_extending %s, argc=%d", i.Dst, i.A)
	case OpMapArg:
		return fmt.Sprintf("map_arg %s", i.Src)
	case OpDoCall:
		return "do_call"
	case OpMapVarArgsAndDoCall:
		return "map_varargs_and_do_call"
	case OpMapRet:
		return fmt.Sprintf("map_ret %s", i.Dst)
	case OpStoreAllRet:
		return fmt.Sprintf("store_all_ret %s[%d:]", i.Table, i.A)
	case OpSetRetFromRet0:
		return "set_ret_from_ret0"
	case OpCopyRetFromRetAndRet:
		return "copy_ret_from_ret_and_ret"
	case OpAppendRet:
		return fmt.Sprintf("append_ret %s", i.Src)
	case OpAppendAllVa:
		return fmt.Sprintf("append_all_va va[%d:]", i.A)
	case OpRet:
		return "ret"
	default:
		return "?"
	}
}

// Constant is a compile-time literal stored in a FunctionDef's constant
// pool and materialised at runtime by OpLoadConstant.
type Constant = value.Value
