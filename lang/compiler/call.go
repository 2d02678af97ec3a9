package compiler

import (
	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/scope"
)

// compileCall lowers a call expression into the three-phase call protocol
// described in §4.2/§4.4: a StartCall (or StartCallExtending) header,
// argument-mapping instructions, and a call-invocation terminator (DoCall
// or MapVarArgsAndDoCall). The call's results are left in the VM's
// pending-results buffer; callers consume them via OpMapRet/OpStoreAllRet/etc.
// (see compiler.go's materialize, and the return/assignment/table-field
// lowering that handles the multi-value tail position directly).
func (fc *funcCompiler) compileCall(e *ast.CallExpr) {
	target := fc.materialize(fc.compileExpr(e.Fn))

	var self scope.Register
	hasSelf := false
	if e.Method != "" {
		// obj:m(args) is sugar for obj.m(obj, args): look up the method off
		// the already-evaluated target, then pass the target as self, ahead
		// of the explicit argument list.
		methodKey := fc.materialize(constOutput(fc.c.intern(e.Method)))
		methodReg := fc.blk.NewAnonymous()
		fc.emit(Instruction{Op: OpGetIndex, Dst: methodReg, Table: target, Key: methodKey})
		self, hasSelf = target, true
		target = methodReg
	}

	args := make([]scope.Register, 0, len(e.Args))
	var lastOut *nodeOutput
	for i, a := range e.Args {
		isLast := i == len(e.Args)-1
		out := fc.compileExpr(a)
		if isLast && (out.isCall || out.isVararg) {
			lastOut = &out
			continue
		}
		args = append(args, fc.materialize(out))
	}

	mapped := len(args)
	if hasSelf {
		mapped++
	}

	emitArgs := func() {
		if hasSelf {
			fc.emit(Instruction{Op: OpMapArg, Src: self})
		}
		for _, reg := range args {
			fc.emit(Instruction{Op: OpMapArg, Src: reg})
		}
	}

	if lastOut != nil && lastOut.isCall {
		// The trailing call's results must land after the explicit args in
		// the callee's argument list, and OpStartCallExtending appends
		// whatever is in the pending-results buffer onto callArgs at the
		// point it runs: the explicit OpMapArg instructions have to execute
		// first so the spread results append after them, not before. This
		// is the one spot the call protocol can't be StartCall-first.
		emitArgs()
		fc.emit(Instruction{Op: OpStartCallExtending, Dst: target, A: mapped})
		fc.emit(Instruction{Op: OpDoCall})
		return
	}

	fc.emit(Instruction{Op: OpStartCall, Dst: target, A: mapped})
	emitArgs()
	if lastOut != nil && lastOut.isVararg {
		fc.emit(Instruction{Op: OpMapVarArgsAndDoCall})
	} else {
		fc.emit(Instruction{Op: OpDoCall})
	}
}
