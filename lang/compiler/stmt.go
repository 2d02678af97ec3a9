package compiler

import (
	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/ops"
	"github.com/mna/nenuphar/lang/scope"
	"github.com/mna/nenuphar/lang/value"
)

func (fc *funcCompiler) compileBlock(b *ast.Block) {
	for _, stmt := range b.Stmts {
		fc.compileStmt(stmt)
	}
}

func (fc *funcCompiler) compileStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.LocalStmt:
		fc.compileLocal(s)
	case *ast.AssignStmt:
		fc.compileAssign(s)
	case *ast.ExprStmt:
		fc.compileExpr(s.Call)
	case *ast.DoStmt:
		inner := fc.blk.Sub()
		outer := fc.blk
		fc.blk = inner
		fc.compileBlock(s.Body)
		fc.blk.End()
		fc.blk = outer
	case *ast.IfStmt:
		fc.compileIf(s)
	case *ast.WhileStmt:
		fc.compileWhile(s)
	case *ast.RepeatStmt:
		fc.compileRepeat(s)
	case *ast.NumericForStmt:
		fc.compileNumericFor(s)
	case *ast.GenericForStmt:
		fc.compileGenericFor(s)
	case *ast.FuncStmt:
		fc.compileFuncStmt(s)
	case *ast.ReturnStmt:
		fc.compileReturn(s)
	case *ast.BreakStmt:
		fc.compileBreak()
	case *ast.GotoStmt:
		fc.compileGoto(s)
	case *ast.LabelStmt:
		fc.compileLabel(s)
	default:
		panic("compiler: unhandled statement")
	}
}

// rhsSlot is one slot of a right-hand-side expression list: either an
// already-compiled single-valued nodeOutput, or a marker that the
// expression was left multi-valued because it was last in the list (its
// values sit in the pending-results/varargs buffer and are pulled one at a
// time by resolveSlot).
type rhsSlot struct {
	out      nodeOutput
	multi    bool
	isCall   bool // meaningful only when multi
	isVararg bool // meaningful only when multi
	vaIndex  int  // meaningful only when isVararg: this slot's position within the spread
}

// resolveSlot materializes one value out of a slot: for a plain slot this
// is just fc.materialize; for a multi-call slot, it pulls the next pending
// result (OpMapRet), which drains left to right because the pending buffer
// is freshly populated by the one OpDoCall that produced it. For a
// multi-vararg slot it loads varargs[vaIndex] directly (OpLoadVa is a
// stateless indexed load, not a stream): "..." denotes the same fixed list
// everywhere it appears, so the position has to be fixed at compile time
// rather than tracked by some runtime cursor that would drift between
// separate "..." occurrences in the same function.
func (fc *funcCompiler) resolveSlot(slot rhsSlot) scope.Register {
	if !slot.multi {
		return fc.materialize(slot.out)
	}
	dst := fc.blk.NewAnonymous()
	if slot.isCall {
		fc.emit(Instruction{Op: OpMapRet, Dst: dst})
	} else {
		fc.emit(Instruction{Op: OpLoadVa, Dst: dst, A: slot.vaIndex})
	}
	return dst
}

// evalExprList evaluates a right-hand-side expression list under Lua's
// "last expression spreads" rule and returns exactly `want` slots
// (truncating extras, padding missing trailing values with nil). Passing
// want < 0 returns one slot per expression with no padding, for contexts
// that consume the tail's full spread themselves (table constructors,
// call arguments, return statements) rather than a fixed assignment arity.
//
// copyToFresh forces every plain (non-const, non-call, non-vararg) slot to
// be copied into a brand-new anonymous register right away, rather than
// left aliasing whatever register the source expression happened to read
// from (materialize's ordinary pass-through for a plain nodeOutput). This
// matters for multi-target assignment: Lua evaluates the whole right-hand
// side before any left-hand target is written, so `a, b = b, a` must swap.
// If `b`'s slot merely aliased b's live register, committing `a`'s OpMove
// first would clobber that register before `b`'s own assignment read it.
// compileLocal/return/generic-for's iterator list don't pass this, since
// their destinations are always freshly allocated registers or internal
// per-iteration temporaries that can't alias a slot still to be read.
func (fc *funcCompiler) evalExprList(exprs []ast.Expr, want int, copyToFresh bool) []rhsSlot {
	slots := make([]rhsSlot, 0, len(exprs))
	for i, e := range exprs {
		isLast := i == len(exprs)-1
		val := fc.compileExpr(e)
		if isLast && (val.isCall || val.isVararg) {
			slots = append(slots, rhsSlot{multi: true, isCall: val.isCall, isVararg: val.isVararg})
		} else if val.isCall {
			// A non-last call must be drained to its single value right away,
			// before the next expression in the list runs its own call and
			// overwrites the pending-results buffer (same discipline as
			// call.go's compileCall uses for non-last arguments). Deferring
			// this to resolveSlot, after the whole list has been compiled,
			// would read the *last* call's pending results for every prior
			// call's slot.
			slots = append(slots, rhsSlot{out: regOutput(fc.materialize(val))})
		} else if copyToFresh && !val.isConst {
			slots = append(slots, rhsSlot{out: regOutput(fc.copyToAnon(val))})
		} else {
			slots = append(slots, rhsSlot{out: val})
		}
	}
	if want < 0 {
		return slots
	}

	result := make([]rhsSlot, 0, want)
	for _, s := range slots {
		if len(result) >= want {
			break
		}
		result = append(result, s)
	}
	// If the tail slot was multi and landed before `want`, every remaining
	// want-slot also draws from it: a call's extra results keep draining the
	// pending buffer left to right (OpMapRet), while a vararg tail's extra
	// slots index further into the fixed varargs list (vaIndex 0, 1, 2, ...
	// from where the tail started).
	if len(result) > 0 && result[len(result)-1].multi {
		tailIdx := len(result) - 1
		tail := result[tailIdx]
		for len(result) < want {
			result = append(result, tail)
		}
		if tail.isVararg {
			for i := tailIdx; i < len(result); i++ {
				result[i].vaIndex = i - tailIdx
			}
		}
	}
	for len(result) < want {
		result = append(result, rhsSlot{out: constOutput(value.NilValue)})
	}
	return result
}

func (fc *funcCompiler) compileLocal(s *ast.LocalStmt) {
	vals := fc.evalExprList(s.Right, len(s.Names), false)
	for i, name := range s.Names {
		src := fc.resolveSlot(vals[i])
		if i < len(s.Attribs) && s.Attribs[i] == ast.CloseAttrib {
			fc.emit(Instruction{Op: OpRaise, Err: &ops.OpError{Kind: ops.InvalidType, Op: "<close> attribute of local '" + name + "' (unsupported)"}})
			continue
		}
		isConst := i < len(s.Attribs) && s.Attribs[i] == ast.ConstAttrib
		reg, err := fc.blk.NewLocal(name, isConst)
		if err != nil {
			fc.emit(Instruction{Op: OpRaise, Err: &ops.OpError{Kind: ops.InvalidType, Op: err.Error()}})
			continue
		}
		fc.emit(Instruction{Op: OpMove, Dst: reg, Src: src})
	}
}

// assignTarget is a pre-resolved assignment destination: either a plain
// register (a name) or a table/key pair (an index), computed before any
// right-hand-side value is drained. A multi-valued right-hand side (the
// tail of `a, b, c = f()`) drains the shared pending-results buffer one
// target at a time (resolveSlot/OpMapRet); if a later target's own table
// or key expression contained a call, compiling it in between would
// overwrite that buffer before the next target's share was read. Resolving
// every target's table/key up front, left to right, before touching any
// right-hand-side slot avoids the hazard entirely.
type assignTarget struct {
	isName bool
	reg    scope.Register // isName: the destination register
	tbl    scope.Register // !isName: the table
	key    scope.Register // !isName: the key
}

func (fc *funcCompiler) prepareTarget(target ast.Expr) assignTarget {
	switch t := target.(type) {
	case *ast.NameExpr:
		dst, err := fc.blk.Resolve(t.Name)
		if err != nil {
			fc.emit(Instruction{Op: OpRaise, Err: &ops.OpError{Kind: ops.InvalidType, Op: err.Error()}})
			return assignTarget{isName: true}
		}
		return assignTarget{isName: true, reg: dst}
	case *ast.DotExpr:
		tbl := fc.materialize(fc.compileExpr(t.Left))
		key := fc.materialize(constOutput(fc.c.intern(t.Name)))
		return assignTarget{tbl: tbl, key: key}
	case *ast.IndexExpr:
		tbl := fc.materialize(fc.compileExpr(t.Left))
		key := fc.materialize(fc.compileExpr(t.Index))
		return assignTarget{tbl: tbl, key: key}
	default:
		return assignTarget{isName: true}
	}
}

func (fc *funcCompiler) commitTarget(t assignTarget, src scope.Register) {
	if t.isName {
		fc.emit(Instruction{Op: OpMove, Dst: t.reg, Src: src})
		return
	}
	fc.emit(Instruction{Op: OpSetIndex, Table: t.tbl, Key: t.key, Src: src})
}

func (fc *funcCompiler) compileAssign(s *ast.AssignStmt) {
	targets := make([]assignTarget, len(s.Left))
	for i, target := range s.Left {
		targets[i] = fc.prepareTarget(target)
	}

	vals := fc.evalExprList(s.Right, len(s.Left), true)
	for i := range s.Left {
		fc.commitTarget(targets[i], fc.resolveSlot(vals[i]))
	}
}

func (fc *funcCompiler) compileIf(s *ast.IfStmt) {
	endLabel := fc.blk.NextIfLabel()
	_ = endLabel
	var endPatches []int

	for _, clause := range s.Clauses {
		cond := fc.materialize(fc.compileExpr(clause.Cond))
		skip := fc.emit(Instruction{Op: OpJumpIfFalse, Cond: cond})

		inner := fc.blk.Sub()
		outer := fc.blk
		fc.blk = inner
		fc.compileBlock(clause.Body)
		fc.blk.End()
		fc.blk = outer

		endPatches = append(endPatches, fc.emit(Instruction{Op: OpJump}))
		fc.patchJump(skip, fc.here())
	}

	if s.Else != nil {
		inner := fc.blk.Sub()
		outer := fc.blk
		fc.blk = inner
		fc.compileBlock(s.Else)
		fc.blk.End()
		fc.blk = outer
	}

	end := fc.here()
	for _, p := range endPatches {
		fc.patchJump(p, end)
	}
}

func (fc *funcCompiler) compileWhile(s *ast.WhileStmt) {
	fc.blk.PushLoopLabel()
	start := fc.here()
	cond := fc.materialize(fc.compileExpr(s.Cond))
	exit := fc.emit(Instruction{Op: OpJumpIfFalse, Cond: cond})

	fc.breakPatches = append(fc.breakPatches, nil)
	inner := fc.blk.Sub()
	outer := fc.blk
	fc.blk = inner
	fc.compileBlock(s.Body)
	fc.blk.End()
	fc.blk = outer

	fc.emit(Instruction{Op: OpJump, A: start})
	end := fc.here()
	fc.patchJump(exit, end)
	fc.patchBreaks(end)
	fc.blk.PopLoopLabel()
}

func (fc *funcCompiler) compileRepeat(s *ast.RepeatStmt) {
	fc.blk.PushLoopLabel()
	start := fc.here()

	fc.breakPatches = append(fc.breakPatches, nil)
	// The until-condition resolves in the body's own scope (Lua 5.4), so the
	// body block is not closed until after the condition is compiled.
	inner := fc.blk.Sub()
	outer := fc.blk
	fc.blk = inner
	fc.compileBlock(s.Body)
	cond := fc.materialize(fc.compileExpr(s.Cond))
	fc.blk.End()
	fc.blk = outer

	fc.emit(Instruction{Op: OpJumpIfFalse, Cond: cond, A: start})
	end := fc.here()
	fc.patchBreaks(end)
	fc.blk.PopLoopLabel()
}

func (fc *funcCompiler) patchBreaks(target int) {
	n := len(fc.breakPatches)
	for _, p := range fc.breakPatches[n-1] {
		fc.patchJump(p, target)
	}
	fc.breakPatches = fc.breakPatches[:n-1]
}

func (fc *funcCompiler) compileBreak() {
	if len(fc.breakPatches) == 0 {
		fc.emit(Instruction{Op: OpRaise, Err: &ops.OpError{Kind: ops.InvalidType, Op: "break outside loop"}})
		return
	}
	pos := fc.emit(Instruction{Op: OpJump})
	n := len(fc.breakPatches)
	fc.breakPatches[n-1] = append(fc.breakPatches[n-1], pos)
}

// compileNumericFor lowers `for v = init, limit, step do body end`. Per
// §4.3, step's sign is a runtime value, so the continuation test picks its
// direction at runtime too: `step > 0 ? v <= limit : v >= limit`, evaluated
// each iteration as two comparisons selected with a guarded Move (no
// conditional-move opcode exists, so the false arm is just skipped).
// init/limit/step are none of them necessarily compile-time constants, so
// their "must be numeric" and "step must not be zero" requirements (§4.3,
// §6) are runtime guards (OpAssertNumeric, an explicit zero-step raise)
// emitted once before the loop header, not a compile-time check.
func (fc *funcCompiler) compileNumericFor(s *ast.NumericForStmt) {
	initReg := fc.materialize(fc.compileExpr(s.Init))
	fc.emit(Instruction{Op: OpAssertNumeric, Src: initReg, Err: &ops.OpError{Kind: ops.InvalidForInit}})

	limitReg := fc.materialize(fc.compileExpr(s.Limit))
	fc.emit(Instruction{Op: OpAssertNumeric, Src: limitReg, Err: &ops.OpError{Kind: ops.InvalidForCond}})

	var stepReg scope.Register
	if s.Step != nil {
		stepReg = fc.materialize(fc.compileExpr(s.Step))
		fc.emit(Instruction{Op: OpAssertNumeric, Src: stepReg, Err: &ops.OpError{Kind: ops.InvalidForStep}})
	} else {
		stepReg = fc.materialize(constOutput(value.Integer(1)))
	}

	zero := fc.materialize(constOutput(value.Integer(0)))

	stepIsZero := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpBinary, BinOp: ops.Equals, Dst: stepIsZero, Lhs: stepReg, Rhs: zero})
	skipZeroRaise := fc.emit(Instruction{Op: OpJumpIfFalse, Cond: stepIsZero})
	fc.emit(Instruction{Op: OpRaise, Err: &ops.OpError{Kind: ops.InvalidForStep}})
	fc.patchJump(skipZeroRaise, fc.here())

	stepPositive := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpBinary, BinOp: ops.GreaterThan, Dst: stepPositive, Lhs: stepReg, Rhs: zero})

	// The whole loop, including its control variable, lives in its own
	// block so the variable's scope ends with the loop rather than leaking
	// into whatever follows it.
	loopBlk := fc.blk.Sub()
	enclosing := fc.blk
	fc.blk = loopBlk
	defer func() { fc.blk = enclosing }()

	loopVarOuter, err := fc.blk.NewLocal(s.Name, false)
	if err != nil {
		fc.emit(Instruction{Op: OpRaise, Err: &ops.OpError{Kind: ops.InvalidType, Op: err.Error()}})
		return
	}
	fc.emit(Instruction{Op: OpMove, Dst: loopVarOuter, Src: initReg})

	fc.blk.PushLoopLabel()
	fc.breakPatches = append(fc.breakPatches, nil)
	start := fc.here()

	ascendOK := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpBinary, BinOp: ops.LessEqual, Dst: ascendOK, Lhs: loopVarOuter, Rhs: limitReg})
	descendOK := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpBinary, BinOp: ops.GreaterEqual, Dst: descendOK, Lhs: loopVarOuter, Rhs: limitReg})
	cont := fc.blk.NewAnonymous()
	// cont := stepPositive ? ascendOK : descendOK, expressed without a
	// conditional-move opcode: jump around a Move.
	fc.emit(Instruction{Op: OpMove, Dst: cont, Src: descendOK})
	skip := fc.emit(Instruction{Op: OpJumpIfFalse, Cond: stepPositive})
	fc.emit(Instruction{Op: OpMove, Dst: cont, Src: ascendOK})
	fc.patchJump(skip, fc.here())

	exit := fc.emit(Instruction{Op: OpJumpIfFalse, Cond: cont})

	inner := fc.blk.Sub()
	outer := fc.blk
	fc.blk = inner
	fc.compileBlock(s.Body)
	fc.blk.End()
	fc.blk = outer

	fc.emit(Instruction{Op: OpBinary, BinOp: ops.Add, Dst: loopVarOuter, Lhs: loopVarOuter, Rhs: stepReg})
	fc.emit(Instruction{Op: OpJump, A: start})
	end := fc.here()
	fc.patchJump(exit, end)
	fc.patchBreaks(end)
	fc.blk.PopLoopLabel()
	loopBlk.End()
}

// compileGenericFor lowers `for names in exprs do body end` into the
// iterator-protocol desugaring Lua defines: exprs evaluate to (f, s,
// control[, closing]); each iteration calls f(s, control), rebinds names to
// the results, stops when the first result is nil, and advances control to
// that first result.
func (fc *funcCompiler) compileGenericFor(s *ast.GenericForStmt) {
	init := fc.evalExprList(s.Exprs, 3, false)
	fReg := fc.resolveSlot(init[0])
	sReg := fc.resolveSlot(init[1])
	controlOuter := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpMove, Dst: controlOuter, Src: fc.resolveSlot(init[2])})

	fc.blk.PushLoopLabel()
	fc.breakPatches = append(fc.breakPatches, nil)
	start := fc.here()

	fc.emit(Instruction{Op: OpStartCall, Dst: fReg, A: 2})
	fc.emit(Instruction{Op: OpMapArg, Src: sReg})
	fc.emit(Instruction{Op: OpMapArg, Src: controlOuter})
	fc.emit(Instruction{Op: OpDoCall})

	inner := fc.blk.Sub()
	outer := fc.blk
	fc.blk = inner

	firstReg := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpMapRet, Dst: firstReg})
	nilConst := fc.materialize(constOutput(value.NilValue))
	isNil := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpBinary, BinOp: ops.Equals, Dst: isNil, Lhs: firstReg, Rhs: nilConst})
	exit := fc.emit(Instruction{Op: OpJumpIfTrue, Cond: isNil})

	fc.emit(Instruction{Op: OpMove, Dst: controlOuter, Src: firstReg})
	for i, name := range s.Names {
		reg, err := fc.blk.NewLocal(name, false)
		if err != nil {
			fc.emit(Instruction{Op: OpRaise, Err: &ops.OpError{Kind: ops.InvalidType, Op: err.Error()}})
			continue
		}
		if i == 0 {
			fc.emit(Instruction{Op: OpMove, Dst: reg, Src: firstReg})
		} else {
			fc.emit(Instruction{Op: OpMapRet, Dst: reg})
		}
	}

	fc.compileBlock(s.Body)
	fc.blk.End()
	fc.blk = outer

	fc.emit(Instruction{Op: OpJump, A: start})
	end := fc.here()
	fc.patchJump(exit, end)
	fc.patchBreaks(end)
	fc.blk.PopLoopLabel()
}

// compileFuncStmt lowers `function a.b.c(...)`/`function a.b:c(...)` as
// sugar for an assignment of a function literal, prepending an implicit
// "self" parameter for the method (colon) form.
func (fc *funcCompiler) compileFuncStmt(s *ast.FuncStmt) {
	body := s.Body
	if s.Method {
		params := append([]string{"self"}, body.Params...)
		body = &ast.FuncExpr{Fn: body.Fn, Params: params, IsVararg: body.IsVararg, Body: body.Body, End: body.End}
	}
	closure := fc.compileFuncExpr(body)
	target := fc.prepareTarget(s.Target)
	fc.commitTarget(target, fc.materialize(closure))
}

// compileReturn lowers a return statement. A trailing call spreads all of
// its results via a direct splice-and-return (the tail-call-shaped case);
// a trailing "..." appends the remaining varargs; every other expression
// contributes exactly one value to the return buffer.
func (fc *funcCompiler) compileReturn(s *ast.ReturnStmt) {
	slots := fc.evalExprList(s.Exprs, -1, false)
	for i, slot := range slots {
		isLast := i == len(slots)-1
		switch {
		case slot.multi && slot.isCall && isLast:
			fc.emit(Instruction{Op: OpCopyRetFromRetAndRet})
			return
		case slot.multi && slot.isCall:
			fc.emit(Instruction{Op: OpSetRetFromRet0})
		case slot.multi && slot.isVararg:
			fc.emit(Instruction{Op: OpAppendAllVa, A: 0})
		default:
			fc.emit(Instruction{Op: OpAppendRet, Src: fc.resolveSlot(slot)})
		}
	}
	fc.emit(Instruction{Op: OpRet})
}

func (fc *funcCompiler) compileGoto(s *ast.GotoStmt) {
	if loc, ok := fc.blk.ResolveGoto(s.Label); ok {
		fc.emit(Instruction{Op: OpJump, A: loc})
		return
	}
	pos := fc.emit(Instruction{Op: OpJump})
	fc.blk.RecordPendingJump(s.Label, pos)
}

func (fc *funcCompiler) compileLabel(s *ast.LabelStmt) {
	pending, err := fc.blk.AddLabel(s.Name, fc.here())
	if err != nil {
		fc.emit(Instruction{Op: OpRaise, Err: &ops.OpError{Kind: ops.InvalidType, Op: err.Error()}})
		return
	}
	for _, p := range pending {
		fc.patchJump(p, fc.here())
	}
}
