// Package compiler: see opcode.go for the package doc comment.
package compiler

import (
	"fmt"

	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/ops"
	"github.com/mna/nenuphar/lang/scope"
	"github.com/mna/nenuphar/lang/value"
)

// CompileChunk compiles a parsed chunk into an executable Chunk. The AST is
// assumed to already be free of grammar errors (parsing happens upstream);
// CompileChunk only reports structural compile errors raised by the
// register allocator (too many locals, duplicate labels, and so on) or
// genuinely malformed gotos — both are folded into the bytecode as an
// OpRaise rather than failing CompileChunk itself, mirroring the reference
// allocator's "unresolved jump becomes a MissingLabel Raise" rule (§4.1).
func CompileChunk(name string, block *ast.Block) (*Chunk, error) {
	c := &compiler{
		chunk:    &Chunk{Name: name, Pool: value.NewPool()},
		constIdx: make(map[any]int),
		root:     scope.NewRootScope(),
	}

	fn := c.root.MainFunction()
	fn.SetVararg(true) // the top-level chunk always accepts '...'
	fc := &funcCompiler{c: c, fn: fn, def: &FunctionDef{Name: "main", IsVararg: true}}
	fc.blk = fn.Start()

	fc.compileBlock(block)
	fc.emitImplicitReturn()
	fc.blk.End()

	fc.def.LocalRegisters = fn.LocalRegisterCount()
	fc.def.AnonRegisters = fn.AnonRegisterCount()
	c.chunk.Functions = append([]*FunctionDef{fc.def}, c.chunk.Functions...)
	c.chunk.Globals = c.root.Globals()

	return c.chunk, nil
}

// compiler holds state shared across every function compiled from one
// chunk: the chunk being assembled, constant-pool dedup, the shared string
// pool, and the register allocator's RootScope.
type compiler struct {
	chunk    *Chunk
	constIdx map[any]int
	root     *scope.RootScope
}

// addConstant interns v into the chunk's constant pool, returning its
// index. Scalars dedup by Go-comparable value.
func (c *compiler) addConstant(v value.Value) int {
	var key any
	switch v := v.(type) {
	case value.Integer:
		key = v
	case value.Float:
		key = v
	case value.Bool:
		key = v
	case value.Nil:
		key = "__nil__"
	case value.Str:
		key = v.ID
	}
	if key != nil {
		if idx, ok := c.constIdx[key]; ok {
			return idx
		}
	}
	idx := len(c.chunk.Constants)
	c.chunk.Constants = append(c.chunk.Constants, v)
	if key != nil {
		c.constIdx[key] = idx
	}
	return idx
}

func (c *compiler) intern(s string) value.Str { return value.NewStr(c.chunk.Pool, s) }

// funcCompiler compiles one function body: it owns the instruction buffer
// (via def), the function's register allocator, and the stack of
// break-patch lists for loops currently being compiled.
type funcCompiler struct {
	c   *compiler
	fn  *scope.FunctionScope
	def *FunctionDef
	blk *scope.BlockScope

	breakPatches [][]int // one entry per enclosing loop; indices needing patch to the loop's exit
}

func (fc *funcCompiler) emit(i Instruction) int {
	fc.def.Instructions = append(fc.def.Instructions, i)
	return len(fc.def.Instructions) - 1
}

func (fc *funcCompiler) here() int { return len(fc.def.Instructions) }

func (fc *funcCompiler) patchJump(pos, target int) {
	fc.def.Instructions[pos].A = target
}

func (fc *funcCompiler) emitImplicitReturn() {
	if n := len(fc.def.Instructions); n > 0 && fc.def.Instructions[n-1].Op == OpRet {
		return
	}
	fc.emit(Instruction{Op: OpRet})
}

// nodeOutput is the result of compiling an expression: either it has
// already been reduced to a compile-time Constant, or it lives in some
// Register (named local/global or a fresh anonymous temporary). Multi-value
// producing expressions (calls, varargs) are also tracked so callers in a
// multi-value context (last element of an arg/return/assignment/table
// list) can special-case them.
type nodeOutput struct {
	isConst  bool
	constVal value.Value

	reg scope.Register

	isCall   bool // a call expression; results sit in the pending-results buffer
	isVararg bool // the bare '...' expression
}

func constOutput(v value.Value) nodeOutput  { return nodeOutput{isConst: true, constVal: v} }
func regOutput(r scope.Register) nodeOutput { return nodeOutput{reg: r} }

// materialize ensures an expression result lives in a register, emitting a
// LoadConstant if it was a compile-time constant.
func (fc *funcCompiler) materialize(out nodeOutput) scope.Register {
	if out.isConst {
		dst := fc.blk.NewAnonymous()
		idx := fc.c.addConstant(out.constVal)
		fc.emit(Instruction{Op: OpLoadConstant, Dst: dst, ConstIdx: idx})
		return dst
	}
	if out.isCall {
		dst := fc.blk.NewAnonymous()
		fc.emit(Instruction{Op: OpMapRet, Dst: dst})
		return dst
	}
	if out.isVararg {
		dst := fc.blk.NewAnonymous()
		fc.emit(Instruction{Op: OpLoadVa, Dst: dst, A: 0})
		return dst
	}
	return out.reg
}

// copyToAnon unconditionally copies out's value into a brand-new anonymous
// register, even when out already lives in a register: unlike materialize,
// which passes a plain register straight through, this guarantees the
// result can't alias a register some other live slot still needs to read
// (see evalExprList's copyToFresh).
func (fc *funcCompiler) copyToAnon(out nodeOutput) scope.Register {
	src := fc.materialize(out)
	dst := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpMove, Dst: dst, Src: src})
	return dst
}

// compileExpr lowers an expression to a nodeOutput, constant-folding binary
// and unary operators when both operands are themselves constants (§4.3,
// §8: folding reuses the exact same lang/ops routines the VM executes at
// runtime, so folding can never disagree with execution).
func (fc *funcCompiler) compileExpr(e ast.Expr) nodeOutput {
	switch e := e.(type) {
	case *ast.NilExpr:
		return constOutput(value.NilValue)
	case *ast.TrueExpr:
		return constOutput(value.Bool(true))
	case *ast.FalseExpr:
		return constOutput(value.Bool(false))
	case *ast.IntExpr:
		return constOutput(value.Integer(e.Value))
	case *ast.FloatExpr:
		return constOutput(value.Float(e.Value))
	case *ast.StringExpr:
		return constOutput(fc.c.intern(e.Value))
	case *ast.VarargExpr:
		if !fc.fn.IsVararg() {
			fc.emit(Instruction{Op: OpRaise, Err: &ops.OpError{Kind: ops.InvalidType, Op: "..."}})
		}
		return nodeOutput{isVararg: true}
	case *ast.ParenExpr:
		// Parens truncate a multi-valued expression to its first result.
		return regOutput(fc.materialize(fc.compileExpr(e.X)))
	case *ast.NameExpr:
		reg, err := fc.blk.Resolve(e.Name)
		if err != nil {
			fc.emit(Instruction{Op: OpRaise, Err: &ops.OpError{Kind: ops.InvalidType, Op: err.Error()}})
			return constOutput(value.NilValue)
		}
		return regOutput(reg)
	case *ast.BinOpExpr:
		return fc.compileBinOp(e)
	case *ast.UnaryOpExpr:
		return fc.compileUnaryOp(e)
	case *ast.DotExpr:
		return fc.compileIndex(e.Left, &ast.StringExpr{Value: e.Name})
	case *ast.IndexExpr:
		return fc.compileIndex(e.Left, e.Index)
	case *ast.CallExpr:
		fc.compileCall(e)
		return nodeOutput{isCall: true}
	case *ast.FuncExpr:
		return fc.compileFuncExpr(e)
	case *ast.TableExpr:
		return fc.compileTable(e)
	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", e))
	}
}

func (fc *funcCompiler) compileIndex(left, index ast.Expr) nodeOutput {
	tbl := fc.materialize(fc.compileExpr(left))
	key := fc.materialize(fc.compileExpr(index))
	dst := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpGetIndex, Dst: dst, Table: tbl, Key: key})
	return regOutput(dst)
}

func astBinOp(tok string) (ops.BinOp, bool) {
	m := map[string]ops.BinOp{
		"+": ops.Add, "-": ops.Subtract, "*": ops.Times, "/": ops.Divide,
		"%": ops.Modulo, "//": ops.IDiv, "^": ops.Exponentiation,
		"&": ops.BitAnd, "|": ops.BitOr, "~": ops.BitXor,
		"<<": ops.ShiftLeft, ">>": ops.ShiftRight, "..": ops.Concat,
		"<": ops.LessThan, "<=": ops.LessEqual, ">": ops.GreaterThan,
		">=": ops.GreaterEqual, "==": ops.Equals, "~=": ops.NotEqual,
	}
	op, ok := m[tok]
	return op, ok
}

func (fc *funcCompiler) compileBinOp(e *ast.BinOpExpr) nodeOutput {
	opTok := e.Op.String()
	if opTok == "and" {
		return fc.compileAnd(e)
	}
	if opTok == "or" {
		return fc.compileOr(e)
	}

	binOp, ok := astBinOp(opTok)
	if !ok {
		panic(fmt.Sprintf("compiler: unknown binary operator %q", opTok))
	}

	lhs := fc.compileExpr(e.Left)

	// A call (or vararg) on the left materializes its pending result into a
	// register before the right operand compiles: the right operand may
	// itself be a call, whose OpDoCall would overwrite the shared
	// pending-results buffer before an already-emitted left OpMapRet ever
	// reads it otherwise.
	var lhsReg scope.Register
	lhsDeferred := lhs.isConst
	if !lhsDeferred {
		lhsReg = fc.materialize(lhs)
	}

	rhs := fc.compileExpr(e.Right)

	if lhsDeferred && rhs.isConst && binOp != ops.Concat {
		v, err := ops.Binary(binOp, lhs.constVal, rhs.constVal)
		if err != nil {
			opErr, _ := err.(*ops.OpError)
			fc.emit(Instruction{Op: OpRaise, Err: opErr})
			return constOutput(value.NilValue)
		}
		return constOutput(v)
	}
	if lhsDeferred && rhs.isConst && binOp == ops.Concat {
		v, err := ops.ConcatWithPool(fc.c.chunk.Pool, lhs.constVal, rhs.constVal)
		if err != nil {
			opErr, _ := err.(*ops.OpError)
			fc.emit(Instruction{Op: OpRaise, Err: opErr})
			return constOutput(value.NilValue)
		}
		return constOutput(v)
	}

	if lhsDeferred {
		lhsReg = fc.materialize(lhs)
	}
	rhsReg := fc.materialize(rhs)
	dst := fc.blk.NewAnonymous()
	if binOp == ops.Concat {
		fc.emit(Instruction{Op: OpConcat, Dst: dst, Lhs: lhsReg, Rhs: rhsReg})
	} else {
		fc.emit(Instruction{Op: OpBinary, BinOp: binOp, Dst: dst, Lhs: lhsReg, Rhs: rhsReg})
	}
	return regOutput(dst)
}

func (fc *funcCompiler) compileAnd(e *ast.BinOpExpr) nodeOutput {
	lhs := fc.compileExpr(e.Left)
	if lhs.isConst {
		if !value.Truthy(lhs.constVal) {
			return lhs
		}
		return fc.compileExpr(e.Right)
	}
	lhsReg := fc.materialize(lhs)
	dst := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpMove, Dst: dst, Src: lhsReg})
	skip := fc.emit(Instruction{Op: OpJumpIfFalse, Cond: lhsReg})
	rhs := fc.materialize(fc.compileExpr(e.Right))
	fc.emit(Instruction{Op: OpMove, Dst: dst, Src: rhs})
	fc.patchJump(skip, fc.here())
	return regOutput(dst)
}

func (fc *funcCompiler) compileOr(e *ast.BinOpExpr) nodeOutput {
	lhs := fc.compileExpr(e.Left)
	if lhs.isConst {
		if value.Truthy(lhs.constVal) {
			return lhs
		}
		return fc.compileExpr(e.Right)
	}
	lhsReg := fc.materialize(lhs)
	dst := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpMove, Dst: dst, Src: lhsReg})
	skip := fc.emit(Instruction{Op: OpJumpIfTrue, Cond: lhsReg})
	rhs := fc.materialize(fc.compileExpr(e.Right))
	fc.emit(Instruction{Op: OpMove, Dst: dst, Src: rhs})
	fc.patchJump(skip, fc.here())
	return regOutput(dst)
}

func astUnOp(tok string) (ops.UnOp, bool) {
	m := map[string]ops.UnOp{
		"-": ops.UnaryMinus, "~": ops.UnaryBitNot, "not": ops.Not, "#": ops.Length,
	}
	op, ok := m[tok]
	return op, ok
}

func (fc *funcCompiler) compileUnaryOp(e *ast.UnaryOpExpr) nodeOutput {
	unOp, ok := astUnOp(e.Op.String())
	if !ok {
		panic(fmt.Sprintf("compiler: unknown unary operator %q", e.Op.String()))
	}
	x := fc.compileExpr(e.Right)
	if x.isConst {
		v, err := ops.Unary(unOp, x.constVal)
		if err != nil {
			opErr, _ := err.(*ops.OpError)
			fc.emit(Instruction{Op: OpRaise, Err: opErr})
			return constOutput(value.NilValue)
		}
		return constOutput(v)
	}
	src := fc.materialize(x)
	dst := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpUnary, UnOp: unOp, Dst: dst, Src: src})
	return regOutput(dst)
}

func (fc *funcCompiler) compileFuncExpr(e *ast.FuncExpr) nodeOutput {
	nested := fc.compileNestedFunction(e.Params, e.IsVararg, e.Body)
	funcID := uint32(len(fc.c.chunk.Functions))
	fc.c.chunk.Functions = append(fc.c.chunk.Functions, nested)

	dst := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpAllocClosure, Dst: dst, FuncID: funcID})
	return regOutput(dst)
}

// compileNestedFunction compiles a function body into its own FunctionDef,
// sharing the chunk's RootScope (so it sees the same globals namespace and
// participates in the same shadow-stack discipline for resolving
// identifiers from enclosing scopes — free-variable capture falls out of
// sharing RootScope's shadow stacks rather than a separate freevar pass).
// The child's FunctionScope is opened one depth level deeper than its
// parent, so a name resolved from an enclosing function's shadow entry
// carries that function's own depth as Register.Scope, letting the VM's
// ScopeSet walk its referenced-scopes list to the right frame instead of
// colliding with the callee's own same-numbered locals.
func (fc *funcCompiler) compileNestedFunction(params []string, isVararg bool, body *ast.Block) *FunctionDef {
	childScope := fc.c.root.NewFunction(fc.fn.Depth() + 1)
	childScope.SetVararg(isVararg)
	child := &funcCompiler{c: fc.c, fn: childScope, def: &FunctionDef{
		NamedArgs: len(params), IsVararg: isVararg,
	}}
	child.blk = childScope.Start()

	for _, p := range params {
		if _, err := child.blk.NewLocal(p, false); err != nil {
			child.emit(Instruction{Op: OpRaise, Err: &ops.OpError{Kind: ops.InvalidType, Op: err.Error()}})
		}
	}

	child.compileBlock(body)
	child.emitImplicitReturn()
	child.blk.End()

	child.def.LocalRegisters = childScope.LocalRegisterCount()
	child.def.AnonRegisters = childScope.AnonRegisterCount()
	return child.def
}

func (fc *funcCompiler) compileTable(e *ast.TableExpr) nodeOutput {
	dst := fc.blk.NewAnonymous()
	fc.emit(Instruction{Op: OpAllocTable, Dst: dst, A: len(e.Fields)})

	nextIndex := 1
	for i, field := range e.Fields {
		isLast := i == len(e.Fields)-1
		switch {
		case field.Key != nil:
			key := fc.materialize(fc.compileExpr(field.Key))
			val := fc.materialize(fc.compileExpr(field.Value))
			fc.emit(Instruction{Op: OpSetIndex, Table: dst, Key: key, Src: val})
		case field.Name != "":
			keyReg := fc.materialize(constOutput(fc.c.intern(field.Name)))
			val := fc.materialize(fc.compileExpr(field.Value))
			fc.emit(Instruction{Op: OpSetIndex, Table: dst, Key: keyReg, Src: val})
		default:
			out := fc.compileExpr(field.Value)
			if isLast && (out.isCall || out.isVararg) {
				if out.isCall {
					fc.emit(Instruction{Op: OpStoreAllRet, Table: dst, A: nextIndex})
				} else {
					fc.emit(Instruction{Op: OpSetAllFromVa, Table: dst, A: nextIndex, B: 0})
				}
			} else {
				keyReg := fc.materialize(constOutput(value.Integer(int64(nextIndex))))
				val := fc.materialize(out)
				fc.emit(Instruction{Op: OpSetIndex, Table: dst, Key: keyReg, Src: val})
			}
			nextIndex++
		}
	}
	return regOutput(dst)
}
