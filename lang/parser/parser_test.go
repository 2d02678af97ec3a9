package parser_test

import (
	"testing"

	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	chunk, err := parser.ParseChunk("test.lua", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, chunk)
	return chunk
}

func TestParseLocalStmt(t *testing.T) {
	chunk := mustParse(t, "local x, y = 1, 2")
	require.Len(t, chunk.Block.Stmts, 1)
	local, ok := chunk.Block.Stmts[0].(*ast.LocalStmt)
	require.True(t, ok, "expected *ast.LocalStmt, got %T", chunk.Block.Stmts[0])
	assert.Equal(t, []string{"x", "y"}, local.Names)
	assert.Equal(t, []ast.LocalAttrib{ast.NoAttrib, ast.NoAttrib}, local.Attribs)
	require.Len(t, local.Right, 2)
}

func TestParseLocalStmtWithAttribs(t *testing.T) {
	chunk := mustParse(t, "local x <const> = 1")
	local := chunk.Block.Stmts[0].(*ast.LocalStmt)
	assert.Equal(t, []ast.LocalAttrib{ast.ConstAttrib}, local.Attribs)
}

func TestParseLocalFunctionDesugarsToTwoStmts(t *testing.T) {
	chunk := mustParse(t, "local function fact(n) return n end")
	require.Len(t, chunk.Block.Stmts, 2)

	decl, ok := chunk.Block.Stmts[0].(*ast.LocalStmt)
	require.True(t, ok, "expected *ast.LocalStmt, got %T", chunk.Block.Stmts[0])
	assert.Equal(t, []string{"fact"}, decl.Names)
	assert.Nil(t, decl.Right)

	assign, ok := chunk.Block.Stmts[1].(*ast.AssignStmt)
	require.True(t, ok, "expected *ast.AssignStmt, got %T", chunk.Block.Stmts[1])
	require.Len(t, assign.Left, 1)
	name, ok := assign.Left[0].(*ast.NameExpr)
	require.True(t, ok)
	assert.Equal(t, "fact", name.Name)
	require.Len(t, assign.Right, 1)
	_, ok = assign.Right[0].(*ast.FuncExpr)
	assert.True(t, ok, "expected *ast.FuncExpr, got %T", assign.Right[0])
}

func TestParseAssignStmt(t *testing.T) {
	chunk := mustParse(t, "a, b.c, d[1] = 1, 2, 3")
	assign := chunk.Block.Stmts[0].(*ast.AssignStmt)
	require.Len(t, assign.Left, 3)
	assert.IsType(t, &ast.NameExpr{}, assign.Left[0])
	assert.IsType(t, &ast.DotExpr{}, assign.Left[1])
	assert.IsType(t, &ast.IndexExpr{}, assign.Left[2])
}

func TestParseExprStmtMustBeCall(t *testing.T) {
	_, err := parser.ParseChunk("test.lua", []byte("a + b"))
	assert.Error(t, err)
}

func TestParseCallStmt(t *testing.T) {
	chunk := mustParse(t, "print(1, 2)")
	stmt, ok := chunk.Block.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok, "expected *ast.ExprStmt, got %T", chunk.Block.Stmts[0])
	call, ok := stmt.Call.(*ast.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
}

func TestParseMethodCallStmt(t *testing.T) {
	chunk := mustParse(t, "obj:method(1)")
	stmt := chunk.Block.Stmts[0].(*ast.ExprStmt)
	call := stmt.Call.(*ast.CallExpr)
	assert.Equal(t, "method", call.Method)
}

func TestParseIfStmt(t *testing.T) {
	chunk := mustParse(t, `
		if a then
			return 1
		elseif b then
			return 2
		else
			return 3
		end
	`)
	ifStmt, ok := chunk.Block.Stmts[0].(*ast.IfStmt)
	require.True(t, ok, "expected *ast.IfStmt, got %T", chunk.Block.Stmts[0])
	require.Len(t, ifStmt.Clauses, 2)
	require.NotNil(t, ifStmt.Else)
}

func TestParseWhileStmt(t *testing.T) {
	chunk := mustParse(t, "while x < 10 do x = x + 1 end")
	_, ok := chunk.Block.Stmts[0].(*ast.WhileStmt)
	require.True(t, ok, "expected *ast.WhileStmt, got %T", chunk.Block.Stmts[0])
}

func TestParseRepeatStmt(t *testing.T) {
	chunk := mustParse(t, "repeat x = x + 1 until x > 10")
	rep, ok := chunk.Block.Stmts[0].(*ast.RepeatStmt)
	require.True(t, ok, "expected *ast.RepeatStmt, got %T", chunk.Block.Stmts[0])
	require.NotNil(t, rep.Cond)
}

func TestParseNumericForStmt(t *testing.T) {
	chunk := mustParse(t, "for i = 1, 10, 2 do end")
	forStmt, ok := chunk.Block.Stmts[0].(*ast.NumericForStmt)
	require.True(t, ok, "expected *ast.NumericForStmt, got %T", chunk.Block.Stmts[0])
	assert.Equal(t, "i", forStmt.Name)
	require.NotNil(t, forStmt.Step)
}

func TestParseGenericForStmt(t *testing.T) {
	chunk := mustParse(t, "for k, v in pairs(t) do end")
	forStmt, ok := chunk.Block.Stmts[0].(*ast.GenericForStmt)
	require.True(t, ok, "expected *ast.GenericForStmt, got %T", chunk.Block.Stmts[0])
	assert.Equal(t, []string{"k", "v"}, forStmt.Names)
}

func TestParseFuncStmtPlain(t *testing.T) {
	chunk := mustParse(t, "function f(a, b) return a end")
	fn, ok := chunk.Block.Stmts[0].(*ast.FuncStmt)
	require.True(t, ok, "expected *ast.FuncStmt, got %T", chunk.Block.Stmts[0])
	assert.False(t, fn.Method)
	name, ok := fn.Target.(*ast.NameExpr)
	require.True(t, ok)
	assert.Equal(t, "f", name.Name)
	assert.Equal(t, []string{"a", "b"}, fn.Body.Params)
}

func TestParseFuncStmtDottedAndMethod(t *testing.T) {
	chunk := mustParse(t, "function obj.sub:method(x) end")
	fn := chunk.Block.Stmts[0].(*ast.FuncStmt)
	assert.True(t, fn.Method)
	dot, ok := fn.Target.(*ast.DotExpr)
	require.True(t, ok, "expected outer *ast.DotExpr, got %T", fn.Target)
	assert.Equal(t, "method", dot.Name)
	inner, ok := dot.Left.(*ast.DotExpr)
	require.True(t, ok, "expected inner *ast.DotExpr, got %T", dot.Left)
	assert.Equal(t, "sub", inner.Name)
}

func TestParseBreakGotoLabel(t *testing.T) {
	chunk := mustParse(t, `
		::top::
		goto top
	`)
	_, ok := chunk.Block.Stmts[0].(*ast.LabelStmt)
	require.True(t, ok, "expected *ast.LabelStmt, got %T", chunk.Block.Stmts[0])
	gotoStmt, ok := chunk.Block.Stmts[1].(*ast.GotoStmt)
	require.True(t, ok, "expected *ast.GotoStmt, got %T", chunk.Block.Stmts[1])
	assert.Equal(t, "top", gotoStmt.Label)

	loop := mustParse(t, "while true do break end")
	ws, ok := loop.Block.Stmts[0].(*ast.WhileStmt)
	require.True(t, ok, "expected *ast.WhileStmt, got %T", loop.Block.Stmts[0])
	_, ok = ws.Body.Stmts[0].(*ast.BreakStmt)
	require.True(t, ok, "expected *ast.BreakStmt, got %T", ws.Body.Stmts[0])
}

func TestParseReturnStmt(t *testing.T) {
	chunk := mustParse(t, "return 1, 2, 3")
	ret, ok := chunk.Block.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok, "expected *ast.ReturnStmt, got %T", chunk.Block.Stmts[0])
	require.Len(t, ret.Exprs, 3)
}

func TestParseReturnStmtEmpty(t *testing.T) {
	chunk := mustParse(t, "return")
	ret := chunk.Block.Stmts[0].(*ast.ReturnStmt)
	assert.Empty(t, ret.Exprs)
}

func TestParseUnreachableAfterReturn(t *testing.T) {
	_, err := parser.ParseChunk("test.lua", []byte("do return 1 local x = 2 end"))
	assert.Error(t, err)
}

func TestParseExprPrecedence(t *testing.T) {
	// 1 + 2 * 3 should parse as 1 + (2 * 3).
	chunk := mustParse(t, "return 1 + 2 * 3")
	ret := chunk.Block.Stmts[0].(*ast.ReturnStmt)
	bin, ok := ret.Exprs[0].(*ast.BinOpExpr)
	require.True(t, ok, "expected *ast.BinOpExpr, got %T", ret.Exprs[0])
	_, ok = bin.Left.(*ast.IntExpr)
	assert.True(t, ok, "left operand should be the literal 1, got %T", bin.Left)
	rhs, ok := bin.Right.(*ast.BinOpExpr)
	require.True(t, ok, "right operand should be 2 * 3, got %T", bin.Right)
	assert.Equal(t, int64(2), rhs.Left.(*ast.IntExpr).Value)
}

func TestParseExprConcatRightAssoc(t *testing.T) {
	// a .. b .. c should parse as a .. (b .. c).
	chunk := mustParse(t, `return a .. b .. c`)
	ret := chunk.Block.Stmts[0].(*ast.ReturnStmt)
	bin := ret.Exprs[0].(*ast.BinOpExpr)
	_, ok := bin.Left.(*ast.NameExpr)
	require.True(t, ok, "left operand should be a, got %T", bin.Left)
	_, ok = bin.Right.(*ast.BinOpExpr)
	assert.True(t, ok, "right operand should be b .. c, got %T", bin.Right)
}

func TestParseExprCaretRightAssoc(t *testing.T) {
	// a ^ b ^ c should parse as a ^ (b ^ c).
	chunk := mustParse(t, `return a ^ b ^ c`)
	ret := chunk.Block.Stmts[0].(*ast.ReturnStmt)
	bin := ret.Exprs[0].(*ast.BinOpExpr)
	_, ok := bin.Right.(*ast.BinOpExpr)
	assert.True(t, ok, "right operand should be b ^ c, got %T", bin.Right)
}

func TestParseUnaryMinusVsCaret(t *testing.T) {
	// -x^2 should parse as -(x^2): ^ binds tighter than unary minus.
	chunk := mustParse(t, "return -x^2")
	ret := chunk.Block.Stmts[0].(*ast.ReturnStmt)
	un, ok := ret.Exprs[0].(*ast.UnaryOpExpr)
	require.True(t, ok, "expected *ast.UnaryOpExpr, got %T", ret.Exprs[0])
	_, ok = un.Right.(*ast.BinOpExpr)
	assert.True(t, ok, "unary operand should be x^2, got %T", un.Right)
}

func TestParseTableConstructor(t *testing.T) {
	chunk := mustParse(t, `return { 1, 2, x = 3, [k] = 4 }`)
	ret := chunk.Block.Stmts[0].(*ast.ReturnStmt)
	tbl, ok := ret.Exprs[0].(*ast.TableExpr)
	require.True(t, ok, "expected *ast.TableExpr, got %T", ret.Exprs[0])
	require.Len(t, tbl.Fields, 4)
	assert.Empty(t, tbl.Fields[0].Name)
	assert.Nil(t, tbl.Fields[0].Key)
	assert.Equal(t, "x", tbl.Fields[2].Name)
	assert.NotNil(t, tbl.Fields[3].Key)
}

func TestParseFuncExprVararg(t *testing.T) {
	chunk := mustParse(t, "return function(a, ...) end")
	ret := chunk.Block.Stmts[0].(*ast.ReturnStmt)
	fn, ok := ret.Exprs[0].(*ast.FuncExpr)
	require.True(t, ok, "expected *ast.FuncExpr, got %T", ret.Exprs[0])
	assert.Equal(t, []string{"a"}, fn.Params)
	assert.True(t, fn.IsVararg)
}

func TestParseSuffixChain(t *testing.T) {
	chunk := mustParse(t, `return a.b[c]:d(1).e`)
	ret := chunk.Block.Stmts[0].(*ast.ReturnStmt)
	outer, ok := ret.Exprs[0].(*ast.DotExpr)
	require.True(t, ok, "expected outer *ast.DotExpr, got %T", ret.Exprs[0])
	assert.Equal(t, "e", outer.Name)
	call, ok := outer.Left.(*ast.CallExpr)
	require.True(t, ok, "expected *ast.CallExpr, got %T", outer.Left)
	assert.Equal(t, "d", call.Method)
}

func TestParseStringCallSugar(t *testing.T) {
	chunk := mustParse(t, `require "foo"`)
	stmt := chunk.Block.Stmts[0].(*ast.ExprStmt)
	call := stmt.Call.(*ast.CallExpr)
	require.Len(t, call.Args, 1)
	assert.Equal(t, "foo", call.Args[0].(*ast.StringExpr).Value)
}

func TestParseTableCallSugar(t *testing.T) {
	chunk := mustParse(t, `f{1, 2}`)
	stmt := chunk.Block.Stmts[0].(*ast.ExprStmt)
	call := stmt.Call.(*ast.CallExpr)
	require.Len(t, call.Args, 1)
	assert.IsType(t, &ast.TableExpr{}, call.Args[0])
}

func TestParseSyntaxErrorRecoversAtNextStatement(t *testing.T) {
	// the first statement is malformed (missing assignment rhs); parsing
	// should resynchronize and still recover the second statement.
	chunk, err := parser.ParseChunk("test.lua", []byte("local x = \nlocal y = 2"))
	assert.Error(t, err)
	require.NotNil(t, chunk)
	require.Len(t, chunk.Block.Stmts, 1)
	local, ok := chunk.Block.Stmts[0].(*ast.LocalStmt)
	require.True(t, ok, "expected *ast.LocalStmt, got %T", chunk.Block.Stmts[0])
	assert.Equal(t, []string{"y"}, local.Names)
}
