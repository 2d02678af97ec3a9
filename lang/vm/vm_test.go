package vm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/compiler"
	"github.com/mna/nenuphar/lang/ops"
	"github.com/mna/nenuphar/lang/token"
	"github.com/mna/nenuphar/lang/value"
	"github.com/mna/nenuphar/lang/vm"
	"github.com/stretchr/testify/require"
)

func block(stmts ...ast.Stmt) *ast.Block { return &ast.Block{Stmts: stmts} }

func name(n string) *ast.NameExpr { return &ast.NameExpr{Name: n} }

func intLit(v int64) *ast.IntExpr { return &ast.IntExpr{Value: v} }

func strLit(v string) *ast.StringExpr { return &ast.StringExpr{Value: v} }

func localStmt(names []string, right ...ast.Expr) *ast.LocalStmt {
	return &ast.LocalStmt{Names: names, Right: right}
}

func returnStmt(exprs ...ast.Expr) *ast.ReturnStmt {
	return &ast.ReturnStmt{Exprs: exprs}
}

func binOp(op token.Token, l, r ast.Expr) *ast.BinOpExpr {
	return &ast.BinOpExpr{Left: l, Op: op, Right: r}
}

// run compiles b as a chunk and executes it, returning its return values.
func run(t *testing.T, b *ast.Block, args ...value.Value) []value.Value {
	t.Helper()
	chunk, err := compiler.CompileChunk("test", b)
	require.NoError(t, err)
	rt := vm.NewRuntime(chunk)
	results, err := rt.Execute(context.Background(), args)
	require.NoError(t, err)
	return results
}

func TestExecute_Arithmetic(t *testing.T) {
	// local x = 1 + 2 * 3
	// return x
	b := block(
		localStmt([]string{"x"}, binOp(token.PLUS, intLit(1), binOp(token.STAR, intLit(2), intLit(3)))),
		returnStmt(name("x")),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(7), results[0])
}

func TestExecute_LocalAssignmentAndMutation(t *testing.T) {
	// local x = 1
	// x = x + 41
	// return x
	b := block(
		localStmt([]string{"x"}, intLit(1)),
		&ast.AssignStmt{Left: []ast.Expr{name("x")}, Right: []ast.Expr{binOp(token.PLUS, name("x"), intLit(41))}},
		returnStmt(name("x")),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(42), results[0])
}

func TestExecute_GlobalRoundTrip(t *testing.T) {
	// g = 10
	// return g
	b := block(
		&ast.AssignStmt{Left: []ast.Expr{name("g")}, Right: []ast.Expr{intLit(10)}},
		returnStmt(name("g")),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(10), results[0])
}

func TestExecute_ClosureCapturesOuterLocal(t *testing.T) {
	// local x = 5
	// local function f() return x end
	// x = 9
	// return f()
	fn := &ast.FuncExpr{Body: block(returnStmt(name("x")))}
	b := block(
		localStmt([]string{"x"}, intLit(5)),
		localStmt([]string{"f"}, fn),
		&ast.AssignStmt{Left: []ast.Expr{name("x")}, Right: []ast.Expr{intLit(9)}},
		returnStmt(&ast.CallExpr{Fn: name("f")}),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(9), results[0])
}

func TestExecute_NestedClosuresDoNotCollideRegisters(t *testing.T) {
	// local function outer()
	//   local a = 1
	//   local function inner()
	//     local b = 2
	//     return a + b
	//   end
	//   return inner()
	// end
	// return outer()
	inner := &ast.FuncExpr{Body: block(
		localStmt([]string{"b"}, intLit(2)),
		returnStmt(binOp(token.PLUS, name("a"), name("b"))),
	)}
	outer := &ast.FuncExpr{Body: block(
		localStmt([]string{"a"}, intLit(1)),
		localStmt([]string{"inner"}, inner),
		returnStmt(&ast.CallExpr{Fn: name("inner")}),
	)}
	b := block(
		localStmt([]string{"outer"}, outer),
		returnStmt(&ast.CallExpr{Fn: name("outer")}),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(3), results[0])
}

func TestExecute_FunctionCallWithArgs(t *testing.T) {
	// local function add(a, b) return a + b end
	// return add(3, 4)
	add := &ast.FuncExpr{Params: []string{"a", "b"}, Body: block(
		returnStmt(binOp(token.PLUS, name("a"), name("b"))),
	)}
	b := block(
		localStmt([]string{"add"}, add),
		returnStmt(&ast.CallExpr{Fn: name("add"), Args: []ast.Expr{intLit(3), intLit(4)}}),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(7), results[0])
}

func TestExecute_MultipleReturnValuesSpreadAsArgs(t *testing.T) {
	// local function pair() return 1, 2 end
	// local function add(a, b) return a + b end
	// return add(pair())
	pair := &ast.FuncExpr{Body: block(returnStmt(intLit(1), intLit(2)))}
	add := &ast.FuncExpr{Params: []string{"a", "b"}, Body: block(
		returnStmt(binOp(token.PLUS, name("a"), name("b"))),
	)}
	b := block(
		localStmt([]string{"pair"}, pair),
		localStmt([]string{"add"}, add),
		returnStmt(&ast.CallExpr{Fn: name("add"), Args: []ast.Expr{&ast.CallExpr{Fn: name("pair")}}}),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(3), results[0])
}

func TestExecute_VarargDestructuringIsPositionalNotStreamed(t *testing.T) {
	// local a, b, c = ...
	// local x = ...
	// return a, b, c, x
	b := block(
		localStmt([]string{"a", "b", "c"}, &ast.VarargExpr{}),
		localStmt([]string{"x"}, &ast.VarargExpr{}),
		returnStmt(name("a"), name("b"), name("c"), name("x")),
	)
	results := run(t, b, value.Integer(10), value.Integer(20), value.Integer(30))
	require.Len(t, results, 4)
	require.Equal(t, value.Integer(10), results[0])
	require.Equal(t, value.Integer(20), results[1])
	require.Equal(t, value.Integer(30), results[2])
	// x is a second, independent "..." occurrence: it must see the same
	// fixed list from its own start, not continue draining where a/b/c left
	// off (i.e. x == 10, not nil).
	require.Equal(t, value.Integer(10), results[3])
}

func TestExecute_VarargSpreadAsReturn(t *testing.T) {
	// local function f(...) return ... end
	// return f(1, 2, 3)
	f := &ast.FuncExpr{IsVararg: true, Body: block(returnStmt(&ast.VarargExpr{}))}
	b := block(
		localStmt([]string{"f"}, f),
		returnStmt(&ast.CallExpr{Fn: name("f"), Args: []ast.Expr{intLit(1), intLit(2), intLit(3)}}),
	)
	results := run(t, b)
	require.Len(t, results, 3)
	require.Equal(t, value.Integer(1), results[0])
	require.Equal(t, value.Integer(2), results[1])
	require.Equal(t, value.Integer(3), results[2])
}

func TestExecute_TableGetSet(t *testing.T) {
	// local t = {}
	// t.x = 42
	// return t.x
	b := block(
		localStmt([]string{"t"}, &ast.TableExpr{}),
		&ast.AssignStmt{
			Left:  []ast.Expr{&ast.DotExpr{Left: name("t"), Name: "x"}},
			Right: []ast.Expr{intLit(42)},
		},
		returnStmt(&ast.DotExpr{Left: name("t"), Name: "x"}),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(42), results[0])
}

func TestExecute_TableConstructorWithFields(t *testing.T) {
	// local t = {10, 20, 30}
	// return t[1], t[2], t[3]
	b := block(
		localStmt([]string{"t"}, &ast.TableExpr{Fields: []ast.TableField{
			{Value: intLit(10)},
			{Value: intLit(20)},
			{Value: intLit(30)},
		}}),
		returnStmt(
			&ast.IndexExpr{Left: name("t"), Index: intLit(1)},
			&ast.IndexExpr{Left: name("t"), Index: intLit(2)},
			&ast.IndexExpr{Left: name("t"), Index: intLit(3)},
		),
	)
	results := run(t, b)
	require.Len(t, results, 3)
	require.Equal(t, value.Integer(10), results[0])
	require.Equal(t, value.Integer(20), results[1])
	require.Equal(t, value.Integer(30), results[2])
}

func TestExecute_IfElseBranches(t *testing.T) {
	// local x = 1
	// local result
	// if x == 1 then
	//   result = "one"
	// else
	//   result = "other"
	// end
	// return result
	b := block(
		localStmt([]string{"x"}, intLit(1)),
		localStmt([]string{"result"}),
		&ast.IfStmt{
			Clauses: []ast.IfClause{{
				Cond: binOp(token.EQ, name("x"), intLit(1)),
				Body: block(&ast.AssignStmt{Left: []ast.Expr{name("result")}, Right: []ast.Expr{strLit("one")}}),
			}},
			Else: block(&ast.AssignStmt{Left: []ast.Expr{name("result")}, Right: []ast.Expr{strLit("other")}}),
		},
		returnStmt(name("result")),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	s, ok := results[0].(value.Str)
	require.True(t, ok)
	require.Equal(t, "one", s.Bytes())
}

func TestExecute_WhileLoop(t *testing.T) {
	// local i = 0
	// local sum = 0
	// while i < 5 do
	//   sum = sum + i
	//   i = i + 1
	// end
	// return sum
	b := block(
		localStmt([]string{"i"}, intLit(0)),
		localStmt([]string{"sum"}, intLit(0)),
		&ast.WhileStmt{
			Cond: binOp(token.LT, name("i"), intLit(5)),
			Body: block(
				&ast.AssignStmt{Left: []ast.Expr{name("sum")}, Right: []ast.Expr{binOp(token.PLUS, name("sum"), name("i"))}},
				&ast.AssignStmt{Left: []ast.Expr{name("i")}, Right: []ast.Expr{binOp(token.PLUS, name("i"), intLit(1))}},
			),
		},
		returnStmt(name("sum")),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(10), results[0])
}

func TestExecute_NumericForLoop(t *testing.T) {
	// local sum = 0
	// for i = 1, 5 do
	//   sum = sum + i
	// end
	// return sum
	b := block(
		localStmt([]string{"sum"}, intLit(0)),
		&ast.NumericForStmt{
			Name:  "i",
			Init:  intLit(1),
			Limit: intLit(5),
			Body: block(
				&ast.AssignStmt{Left: []ast.Expr{name("sum")}, Right: []ast.Expr{binOp(token.PLUS, name("sum"), name("i"))}},
			),
		},
		returnStmt(name("sum")),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(15), results[0])
}

func TestExecute_RecursiveFunction(t *testing.T) {
	// local function fact(n)
	//   if n <= 1 then return 1 end
	//   return n * fact(n - 1)
	// end
	// return fact(5)
	fact := &ast.FuncExpr{Params: []string{"n"}, Body: block(
		&ast.IfStmt{
			Clauses: []ast.IfClause{{
				Cond: binOp(token.LE, name("n"), intLit(1)),
				Body: block(returnStmt(intLit(1))),
			}},
		},
		returnStmt(binOp(token.STAR, name("n"), &ast.CallExpr{
			Fn:   name("fact"),
			Args: []ast.Expr{binOp(token.MINUS, name("n"), intLit(1))},
		})),
	)}
	b := block(
		localStmt([]string{"fact"}, fact),
		returnStmt(&ast.CallExpr{Fn: name("fact"), Args: []ast.Expr{intLit(5)}}),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(120), results[0])
}

func TestExecute_MethodCallSugarPassesSelf(t *testing.T) {
	// local t = {}
	// t.double = function(self, n) return n * 2 end
	// return t:double(21)
	b := block(
		localStmt([]string{"t"}, &ast.TableExpr{}),
		&ast.AssignStmt{
			Left: []ast.Expr{&ast.DotExpr{Left: name("t"), Name: "double"}},
			Right: []ast.Expr{&ast.FuncExpr{Params: []string{"self", "n"}, Body: block(
				returnStmt(binOp(token.STAR, name("n"), intLit(2))),
			)}},
		},
		returnStmt(&ast.CallExpr{Fn: name("t"), Method: "double", Args: []ast.Expr{intLit(21)}}),
	)
	results := run(t, b)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(42), results[0])
}

func TestExecute_RegisterGlobalBuiltin(t *testing.T) {
	// return double(21)
	b := block(
		returnStmt(&ast.CallExpr{Fn: name("double"), Args: []ast.Expr{intLit(21)}}),
	)
	chunk, err := compiler.CompileChunk("test", b)
	require.NoError(t, err)
	rt := vm.NewRuntime(chunk)
	err = rt.RegisterGlobal("double", &value.GoFunction{
		Name: "double",
		Fn: func(args []value.Value) ([]value.Value, error) {
			n := args[0].(value.Integer)
			return []value.Value{n * 2}, nil
		},
	})
	require.NoError(t, err)
	results, err := rt.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, value.Integer(42), results[0])
}

func TestExecute_NonLastCallInAssignListTruncatesToOneValue(t *testing.T) {
	// local function f() return 10, 11 end
	// x, y, z = f(), f()
	// return x, y, z
	f := &ast.FuncExpr{Body: block(returnStmt(intLit(10), intLit(11)))}
	b := block(
		localStmt([]string{"f"}, f),
		&ast.AssignStmt{
			Left: []ast.Expr{name("x"), name("y"), name("z")},
			Right: []ast.Expr{
				&ast.CallExpr{Fn: name("f")},
				&ast.CallExpr{Fn: name("f")},
			},
		},
		returnStmt(name("x"), name("y"), name("z")),
	)
	results := run(t, b)
	require.Len(t, results, 3)
	// the first f() is not in tail position, so it truncates to its first
	// value (10); the second f() is last, so it spreads across the
	// remaining targets (10, 11).
	require.Equal(t, value.Integer(10), results[0])
	require.Equal(t, value.Integer(10), results[1])
	require.Equal(t, value.Integer(11), results[2])
}

func TestExecute_MultiTargetAssignmentSwapsValues(t *testing.T) {
	// local a, b = 1, 2
	// a, b = b, a
	// return a, b
	b := block(
		localStmt([]string{"a", "b"}, intLit(1), intLit(2)),
		&ast.AssignStmt{
			Left:  []ast.Expr{name("a"), name("b")},
			Right: []ast.Expr{name("b"), name("a")},
		},
		returnStmt(name("a"), name("b")),
	)
	results := run(t, b)
	require.Len(t, results, 2)
	require.Equal(t, value.Integer(2), results[0])
	require.Equal(t, value.Integer(1), results[1])
}

func TestExecute_MultiTargetAssignmentRotatesThreeValues(t *testing.T) {
	// local a, b, c = 1, 2, 3
	// a, b, c = c, a, b
	// return a, b, c
	b := block(
		localStmt([]string{"a", "b", "c"}, intLit(1), intLit(2), intLit(3)),
		&ast.AssignStmt{
			Left:  []ast.Expr{name("a"), name("b"), name("c")},
			Right: []ast.Expr{name("c"), name("a"), name("b")},
		},
		returnStmt(name("a"), name("b"), name("c")),
	)
	results := run(t, b)
	require.Len(t, results, 3)
	require.Equal(t, value.Integer(3), results[0])
	require.Equal(t, value.Integer(1), results[1])
	require.Equal(t, value.Integer(2), results[2])
}

// runErr compiles b as a chunk, executes it, and requires execution to fail.
func runErr(t *testing.T, b *ast.Block) error {
	t.Helper()
	chunk, err := compiler.CompileChunk("test", b)
	require.NoError(t, err)
	rt := vm.NewRuntime(chunk)
	_, err = rt.Execute(context.Background(), nil)
	require.Error(t, err)
	return err
}

func TestExecute_NumericForZeroStepRaisesInvalidForStep(t *testing.T) {
	// for i = 1, 1, 0 do end
	b := block(&ast.NumericForStmt{
		Name: "i", Init: intLit(1), Limit: intLit(1), Step: intLit(0),
		Body: block(),
	})
	err := runErr(t, b)
	var opErr *ops.OpError
	require.True(t, errors.As(err, &opErr), "expected an *ops.OpError, got %v", err)
	require.Equal(t, ops.InvalidForStep, opErr.Kind)
}

func TestExecute_NumericForNonNumericInitRaisesInvalidForInit(t *testing.T) {
	// for i = "x", 3 do end
	b := block(&ast.NumericForStmt{
		Name: "i", Init: strLit("x"), Limit: intLit(3),
		Body: block(),
	})
	err := runErr(t, b)
	var opErr *ops.OpError
	require.True(t, errors.As(err, &opErr), "expected an *ops.OpError, got %v", err)
	require.Equal(t, ops.InvalidForInit, opErr.Kind)
}

func TestExecute_NumericForNonNumericLimitRaisesInvalidForCond(t *testing.T) {
	// for i = 1, "x" do end
	b := block(&ast.NumericForStmt{
		Name: "i", Init: intLit(1), Limit: strLit("x"),
		Body: block(),
	})
	err := runErr(t, b)
	var opErr *ops.OpError
	require.True(t, errors.As(err, &opErr), "expected an *ops.OpError, got %v", err)
	require.Equal(t, ops.InvalidForCond, opErr.Kind)
}

func TestExecute_NumericForNonNumericStepRaisesInvalidForStep(t *testing.T) {
	// for i = 1, 3, "x" do end
	b := block(&ast.NumericForStmt{
		Name: "i", Init: intLit(1), Limit: intLit(3), Step: strLit("x"),
		Body: block(),
	})
	err := runErr(t, b)
	var opErr *ops.OpError
	require.True(t, errors.As(err, &opErr), "expected an *ops.OpError, got %v", err)
	require.Equal(t, ops.InvalidForStep, opErr.Kind)
}
