package ast

import "github.com/mna/nenuphar/lang/token"

// Unwrap removes any wrapping ParenExpr around e, recursively, until it
// reaches a non-ParenExpr. Lua distinguishes `f()` (multi-value) from
// `(f())` (truncated to one value), so only specific call sites should
// unwrap; most compiler code must look at the expression as written.
func Unwrap(e Expr) Expr {
	if pe, ok := e.(*ParenExpr); ok {
		return Unwrap(pe.X)
	}
	return e
}

// IsMultiValued reports whether e is an expression that can yield more than
// one value in tail position: a function call or "...". Used throughout the
// compiler to decide whether the "last expression spreads" rule applies.
func IsMultiValued(e Expr) bool {
	switch e.(type) {
	case *CallExpr, *VarargExpr:
		return true
	}
	return false
}

// IsAssignable reports whether e is a valid assignment target: a name, a
// dotted field access, or an indexed access.
func IsAssignable(e Expr) bool {
	switch e.(type) {
	case *NameExpr, *DotExpr, *IndexExpr:
		return true
	default:
		return false
	}
}

type (
	// NilExpr is the literal nil.
	NilExpr struct {
		Start token.Pos
	}

	// TrueExpr and FalseExpr are the boolean literals.
	TrueExpr  struct{ Start token.Pos }
	FalseExpr struct{ Start token.Pos }

	// VarargExpr is the literal "...".
	VarargExpr struct {
		Start token.Pos
	}

	// IntExpr is an integer literal.
	IntExpr struct {
		Start token.Pos
		Value int64
	}

	// FloatExpr is a floating point literal.
	FloatExpr struct {
		Start token.Pos
		Value float64
	}

	// StringExpr is a string literal.
	StringExpr struct {
		Start token.Pos
		Value string
	}

	// NameExpr is a bare identifier reference, e.g. x.
	NameExpr struct {
		Start token.Pos
		Name  string
	}

	// ParenExpr wraps an expression in parentheses. It matters semantically
	// because it truncates a multi-valued expression to a single value.
	ParenExpr struct {
		Lparen token.Pos
		X      Expr
		Rparen token.Pos
	}

	// DotExpr is field access, e.g. x.y.
	DotExpr struct {
		Left Expr
		Dot  token.Pos
		Name string
	}

	// IndexExpr is indexed access, e.g. x[y].
	IndexExpr struct {
		Left   Expr
		Lbrack token.Pos
		Index  Expr
		Rbrack token.Pos
	}

	// CallExpr is a function call, e.g. f(x, y). If Method is non-empty, this
	// is sugar for obj:Method(args) and Fn is evaluated once, then implicitly
	// passed as the first argument.
	CallExpr struct {
		Fn     Expr
		Method string // non-empty for obj:method(...) sugar
		Lparen token.Pos
		Args   []Expr
		Rparen token.Pos
	}

	// FuncExpr is a function literal (also the desugared body of FuncStmt
	// and method-call sugar).
	FuncExpr struct {
		Fn       token.Pos
		Params   []string
		IsVararg bool
		Body     *Block
		End      token.Pos
	}

	// BinOpExpr is a binary expression, e.g. x + y.
	BinOpExpr struct {
		Left  Expr
		Op    token.Token
		OpPos token.Pos
		Right Expr
	}

	// UnaryOpExpr is a unary expression, e.g. -x, not x, #x, ~x.
	UnaryOpExpr struct {
		Op    token.Token
		OpPos token.Pos
		Right Expr
	}

	// TableField is one field of a TableExpr: either positional ([]Expr with
	// Name == "" and Key == nil), Name = Value, or [Key] = Value.
	TableField struct {
		Name  string // non-empty for `name = value`
		Key   Expr   // non-nil for `[key] = value`
		Value Expr
	}

	// TableExpr is a table constructor, e.g. { 1, 2, x = 3, [k] = 4 }.
	TableExpr struct {
		Lbrace token.Pos
		Fields []TableField
		Rbrace token.Pos
	}
)

func (n *NilExpr) Span() (token.Pos, token.Pos)    { return n.Start, n.Start }
func (n *TrueExpr) Span() (token.Pos, token.Pos)   { return n.Start, n.Start }
func (n *FalseExpr) Span() (token.Pos, token.Pos)  { return n.Start, n.Start }
func (n *VarargExpr) Span() (token.Pos, token.Pos) { return n.Start, n.Start }
func (n *IntExpr) Span() (token.Pos, token.Pos)    { return n.Start, n.Start }
func (n *FloatExpr) Span() (token.Pos, token.Pos)  { return n.Start, n.Start }
func (n *StringExpr) Span() (token.Pos, token.Pos) { return n.Start, n.Start }
func (n *NameExpr) Span() (token.Pos, token.Pos)   { return n.Start, n.Start }
func (n *ParenExpr) Span() (token.Pos, token.Pos)  { return n.Lparen, n.Rparen }
func (n *DotExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Left.Span()
	return start, n.Dot
}
func (n *IndexExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Left.Span()
	return start, n.Rbrack
}
func (n *CallExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Fn.Span()
	return start, n.Rparen
}
func (n *FuncExpr) Span() (token.Pos, token.Pos) { return n.Fn, n.End }
func (n *BinOpExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Left.Span()
	_, end := n.Right.Span()
	return start, end
}
func (n *UnaryOpExpr) Span() (token.Pos, token.Pos) {
	_, end := n.Right.Span()
	return n.OpPos, end
}
func (n *TableExpr) Span() (token.Pos, token.Pos) { return n.Lbrace, n.Rbrace }

func (*NilExpr) exprNode()     {}
func (*TrueExpr) exprNode()    {}
func (*FalseExpr) exprNode()   {}
func (*VarargExpr) exprNode()  {}
func (*IntExpr) exprNode()     {}
func (*FloatExpr) exprNode()   {}
func (*StringExpr) exprNode()  {}
func (*NameExpr) exprNode()    {}
func (*ParenExpr) exprNode()   {}
func (*DotExpr) exprNode()     {}
func (*IndexExpr) exprNode()   {}
func (*CallExpr) exprNode()    {}
func (*FuncExpr) exprNode()    {}
func (*BinOpExpr) exprNode()   {}
func (*UnaryOpExpr) exprNode() {}
func (*TableExpr) exprNode()   {}
