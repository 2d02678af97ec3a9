package ast

import "github.com/mna/nenuphar/lang/token"

// LocalAttrib is the optional attribute on a local declaration,
// local x <const> = 1 or local f <close> = open().
type LocalAttrib uint8

const (
	NoAttrib LocalAttrib = iota
	ConstAttrib
	CloseAttrib
)

type (
	// LocalStmt declares one or more locals, e.g. local x, y <const> = 1, 2.
	// Attribs has the same length as Names; entries default to NoAttrib.
	LocalStmt struct {
		Local   token.Pos
		Names   []string
		Attribs []LocalAttrib
		Right   []Expr // may be shorter than Names, or empty
		End     token.Pos
	}

	// AssignStmt is a (possibly multiple) assignment, e.g. a, b = 1, 2. Every
	// entry in Left satisfies IsAssignable.
	AssignStmt struct {
		Left  []Expr
		Assign token.Pos
		Right []Expr
	}

	// ExprStmt is an expression used as a statement: only valid for function
	// and method calls.
	ExprStmt struct {
		Call Expr // *CallExpr
	}

	// DoStmt is an explicit do...end block, introducing a fresh lexical scope
	// with no other control-flow effect.
	DoStmt struct {
		Do   token.Pos
		Body *Block
		End  token.Pos
	}

	// IfClause is one `if`/`elseif` arm.
	IfClause struct {
		Cond Expr
		Body *Block
	}

	// IfStmt is an if/elseif/.../else chain.
	IfStmt struct {
		If      token.Pos
		Clauses []IfClause // at least 1, first is the `if`, rest are `elseif`
		Else    *Block      // nil if no else clause
		End     token.Pos
	}

	// WhileStmt is a while loop.
	WhileStmt struct {
		While token.Pos
		Cond  Expr
		Body  *Block
		End   token.Pos
	}

	// RepeatStmt is a repeat/until loop. Note that Cond is resolved in the
	// scope of Body's locals (a Lua 5.4 wrinkle: the body block closes only
	// after the condition is evaluated).
	RepeatStmt struct {
		Repeat token.Pos
		Body   *Block
		Until  token.Pos
		Cond   Expr
	}

	// NumericForStmt is `for Name = Init, Limit[, Step] do Body end`.
	NumericForStmt struct {
		For   token.Pos
		Name  string
		Init  Expr
		Limit Expr
		Step  Expr // nil if not specified, defaults to 1
		Body  *Block
		End   token.Pos
	}

	// GenericForStmt is `for Names in Exprs do Body end`.
	GenericForStmt struct {
		For   token.Pos
		Names []string
		Exprs []Expr
		Body  *Block
		End   token.Pos
	}

	// FuncStmt is `function Name.a.b:c(...) Body end`, sugar resolved by the
	// compiler into an assignment of a FuncExpr (with an implicit "self"
	// parameter prepended when Method is true).
	FuncStmt struct {
		Fn     token.Pos
		Target Expr // NameExpr possibly wrapped in DotExpr chain
		Method bool // true if declared with the ':' method syntax
		Fields []string
		Body   *FuncExpr
	}

	// ReturnStmt returns zero or more values from the enclosing function.
	ReturnStmt struct {
		Return token.Pos
		Exprs  []Expr
	}

	// BreakStmt exits the innermost enclosing loop.
	BreakStmt struct {
		Start token.Pos
	}

	// GotoStmt transfers control to a label in the same function.
	GotoStmt struct {
		Start token.Pos
		Label string
	}

	// LabelStmt declares a ::name:: label, the target of a GotoStmt.
	LabelStmt struct {
		Start token.Pos
		Name  string
		End   token.Pos
	}
)

func (n *LocalStmt) Span() (token.Pos, token.Pos)      { return n.Local, n.End }
func (n *AssignStmt) Span() (token.Pos, token.Pos) {
	start, _ := n.Left[0].Span()
	_, end := n.Right[len(n.Right)-1].Span()
	return start, end
}
func (n *ExprStmt) Span() (token.Pos, token.Pos)       { return n.Call.Span() }
func (n *DoStmt) Span() (token.Pos, token.Pos)         { return n.Do, n.End }
func (n *IfStmt) Span() (token.Pos, token.Pos)         { return n.If, n.End }
func (n *WhileStmt) Span() (token.Pos, token.Pos)      { return n.While, n.End }
func (n *RepeatStmt) Span() (token.Pos, token.Pos) {
	_, end := n.Cond.Span()
	return n.Repeat, end
}
func (n *NumericForStmt) Span() (token.Pos, token.Pos) { return n.For, n.End }
func (n *GenericForStmt) Span() (token.Pos, token.Pos) { return n.For, n.End }
func (n *FuncStmt) Span() (token.Pos, token.Pos) {
	_, end := n.Body.Span()
	return n.Fn, end
}
func (n *ReturnStmt) Span() (token.Pos, token.Pos) {
	end := n.Return
	if len(n.Exprs) > 0 {
		_, end = n.Exprs[len(n.Exprs)-1].Span()
	}
	return n.Return, end
}
func (n *BreakStmt) Span() (token.Pos, token.Pos) { return n.Start, n.Start }
func (n *GotoStmt) Span() (token.Pos, token.Pos)  { return n.Start, n.Start }
func (n *LabelStmt) Span() (token.Pos, token.Pos) { return n.Start, n.End }

// BlockEnding reports whether the statement may only be the last statement
// of a block.
func (*LocalStmt) BlockEnding() bool      { return false }
func (*AssignStmt) BlockEnding() bool     { return false }
func (*ExprStmt) BlockEnding() bool       { return false }
func (*DoStmt) BlockEnding() bool         { return false }
func (*IfStmt) BlockEnding() bool         { return false }
func (*WhileStmt) BlockEnding() bool      { return false }
func (*RepeatStmt) BlockEnding() bool     { return false }
func (*NumericForStmt) BlockEnding() bool { return false }
func (*GenericForStmt) BlockEnding() bool { return false }
func (*FuncStmt) BlockEnding() bool       { return false }
func (*ReturnStmt) BlockEnding() bool     { return true }
func (*BreakStmt) BlockEnding() bool      { return false }
func (*GotoStmt) BlockEnding() bool       { return false }
func (*LabelStmt) BlockEnding() bool      { return false }
