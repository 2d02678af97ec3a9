package parser

import (
	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/token"
)

func (p *parser) parseLabelStmt() *ast.LabelStmt {
	start := p.expect(token.DBCOLON)
	_, name := p.parseName()
	end := p.expect(token.DBCOLON)
	return &ast.LabelStmt{Start: start, Name: name, End: end}
}

func (p *parser) parseBreakStmt() *ast.BreakStmt {
	start := p.expect(token.BREAK)
	return &ast.BreakStmt{Start: start}
}

func (p *parser) parseGotoStmt() *ast.GotoStmt {
	start := p.expect(token.GOTO)
	_, name := p.parseName()
	return &ast.GotoStmt{Start: start, Label: name}
}

func (p *parser) parseDoStmt() *ast.DoStmt {
	do := p.expect(token.DO)
	body := p.parseBlock(token.END)
	end := p.expect(token.END)
	return &ast.DoStmt{Do: do, Body: body, End: end}
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	start := p.expect(token.WHILE)
	cond := p.parseExpr()
	p.expect(token.DO)
	body := p.parseBlock(token.END)
	end := p.expect(token.END)
	return &ast.WhileStmt{While: start, Cond: cond, Body: body, End: end}
}

// parseRepeatStmt parses `repeat block until exp`. Cond is resolved in the
// scope of Body's locals (Lua 5.4 manual §3.3.4): the block's scope doesn't
// close until the condition has been evaluated. That's purely a compiler
// concern; the parser just records Cond alongside Body with no End field,
// since the statement's span ends with Cond, not with a closing keyword.
func (p *parser) parseRepeatStmt() *ast.RepeatStmt {
	repeat := p.expect(token.REPEAT)
	body := p.parseBlock(token.UNTIL)
	until := p.expect(token.UNTIL)
	cond := p.parseExpr()
	return &ast.RepeatStmt{Repeat: repeat, Body: body, Until: until, Cond: cond}
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	start := p.expect(token.IF)
	stmt := &ast.IfStmt{If: start}

	cond := p.parseExpr()
	p.expect(token.THEN)
	body := p.parseBlock(token.ELSEIF, token.ELSE, token.END)
	stmt.Clauses = append(stmt.Clauses, ast.IfClause{Cond: cond, Body: body})

	for p.tok == token.ELSEIF {
		p.advance()
		cond := p.parseExpr()
		p.expect(token.THEN)
		body := p.parseBlock(token.ELSEIF, token.ELSE, token.END)
		stmt.Clauses = append(stmt.Clauses, ast.IfClause{Cond: cond, Body: body})
	}

	if p.tok == token.ELSE {
		p.advance()
		stmt.Else = p.parseBlock(token.END)
	}
	stmt.End = p.expect(token.END)
	return stmt
}

// parseForStmt disambiguates numeric and generic for loops by looking past
// the first Name: `for Name =` is numeric, anything else (`,` or `in`) is
// generic.
func (p *parser) parseForStmt() ast.Stmt {
	start := p.expect(token.FOR)
	_, name := p.parseName()

	if p.tok == token.ASSIGN {
		return p.parseNumericForStmt(start, name)
	}
	return p.parseGenericForStmt(start, name)
}

func (p *parser) parseNumericForStmt(start token.Pos, name string) *ast.NumericForStmt {
	p.expect(token.ASSIGN)
	init := p.parseExpr()
	p.expect(token.COMMA)
	limit := p.parseExpr()
	var step ast.Expr
	if p.tok == token.COMMA {
		p.advance()
		step = p.parseExpr()
	}
	p.expect(token.DO)
	body := p.parseBlock(token.END)
	end := p.expect(token.END)
	return &ast.NumericForStmt{For: start, Name: name, Init: init, Limit: limit, Step: step, Body: body, End: end}
}

func (p *parser) parseGenericForStmt(start token.Pos, firstName string) *ast.GenericForStmt {
	names := []string{firstName}
	for p.tok == token.COMMA {
		p.advance()
		_, name := p.parseName()
		names = append(names, name)
	}
	p.expect(token.IN)
	exprs := p.parseExprList()
	p.expect(token.DO)
	body := p.parseBlock(token.END)
	end := p.expect(token.END)
	return &ast.GenericForStmt{For: start, Names: names, Exprs: exprs, Body: body, End: end}
}

// parseFuncStmt parses `function funcname funcbody`, where
// funcname ::= Name {'.' Name} [':' Name]. The dotted/colon chain is built
// directly into the assignment Target; Method records whether a ':' Name
// closed the chain so the compiler can prepend an implicit self parameter.
func (p *parser) parseFuncStmt() *ast.FuncStmt {
	fn := p.expect(token.FUNCTION)
	pos, name := p.parseName()
	var target ast.Expr = &ast.NameExpr{Start: pos, Name: name}

	for p.tok == token.DOT {
		dotPos := p.expect(token.DOT)
		_, field := p.parseName()
		target = &ast.DotExpr{Left: target, Dot: dotPos, Name: field}
	}

	var method bool
	if p.tok == token.COLON {
		colonPos := p.expect(token.COLON)
		_, field := p.parseName()
		target = &ast.DotExpr{Left: target, Dot: colonPos, Name: field}
		method = true
	}

	params, isVararg, body, end := p.parseFuncBody()
	funcExpr := &ast.FuncExpr{Fn: fn, Params: params, IsVararg: isVararg, Body: body, End: end}
	return &ast.FuncStmt{Fn: fn, Target: target, Method: method, Body: funcExpr}
}

// parseLocalStmt parses `local Name...` (a plain local declaration, with
// optional <const>/<close> attributes) or `local function Name funcbody`.
// The latter desugars to two statements, `local Name` followed by
// `Name = function ... end`, matching the Lua 5.4 manual's own equivalence
// (§3.3.7): the compiler's ordinary local-statement lowering evaluates the
// initializer before the new local is declared, so a direct single-statement
// desugaring would resolve a self-call inside the function body to an
// outer/global name instead of the new local.
func (p *parser) parseLocalStmt() []ast.Stmt {
	local := p.expect(token.LOCAL)

	if p.tok == token.FUNCTION {
		p.advance()
		pos, name := p.parseName()
		params, isVararg, body, end := p.parseFuncBody()
		decl := &ast.LocalStmt{Local: local, Names: []string{name}, Attribs: []ast.LocalAttrib{ast.NoAttrib}, End: pos}
		funcExpr := &ast.FuncExpr{Fn: pos, Params: params, IsVararg: isVararg, Body: body, End: end}
		assign := &ast.AssignStmt{
			Left:   []ast.Expr{&ast.NameExpr{Start: pos, Name: name}},
			Assign: pos,
			Right:  []ast.Expr{funcExpr},
		}
		return []ast.Stmt{decl, assign}
	}

	var names []string
	var attribs []ast.LocalAttrib
	_, name := p.parseName()
	names = append(names, name)
	attribs = append(attribs, p.parseLocalAttrib())
	for p.tok == token.COMMA {
		p.advance()
		_, name := p.parseName()
		names = append(names, name)
		attribs = append(attribs, p.parseLocalAttrib())
	}

	stmt := &ast.LocalStmt{Local: local, Names: names, Attribs: attribs}
	if p.tok == token.ASSIGN {
		p.advance()
		stmt.Right = p.parseExprList()
	}
	stmt.End = p.pos
	return []ast.Stmt{stmt}
}

// parseLocalAttrib parses an optional `<const>` or `<close>` attribute
// following a local name.
func (p *parser) parseLocalAttrib() ast.LocalAttrib {
	if p.tok != token.LT {
		return ast.NoAttrib
	}
	p.advance()
	pos, name := p.parseName()
	p.expect(token.GT)
	switch name {
	case "const":
		return ast.ConstAttrib
	case "close":
		return ast.CloseAttrib
	default:
		p.error(pos, "unknown attribute '"+name+"'")
		return ast.NoAttrib
	}
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.expect(token.RETURN)
	stmt := &ast.ReturnStmt{Return: start}
	if !tokenIn(p.tok, token.EOF, token.SEMI, token.END, token.ELSE, token.ELSEIF, token.UNTIL) {
		stmt.Exprs = p.parseExprList()
	}
	if p.tok == token.SEMI {
		p.advance()
	}
	return stmt
}

// parseExprOrAssignStmt parses a statement that starts with an expression:
// either a (possibly multi-target) assignment, or a bare function/method
// call used as a statement.
func (p *parser) parseExprOrAssignStmt() ast.Stmt {
	start := p.pos
	first := p.parseSuffixedExpr()

	if p.tok != token.ASSIGN && p.tok != token.COMMA {
		call, ok := first.(*ast.CallExpr)
		if !ok {
			p.errorExpected(start, "statement")
		}
		return &ast.ExprStmt{Call: call}
	}

	left := []ast.Expr{first}
	for p.tok == token.COMMA {
		p.advance()
		left = append(left, p.parseSuffixedExpr())
	}
	for _, l := range left {
		if !ast.IsAssignable(l) {
			pos, _ := l.Span()
			p.error(pos, "cannot assign to this expression")
		}
	}
	assign := p.expect(token.ASSIGN)
	right := p.parseExprList()
	return &ast.AssignStmt{Left: left, Assign: assign, Right: right}
}
