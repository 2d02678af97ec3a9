package parser

import (
	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/token"
)

// parseExpr parses a full expression using precedence climbing over the
// binary operator table in lang/token (BinaryPrec/RightAssoc).
func (p *parser) parseExpr() ast.Expr {
	return p.parseBinExpr(token.LowestPrec)
}

func (p *parser) parseBinExpr(minPrec int) ast.Expr {
	left := p.parseUnaryExpr()
	for {
		op := p.tok
		prec := token.BinaryPrec(op)
		if prec == token.LowestPrec || prec < minPrec {
			return left
		}
		opPos := p.pos
		p.advance()
		nextMin := prec
		if !token.RightAssoc(op) {
			nextMin = prec + 1
		}
		right := p.parseBinExpr(nextMin)
		left = &ast.BinOpExpr{Left: left, Op: op, OpPos: opPos, Right: right}
	}
}

// parseUnaryExpr handles not/-/#/~, recursing at unary precedence so that
// `^`, which binds tighter than unary on its left operand (-x^2 == -(x^2)),
// is still picked up by the right-hand recursive call.
func (p *parser) parseUnaryExpr() ast.Expr {
	switch p.tok {
	case token.NOT, token.MINUS, token.HASH, token.TILDE:
		op, opPos := p.tok, p.pos
		p.advance()
		right := p.parseBinExpr(token.UnaryPrec)
		return &ast.UnaryOpExpr{Op: op, OpPos: opPos, Right: right}
	default:
		return p.parsePrimaryExpr()
	}
}

// parsePrimaryExpr parses a literal, table constructor, function literal,
// or a prefixexpr (Name / parenthesized expr) with any chain of suffixes
// (field/index access, method and function calls).
func (p *parser) parsePrimaryExpr() ast.Expr {
	switch p.tok {
	case token.NIL:
		pos := p.pos
		p.advance()
		return &ast.NilExpr{Start: pos}
	case token.TRUE:
		pos := p.pos
		p.advance()
		return &ast.TrueExpr{Start: pos}
	case token.FALSE:
		pos := p.pos
		p.advance()
		return &ast.FalseExpr{Start: pos}
	case token.ELLIPSIS:
		pos := p.pos
		p.advance()
		return &ast.VarargExpr{Start: pos}
	case token.INT:
		pos, v := p.pos, p.intVal
		p.advance()
		return &ast.IntExpr{Start: pos, Value: v}
	case token.FLOAT:
		pos, v := p.pos, p.floatVal
		p.advance()
		return &ast.FloatExpr{Start: pos, Value: v}
	case token.STRING:
		pos, v := p.pos, p.lit
		p.advance()
		return &ast.StringExpr{Start: pos, Value: v}
	case token.FUNCTION:
		return p.parseFuncExpr()
	case token.LBRACE:
		return p.parseTableExpr()
	case token.IDENT, token.LPAREN:
		return p.parseSuffixedExpr()
	default:
		p.errorExpected(p.pos, "expression")
		panic(errPanicMode) // errorExpected always panics; unreachable
	}
}

func (p *parser) parsePrefixExpr() ast.Expr {
	switch p.tok {
	case token.IDENT:
		pos, name := p.pos, p.lit
		p.advance()
		return &ast.NameExpr{Start: pos, Name: name}
	case token.LPAREN:
		lparen := p.expect(token.LPAREN)
		x := p.parseExpr()
		rparen := p.expect(token.RPAREN)
		return &ast.ParenExpr{Lparen: lparen, X: x, Rparen: rparen}
	default:
		p.errorExpected(p.pos, "expression")
		panic(errPanicMode)
	}
}

// parseSuffixedExpr parses a prefixexpr followed by any chain of
// `.Name`, `[expr]`, `:Name(args)`, and `(args)` suffixes.
func (p *parser) parseSuffixedExpr() ast.Expr {
	e := p.parsePrefixExpr()
	for {
		switch p.tok {
		case token.DOT:
			dotPos := p.expect(token.DOT)
			_, name := p.parseName()
			e = &ast.DotExpr{Left: e, Dot: dotPos, Name: name}
		case token.LBRACK:
			lbrack := p.expect(token.LBRACK)
			idx := p.parseExpr()
			rbrack := p.expect(token.RBRACK)
			e = &ast.IndexExpr{Left: e, Lbrack: lbrack, Index: idx, Rbrack: rbrack}
		case token.COLON:
			p.advance()
			_, method := p.parseName()
			lparen, args, rparen := p.parseArgs()
			e = &ast.CallExpr{Fn: e, Method: method, Lparen: lparen, Args: args, Rparen: rparen}
		case token.LPAREN, token.STRING, token.LBRACE:
			lparen, args, rparen := p.parseArgs()
			e = &ast.CallExpr{Fn: e, Lparen: lparen, Args: args, Rparen: rparen}
		default:
			return e
		}
	}
}

// parseArgs parses the three forms Lua allows for call arguments:
// `(explist)`, a table constructor, or a single string literal.
func (p *parser) parseArgs() (lparen token.Pos, args []ast.Expr, rparen token.Pos) {
	switch p.tok {
	case token.LPAREN:
		lparen = p.expect(token.LPAREN)
		if p.tok != token.RPAREN {
			args = p.parseExprList()
		}
		rparen = p.expect(token.RPAREN)
		return lparen, args, rparen
	case token.STRING:
		pos, v := p.pos, p.lit
		p.advance()
		s := &ast.StringExpr{Start: pos, Value: v}
		return pos, []ast.Expr{s}, pos
	case token.LBRACE:
		t := p.parseTableExpr()
		start, end := t.Span()
		return start, []ast.Expr{t}, end
	default:
		p.errorExpected(p.pos, "function arguments")
		panic(errPanicMode)
	}
}

func (p *parser) parseExprList() []ast.Expr {
	exprs := []ast.Expr{p.parseExpr()}
	for p.tok == token.COMMA {
		p.advance()
		exprs = append(exprs, p.parseExpr())
	}
	return exprs
}

// parseTableExpr parses `{ [fieldlist] }`, where each field is `[exp]=exp`,
// `Name=exp`, or a bare positional `exp`, separated by ',' or ';'.
func (p *parser) parseTableExpr() *ast.TableExpr {
	lbrace := p.expect(token.LBRACE)
	var fields []ast.TableField
	for p.tok != token.RBRACE && p.tok != token.EOF {
		fields = append(fields, p.parseTableField())
		if p.tok == token.COMMA || p.tok == token.SEMI {
			p.advance()
		} else {
			break
		}
	}
	rbrace := p.expect(token.RBRACE)
	return &ast.TableExpr{Lbrace: lbrace, Fields: fields, Rbrace: rbrace}
}

func (p *parser) parseTableField() ast.TableField {
	switch {
	case p.tok == token.LBRACK:
		p.advance()
		key := p.parseExpr()
		p.expect(token.RBRACK)
		p.expect(token.ASSIGN)
		val := p.parseExpr()
		return ast.TableField{Key: key, Value: val}
	case p.tok == token.IDENT && p.peek() == token.ASSIGN:
		_, name := p.parseName()
		p.expect(token.ASSIGN)
		val := p.parseExpr()
		return ast.TableField{Name: name, Value: val}
	default:
		return ast.TableField{Value: p.parseExpr()}
	}
}

// parseFuncExpr parses a function literal: `function funcbody`.
func (p *parser) parseFuncExpr() *ast.FuncExpr {
	fn := p.expect(token.FUNCTION)
	params, isVararg, body, end := p.parseFuncBody()
	return &ast.FuncExpr{Fn: fn, Params: params, IsVararg: isVararg, Body: body, End: end}
}

// parseFuncBody parses `(parlist) block end`, common to function literals,
// `function Name(...) ... end`, and `local function Name(...) ... end`.
func (p *parser) parseFuncBody() (params []string, isVararg bool, body *ast.Block, end token.Pos) {
	p.expect(token.LPAREN)
	for p.tok != token.RPAREN {
		if p.tok == token.ELLIPSIS {
			p.advance()
			isVararg = true
			break
		}
		_, name := p.parseName()
		params = append(params, name)
		if p.tok != token.COMMA {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)
	body = p.parseBlock(token.END)
	end = p.expect(token.END)
	return params, isVararg, body, end
}
