package parser

import (
	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/token"
)

func (p *parser) parseChunk() *ast.Chunk {
	var chunk ast.Chunk
	chunk.Block = p.parseBlock()
	chunk.EOF = p.expect(token.EOF)
	return &chunk
}

// parseBlock parses a sequence of statements up to (but not consuming) one
// of endToks or EOF.
func (p *parser) parseBlock(endToks ...token.Token) *ast.Block {
	block := &ast.Block{Start: p.pos}

	var ending ast.Stmt
	var endingReported bool
	for p.tok != token.EOF && !tokenIn(p.tok, endToks...) {
		stmts := p.parseStmt()
		for _, stmt := range stmts {
			if ending != nil && !endingReported {
				pos, _ := stmt.Span()
				p.error(pos, "unreachable statement after "+describeBlockEnding(ending))
				endingReported = true
			} else if stmt.BlockEnding() {
				ending = stmt
			}
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	block.End = p.pos
	return block
}

func describeBlockEnding(s ast.Stmt) string {
	switch s.(type) {
	case *ast.ReturnStmt:
		return "return"
	case *ast.BreakStmt:
		return "break"
	case *ast.GotoStmt:
		return "goto"
	default:
		return "block-ending statement"
	}
}

// parseStmt parses one source-level statement, which may desugar into zero
// (";" and panic-mode recovery), one, or two (local function, see stmt.go)
// AST statements.
func (p *parser) parseStmt() (stmts []ast.Stmt) {
	start := p.pos

	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
			p.syncStmt(start)
			stmts = nil
		}
	}()

	switch p.tok {
	case token.SEMI:
		p.advance()
		return nil
	case token.DBCOLON:
		return []ast.Stmt{p.parseLabelStmt()}
	case token.BREAK:
		return []ast.Stmt{p.parseBreakStmt()}
	case token.GOTO:
		return []ast.Stmt{p.parseGotoStmt()}
	case token.DO:
		return []ast.Stmt{p.parseDoStmt()}
	case token.WHILE:
		return []ast.Stmt{p.parseWhileStmt()}
	case token.REPEAT:
		return []ast.Stmt{p.parseRepeatStmt()}
	case token.IF:
		return []ast.Stmt{p.parseIfStmt()}
	case token.FOR:
		return []ast.Stmt{p.parseForStmt()}
	case token.FUNCTION:
		return []ast.Stmt{p.parseFuncStmt()}
	case token.LOCAL:
		return p.parseLocalStmt()
	case token.RETURN:
		return []ast.Stmt{p.parseReturnStmt()}
	default:
		return []ast.Stmt{p.parseExprOrAssignStmt()}
	}
}

// syncToks are the statement-starting tokens used to resynchronize after a
// syntax error: stopping at one of these gives the next parseStmt call a
// reasonable chance of succeeding instead of tripping over the same
// malformed construct again.
var syncToks = map[token.Token]bool{
	token.SEMI: true, token.DBCOLON: true, token.BREAK: true, token.GOTO: true,
	token.DO: true, token.WHILE: true, token.REPEAT: true, token.IF: true,
	token.FOR: true, token.FUNCTION: true, token.LOCAL: true, token.RETURN: true,
	token.END: true, token.ELSE: true, token.ELSEIF: true, token.UNTIL: true,
}

// syncStmt advances past the failing construct until it reaches a token
// that plausibly starts or ends a statement. It always advances at least
// once past start, guaranteeing forward progress so a broken statement
// can't loop the parser forever.
func (p *parser) syncStmt(start token.Pos) {
	if p.pos == start && p.tok != token.EOF {
		p.advance()
	}
	for p.tok != token.EOF && !syncToks[p.tok] {
		p.advance()
	}
}
