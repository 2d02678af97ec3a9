// Package parser builds an AST (see lang/ast) from the lexeme stream
// produced by lang/scanner, implementing the Lua 5.4 grammar (Lua 5.4
// reference manual, §9). It is a hand-written recursive-descent parser with
// one lexeme of lookahead and panic-mode error recovery at statement
// boundaries, the same technique go/parser and nenuphar's earlier
// Starlark-oriented parser both use.
package parser

import (
	"errors"

	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/scanner"
	"github.com/mna/nenuphar/lang/token"
)

// errPanicMode is the sentinel value recovered at statement boundaries to
// resynchronize after a syntax error.
var errPanicMode = errors.New("parser: panic mode")

type parser struct {
	scn  *scanner.Scanner
	file *token.File

	errs scanner.ErrorList

	tok      token.Token
	pos      token.Pos
	lit      string
	intVal   int64
	floatVal float64

	next scanner.Lexeme // one lexeme of lookahead
}

func newParser(file *token.File, src []byte) *parser {
	p := &parser{scn: scanner.New(file, src), file: file}
	p.next = p.scn.Scan()
	p.advance()
	return p
}

// advance shifts the lookahead lexeme into the current position and primes
// the next lookahead.
func (p *parser) advance() {
	lex := p.next
	p.tok, p.pos, p.lit, p.intVal, p.floatVal = lex.Token, lex.Pos, lex.Lit, lex.Int, lex.Float
	if lex.Token != token.EOF {
		p.next = p.scn.Scan()
	}
}

// peek reports the token that follows the current one, without consuming
// it. Used to disambiguate `for Name = ...` from `for Name, Name... in`.
func (p *parser) peek() token.Token { return p.next.Token }

func (p *parser) error(pos token.Pos, msg string) {
	p.errs.Add(pos, msg)
}

// errorExpected records a "expected X, found Y" error at pos and enters
// panic mode so the caller can resynchronize at the next safe token.
func (p *parser) errorExpected(pos token.Pos, want string) {
	msg := "expected " + want
	if pos == p.pos {
		if p.tok == token.EOF {
			msg += ", found end of file"
		} else {
			msg += ", found " + p.tok.GoString()
		}
	}
	p.error(pos, msg)
	panic(errPanicMode)
}

// expect consumes the current token if it matches tok, or raises a syntax
// error (entering panic mode) otherwise. Returns the position of the
// consumed token.
func (p *parser) expect(tok token.Token) token.Pos {
	pos := p.pos
	if p.tok != tok {
		p.errorExpected(pos, tok.GoString())
	}
	p.advance()
	return pos
}

// parseName expects and consumes an identifier, returning its position and
// text.
func (p *parser) parseName() (token.Pos, string) {
	pos, lit := p.pos, p.lit
	if p.tok != token.IDENT {
		p.errorExpected(pos, "identifier")
	}
	p.advance()
	return pos, lit
}

func tokenIn(tok token.Token, toks ...token.Token) bool {
	for _, t := range toks {
		if tok == t {
			return true
		}
	}
	return false
}

// ParseChunk parses the Lua 5.4 source text src, attributed to name for
// error messages. It always returns a non-nil *ast.Chunk; on a syntax
// error, the returned error is a scanner.ErrorList with every lexical and
// syntax error found, and the chunk reflects a best-effort parse (trailing
// statements after an unrecovered error may be missing).
func ParseChunk(name string, src []byte) (*ast.Chunk, error) {
	fset := token.NewFileSet()
	file := fset.AddFile(name)
	p := newParser(file, src)

	chunk := p.parseTopLevel()
	chunk.Name = name

	all := append(scanner.ErrorList{}, p.scn.Errs()...)
	all = append(all, p.errs...)
	all.Sort()
	if err := all.Err(); err != nil {
		return chunk, err
	}
	return chunk, nil
}

// parseTopLevel parses the chunk, converting any panic-mode escape that
// reaches this level (e.g. a malformed token sequence the statement-level
// recovery couldn't resynchronize past) into a recorded error instead of
// propagating the panic.
func (p *parser) parseTopLevel() (chunk *ast.Chunk) {
	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
			chunk = &ast.Chunk{Block: &ast.Block{Start: p.pos, End: p.pos}, EOF: p.pos}
		}
	}()
	return p.parseChunk()
}
