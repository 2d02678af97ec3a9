// Package scanner turns Lua 5.4 source bytes into a stream of lexemes for
// lang/parser to consume. It is a hand-written recursive lexer in the same
// style as go/scanner: a single rune of lookahead, incremental line/column
// tracking, and an ErrorList that accumulates every lexical error found
// rather than stopping at the first one.
package scanner

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mna/nenuphar/lang/token"
)

// eof is the sentinel rune value for "no more input".
const eof = -1

// Lexeme is one scanned token: its kind, its source position, and whatever
// literal value the parser needs to build an AST leaf from it. Only the
// fields relevant to Token are meaningful: Lit for IDENT and STRING, Int for
// INT, Float for FLOAT.
type Lexeme struct {
	Token token.Token
	Pos   token.Pos
	Lit   string
	Int   int64
	Float float64
}

// Scanner tokenizes a single file's source text.
type Scanner struct {
	file *token.File
	src  []byte
	errs ErrorList

	sb               strings.Builder
	pendingSurrogate rune
	invalidByte      byte

	cur  rune // rune under the read head, eof at end of input
	off  int  // byte offset of cur
	roff int  // byte offset immediately after cur
	line int  // 1-based line of cur
	col  int  // 1-based column of cur
}

// New creates a Scanner over src, attributing positions to file.
func New(file *token.File, src []byte) *Scanner {
	s := &Scanner{file: file, src: src, line: 1, col: 1}
	s.advance()
	if s.cur == '#' {
		// skip a shebang line, e.g. "#!/usr/bin/env lua"
		for s.cur != '\n' && s.cur != eof {
			s.advance()
		}
	}
	return s
}

// Errs returns every error accumulated so far.
func (s *Scanner) Errs() ErrorList { return s.errs }

func (s *Scanner) error(off, line, col int, msg string) {
	_ = off
	s.errs.Add(token.MakePos(line, col), msg)
}

func (s *Scanner) errorf(off, line, col int, format string, args ...any) {
	s.error(off, line, col, fmt.Sprintf(format, args...))
}

// advance consumes cur and decodes the next rune into cur, updating off,
// roff, line and col to describe the new cur.
func (s *Scanner) advance() {
	if s.cur == '\n' {
		s.line++
		s.col = 1
	} else if s.off != s.roff {
		// cur held a real, already-decoded rune; col advances by one
		// regardless of its byte width.
		s.col++
	}
	s.off = s.roff
	if s.off >= len(s.src) {
		s.cur = eof
		return
	}
	r, w := utf8.DecodeRune(s.src[s.off:])
	if r == utf8.RuneError && w == 1 {
		s.invalidByte = s.src[s.off]
		s.errorf(s.off, s.line, s.col, "invalid UTF-8 byte 0x%02x", s.invalidByte)
	}
	s.cur = r
	s.roff = s.off + w
}

// advanceIf consumes cur and advances if it matches one of want, returning
// whether it did.
func (s *Scanner) advanceIf(want ...rune) bool {
	for _, w := range want {
		if s.cur == w {
			s.advance()
			return true
		}
	}
	return false
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\v' || r == '\f'
}

func isLetter(r rune) bool {
	return r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r >= utf8.RuneSelf
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func (s *Scanner) skipWhitespace() {
	for isWhitespace(s.cur) {
		s.advance()
	}
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// peekNext looks one rune past cur without consuming anything.
func (s *Scanner) peekNext() rune {
	if s.roff >= len(s.src) {
		return eof
	}
	r, _ := utf8.DecodeRune(s.src[s.roff:])
	return r
}

type scanState struct {
	cur       rune
	off, roff int
	line, col int
}

func (s *Scanner) snapshot() scanState {
	return scanState{cur: s.cur, off: s.off, roff: s.roff, line: s.line, col: s.col}
}

func (s *Scanner) restore(st scanState) {
	s.cur, s.off, s.roff, s.line, s.col = st.cur, st.off, st.roff, st.line, st.col
}

// Scan returns the next Lexeme in the input. At end of input it keeps
// returning a Lexeme with Token == token.EOF. Comments are consumed
// silently; they never surface as a Lexeme.
func (s *Scanner) Scan() Lexeme {
	s.skipWhitespace()

	pos := token.MakePos(s.line, s.col)
	off, line, col := s.off, s.line, s.col

	switch cur := s.cur; {
	case cur == eof:
		return Lexeme{Token: token.EOF, Pos: pos}

	case isLetter(cur):
		lit := s.ident()
		if tok, ok := token.Keywords[lit]; ok {
			return Lexeme{Token: tok, Pos: pos, Lit: lit}
		}
		return Lexeme{Token: token.IDENT, Pos: pos, Lit: lit}

	case isDigit(cur) || (cur == '.' && isDigit(s.peekNext())):
		tok, base, lit := s.number()
		lex := Lexeme{Token: tok, Pos: pos, Lit: lit}
		if tok == token.INT {
			i, err := numberToInt(lit, base)
			if err != nil {
				s.error(off, line, col, "malformed integer literal: "+lit)
			}
			lex.Int = i
		} else if tok == token.FLOAT {
			f, err := numberToFloat(lit)
			if err != nil {
				s.error(off, line, col, "malformed float literal: "+lit)
			}
			lex.Float = f
		}
		return lex

	case cur == '"' || cur == '\'':
		s.advance()
		_, decoded := s.shortString(cur)
		return Lexeme{Token: token.STRING, Pos: pos, Lit: decoded}

	case cur == '[' && (s.peekNext() == '[' || s.peekNext() == '='):
		save := s.snapshot()
		s.advance() // consume '['
		var level int
		for s.advanceIf('=') {
			level++
		}
		if s.advanceIf('[') {
			_, decoded := s.longString(level)
			return Lexeme{Token: token.STRING, Pos: pos, Lit: decoded}
		}
		// not actually a long-bracket opening: just '[' (with stray '='s,
		// which is an error Lua itself rejects too, but we fall back to
		// treating it as '[' for recovery purposes).
		s.restore(save)
		s.advance()
		return Lexeme{Token: token.LBRACK, Pos: pos}

	default:
		return s.scanPunct(pos, off, line, col)
	}
}

func (s *Scanner) scanPunct(pos token.Pos, off, line, col int) Lexeme {
	cur := s.cur
	s.advance()

	tok := func(t token.Token) Lexeme { return Lexeme{Token: t, Pos: pos} }

	switch cur {
	case '+':
		return tok(token.PLUS)
	case '-':
		if s.cur == '-' {
			s.advance()
			s.comment()
			return s.Scan()
		}
		return tok(token.MINUS)
	case '*':
		return tok(token.STAR)
	case '/':
		if s.advanceIf('/') {
			return tok(token.SLASHSLASH)
		}
		return tok(token.SLASH)
	case '%':
		return tok(token.PERCENT)
	case '^':
		return tok(token.CARET)
	case '#':
		return tok(token.HASH)
	case '&':
		return tok(token.AMP)
	case '~':
		if s.advanceIf('=') {
			return tok(token.NEQ)
		}
		return tok(token.TILDE)
	case '|':
		return tok(token.PIPE)
	case '<':
		if s.advanceIf('<') {
			return tok(token.LTLT)
		}
		if s.advanceIf('=') {
			return tok(token.LE)
		}
		return tok(token.LT)
	case '>':
		if s.advanceIf('>') {
			return tok(token.GTGT)
		}
		if s.advanceIf('=') {
			return tok(token.GE)
		}
		return tok(token.GT)
	case '=':
		if s.advanceIf('=') {
			return tok(token.EQ)
		}
		return tok(token.ASSIGN)
	case '(':
		return tok(token.LPAREN)
	case ')':
		return tok(token.RPAREN)
	case '{':
		return tok(token.LBRACE)
	case '}':
		return tok(token.RBRACE)
	case '[':
		return tok(token.LBRACK)
	case ']':
		return tok(token.RBRACK)
	case ':':
		if s.advanceIf(':') {
			return tok(token.DBCOLON)
		}
		return tok(token.COLON)
	case ';':
		return tok(token.SEMI)
	case ',':
		return tok(token.COMMA)
	case '.':
		if s.advanceIf('.') {
			if s.advanceIf('.') {
				return tok(token.ELLIPSIS)
			}
			return tok(token.DOTDOT)
		}
		return tok(token.DOT)
	default:
		s.errorf(off, line, col, "illegal character %#U", cur)
		return tok(token.ILLEGAL)
	}
}
