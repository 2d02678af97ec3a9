// Package ast defines the shape of the abstract syntax tree consumed by the
// compiler. Producing this tree from Lua 5.4 source text (lexing, parsing,
// precedence climbing, line/column attribution) is the job of lang/scanner
// and lang/parser; this package only fixes the node shapes the compiler
// depends on.
package ast

import (
	"fmt"

	"github.com/mna/nenuphar/lang/token"
)

// Node represents any node in the AST.
type Node interface {
	// Span reports the start and end position of the node.
	Span() (start, end token.Pos)
}

// Expr represents an expression in the AST.
type Expr interface {
	Node
	exprNode()
}

// Stmt represents a statement in the AST.
type Stmt interface {
	Node
	// BlockEnding reports whether the statement may only appear as the last
	// statement of a block (only return).
	BlockEnding() bool
}

// Chunk is the root of a parsed source file: a Block plus the filename and
// the position of the EOF marker (used to give empty files a valid span).
type Chunk struct {
	Name  string
	Block *Block
	EOF   token.Pos
}

func (n *Chunk) Span() (start, end token.Pos) {
	if n.Block != nil {
		return n.Block.Span()
	}
	return n.EOF, n.EOF
}

// Block is a sequence of statements delimited by whatever construct
// introduces it (chunk, do/end, then/end, loop body, ...).
type Block struct {
	Start token.Pos
	End   token.Pos
	Stmts []Stmt
}

func (n *Block) Span() (start, end token.Pos) { return n.Start, n.End }

func (n *Block) String() string { return fmt.Sprintf("block(%d stmts)", len(n.Stmts)) }
