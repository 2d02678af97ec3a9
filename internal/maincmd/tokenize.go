package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/nenuphar/lang/scanner"
	"github.com/mna/nenuphar/lang/token"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(stdio, args...)
}

// TokenizeFiles scans each named file and prints its lexeme stream, one
// lexeme per line as "line:col: TOKEN [literal]". Scanning errors for a file
// are printed to stderr and do not stop the remaining files from being
// tokenized, mirroring scanner.ErrorList's "collect every error" behavior.
func TokenizeFiles(stdio mainer.Stdio, files ...string) error {
	var firstErr error
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		file := token.NewFileSet().AddFile(name)
		scn := scanner.New(file, src)
		for {
			lex := scn.Scan()
			fmt.Fprintf(stdio.Stdout, "%s: %s", posString(lex.Pos), lex.Token)
			if lit := literalOf(lex); lit != "" {
				fmt.Fprintf(stdio.Stdout, " %s", lit)
			}
			fmt.Fprintln(stdio.Stdout)
			if lex.Token == token.EOF {
				break
			}
		}
		if errs := scn.Errs(); len(errs) > 0 {
			scanner.PrintError(stdio.Stderr, errs.Err())
			if firstErr == nil {
				firstErr = errs.Err()
			}
		}
	}
	return firstErr
}

func posString(p token.Pos) string {
	l, c := p.LineCol()
	return fmt.Sprintf("%d:%d", l, c)
}

func literalOf(lex scanner.Lexeme) string {
	switch lex.Token {
	case token.IDENT, token.STRING:
		return lex.Lit
	case token.INT:
		return fmt.Sprintf("%d", lex.Int)
	case token.FLOAT:
		return fmt.Sprintf("%g", lex.Float)
	default:
		return ""
	}
}
