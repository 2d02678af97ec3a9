package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/parser"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(stdio, args...)
}

// ParseFiles parses each named file and prints its AST, one indented dump
// per chunk. A syntax error for a file is printed to stderr (the chunk is
// still dumped, reflecting the parser's best-effort recovery) and does not
// stop the remaining files from being parsed.
func ParseFiles(stdio mainer.Stdio, files ...string) error {
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

		chunk, perr := parser.ParseChunk(name, src)
		if err := ast.Fprint(stdio.Stdout, chunk); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
		if perr != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", perr)
			if firstErr == nil {
				firstErr = perr
			}
		}
	}
	return firstErr
}
