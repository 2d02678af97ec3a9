package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/nenuphar/lang/asm"
	"github.com/mna/nenuphar/lang/compiler"
	"github.com/mna/nenuphar/lang/parser"
)

func (c *Cmd) Dump(ctx context.Context, stdio mainer.Stdio, args []string) error {
	format, err := asm.ParseFormat(c.Format)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	return DumpFiles(stdio, format, args...)
}

// DumpFiles parses and compiles each named file and prints the resulting
// Chunk's pseudo-assembly listing in the given format. A parse or compile
// error for a file is printed to stderr and skips that file, the same
// "keep going" behavior as TokenizeFiles/ParseFiles.
func DumpFiles(stdio mainer.Stdio, format asm.Format, files ...string) error {
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
		if perr != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", perr)
			if firstErr == nil {
				firstErr = perr
			}
			continue
		}

		compiled, cerr := compiler.CompileChunk(name, chunk.Block)
		if cerr != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", cerr)
			if firstErr == nil {
				firstErr = cerr
			}
			continue
		}

		out, rerr := asm.Render(compiled, format)
		if rerr != nil {
			fmt.Fprintln(stdio.Stderr, rerr)
			if firstErr == nil {
				firstErr = rerr
			}
			continue
		}
		fmt.Fprintln(stdio.Stdout, out)
	}
	return firstErr
}
