package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/nenuphar/lang/compiler"
	"github.com/mna/nenuphar/lang/parser"
	"github.com/mna/nenuphar/lang/stdlib"
	"github.com/mna/nenuphar/lang/value"
	"github.com/mna/nenuphar/lang/vm"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		err := fmt.Errorf("run: at least one file must be provided")
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	return RunFile(ctx, stdio, args[0], args[1:]...)
}

// RunFile parses, compiles and executes name, binding the basic library
// (print, type, pairs, ...) as predeclared globals before running, and
// forwarding extraArgs to the chunk as its "..." varargs the way a Lua
// script's command-line arguments are bound. Results the chunk returns are
// printed one per line using the same display rules as the built-in print.
func RunFile(ctx context.Context, stdio mainer.Stdio, name string, extraArgs ...string) error {
	src, err := os.ReadFile(name)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	chunk, perr := parser.ParseChunk(name, src)
	if perr != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", perr)
		return perr
	}

	compiled, cerr := compiler.CompileChunk(name, chunk.Block)
	if cerr != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", cerr)
		return cerr
	}

	rt := vm.NewRuntime(compiled)
	globals := stdlib.Open(compiled.Pool, &stdlib.Options{Output: stdio.Stdout})
	for name, v := range globals {
		// a global the chunk never referenced is simply not bound; ignore the
		// "not referenced" error RegisterGlobal returns for those.
		_ = rt.RegisterGlobal(name, v)
	}

	args := make([]value.Value, len(extraArgs))
	for i, a := range extraArgs {
		args[i] = value.NewStr(compiled.Pool, a)
	}

	results, rerr := rt.Execute(ctx, args)
	if rerr != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", rerr)
		return rerr
	}
	for _, r := range results {
		fmt.Fprintln(stdio.Stdout, stdlib.DisplayString(r))
	}
	return nil
}
