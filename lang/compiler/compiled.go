package compiler

import (
	"fmt"

	"github.com/mna/nenuphar/lang/value"
)

// FunctionDef is the compiled code of one Lua function: its instruction
// stream, local/anon register counts, and the constants it references by
// index. The top-level chunk body compiles to FunctionDef index 0.
type FunctionDef struct {
	Name string

	Instructions []Instruction

	NamedArgs      int
	IsVararg       bool
	LocalRegisters int
	AnonRegisters  int
}

func (f *FunctionDef) String() string {
	s := fmt.Sprintf("function %s(args=%d, vararg=%v, locals=%d, anon=%d)\n",
		f.Name, f.NamedArgs, f.IsVararg, f.LocalRegisters, f.AnonRegisters)
	for i, instr := range f.Instructions {
		s += fmt.Sprintf("  %4d  %s\n", i, instr)
	}
	return s
}

// Chunk is a fully compiled, directly executable program: its functions
// (index 0 is the top-level body), the constant pool shared across all of
// them, and the names of the globals discovered during compilation, in
// first-reference order (used by the runtime to size and label the global
// register file).
type Chunk struct {
	Name string

	Functions []*FunctionDef
	Constants []Constant
	Pool      *value.Pool

	Globals []string
}

func (c *Chunk) String() string {
	s := fmt.Sprintf("chunk %s\n", c.Name)
	for i, k := range c.Constants {
		s += fmt.Sprintf("const #%d = %s\n", i, k.String())
	}
	for i, g := range c.Globals {
		s += fmt.Sprintf("global #%d = %s\n", i, g)
	}
	for i, fn := range c.Functions {
		s += fmt.Sprintf("--- function #%d ---\n%s", i, fn)
	}
	return s
}
