// Package asm renders a compiled chunk (lang/compiler.Chunk) into a
// human-readable pseudo-assembly listing, the form the nenuphar-lua dump
// subcommand prints. It is read-only: there is no parser back from text to
// Chunk, unlike the teacher's stack-machine Asm/Dasm pair, since dump only
// ever goes one way.
package asm

import (
	"fmt"
	"strings"

	"github.com/mna/nenuphar/lang/compiler"
	"gopkg.in/yaml.v3"
)

// StringAsm renders c as plain-text pseudo-assembly, reusing the
// Instruction/FunctionDef/Chunk String() forms compiled into the IR itself.
func StringAsm(c *compiler.Chunk) string {
	return c.String()
}

// listing is the structured mirror of a Chunk used for --format=yaml: every
// field is already a display string, since the YAML listing is meant for
// humans and tooling to read, not to reconstruct a Chunk from.
type listing struct {
	Name      string        `yaml:"name"`
	Constants []string      `yaml:"constants,omitempty"`
	Globals   []string      `yaml:"globals,omitempty"`
	Functions []funcListing `yaml:"functions"`
}

type funcListing struct {
	Name           string   `yaml:"name"`
	NamedArgs      int      `yaml:"named_args"`
	IsVararg       bool     `yaml:"is_vararg"`
	LocalRegisters int      `yaml:"local_registers"`
	AnonRegisters  int      `yaml:"anon_registers"`
	Instructions   []string `yaml:"instructions"`
}

// YAML renders c as a structured YAML pseudo-assembly listing, an
// alternate form of the same StringAsm content for tooling that wants to
// parse the dump output instead of scraping text.
func YAML(c *compiler.Chunk) ([]byte, error) {
	l := listing{Name: c.Name, Globals: c.Globals}
	for _, k := range c.Constants {
		l.Constants = append(l.Constants, k.String())
	}
	for _, fn := range c.Functions {
		fl := funcListing{
			Name:           fn.Name,
			NamedArgs:      fn.NamedArgs,
			IsVararg:       fn.IsVararg,
			LocalRegisters: fn.LocalRegisters,
			AnonRegisters:  fn.AnonRegisters,
		}
		for _, instr := range fn.Instructions {
			fl.Instructions = append(fl.Instructions, instr.String())
		}
		l.Functions = append(l.Functions, fl)
	}

	b, err := yaml.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("asm: marshal yaml listing: %w", err)
	}
	return b, nil
}

// Format selects the pseudo-assembly rendering the dump subcommand writes.
type Format int

const (
	Text Format = iota
	YAMLFormat
)

// ParseFormat maps the dump subcommand's --format flag value to a Format,
// defaulting to Text for an empty string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return Text, nil
	case "yaml":
		return YAMLFormat, nil
	default:
		return Text, fmt.Errorf("asm: unknown format %q (want %q or %q)", s, "text", "yaml")
	}
}

// Render renders c in the given format.
func Render(c *compiler.Chunk, f Format) (string, error) {
	switch f {
	case YAMLFormat:
		b, err := YAML(c)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return StringAsm(c), nil
	}
}
