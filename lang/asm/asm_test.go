package asm_test

import (
	"testing"

	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/asm"
	"github.com/mna/nenuphar/lang/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(t *testing.T) *compiler.Chunk {
	t.Helper()
	b := &ast.Block{Stmts: []ast.Stmt{
		&ast.LocalStmt{Names: []string{"x"}, Right: []ast.Expr{&ast.IntExpr{Value: 42}}},
	}}
	c, err := compiler.CompileChunk("test-chunk", b)
	require.NoError(t, err)
	return c
}

func TestStringAsm(t *testing.T) {
	c := chunk(t)
	out := asm.StringAsm(c)
	assert.Contains(t, out, "test-chunk")
	assert.Contains(t, out, "function main")
}

func TestParseFormat(t *testing.T) {
	f, err := asm.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, asm.Text, f)

	f, err = asm.ParseFormat("yaml")
	require.NoError(t, err)
	assert.Equal(t, asm.YAMLFormat, f)

	_, err = asm.ParseFormat("bogus")
	assert.Error(t, err)
}

func TestRenderYAML(t *testing.T) {
	c := chunk(t)
	out, err := asm.Render(c, asm.YAMLFormat)
	require.NoError(t, err)
	assert.Contains(t, out, "name: test-chunk")
	assert.Contains(t, out, "functions:")
}
