package scope

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveUnknownNameAllocatesGlobal(t *testing.T) {
	root := NewRootScope()
	fn := root.MainFunction()
	blk := fn.Start()
	defer blk.End()

	reg, err := blk.Resolve("x")
	require.NoError(t, err)
	require.Equal(t, GlobalScopeID, reg.Scope)
	require.Equal(t, uint16(0), reg.Offset)

	again, err := blk.Resolve("x")
	require.NoError(t, err)
	require.Equal(t, reg, again)

	reg2, err := blk.Resolve("y")
	require.NoError(t, err)
	require.Equal(t, uint16(1), reg2.Offset)

	require.Equal(t, []string{"x", "y"}, root.Globals())
}

func TestNewLocalShadowsGlobal(t *testing.T) {
	root := NewRootScope()
	fn := root.MainFunction()
	blk := fn.Start()
	defer blk.End()

	_, err := blk.Resolve("x") // first reference: global
	require.NoError(t, err)

	local, err := blk.NewLocal("x", false)
	require.NoError(t, err)
	require.False(t, local.IsAnonymous)
	require.NotEqual(t, GlobalScopeID, local.Scope)

	resolved, err := blk.Resolve("x")
	require.NoError(t, err)
	require.Equal(t, local, resolved)
}

func TestBlockEndUnshadowsLocal(t *testing.T) {
	root := NewRootScope()
	fn := root.MainFunction()
	outer := fn.Start()

	_, err := outer.NewLocal("x", false)
	require.NoError(t, err)

	inner := outer.Sub()
	innerLocal, err := inner.NewLocal("x", false)
	require.NoError(t, err)
	resolved, err := inner.Resolve("x")
	require.NoError(t, err)
	require.Equal(t, innerLocal, resolved)
	inner.End()

	resolvedAfter, err := outer.Resolve("x")
	require.NoError(t, err)
	require.NotEqual(t, innerLocal, resolvedAfter)
	outer.End()
}

func TestNewAnonymousIncrementsPerFunction(t *testing.T) {
	root := NewRootScope()
	fn := root.MainFunction()
	blk := fn.Start()
	defer blk.End()

	a := blk.NewAnonymous()
	b := blk.NewAnonymous()
	require.True(t, a.IsAnonymous)
	require.Equal(t, uint16(0), a.Offset)
	require.Equal(t, uint16(1), b.Offset)
	require.Equal(t, 2, fn.AnonRegisterCount())
}

func TestLabelDuplicateInSameBlockErrors(t *testing.T) {
	root := NewRootScope()
	fn := root.MainFunction()
	blk := fn.Start()
	defer blk.End()

	_, err := blk.AddLabel("top", 0)
	require.NoError(t, err)
	_, err = blk.AddLabel("top", 5)
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, DuplicateLabel, cerr.Kind)
}

func TestGotoResolvesForwardLabel(t *testing.T) {
	root := NewRootScope()
	fn := root.MainFunction()
	blk := fn.Start()
	defer blk.End()

	_, ok := blk.ResolveGoto("done")
	require.False(t, ok)
	blk.RecordPendingJump("done", 3)

	pending, err := blk.AddLabel("done", 10)
	require.NoError(t, err)
	require.Equal(t, []int{3}, pending)

	loc, ok := blk.ResolveGoto("done")
	require.True(t, ok)
	require.Equal(t, 10, loc)
}

func TestLoopLabelNesting(t *testing.T) {
	root := NewRootScope()
	fn := root.MainFunction()
	blk := fn.Start()
	defer blk.End()

	_, ok := blk.CurrentLoopLabel()
	require.False(t, ok)

	outer := blk.PushLoopLabel()
	cur, ok := blk.CurrentLoopLabel()
	require.True(t, ok)
	require.Equal(t, outer, cur)

	inner := blk.PushLoopLabel()
	require.NotEqual(t, outer, inner)
	blk.PopLoopLabel()

	cur, ok = blk.CurrentLoopLabel()
	require.True(t, ok)
	require.Equal(t, outer, cur)
	blk.PopLoopLabel()
}
