package vm

import (
	"testing"

	"github.com/mna/nenuphar/lang/value"
	"github.com/stretchr/testify/require"
)

func TestScopeSet_DepthMatchesReferencedLength(t *testing.T) {
	globals := value.NewScope(1)
	s := newScopeSet([]*value.Scope{globals}, 2, 0, nil)
	require.Equal(t, 1, s.depth())

	s2 := newScopeSet([]*value.Scope{globals, s.local}, 3, 0, nil)
	require.Equal(t, 2, s2.depth())
}

func TestScopeSet_CapturedAppendsOwnLocal(t *testing.T) {
	globals := value.NewScope(1)
	s := newScopeSet([]*value.Scope{globals}, 2, 0, nil)
	captured := s.captured()
	require.Len(t, captured, 2)
	require.Same(t, globals, captured[0])
	require.Same(t, s.local, captured[1])
}

func TestScopeSet_VarargIndexedNotStreamed(t *testing.T) {
	s := newScopeSet(nil, 0, 0, []value.Value{value.Integer(1), value.Integer(2), value.Integer(3)})
	require.Equal(t, value.Integer(1), s.vararg(0))
	require.Equal(t, value.Integer(1), s.vararg(0)) // re-reading index 0 yields the same value, not the next one
	require.Equal(t, value.Integer(3), s.vararg(2))
	require.Equal(t, value.NilValue, s.vararg(3))
	require.Equal(t, value.NilValue, s.vararg(-1))
}

func TestScopeSet_VarargsFrom(t *testing.T) {
	s := newScopeSet(nil, 0, 0, []value.Value{value.Integer(1), value.Integer(2), value.Integer(3)})
	require.Equal(t, []value.Value{value.Integer(1), value.Integer(2), value.Integer(3)}, s.varargsFrom(0))
	require.Equal(t, []value.Value{value.Integer(3)}, s.varargsFrom(2))
	require.Nil(t, s.varargsFrom(3))
}
