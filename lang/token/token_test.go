package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		if tok.String() == "" {
			t.Errorf("missing string representation of token %d", tok)
		}
	}
}

func TestGoString(t *testing.T) {
	require.Equal(t, "'+'", PLUS.GoString())
	require.Equal(t, "end of file", EOF.GoString())
}

func TestKeywords(t *testing.T) {
	for word, tok := range Keywords {
		require.Equal(t, word, tok.String())
	}
}

func TestBinaryPrec(t *testing.T) {
	require.Equal(t, LowestPrec, BinaryPrec(IDENT))
	require.True(t, BinaryPrec(STAR) > BinaryPrec(PLUS))
	require.True(t, BinaryPrec(CARET) > BinaryPrec(STAR))
}

func TestRightAssoc(t *testing.T) {
	require.True(t, RightAssoc(CARET))
	require.True(t, RightAssoc(DOTDOT))
	require.False(t, RightAssoc(PLUS))
}
