package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewToken_LengthAndAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		tok, err := newToken()
		require.NoError(t, err)
		require.Len(t, tok, TokenLength)
		for _, c := range tok {
			require.True(t, strings.ContainsRune(tokenAlphabet, c),
				"character %q outside alphabet in %q", c, tok)
		}
	}
}

func TestNewToken_NoAmbiguousCharacters(t *testing.T) {
	for _, c := range "0O1lI" {
		require.False(t, strings.ContainsRune(tokenAlphabet, c),
			"ambiguous character %q must not be in the alphabet", c)
	}
}

func TestNewToken_Unique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		tok, err := newToken()
		require.NoError(t, err)
		require.False(t, seen[tok], "token collision: %s", tok)
		seen[tok] = true
	}
}
