package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func freshClaims() AccessClaims {
	now := time.Now().Unix()
	return AccessClaims{Sub: "42", Iat: now - 10, Exp: now + 3600}
}

func TestSignAndValidate_RoundTrip(t *testing.T) {
	tok, err := freshClaims().SignedString(secret)
	require.NoError(t, err)

	got, err := ParseAndValidate(tok, secret)
	require.NoError(t, err)
	require.Equal(t, "42", got.Sub)
}

func TestValidate_WrongSecret(t *testing.T) {
	tok, err := freshClaims().SignedString(secret)
	require.NoError(t, err)

	_, err = ParseAndValidate(tok, []byte("other-secret"))
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidate_Expired(t *testing.T) {
	now := time.Now().Unix()
	tok, err := AccessClaims{Sub: "42", Iat: now - 7200, Exp: now - 3600}.SignedString(secret)
	require.NoError(t, err)

	_, err = ParseAndValidate(tok, secret)
	require.EqualError(t, err, "token expired")
}

func TestValidate_IssuedInFuture(t *testing.T) {
	now := time.Now().Unix()
	tok, err := AccessClaims{Sub: "42", Iat: now + 600, Exp: now + 3600}.SignedString(secret)
	require.NoError(t, err)

	_, err = ParseAndValidate(tok, secret)
	require.EqualError(t, err, "token used before issued")
}

func TestValidate_Garbage(t *testing.T) {
	for _, tok := range []string{"", "abc", "a.b", "a.b.c.d"} {
		_, err := ParseAndValidate(tok, secret)
		require.Error(t, err, "token %q", tok)
	}
}

func TestValidate_TamperedPayload(t *testing.T) {
	tok, err := freshClaims().SignedString(secret)
	require.NoError(t, err)

	other, err := AccessClaims{Sub: "99", Iat: time.Now().Unix(), Exp: time.Now().Unix() + 3600}.SignedString(secret)
	require.NoError(t, err)

	// Graft the other token's payload onto the first token's signature.
	p1 := strings.Split(tok, ".")
	p2 := strings.Split(other, ".")
	franken := p1[0] + "." + p2[1] + "." + p1[2]
	_, err = ParseAndValidate(franken, secret)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
