package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrTokenInvalid = errors.New("invalid token")

// ParseAndValidate checks an HS256 JWT signature and time claims and returns
// the decoded claims. Structural and signature problems map to
// ErrTokenInvalid; stale or premature tokens get their own errors.
func ParseAndValidate(token string, secret []byte) (*AccessClaims, error) {
	headerB64, payloadB64, sigB64, ok := splitToken(token)
	if !ok {
		return nil, ErrTokenInvalid
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	want := signHS256(secret, headerB64+"."+payloadB64)
	if !hmac.Equal(sig, want) {
		return nil, ErrTokenInvalid
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	var claims AccessClaims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	now := time.Now().Unix()
	if claims.Iat > now {
		return nil, errors.New("token used before issued")
	}
	if claims.Exp < now {
		return nil, errors.New("token expired")
	}
	return &claims, nil
}

// SignedString serializes the claims as a compact HS256 JWT.
func (c AccessClaims) SignedString(secret []byte) (string, error) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	payloadJSON, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadJSON)

	input := header + "." + payload
	sig := signHS256(secret, input)
	return input + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

func splitToken(token string) (header, payload, sig string, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func signHS256(secret []byte, message string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	return mac.Sum(nil)
}
