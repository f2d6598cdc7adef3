package registry

import (
	"crypto/rand"
	"fmt"
)

// tokenAlphabet avoids 0/O, 1/l/I so tokens survive being read aloud or
// retyped from a crontab.
const tokenAlphabet = "23456789abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

const TokenLength = 16

// newToken draws TokenLength characters from the unambiguous alphabet using
// crypto/rand. Rejection sampling keeps the distribution uniform.
func newToken() (string, error) {
	out := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength*2)
	for len(out) < TokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= 256-(256%len(tokenAlphabet)) {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == TokenLength {
				break
			}
		}
	}
	return string(out), nil
}
