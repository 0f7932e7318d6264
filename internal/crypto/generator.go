package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

const (
	// TokenBytes is the entropy of a magic-link token (256 bits).
	TokenBytes = 32
	// MinTokenBytes is the lower bound accepted by RandomHex (128 bits).
	MinTokenBytes = 16
)

var ErrTokenTooShort = errors.New("token must carry at least 128 bits of entropy")

// RandomHex returns n cryptographically random bytes, hex encoded.
func RandomHex(n int) (string, error) {
	if n < MinTokenBytes {
		return "", ErrTokenTooShort
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewMagicToken generates a single-use magic-link token.
func NewMagicToken() (string, error) {
	return RandomHex(TokenBytes)
}
