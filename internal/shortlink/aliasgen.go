package shortlink

import (
	"crypto/rand"
	"errors"
)

const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// AliasGenerator generates random aliases.
// Implementations should be safe for concurrent use.
type AliasGenerator interface {
	Generate(length int) (string, error)
}

// base62Generator implements AliasGenerator using base62 encoding.
type base62Generator struct{}

// NewBase62Generator returns a new base62 alias generator.
func NewBase62Generator() AliasGenerator {
	return &base62Generator{}
}

// Generate generates a random base62 string of the specified length.
func (g *base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	for i := range b {
		b[i] = base62Chars[int(b[i])%len(base62Chars)]
	}

	return string(b), nil
}
