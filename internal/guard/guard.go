// Package guard checks the shared password that every mutating operation
// must present.
package guard

import (
	"crypto/subtle"
	"errors"
)

// ErrIncorrectPassword is deliberately generic: it does not say which
// operation was refused or why.
var ErrIncorrectPassword = errors.New("incorrect password")

// ErrEmptySecret is returned by New when no secret is configured.
var ErrEmptySecret = errors.New("guard secret must not be empty")

// Guard holds the shared secret for add, update and delete.
type Guard struct {
	secret []byte
}

// New fixes the secret for the life of the process.
func New(secret string) (*Guard, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Guard{secret: []byte(secret)}, nil
}

// Authorize reports whether submitted equals the secret exactly: case
// matters and nothing is trimmed.
func (g *Guard) Authorize(submitted string) bool {
	if submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), g.secret) == 1
}

// Check returns ErrIncorrectPassword when Authorize fails.
func (g *Guard) Check(submitted string) error {
	if !g.Authorize(submitted) {
		return ErrIncorrectPassword
	}
	return nil
}
