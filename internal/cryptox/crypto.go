// Package cryptox wraps the one-way digest used for account passwords.
// Digests are bcrypt hashes, which embed their own per-record salt and cost.
package cryptox

import (
	"errors"
	"fmt"

	"github.com/campusfeed/campusfeed/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for new digests.
const DefaultCost = 10

// ErrMismatch is returned by VerifySecret when the plain secret does not match.
var ErrMismatch = errors.New("secret does not match digest")

// HashSecret returns a salted bcrypt digest of plain.
func HashSecret(plain string) (string, error) {
	return HashSecretWithCost(plain, DefaultCost)
}

// HashSecretWithCost is HashSecret with an explicit work factor; tests use
// bcrypt.MinCost to stay fast.
func HashSecretWithCost(plain string, cost int) (string, error) {
	pw := []byte(plain)
	defer common.WipeByteArray(pw)

	h, err := bcrypt.GenerateFromPassword(pw, cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}

// VerifySecret compares plain against a digest produced by HashSecret.
// It returns ErrMismatch for a wrong secret and a wrapped error for a
// malformed digest.
func VerifySecret(plain, digest string) error {
	pw := []byte(plain)
	defer common.WipeByteArray(pw)

	err := bcrypt.CompareHashAndPassword([]byte(digest), pw)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return fmt.Errorf("verify secret: %w", err)
	}
}
