// Package auth holds the credential primitives: one-time codes, PIN hashing
// and signed tokens.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"wealthplanner/internal/core"
)

var ErrPINMismatch = errors.New("invalid PIN")

// HashPIN validates the format and returns a bcrypt hash.
func HashPIN(pin string) (string, error) {
	if err := core.ValidatePIN(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// CheckPIN compares pin with the stored hash. An empty hash never matches.
func CheckPIN(hash, pin string) error {
	if hash == "" {
		return ErrPINMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return ErrPINMismatch
	}
	return nil
}

// GenerateCode returns a uniformly random six digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
