package services

import (
	"errors"
	"fmt"

	"wealthplanner/internal/storage"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUserExists         = errors.New("User already exists")
	ErrInvalidCredentials = errors.New("Invalid PIN")
	ErrOTPNotFound        = errors.New("OTP not found. Please request a new one.")
	ErrOTPInvalid         = errors.New("Invalid or expired OTP")
	ErrPINMismatch        = errors.New("PINs do not match")
	ErrNameRequired       = errors.New("Name is required")
	ErrEmptyOrder         = errors.New("order must list at least one transaction")
	ErrInvalidBackup      = errors.New("invalid backup file")
)

// notFound maps the store's not-found to ErrNotFound, keeping other errors wrapped.
func notFound(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
