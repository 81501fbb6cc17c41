// Package apperr defines the error sentinels shared across layers.
// Transports map them to status codes with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for records that do not exist or belong to
	// another user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a record is in the wrong state for the
	// operation, such as discarding a published document.
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation wraps input the caller must fix.
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// Invalidf returns a formatted error wrapping ErrValidation.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// Conflictf returns a formatted error wrapping ErrConflict.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}
