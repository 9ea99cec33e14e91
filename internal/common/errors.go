// Package common defines shared constants and sentinel errors used across
// the server layers of inkwell. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrAlreadyExists reports a uniqueness violation on username or provider id.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDependency reports that the backing store or identity provider failed.
	ErrDependency = errors.New("dependency failure")

	// ErrIntegrity reports that a compensating cleanup failed and left
	// an orphaned record behind. It is logged, never shown to users.
	ErrIntegrity = errors.New("data integrity violation")

	// Auth errors (missing, malformed, forged or expired token, bad credentials).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is the sentinel wrapped by every *ValidationError.
	ErrValidation = errors.New("validation error")
)

// ValidationError describes caller-correctable input problems.
// Message is safe to show to end users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
