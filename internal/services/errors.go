package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service wraps exactly one of these,
// so the HTTP layer can map a failure with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not permitted")
	ErrConflict     = errors.New("conflict")
	ErrDependency   = errors.New("dependency unavailable")
)

// validationError builds a validation failure carrying a field-specific message.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// dependencyError wraps a storage failure.
func dependencyError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDependency, op, err)
}
