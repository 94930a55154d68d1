// Package apperrors defines the error taxonomy shared by repositories,
// services and HTTP handlers.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrSlotConflict      = errors.New("this time slot is already booked")
	ErrNotFound          = errors.New("not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrInvalidStatus     = errors.New("invalid appointment status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrAlreadyCompleted  = errors.New("cannot cancel completed appointment")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyExists     = errors.New("already exists")
)

// NotFound wraps ErrNotFound with the name of the missing resource.
func NotFound(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// Invalid wraps ErrInvalidInput with a human readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsClientError reports whether err belongs to the taxonomy and can be shown to the caller as is.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrSlotConflict, ErrNotFound, ErrAccessDenied, ErrInvalidStatus,
		ErrInvalidTransition, ErrAlreadyCompleted, ErrUnauthenticated,
		ErrInvalidInput, ErrAlreadyExists,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
