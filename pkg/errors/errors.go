// Package errors provides the domain error types shared by breeze packages.
//
// Sentinel errors describe conditions like "not found" or "invalid state" and
// are wrapped with context by callers. Check them with errors.Is or with the
// IsX helpers below.
//
// Usage:
//
//	import brerrors "github.com/otherjamesbrown/breeze-cli/pkg/errors"
//
//	return meeting.StoredMeeting{}, fmt.Errorf("meeting %s: %w", id, brerrors.ErrNotFound)
//
//	if brerrors.IsNotFound(err) {
//	    // render the not-found state
//	}
package errors

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrNotFound indicates the requested meeting does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid or missing input.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState indicates the operation is not valid for the current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrStorageParse indicates the persisted collection could not be decoded.
	ErrStorageParse = errors.New("storage parse error")
)

// ValidationError carries a user-facing message for a failed presence check.
// It unwraps to ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidation returns a ValidationError for field with the given message.
func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Validationf is NewValidation with a formatted message.
func Validationf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsStorageParse reports whether any error in err's chain is ErrStorageParse.
func IsStorageParse(err error) bool {
	return errors.Is(err, ErrStorageParse)
}
