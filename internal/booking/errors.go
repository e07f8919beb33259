package booking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid flow transition")
	ErrSessionConfirmed  = errors.New("booking already confirmed; reset to start a new one")
)

// ValidationError is a user-correctable input problem. It is never sent
// to an external collaborator.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a *ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
