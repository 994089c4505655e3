package types

import (
	"errors"
	"fmt"
)

// ValidationError represents an error that occurs during validation.
type ValidationError struct {
	Message string
	Err     error
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError checks if an error is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// WrapValidationError wraps err as the cause of a ValidationError with the given context.
func WrapValidationError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Message: fmt.Sprintf(format, args...), Err: err}
}
