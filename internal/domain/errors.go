package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service wraps exactly one of these
// so callers can classify it with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateRequest = errors.New("connection request already exists")
	ErrInvalidTarget    = errors.New("invalid target user")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("not allowed")
	ErrInvalidState     = errors.New("invalid state")
	ErrStoreUnavailable = errors.New("store unavailable")
)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrRequestNotFound    = fmt.Errorf("connection request %w", ErrNotFound)
	ErrUserAlreadyExists  = fmt.Errorf("%w: user with this email already exists", ErrInvalidInput)
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries per-field details for an ErrInvalidInput failure.
type ValidationError struct {
	Fields interface{}
	msg    string
}

// NewValidationError wraps field-level problems as an ErrInvalidInput.
func NewValidationError(msg string, fields interface{}) *ValidationError {
	return &ValidationError{Fields: fields, msg: msg}
}

func (e *ValidationError) Error() string {
	return ErrInvalidInput.Error() + ": " + e.msg
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
