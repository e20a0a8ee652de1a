package services

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthenticated is returned for a missing, malformed or expired token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials is returned when email and password do not match a user.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden is returned when the caller's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrStorage wraps persistence failures that are not a missing record.
	ErrStorage = errors.New("storage failure")
	// ErrUnavailable is returned when a required capability is not configured.
	ErrUnavailable = errors.New("capability unavailable")
)

// ValidationError reports a rejected request. Fields lists the offending
// fields, in a stable order, when the failure is about missing input.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

func invalid(message string, fields ...string) error {
	return &ValidationError{Message: message, Fields: fields}
}
