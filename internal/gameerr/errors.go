// Package gameerr defines the error taxonomy shared by every player-facing
// engine operation.
package gameerr

import "errors"

// Code is a machine-readable error category.
type Code string

const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeCapacityExceeded Code = "CAPACITY_EXCEEDED"
	CodeOnCooldown       Code = "ON_COOLDOWN"
	CodeAffinityMismatch Code = "AFFINITY_MISMATCH"
	CodeNotActive        Code = "NOT_ACTIVE"
	CodeIncompatibleSave Code = "INCOMPATIBLE_SAVE"
)

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrInvalidInput     = &Error{Code: CodeInvalidInput}
	ErrCapacityExceeded = &Error{Code: CodeCapacityExceeded}
	ErrOnCooldown       = &Error{Code: CodeOnCooldown}
	ErrAffinityMismatch = &Error{Code: CodeAffinityMismatch}
	ErrNotActive        = &Error{Code: CodeNotActive}
	ErrIncompatibleSave = &Error{Code: CodeIncompatibleSave}
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata creates a domain error carrying extra context.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
