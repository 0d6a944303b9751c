// Package errors provides structured error types for trendline.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP server
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - DEGENERATE_*: Numeric conditions the simulation refuses to propagate
//   - NOT_FOUND: Resource not found
//   - CACHE_*, INTERNAL_*: Infrastructure and unexpected errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidParameter, "volatility must be >= 0, got %g", v)
//	if errors.Is(err, errors.ErrCodeInvalidParameter) {
//	    // Fall back to an empty chart
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCacheBackend, origErr, "read %s", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Simulation errors
	ErrCodeInvalidParameter Code = "INVALID_PARAMETER"
	ErrCodeDegenerateDraw   Code = "DEGENERATE_DRAW"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidEasing Code = "INVALID_EASING"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Infrastructure errors
	ErrCodeCacheBackend Code = "CACHE_BACKEND"
	ErrCodeInternal     Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsSimulation reports whether err is one of the recoverable simulation
// conditions (invalid parameters or a degenerate random draw). Presentation
// layers render an empty chart for these instead of failing.
func IsSimulation(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidParameter, ErrCodeDegenerateDraw:
		return true
	}
	return false
}
