// Package errors provides structured error types for textart.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND / FILE_NOT_FOUND: Missing sources
//   - NETWORK_*, TIMEOUT, TOO_LARGE: Fetch failures
//   - IMAGE_FETCH, BAD_IMAGE_SIZE: Conversion failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidSource, "unsupported scheme %q", scheme)
//	if errors.Is(err, errors.ErrCodeInvalidSource) {
//	    // Handle validation error
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
//
// Types outside this package participate by implementing Code() Code; the
// converter's ImageFetchError and BadImageSizeError do.
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidSource  Code = "INVALID_SOURCE"
	ErrCodeInvalidPalette Code = "INVALID_PALETTE"
	ErrCodeInvalidLimits  Code = "INVALID_LIMITS"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Fetch errors
	ErrCodeNetwork   Code = "NETWORK_ERROR"
	ErrCodeTimeout   Code = "TIMEOUT"
	ErrCodeTooLarge  Code = "TOO_LARGE"
	ErrCodeForbidden Code = "FORBIDDEN"

	// Conversion errors
	ErrCodeImageFetch   Code = "IMAGE_FETCH"
	ErrCodeBadImageSize Code = "BAD_IMAGE_SIZE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// coder is implemented by error types defined in other packages that carry
// a code of their own.
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code.
// The outermost coded error in the chain wins.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// It walks the chain and returns the first code found, or "" if none.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case coder:
			return e.Code()
		}
		err = errors.Unwrap(err)
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
