// Package errors provides coded application errors for the offline sync client.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a class of failure. Codes are stable and safe to show
// in status output and logs.
type ErrorCode string

const (
	// General errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrInvalid  ErrorCode = "INVALID_INPUT"
	ErrConfig   ErrorCode = "CONFIG_INVALID"

	// Store errors
	ErrStoreRead  ErrorCode = "STORE_READ_FAILED"
	ErrStoreWrite ErrorCode = "STORE_WRITE_FAILED"

	// Submission errors
	ErrNetwork         ErrorCode = "NETWORK_UNREACHABLE"
	ErrRejected        ErrorCode = "SUBMIT_REJECTED"
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrUnknownEndpoint ErrorCode = "UNKNOWN_ENDPOINT"

	// Drain errors
	ErrDrainInProgress ErrorCode = "DRAIN_IN_PROGRESS"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error

	// StatusCode is the HTTP status returned by the server, when there was one.
	StatusCode int
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Rejected builds a SUBMIT_REJECTED error carrying the server status.
func Rejected(statusCode int, message string) *AppError {
	return &AppError{
		Code:       ErrRejected,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Is reports whether any error in err's chain is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrInternal when err carries no code. A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsRetryable reports whether a submission failure is worth retrying later
// unchanged. Network failures are; server rejections are not.
func IsRetryable(err error) bool {
	return Is(err, ErrNetwork)
}

// IsRejection reports whether the server refused the request.
func IsRejection(err error) bool {
	return Is(err, ErrRejected) || Is(err, ErrUnauthorized)
}

// As is errors.As from the standard library.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
