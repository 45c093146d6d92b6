// Package errors provides structured errors with stable codes plus retry
// helpers with exponential backoff. The codes let callers distinguish
// timeout vs connection vs other failures when deciding on a retry or a
// fallback.
package errors

import "fmt"

// Error is the structured error type for the service.
type Error struct {
	// Code is the stable error code (e.g. ERR_NETWORK_TIMEOUT).
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the failure domain derived from the code.
	Category Category

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is comparisons.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an Error with the given code and message. Category and the
// retryable flag are derived from the code.
func New(code, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error, reusing its message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// TimeoutError creates a network timeout error.
func TimeoutError(message string, cause error) *Error {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ConnectionError creates a connection-failure error.
func ConnectionError(message string, cause error) *Error {
	return New(ErrCodeNetworkRefused, message, cause)
}

// UnavailableError creates a backend-unavailable error.
func UnavailableError(message string, cause error) *Error {
	return New(ErrCodeBackendUnavailable, message, cause)
}

// ValidationError creates an invalid-input error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// IsRetryable reports whether err is a retryable structured error.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetCode extracts the code from a structured error, or "" otherwise.
func GetCode(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
