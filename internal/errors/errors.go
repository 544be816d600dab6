// Package errors provides typed errors for the finance session client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes a session operation can report.
var (
	// ErrUnauthorized indicates the session has no credential yet.
	ErrUnauthorized = errors.New("not authenticated")

	// ErrNotFound indicates a portfolio or position is absent from the cache.
	ErrNotFound = errors.New("entity not found")

	// ErrValidation indicates malformed caller input or an unparseable record.
	ErrValidation = errors.New("validation failure")

	// ErrRemoteRejection indicates the service answered with a non-success status.
	ErrRemoteRejection = errors.New("remote rejection")

	// ErrTransport indicates the request never produced a status.
	ErrTransport = errors.New("transport failure")
)

// AppError is a structured application error.
type AppError struct {
	// Type is the error type (sentinel error).
	Type error
	// Message is the user-facing error message.
	Message string
	// Details contains additional error details.
	Details map[string]any
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the error type and, when set, the underlying cause.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Type, e.Cause}
	}
	return []error{e.Type}
}

// Is checks if this error matches the target.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

// Wrap wraps an error with additional context.
func Wrap(errType error, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// NotFoundf creates a not found error with formatting.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Type:    ErrNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unauthorized creates an authentication-required error.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Type:    ErrUnauthorized,
		Message: message,
	}
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
	}
}

// ValidationField creates a validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: fmt.Sprintf("%s: %s", field, message),
		Details: map[string]any{"field": field},
	}
}

// Transport wraps a failure of the underlying HTTP client.
func Transport(op string, cause error) *AppError {
	return &AppError{
		Type:    ErrTransport,
		Message: op,
		Cause:   cause,
	}
}

// RemoteError is returned when the service answers with an unexpected status.
// The raw body is kept so an operator can inspect the remote cause.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       []byte
}

// Remote creates a RemoteError for the given operation and response.
func Remote(op string, statusCode int, body []byte) *RemoteError {
	return &RemoteError{Op: op, StatusCode: statusCode, Body: body}
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: status %d, body: %s", e.Op, e.StatusCode, string(e.Body))
}

// Is reports whether target is ErrRemoteRejection.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteRejection
}

// StatusCode returns the HTTP status carried by a remote rejection anywhere in
// the chain of err.
func StatusCode(err error) (int, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode, true
	}
	return 0, false
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if an error is an authentication-required error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRemoteRejection checks if an error is a remote rejection.
func IsRemoteRejection(err error) bool {
	return errors.Is(err, ErrRemoteRejection)
}

// IsTransport checks if an error is a transport failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// ExitCode maps an error class to a process exit status for command line use.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrValidation):
		return 2
	case errors.Is(err, ErrUnauthorized):
		return 3
	case errors.Is(err, ErrNotFound):
		return 4
	case errors.Is(err, ErrRemoteRejection):
		return 5
	default:
		return 1
	}
}
