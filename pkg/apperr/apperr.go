// Package apperr defines the single structured error type used across the
// application. Services raise these; only the HTTP boundary renders them.
package apperr

import (
	"errors"
	"net/http"
)

// Error carries a status code, a user-facing message, and optional field
// details. The message for 4xx errors must stay generic enough to be useless
// for credential guessing.
type Error struct {
	StatusCode int
	Message    string
	Errors     []string
	cause      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Cause returns the wrapped internal error, if any. It is only ever exposed
// in development mode.
func (e *Error) Cause() error {
	return e.cause
}

// WithCause attaches an internal error for logging/debugging.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func New(status int, message string, details ...string) *Error {
	return &Error{StatusCode: status, Message: message, Errors: details}
}

// InvalidInput marks missing or malformed request fields.
func InvalidInput(message string, details ...string) *Error {
	return New(http.StatusBadRequest, message, details...)
}

// Conflict marks a duplicate-resource failure such as an already-registered
// email.
func Conflict(message string) *Error {
	return New(http.StatusConflict, message)
}

// InvalidCredentials is returned on any login failure without revealing
// whether the identifier or the password was wrong.
func InvalidCredentials() *Error {
	return New(http.StatusUnauthorized, "invalid credentials")
}

// Unauthorized marks a missing, invalid, expired, or mismatched token.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, message)
}

// Forbidden marks an authenticated caller lacking the required role.
func Forbidden() *Error {
	return New(http.StatusForbidden, "insufficient permissions")
}

// NotFound marks a missing resource.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

// UploadFailed marks a fatal failure of the storage collaborator.
func UploadFailed(err error) *Error {
	return New(http.StatusInternalServerError, "upload failed").WithCause(err)
}

// StoreUnavailable covers unreachable persistence and other internal-only
// failures (hashing errors, signing-key misconfiguration).
func StoreUnavailable(err error) *Error {
	return New(http.StatusInternalServerError, "internal server error").WithCause(err)
}

// ValidationError surfaces a schema-level constraint violation from the store.
func ValidationError(details ...string) *Error {
	return New(http.StatusBadRequest, "validation error", details...)
}

// DuplicateKey surfaces a unique-index violation from the store.
func DuplicateKey(field string) *Error {
	return New(http.StatusConflict, "duplicate field: "+field)
}

// From coerces any error into an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return StoreUnavailable(err)
}
