// Package errors defines the error shape every API failure is reported in.
// Services return their own sentinel errors; the handler layer maps those
// onto an APIError just before responding.
package errors

import (
	"fmt"
)

// APIError is a failure ready to be sent to a client
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`

	cause error
}

func (e *APIError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Field != "" {
		msg += " (field: " + e.Field + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap exposes the service error this APIError was built from
func (e *APIError) Unwrap() error {
	return e.cause
}

// Is matches another APIError by code, so errors.Is(err, NotFound(""))
// holds for any not-found error regardless of message.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// Retryable reports whether the request may succeed if sent again unchanged
func (e *APIError) Retryable() bool {
	return e.Code.Retryable()
}

func newAPIError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

func NotFound(resource string) *APIError {
	return newAPIError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

func Unauthorized(message string) *APIError {
	return newAPIError(ErrUnauthorized, message)
}

func Forbidden(message string) *APIError {
	return newAPIError(ErrForbidden, message)
}

// Conflict reports a toggle that lost a race after its retries ran out
func Conflict(message string) *APIError {
	return newAPIError(ErrConflict, message)
}

// ValidationError points at the request field that failed validation.
// Field may be empty when the failure is not tied to one field.
func ValidationError(field, message string) *APIError {
	e := newAPIError(ErrValidation, message)
	e.Field = field
	return e
}

func BadRequest(message string) *APIError {
	return newAPIError(ErrBadRequest, message)
}

// InvalidTarget rejects a relationship that can never exist, such as a
// user following themselves.
func InvalidTarget(message string) *APIError {
	return newAPIError(ErrInvalidTarget, message)
}

func InternalError(message string) *APIError {
	return newAPIError(ErrInternalError, message)
}

func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newAPIError(ErrRateLimited, message)
}

func ServiceUnavailable(service string) *APIError {
	return newAPIError(ErrServiceUnavail, fmt.Sprintf("%s is temporarily unavailable", service))
}

// WithDetails attaches a human-readable explanation
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

// WithCause records the underlying error for logs. It is never serialized.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}
