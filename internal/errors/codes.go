package errors

import "net/http"

// ErrorCode is the machine-readable code clients switch on
type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrForbidden      ErrorCode = "FORBIDDEN"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrValidation     ErrorCode = "VALIDATION_ERROR"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidTarget  ErrorCode = "INVALID_TARGET"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
	ErrServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

type codeInfo struct {
	status    int
	retryable bool
}

// A retryable code means the same request may succeed unchanged later:
// a lost toggle race, a full rate limit bucket or a dependency outage.
var codes = map[ErrorCode]codeInfo{
	ErrNotFound:       {http.StatusNotFound, false},
	ErrUnauthorized:   {http.StatusUnauthorized, false},
	ErrForbidden:      {http.StatusForbidden, false},
	ErrConflict:       {http.StatusConflict, true},
	ErrValidation:     {http.StatusUnprocessableEntity, false},
	ErrBadRequest:     {http.StatusBadRequest, false},
	ErrInvalidTarget:  {http.StatusBadRequest, false},
	ErrInternalError:  {http.StatusInternalServerError, false},
	ErrRateLimited:    {http.StatusTooManyRequests, true},
	ErrServiceUnavail: {http.StatusServiceUnavailable, true},
}

// StatusCode returns the HTTP status for the code. Unknown codes are 500s.
func (e ErrorCode) StatusCode() int {
	if info, ok := codes[e]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Retryable reports whether a client may resend the request as is
func (e ErrorCode) Retryable() bool {
	return codes[e].retryable
}
