// Package errors provides standardized error definitions for the TuneLease platform.
package errors

import (
	"fmt"
	"net/http"
)

// Error represents a structured application error.
type Error struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	HTTPStatus int         `json:"-"`
	Details    interface{} `json:"details,omitempty"`
	Err        error       `json:"-"` // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error carrying extra details.
func (e *Error) WithDetails(details interface{}) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// WithError returns a copy of the error wrapping another error.
func (e *Error) WithError(err error) *Error {
	clone := *e
	clone.Err = err
	return &clone
}

// New creates a new Error.
func New(code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error with error code and message.
func Wrap(err error, code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes
const (
	// General
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"

	// Access policy
	ErrCodeLoginRequired        = "LOGIN_REQUIRED"
	ErrCodeSubscriptionRequired = "SUBSCRIPTION_REQUIRED"

	// Streaming protocol
	ErrCodeTrackNotFound         = "TRACK_NOT_FOUND"
	ErrCodeRangeNotSatisfiable   = "RANGE_NOT_SATISFIABLE"
	ErrCodeNonSequentialRange    = "NON_SEQUENTIAL_RANGE"
	ErrCodeMalformedRange        = "MALFORMED_RANGE"
	ErrCodePlayTokenMismatch     = "PLAY_TOKEN_MISMATCH"

	// Infrastructure
	ErrCodeDatabaseError = "DATABASE_ERROR"
	ErrCodeCacheError    = "CACHE_ERROR"
)

// Predefined errors
var (
	ErrInternal        = New(ErrCodeInternal, "Internal server error", http.StatusInternalServerError)
	ErrInvalidRequest  = New(ErrCodeInvalidRequest, "Invalid request", http.StatusBadRequest)
	ErrNotFound        = New(ErrCodeNotFound, "Resource not found", http.StatusNotFound)
	ErrUnauthorized    = New(ErrCodeUnauthorized, "Unauthorized", http.StatusUnauthorized)
	ErrForbidden       = New(ErrCodeForbidden, "Access forbidden", http.StatusForbidden)
	ErrTooManyRequests = New(ErrCodeTooManyRequests, "Too many requests", http.StatusTooManyRequests)
)

var (
	ErrLoginRequired        = New(ErrCodeLoginRequired, "Login required to play this track", http.StatusUnauthorized)
	ErrSubscriptionRequired = New(ErrCodeSubscriptionRequired, "An active subscription is required to play this track", http.StatusForbidden)
)

var (
	ErrTrackNotFound       = New(ErrCodeTrackNotFound, "Track not found", http.StatusNotFound)
	ErrRangeNotSatisfiable = New(ErrCodeRangeNotSatisfiable, "Requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
	ErrNonSequentialRange  = New(ErrCodeNonSequentialRange, "Range requests must advance sequentially", http.StatusBadRequest)
	ErrMalformedRange      = New(ErrCodeMalformedRange, "Malformed Range header", http.StatusBadRequest)
	ErrPlayTokenMismatch   = New(ErrCodePlayTokenMismatch, "Play token does not match this track", http.StatusBadRequest)
)

var (
	ErrDatabaseError = New(ErrCodeDatabaseError, "Database error", http.StatusInternalServerError)
	ErrCacheError    = New(ErrCodeCacheError, "Cache error", http.StatusInternalServerError)
)

// IsError checks if an error is a specific application error.
func IsError(err error, target *Error) bool {
	if err == nil {
		return false
	}
	appErr, ok := err.(*Error)
	if !ok {
		return false
	}
	return appErr.Code == target.Code
}

// GetHTTPStatus returns the HTTP status code for an error.
// If the error is not an *Error, returns 500.
func GetHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	appErr, ok := err.(*Error)
	if !ok {
		return http.StatusInternalServerError
	}
	return appErr.HTTPStatus
}

// GetCode returns the error code for an error.
// If the error is not an *Error, returns INTERNAL_ERROR.
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	appErr, ok := err.(*Error)
	if !ok {
		return ErrCodeInternal
	}
	return appErr.Code
}
