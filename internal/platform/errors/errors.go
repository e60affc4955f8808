// Package errors provides structured API errors with HTTP status mapping and
// the translation of domain failures into them.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// ErrorType is the category of an error, used for status mapping and metrics.
type ErrorType string

const (
	TypeValidation ErrorType = "validation"
	TypeNotFound   ErrorType = "not_found"
	TypeConflict   ErrorType = "conflict"
	TypeInternal   ErrorType = "internal"
	TypeExternal   ErrorType = "external"
	TypeRateLimit  ErrorType = "rate_limited"
)

var statusByType = map[ErrorType]int{
	TypeValidation: http.StatusBadRequest,
	TypeNotFound:   http.StatusNotFound,
	TypeConflict:   http.StatusConflict,
	TypeInternal:   http.StatusInternalServerError,
	TypeExternal:   http.StatusBadGateway,
	TypeRateLimit:  http.StatusTooManyRequests,
}

// Error is a structured error with type, message and context fields.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause, Context: make(map[string]any)}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code for the error type. Unknown types map to 500.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByType[e.Type]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return newError(TypeValidation, message, nil)
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return newError(TypeNotFound, message, nil)
}

// ConflictError creates a new conflict error (HTTP 409).
func ConflictError(message string) *Error {
	return newError(TypeConflict, message, nil)
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

// ExternalError creates a new external service error (HTTP 502).
func ExternalError(message string, cause error) *Error {
	return newError(TypeExternal, message, cause)
}

// RateLimitedError creates a new rate limit error (HTTP 429).
func RateLimitedError(message string) *Error {
	return newError(TypeRateLimit, message, nil)
}

// WithField adds a context field (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse is the JSON body sent to clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
}

// AsStructuredError converts any error into a structured Error. Structured
// errors anywhere in the chain are returned as is; known domain failures are
// mapped by FromDomain; everything else is internal.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}
	return FromDomain(err)
}

// FromDomain maps domain sentinel errors onto API error types.
func FromDomain(err error) *Error {
	switch {
	case errors.Is(err, domain.ErrSessionNotActive):
		return ConflictError("session is not active")
	case errors.Is(err, domain.ErrNoticeNotFound):
		return NotFoundError("notice not found")
	case errors.Is(err, domain.ErrUnsupportedAction):
		return ValidationError("action not offered by notice")
	case errors.Is(err, domain.ErrRefreshNotFound):
		return NotFoundError("refresh report not found")
	case errors.Is(err, domain.ErrArchiveNotAvailable):
		return NotFoundError("refresh archive not configured")
	case errors.Is(err, domain.ErrSensorCall):
		return ExternalError("sensor call failed", err).WithField("code", string(domain.SenseErrorOf(err)))
	}
	return InternalError("internal server error", err)
}
