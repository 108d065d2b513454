package errors

import (
	"fmt"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newAPIError(code ErrorCode, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Status:  code.StatusCode(),
	}
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return newAPIError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// Unauthorized creates an UNAUTHORIZED error
func Unauthorized(message string) *APIError {
	return newAPIError(ErrUnauthorized, message)
}

// Forbidden creates a FORBIDDEN error
func Forbidden(message string) *APIError {
	return newAPIError(ErrForbidden, message)
}

// Conflict creates a CONFLICT error
func Conflict(resource string) *APIError {
	return newAPIError(ErrConflict, fmt.Sprintf("%s already exists or is in an invalid state", resource))
}

// ValidationError creates a VALIDATION_ERROR. Content policy rejections and
// malformed fields both land here and map to 400.
func ValidationError(field, message string) *APIError {
	e := newAPIError(ErrValidation, message)
	e.Field = field
	return e
}

// BadRequest creates a BAD_REQUEST error
func BadRequest(message string) *APIError {
	return newAPIError(ErrBadRequest, message)
}

// InternalError creates an INTERNAL_ERROR. The message is returned to clients
// as-is, so callers pass a generic message and log the raw cause themselves.
func InternalError(message string) *APIError {
	return newAPIError(ErrInternalError, message)
}

// ThreadIDExhausted is returned when no free reply thread id could be found.
// Clients may retry the whole request.
func ThreadIDExhausted() *APIError {
	return newAPIError(ErrThreadIDExhausted, "could not allocate a thread id for this reply, please retry")
}

// RateLimited creates a RATE_LIMITED error
func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newAPIError(ErrRateLimited, message)
}

// ServiceUnavailable creates a SERVICE_UNAVAILABLE error
func ServiceUnavailable(service string) *APIError {
	return newAPIError(ErrServiceUnavail, fmt.Sprintf("%s is temporarily unavailable", service))
}

// Timeout creates a TIMEOUT error
func Timeout(operation string) *APIError {
	return newAPIError(ErrTimeout, fmt.Sprintf("%s timed out", operation))
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}
