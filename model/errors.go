package model

import (
	"errors"
	"fmt"
)

// Standard error codes.
const (
	ErrBadRequest         = "BAD_REQUEST"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrForbidden          = "FORBIDDEN"
	ErrNotFound           = "NOT_FOUND"
	ErrConflict           = "CONFLICT"
	ErrValidationError    = "VALIDATION_ERROR"
	ErrRateLimited        = "RATE_LIMITED"
	ErrInternalError      = "INTERNAL_ERROR"
	ErrBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrBackendTimeout     = "BACKEND_TIMEOUT"
	ErrBackendError       = "BACKEND_ERROR"
	ErrActionInFlight     = "ACTION_IN_FLIGHT"
)

// ErrorEnvelope is the standard error response envelope returned by the BFF.
// Detail carries the backend's own `detail` text when the error originated
// from a backend response. It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Detail  string       `json:"detail,omitempty"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id"`

	// Status is the backend HTTP status for BACKEND_ERROR envelopes.
	Status int `json:"-"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UserMessage returns the message shown to the user for err: the backend
// detail when present, otherwise the error's own message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ee *ErrorEnvelope
	if errors.As(err, &ee) {
		if ee.Detail != "" {
			return ee.Detail
		}
		if ee.Message != "" {
			return ee.Message
		}
	}
	return err.Error()
}

// IsCode reports whether err is an ErrorEnvelope with the given code.
func IsCode(err error, code string) bool {
	var ee *ErrorEnvelope
	return errors.As(err, &ee) && ee.Code == code
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewBackendUnavailableError returns a BACKEND_UNAVAILABLE error.
func NewBackendUnavailableError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendUnavailable,
		Message: "The backend service is temporarily unavailable",
	}
}

// NewBackendTimeoutError returns a BACKEND_TIMEOUT error.
func NewBackendTimeoutError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendTimeout,
		Message: "The backend service did not respond in time",
	}
}

// NewBackendError returns a BACKEND_ERROR carrying the backend status and
// its detail text.
func NewBackendError(status int, detail string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendError,
		Message: fmt.Sprintf("The backend service rejected the request (HTTP %d)", status),
		Detail:  detail,
		Status:  status,
	}
}

// NewActionInFlightError returns an ACTION_IN_FLIGHT error for a duplicate
// submission of an action that has not finished yet.
func NewActionInFlightError(key string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrActionInFlight,
		Message: fmt.Sprintf("Action %q is already in progress", key),
	}
}

// NewRateLimitedError returns a RATE_LIMITED error.
func NewRateLimitedError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrRateLimited,
		Message: "Rate limit exceeded. Please try again later.",
	}
}
