package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorEnvelope_Error(t *testing.T) {
	e := &ErrorEnvelope{Code: ErrNotFound, Message: "Arrival not found"}
	want := "NOT_FOUND: Arrival not found"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorEnvelope_ErrorWithDetail(t *testing.T) {
	e := NewBackendError(409, "arrival already received")
	want := "BACKEND_ERROR: The backend service rejected the request (HTTP 409) (arrival already received)"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if e.Status != 409 {
		t.Errorf("Status = %d, want 409", e.Status)
	}
}

func TestErrorEnvelope_implements_error(t *testing.T) {
	var _ error = (*ErrorEnvelope)(nil)
}

func TestNewNotFoundError(t *testing.T) {
	e := NewNotFoundError("resource missing")
	if e.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", e.Code, ErrNotFound)
	}
	if e.Message != "resource missing" {
		t.Errorf("Message = %q, want %q", e.Message, "resource missing")
	}
}

func TestNewValidationError(t *testing.T) {
	details := []FieldError{
		{Field: "shortage_qty", Code: "LTEFIELD", Message: "must not exceed required_qty"},
	}
	e := NewValidationError(details)
	if e.Code != ErrValidationError {
		t.Errorf("Code = %q, want %q", e.Code, ErrValidationError)
	}
	if len(e.Details) != 1 || e.Details[0].Field != "shortage_qty" {
		t.Errorf("Details = %+v", e.Details)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"backend detail wins", NewBackendError(400, "库存不足"), "库存不足"},
		{"wrapped backend detail", fmt.Errorf("receive: %w", NewBackendError(400, "bad qty")), "bad qty"},
		{"envelope without detail", NewBackendTimeoutError(), "The backend service did not respond in time"},
		{"plain error falls back to message", errors.New("connection reset"), "connection reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewUnauthorizedError("token expired"))
	if !IsCode(err, ErrUnauthorized) {
		t.Error("IsCode(UNAUTHORIZED) = false")
	}
	if IsCode(err, ErrNotFound) {
		t.Error("IsCode(NOT_FOUND) = true")
	}
	if IsCode(errors.New("x"), ErrUnauthorized) {
		t.Error("IsCode on plain error = true")
	}
}
