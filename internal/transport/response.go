// Package transport contains the HTTP router, middleware chain, and all
// request handlers for the BFF API.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// LoginPath is where the client is sent after the backend rejects a token.
const LoginPath = "/login"

// statusForCode maps ErrorEnvelope codes to HTTP status codes.
var statusForCode = map[string]int{
	model.ErrBadRequest:         http.StatusBadRequest,
	model.ErrUnauthorized:       http.StatusUnauthorized,
	model.ErrForbidden:          http.StatusForbidden,
	model.ErrNotFound:           http.StatusNotFound,
	model.ErrConflict:           http.StatusConflict,
	model.ErrValidationError:    http.StatusUnprocessableEntity,
	model.ErrRateLimited:        http.StatusTooManyRequests,
	model.ErrInternalError:      http.StatusInternalServerError,
	model.ErrBackendUnavailable: http.StatusBadGateway,
	model.ErrBackendTimeout:     http.StatusGatewayTimeout,
	model.ErrBackendError:       http.StatusBadGateway,
	model.ErrActionInFlight:     http.StatusConflict,
}

type errorResponse struct {
	Error    *model.ErrorEnvelope `json:"error"`
	Redirect string               `json:"redirect,omitempty"`
}

// actionResponse is the body of every mutating endpoint. On failure it carries
// the error next to the outcome so the client keeps the dialog open and shows
// the message.
type actionResponse struct {
	model.ActionOutcome
	Error *model.ErrorEnvelope `json:"error,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// envelopeFor converts err into an ErrorEnvelope and the HTTP status to send
// it with. Errors that are not envelopes become a generic 500.
func envelopeFor(err error) (*model.ErrorEnvelope, int) {
	var ee *model.ErrorEnvelope
	if !errors.As(err, &ee) {
		return model.NewInternalError(), http.StatusInternalServerError
	}
	if ee.Code == model.ErrBackendError && ee.Status >= 400 && ee.Status <= 599 {
		return ee, ee.Status
	}
	status := statusForCode[ee.Code]
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return ee, status
}

// WriteError writes an ErrorEnvelope as a JSON response with the correct
// HTTP status code. An UNAUTHORIZED error also tells the client to log in
// again.
func WriteError(w http.ResponseWriter, err error) {
	ee, status := envelopeFor(err)
	resp := errorResponse{Error: ee}
	if ee.Code == model.ErrUnauthorized {
		resp.Redirect = LoginPath
	}
	WriteJSON(w, status, resp)
}

// writeRequestError is WriteError with the trace ID of the request filled in.
func writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	ee, _ := envelopeFor(err)
	if ee.TraceID == "" {
		cp := *ee
		cp.TraceID = observability.TraceIDFromContext(r.Context())
		err = &cp
	}
	WriteError(w, err)
}

// WriteOutcome writes the result of an action dispatch. A nil err means the
// dialog closed and the outcome carries the refreshed page.
func WriteOutcome(w http.ResponseWriter, outcome model.ActionOutcome, err error) {
	if err == nil {
		WriteJSON(w, http.StatusOK, actionResponse{ActionOutcome: outcome})
		return
	}
	ee, status := envelopeFor(err)
	if ee.Code == model.ErrUnauthorized {
		WriteError(w, ee)
		return
	}
	outcome.DialogOpen = true
	if outcome.Message == "" {
		outcome.Message = model.UserMessage(err)
	}
	WriteJSON(w, status, actionResponse{ActionOutcome: outcome, Error: ee})
}

// WriteNotFound writes a 404 error response.
func WriteNotFound(w http.ResponseWriter, msg string) {
	WriteError(w, model.NewNotFoundError(msg))
}

// WriteBadRequest writes a 400 error response.
func WriteBadRequest(w http.ResponseWriter, msg string) {
	WriteError(w, model.NewBadRequestError(msg))
}
