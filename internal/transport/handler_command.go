package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const maxBodyBytes = 1 << 20

// decodeAction reads an action payload. An empty body decodes to the zero
// payload so actions without a form can be posted bare.
func decodeAction[P any](w http.ResponseWriter, r *http.Request) (resource.Request[P], bool) {
	var req resource.Request[P]
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req.Payload); err != nil && !errors.Is(err, io.EOF) {
		WriteBadRequest(w, "invalid JSON body")
		return req, false
	}
	req.IdempotencyKey = r.Header.Get(HeaderIdempotencyKey)
	return req, true
}

// respond writes an action outcome, dropping the session's loaders when the
// backend rejected the login.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, outcome model.ActionOutcome, err error) {
	if model.IsCode(err, model.ErrUnauthorized) {
		h.fail(w, r, err)
		return
	}
	WriteOutcome(w, outcome, err)
}

// action adapts a page action with an {id} path parameter to a handler.
func action[P any](h *handlers, do func(r *http.Request, id int64, req resource.Request[P]) (model.ActionOutcome, error)) http.HandlerFunc {
	return withID(func(w http.ResponseWriter, r *http.Request, id int64) {
		req, ok := decodeAction[P](w, r)
		if !ok {
			return
		}
		outcome, err := do(r, id, req)
		h.respond(w, r, outcome, err)
	})
}

// unknownAction answers an {action} path segment no page defines.
func unknownAction(w http.ResponseWriter) {
	WriteNotFound(w, "unknown action")
}
