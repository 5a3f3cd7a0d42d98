package transport

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	SubjectID string    `json:"subject_id"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Demo      bool      `json:"demo"`
	CreatedAt time.Time `json:"created_at"`
}

// startSession resumes the session named by X-Session-Id or starts one.
// Demo mode is fixed at this point for the life of the session.
func (h *handlers) startSession(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	if rctx == nil {
		WriteError(w, model.NewUnauthorizedError("missing request context"))
		return
	}
	s, err := h.sessions.Attach(r.Context(), rctx, r.Header.Get(HeaderSessionID))
	if err != nil {
		h.reqLogger(r).Error("session start failed", zap.Error(err))
		WriteError(w, model.NewInternalError())
		return
	}
	w.Header().Set(HeaderSessionID, s.ID)
	WriteJSON(w, http.StatusOK, sessionResponse{
		SessionID: s.ID,
		SubjectID: s.SubjectID,
		TenantID:  s.TenantID,
		Demo:      s.Demo,
		CreatedAt: s.CreatedAt,
	})
}

// endSession logs out: the session and every loader it kept are dropped.
func (h *handlers) endSession(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(HeaderSessionID)
	if err := h.sessions.End(r.Context(), id); err != nil {
		h.reqLogger(r).Error("session end failed", zap.Error(err))
		WriteError(w, model.NewInternalError())
		return
	}
	h.pages.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}
