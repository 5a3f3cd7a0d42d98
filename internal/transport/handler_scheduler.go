package transport

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/export"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

func (h *handlers) triggerJob(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAction[struct{}](w, r)
	if !ok {
		return
	}
	outcome, err := h.pages.TriggerJob(r.Context(), chi.URLParam(r, "id"), req)
	h.respond(w, r, outcome, err)
}

// schedulerMetricsExport streams the backend's Prometheus text as a
// download.
func (h *handlers) schedulerMetricsExport(w http.ResponseWriter, r *http.Request) {
	raw, err := h.pages.SchedulerMetricsExport(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if raw.Body == nil {
		h.fail(w, r, model.NewBackendUnavailableError())
		return
	}
	defer raw.Body.Close()

	contentType := raw.ContentType
	if contentType == "" {
		contentType = "text/plain; version=0.0.4; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", export.ContentDisposition(export.PrometheusFilename(h.now())))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, raw.Body); err != nil {
		h.reqLogger(r).Warn("metrics export interrupted", zap.Error(err))
	}
}
