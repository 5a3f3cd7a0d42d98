package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/listview"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/page"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/session"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// handlers serves the page and action endpoints.
type handlers struct {
	pages    *page.Service
	sessions *session.Manager
	status   *statusreg.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// fail writes err. An UNAUTHORIZED error also drops the loaders of the
// session; the session itself was already evicted by the invoker.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if model.IsCode(err, model.ErrUnauthorized) {
		if rctx := model.RequestContextFrom(r.Context()); rctx != nil {
			h.pages.Forget(rctx.SessionID)
		}
	}
	writeRequestError(w, r, err)
}

// render writes a page view model or the error that aborted it.
func render[V any](h *handlers, w http.ResponseWriter, r *http.Request, view V, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (h *handlers) reqLogger(r *http.Request) *zap.Logger {
	return observability.RequestLogger(r.Context(), h.logger)
}

// listQuery reads the keyword, status, range, sort and paging parameters.
func listQuery(r *http.Request) listview.Query {
	return listview.ParseQuery(r.URL.Query())
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// withID wraps a handler that needs the {id} path parameter.
func withID(fn func(w http.ResponseWriter, r *http.Request, id int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			WriteBadRequest(w, "invalid id")
			return
		}
		fn(w, r, id)
	}
}

func (h *handlers) costDashboard(w http.ResponseWriter, r *http.Request, id int64) {
	v, err := h.pages.CostDashboard(r.Context(), id, listQuery(r))
	render(h, w, r, v, err)
}

func (h *handlers) customer360(w http.ResponseWriter, r *http.Request, id int64) {
	v, err := h.pages.Customer360(r.Context(), id)
	render(h, w, r, v, err)
}

func (h *handlers) workload(w http.ResponseWriter, r *http.Request) {
	v, err := h.pages.WorkloadBoard(r.Context(), listQuery(r))
	render(h, w, r, v, err)
}

func (h *handlers) projectStages(w http.ResponseWriter, r *http.Request, id int64) {
	v, err := h.pages.ProjectStages(r.Context(), id)
	render(h, w, r, v, err)
}

func (h *handlers) pipeline(w http.ResponseWriter, r *http.Request) {
	v, err := h.pages.Pipeline(r.Context(), listQuery(r))
	render(h, w, r, v, err)
}

func (h *handlers) templates(w http.ResponseWriter, r *http.Request) {
	v, err := h.pages.Templates(r.Context(), listQuery(r))
	render(h, w, r, v, err)
}

func (h *handlers) schedulerDashboard(w http.ResponseWriter, r *http.Request) {
	v, err := h.pages.SchedulerDashboard(r.Context())
	render(h, w, r, v, err)
}

type statusIndex struct {
	Domains  []string `json:"domains"`
	Checksum string   `json:"checksum"`
}

func (h *handlers) statusDomains(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, statusIndex{Domains: h.status.Domains(), Checksum: h.status.Checksum()})
}

func (h *handlers) statusDomain(w http.ResponseWriter, r *http.Request) {
	def, ok := h.status.Domain(chi.URLParam(r, "domain"))
	if !ok {
		WriteNotFound(w, "unknown status domain")
		return
	}
	WriteJSON(w, http.StatusOK, def)
}
