package transport

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/export"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/page"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv"
)

func (h *handlers) arrivals(w http.ResponseWriter, r *http.Request) {
	v, err := h.pages.Arrivals(r.Context(), listQuery(r))
	render(h, w, r, v, err)
}

func (h *handlers) receiveArrival() http.HandlerFunc {
	return action(h, func(r *http.Request, id int64, req resource.Request[model.ReceiveArrivalForm]) (model.ActionOutcome, error) {
		return h.pages.ReceiveArrival(r.Context(), id, req, listQuery(r))
	})
}

func (h *handlers) followUpArrival() http.HandlerFunc {
	return action(h, func(r *http.Request, id int64, req resource.Request[model.FollowUpForm]) (model.ActionOutcome, error) {
		return h.pages.FollowUpArrival(r.Context(), id, req, listQuery(r))
	})
}

func (h *handlers) exportArrivalsXLSX(w http.ResponseWriter, r *http.Request) {
	rows, err := h.pages.ArrivalExport(r.Context(), listQuery(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.sendFile(w, r, contentTypeXLSX, export.Filename("arrivals", "xlsx", h.now()), func(out io.Writer) error {
		return export.WriteXLSX(out, "到货跟踪", export.ArrivalColumns(), rows)
	})
}

// exportArrivalsCSV writes UTF-8 by default; encoding=gbk suits spreadsheet
// tools on Chinese-locale desktops.
func (h *handlers) exportArrivalsCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.pages.ArrivalExport(r.Context(), listQuery(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	gbk := r.URL.Query().Get("encoding") == "gbk"
	charset := "utf-8"
	if gbk {
		charset = "gbk"
	}
	h.sendFile(w, r, contentTypeCSV+"; charset="+charset, export.Filename("arrivals", "csv", h.now()), func(out io.Writer) error {
		return export.WriteCSV(out, export.ArrivalColumns(), rows, gbk)
	})
}

// sendFile renders a download into memory first, so a rendering failure is
// answered with an error instead of a truncated attachment.
func (h *handlers) sendFile(w http.ResponseWriter, r *http.Request, contentType, name string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.reqLogger(r).Error("export failed", zap.String("file", name), zap.Error(err))
		h.fail(w, r, model.NewInternalError())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", export.ContentDisposition(name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.reqLogger(r).Warn("export write interrupted", zap.String("file", name), zap.Error(err))
	}
}

func (h *handlers) substitutions(w http.ResponseWriter, r *http.Request) {
	v, err := h.pages.Substitutions(r.Context(), listQuery(r))
	render(h, w, r, v, err)
}

func (h *handlers) createSubstitution(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAction[model.SubstitutionForm](w, r)
	if !ok {
		return
	}
	outcome, err := h.pages.CreateSubstitution(r.Context(), req, listQuery(r))
	h.respond(w, r, outcome, err)
}

func (h *handlers) substitutionAction(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	var next http.HandlerFunc
	switch chi.URLParam(r, "action") {
	case page.ActionTechApprove:
		next = action(h, func(r *http.Request, id int64, req resource.Request[model.ApprovalForm]) (model.ActionOutcome, error) {
			return h.pages.TechApprove(r.Context(), id, req, q)
		})
	case page.ActionProdApprove:
		next = action(h, func(r *http.Request, id int64, req resource.Request[model.ApprovalForm]) (model.ActionOutcome, error) {
			return h.pages.ProdApprove(r.Context(), id, req, q)
		})
	case page.ActionReject:
		next = action(h, func(r *http.Request, id int64, req resource.Request[model.RejectForm]) (model.ActionOutcome, error) {
			return h.pages.RejectSubstitution(r.Context(), id, req, q)
		})
	case page.ActionExecute:
		next = action(h, func(r *http.Request, id int64, req resource.Request[struct{}]) (model.ActionOutcome, error) {
			return h.pages.ExecuteSubstitution(r.Context(), id, req, q)
		})
	default:
		unknownAction(w)
		return
	}
	next(w, r)
}

func (h *handlers) createShortageReport(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAction[model.ShortageReportForm](w, r)
	if !ok {
		return
	}
	outcome, err := h.pages.CreateShortageReport(r.Context(), req)
	h.respond(w, r, outcome, err)
}
