package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/page"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

func (h *handlers) advanceStage() http.HandlerFunc {
	return action(h, func(r *http.Request, id int64, req resource.Request[model.AdvanceStageForm]) (model.ActionOutcome, error) {
		return h.pages.AdvanceStage(r.Context(), id, chi.URLParam(r, "stage"), req)
	})
}

func (h *handlers) createCustomerFollowUp() http.HandlerFunc {
	return action(h, func(r *http.Request, id int64, req resource.Request[model.FollowUpForm]) (model.ActionOutcome, error) {
		return h.pages.CreateCustomerFollowUp(r.Context(), id, req)
	})
}

func (h *handlers) templateAction(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	var next http.HandlerFunc
	switch chi.URLParam(r, "action") {
	case page.ActionApply:
		next = action(h, func(r *http.Request, id int64, req resource.Request[model.ApplyTemplateForm]) (model.ActionOutcome, error) {
			return h.pages.ApplyTemplate(r.Context(), id, req, q)
		})
	case page.ActionRate:
		next = action(h, func(r *http.Request, id int64, req resource.Request[model.RateTemplateForm]) (model.ActionOutcome, error) {
			return h.pages.RateTemplate(r.Context(), id, req, q)
		})
	default:
		unknownAction(w)
		return
	}
	next(w, r)
}
