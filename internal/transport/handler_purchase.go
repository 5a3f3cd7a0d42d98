package transport

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/export"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/page"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

func (h *handlers) purchaseOrders(w http.ResponseWriter, r *http.Request) {
	v, err := h.pages.PurchaseOrders(r.Context(), listQuery(r))
	render(h, w, r, v, err)
}

func (h *handlers) purchaseOrder(w http.ResponseWriter, r *http.Request, id int64) {
	v, err := h.pages.PurchaseOrder(r.Context(), id)
	render(h, w, r, v, err)
}

func (h *handlers) purchaseOrderAction(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	var next http.HandlerFunc
	switch chi.URLParam(r, "action") {
	case page.ActionApprove:
		next = action(h, func(r *http.Request, id int64, req resource.Request[model.ApprovalForm]) (model.ActionOutcome, error) {
			return h.pages.ApproveOrder(r.Context(), id, req, q)
		})
	case page.ActionSubmit:
		next = action(h, func(r *http.Request, id int64, req resource.Request[struct{}]) (model.ActionOutcome, error) {
			return h.pages.SubmitOrder(r.Context(), id, req, q)
		})
	default:
		unknownAction(w)
		return
	}
	next(w, r)
}

func (h *handlers) exportPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	rows, err := h.pages.PurchaseOrderExport(r.Context(), listQuery(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.sendFile(w, r, contentTypeXLSX, export.Filename("purchase-orders", "xlsx", h.now()), func(out io.Writer) error {
		return export.WriteXLSX(out, "采购订单", export.PurchaseOrderColumns(), rows)
	})
}
