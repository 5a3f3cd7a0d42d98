package page

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/display"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/listview"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const pagePurchaseOrders = "purchase_orders"

// Purchase order actions.
const (
	ActionApprove = "approve"
	ActionSubmit  = "submit"
)

// PurchaseOrderRow is a purchase order decorated for the order table.
type PurchaseOrderRow struct {
	model.PurchaseOrder
	Badge        model.Badge         `json:"badge"`
	Actions      []model.ActionState `json:"actions"`
	AmountText   string              `json:"total_amount_text"`
	OrderText    string              `json:"order_date_text"`
	RequiredText string              `json:"required_date_text,omitempty"`
}

// PurchaseOrdersPage is the purchase order screen.
type PurchaseOrdersPage struct {
	LoadState
	List        listview.Result[PurchaseOrderRow] `json:"list"`
	Summary     map[string]int                    `json:"summary"`
	TotalAmount string                            `json:"total_amount_text"`
}

var purchaseOrderSpec = listview.Spec[PurchaseOrderRow]{
	Keywords: []func(PurchaseOrderRow) string{
		func(r PurchaseOrderRow) string { return r.OrderNo },
		func(r PurchaseOrderRow) string { return r.SupplierName },
		func(r PurchaseOrderRow) string { return r.ProjectName },
	},
	Category: func(r PurchaseOrderRow) string { return r.Status },
	Value:    func(r PurchaseOrderRow) float64 { return r.TotalAmount.InexactFloat64() },
	Sorts: map[string]func(a, b PurchaseOrderRow) bool{
		"order_date":   func(a, b PurchaseOrderRow) bool { return a.OrderDate < b.OrderDate },
		"total_amount": func(a, b PurchaseOrderRow) bool { return a.TotalAmount.LessThan(b.TotalAmount) },
		"order_no":     func(a, b PurchaseOrderRow) bool { return a.OrderNo < b.OrderNo },
	},
}

// PurchaseOrders loads the purchase orders and applies q locally.
// TotalAmount sums the filtered orders, not just the visible page.
func (s *Service) PurchaseOrders(ctx context.Context, q listview.Query) (PurchaseOrdersPage, error) {
	st := load(ctx, s, pagePurchaseOrders, fetchAll(s.c.Purchase.ListOrders))

	rows := make([]PurchaseOrderRow, 0, len(st.Data))
	for _, po := range st.Data {
		rows = append(rows, s.purchaseOrderRow(po))
	}
	summary := countBy(rows, func(r PurchaseOrderRow) string { return r.Status })
	summary["total"] = len(rows)

	selected := listview.Select(rows, q, purchaseOrderSpec)
	total := decimal.Zero
	for _, r := range selected {
		total = total.Add(r.TotalAmount)
	}

	return PurchaseOrdersPage{
		LoadState:   stateOf(st),
		List:        listview.Apply(rows, q, purchaseOrderSpec),
		Summary:     summary,
		TotalAmount: display.FormatCurrency(total),
	}, fatal(st.Err)
}

func (s *Service) purchaseOrderRow(po model.PurchaseOrder) PurchaseOrderRow {
	return PurchaseOrderRow{
		PurchaseOrder: po,
		Badge:         s.status.Badge(statusreg.DomainPurchaseOrder, po.Status),
		Actions:       s.status.Actions(statusreg.DomainPurchaseOrder, po.Status, ActionApprove, ActionSubmit),
		AmountText:    display.FormatCurrency(po.TotalAmount),
		OrderText:     display.Date(po.OrderDate),
		RequiredText:  display.Date(po.RequiredDate),
	}
}

// PurchaseOrder loads one order.
func (s *Service) PurchaseOrder(ctx context.Context, id int64) (PurchaseOrderRow, error) {
	po, err := s.c.Purchase.GetOrder(ctx, id)
	if err != nil {
		return PurchaseOrderRow{}, err
	}
	return s.purchaseOrderRow(po), nil
}

// PurchaseOrderExport returns every order matching q for a spreadsheet
// download.
func (s *Service) PurchaseOrderExport(ctx context.Context, q listview.Query) ([]PurchaseOrderRow, error) {
	items, meta, err := fetchAll(s.c.Purchase.ListOrders)(ctx)
	if err != nil {
		return nil, err
	}
	s.warnTruncated(ctx, pagePurchaseOrders, len(items), meta)
	rows := make([]PurchaseOrderRow, 0, len(items))
	for _, po := range items {
		rows = append(rows, s.purchaseOrderRow(po))
	}
	return listview.Select(rows, q, purchaseOrderSpec), nil
}

func (s *Service) reloadPurchaseOrders(q listview.Query) resource.ReloadFunc {
	return func(ctx context.Context) any {
		p, _ := s.PurchaseOrders(ctx, q)
		return p
	}
}

// ApproveOrder approves a purchase order.
func (s *Service) ApproveOrder(ctx context.Context, id int64, req resource.Request[model.ApprovalForm], q listview.Query) (model.ActionOutcome, error) {
	return run(ctx, s, "purchase_order."+ActionApprove, actionKey("purchase_order", id, ActionApprove), req,
		func(ctx context.Context, form model.ApprovalForm) error {
			return s.c.Purchase.Approve(ctx, id, form)
		},
		s.reloadPurchaseOrders(q))
}

// SubmitOrder submits a draft order for approval.
func (s *Service) SubmitOrder(ctx context.Context, id int64, req resource.Request[struct{}], q listview.Query) (model.ActionOutcome, error) {
	return run(ctx, s, "purchase_order."+ActionSubmit, actionKey("purchase_order", id, ActionSubmit), req,
		func(ctx context.Context, _ struct{}) error {
			return s.c.Purchase.Submit(ctx, id)
		},
		s.reloadPurchaseOrders(q))
}
