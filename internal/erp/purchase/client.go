// Package purchase is the API client of the procurement backend.
package purchase

import (
	"context"
	"net/http"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const svc = config.ServicePurchase

var (
	RouteListOrders = erp.Route(svc, "listPurchaseOrders", http.MethodGet, "/api/v1/purchase/orders")
	RouteGetOrder   = erp.Route(svc, "getPurchaseOrder", http.MethodGet, "/api/v1/purchase/orders/{id}")
	RouteApprove    = erp.Route(svc, "approvePurchaseOrder", http.MethodPost, "/api/v1/purchase/orders/{id}/approve")
	RouteSubmit     = erp.Route(svc, "submitPurchaseOrder", http.MethodPost, "/api/v1/purchase/orders/{id}/submit")
)

// Routes returns every backend operation the client calls.
func Routes() []model.Route {
	return []model.Route{RouteListOrders, RouteGetOrder, RouteApprove, RouteSubmit}
}

// Client calls the procurement backend.
type Client struct {
	inv model.OperationInvoker
}

// New creates a Client over inv.
func New(inv model.OperationInvoker) *Client {
	return &Client{inv: inv}
}

func (c *Client) ListOrders(ctx context.Context, p model.ListParams) ([]model.PurchaseOrder, envelope.Meta, error) {
	return erp.List[model.PurchaseOrder](ctx, c.inv, RouteListOrders, model.InvocationInput{QueryParams: p.Query()})
}

func (c *Client) GetOrder(ctx context.Context, id int64) (model.PurchaseOrder, error) {
	return erp.Object[model.PurchaseOrder](ctx, c.inv, RouteGetOrder, model.InvocationInput{
		PathParams: erp.Path("id", erp.ID(id)),
	})
}

func (c *Client) Approve(ctx context.Context, id int64, form model.ApprovalForm) error {
	return erp.Do(ctx, c.inv, RouteApprove, model.InvocationInput{
		PathParams: erp.Path("id", erp.ID(id)),
		Body:       form,
	})
}

// Submit sends a draft order for approval.
func (c *Client) Submit(ctx context.Context, id int64) error {
	return erp.Do(ctx, c.inv, RouteSubmit, model.InvocationInput{
		PathParams: erp.Path("id", erp.ID(id)),
	})
}
