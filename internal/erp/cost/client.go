// Package cost is the API client of the project cost backend.
package cost

import (
	"context"
	"net/http"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const svc = config.ServiceCost

var (
	RouteSummary = erp.Route(svc, "getProjectCostSummary", http.MethodGet, "/api/v1/costs/projects/{project_id}/summary")
	RouteItems   = erp.Route(svc, "listProjectCostItems", http.MethodGet, "/api/v1/costs/projects/{project_id}/items")
)

// Routes returns every backend operation the client calls.
func Routes() []model.Route {
	return []model.Route{RouteSummary, RouteItems}
}

// Client calls the cost backend.
type Client struct {
	inv model.OperationInvoker
}

// New creates a Client over inv.
func New(inv model.OperationInvoker) *Client {
	return &Client{inv: inv}
}

// Summary returns the budget lines of a project. Budgets is never nil.
func (c *Client) Summary(ctx context.Context, projectID int64) (model.CostSummary, error) {
	s, err := erp.Object[model.CostSummary](ctx, c.inv, RouteSummary, model.InvocationInput{
		PathParams: erp.Path("project_id", erp.ID(projectID)),
	})
	if s.Budgets == nil {
		s.Budgets = []model.CostBudget{}
	}
	return s, err
}

func (c *Client) Items(ctx context.Context, projectID int64, p model.ListParams) ([]model.CostItem, envelope.Meta, error) {
	return erp.List[model.CostItem](ctx, c.inv, RouteItems, model.InvocationInput{
		PathParams:  erp.Path("project_id", erp.ID(projectID)),
		QueryParams: p.Query(),
	})
}
