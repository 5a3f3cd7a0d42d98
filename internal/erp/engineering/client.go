// Package engineering is the API client of the engineer scheduling backend.
// Workload conflicts are computed there; this client only reads them.
package engineering

import (
	"context"
	"net/http"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const svc = config.ServiceEngineering

var (
	RouteWorkload  = erp.Route(svc, "listEngineerWorkload", http.MethodGet, "/api/v1/engineers/workload")
	RouteConflicts = erp.Route(svc, "listWorkloadConflicts", http.MethodGet, "/api/v1/engineers/conflicts")
)

// Routes returns every backend operation the client calls.
func Routes() []model.Route {
	return []model.Route{RouteWorkload, RouteConflicts}
}

// Client calls the engineering backend.
type Client struct {
	inv model.OperationInvoker
}

// New creates a Client over inv.
func New(inv model.OperationInvoker) *Client {
	return &Client{inv: inv}
}

func (c *Client) Workload(ctx context.Context, p model.ListParams) ([]model.EngineerMember, envelope.Meta, error) {
	return erp.List[model.EngineerMember](ctx, c.inv, RouteWorkload, model.InvocationInput{QueryParams: p.Query()})
}

func (c *Client) Conflicts(ctx context.Context, p model.ListParams) ([]model.WorkloadConflict, envelope.Meta, error) {
	return erp.List[model.WorkloadConflict](ctx, c.inv, RouteConflicts, model.InvocationInput{QueryParams: p.Query()})
}
