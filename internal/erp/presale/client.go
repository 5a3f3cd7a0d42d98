// Package presale is the API client of the presale solution backend.
package presale

import (
	"context"
	"net/http"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const svc = config.ServicePresale

var (
	RouteListTemplates = erp.Route(svc, "listPresaleTemplates", http.MethodGet, "/api/v1/presale/templates")
	RouteApply         = erp.Route(svc, "applyPresaleTemplate", http.MethodPost, "/api/v1/presale/templates/{id}/apply")
	RouteRate          = erp.Route(svc, "ratePresaleTemplate", http.MethodPost, "/api/v1/presale/templates/{id}/rate")
)

// Routes returns every backend operation the client calls.
func Routes() []model.Route {
	return []model.Route{RouteListTemplates, RouteApply, RouteRate}
}

// Client calls the presale backend.
type Client struct {
	inv model.OperationInvoker
}

// New creates a Client over inv.
func New(inv model.OperationInvoker) *Client {
	return &Client{inv: inv}
}

func (c *Client) ListTemplates(ctx context.Context, p model.ListParams) ([]model.PresaleTemplate, envelope.Meta, error) {
	return erp.List[model.PresaleTemplate](ctx, c.inv, RouteListTemplates, model.InvocationInput{QueryParams: p.Query()})
}

func (c *Client) Apply(ctx context.Context, id int64, form model.ApplyTemplateForm) error {
	return erp.Do(ctx, c.inv, RouteApply, model.InvocationInput{
		PathParams: erp.Path("id", erp.ID(id)),
		Body:       form,
	})
}

func (c *Client) Rate(ctx context.Context, id int64, form model.RateTemplateForm) error {
	return erp.Do(ctx, c.inv, RouteRate, model.InvocationInput{
		PathParams: erp.Path("id", erp.ID(id)),
		Body:       form,
	})
}
