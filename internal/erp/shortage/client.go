// Package shortage is the API client of the material shortage backend:
// arrivals, substitutions and shortage reports.
package shortage

import (
	"context"
	"net/http"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const svc = config.ServiceShortage

var (
	RouteListArrivals       = erp.Route(svc, "listArrivals", http.MethodGet, "/api/v1/shortage/arrivals")
	RouteReceiveArrival     = erp.Route(svc, "receiveArrival", http.MethodPost, "/api/v1/shortage/arrivals/{id}/receive")
	RouteFollowUpArrival    = erp.Route(svc, "followUpArrival", http.MethodPost, "/api/v1/shortage/arrivals/{id}/follow-up")
	RouteListSubstitutions  = erp.Route(svc, "listSubstitutions", http.MethodGet, "/api/v1/shortage/substitutions")
	RouteCreateSubstitution = erp.Route(svc, "createSubstitution", http.MethodPost, "/api/v1/shortage/substitutions")
	RouteTechApprove        = erp.Route(svc, "techApproveSubstitution", http.MethodPost, "/api/v1/shortage/substitutions/{id}/tech-approve")
	RouteProdApprove        = erp.Route(svc, "prodApproveSubstitution", http.MethodPost, "/api/v1/shortage/substitutions/{id}/prod-approve")
	RouteReject             = erp.Route(svc, "rejectSubstitution", http.MethodPost, "/api/v1/shortage/substitutions/{id}/reject")
	RouteExecute            = erp.Route(svc, "executeSubstitution", http.MethodPost, "/api/v1/shortage/substitutions/{id}/execute")
	RouteCreateReport       = erp.Route(svc, "createShortageReport", http.MethodPost, "/api/v1/shortage/reports")
)

// Routes returns every backend operation the client calls.
func Routes() []model.Route {
	return []model.Route{
		RouteListArrivals, RouteReceiveArrival, RouteFollowUpArrival,
		RouteListSubstitutions, RouteCreateSubstitution,
		RouteTechApprove, RouteProdApprove, RouteReject, RouteExecute,
		RouteCreateReport,
	}
}

// Client calls the shortage backend.
type Client struct {
	inv model.OperationInvoker
}

// New creates a Client over inv.
func New(inv model.OperationInvoker) *Client {
	return &Client{inv: inv}
}

func (c *Client) ListArrivals(ctx context.Context, p model.ListParams) ([]model.Arrival, envelope.Meta, error) {
	return erp.List[model.Arrival](ctx, c.inv, RouteListArrivals, model.InvocationInput{QueryParams: p.Query()})
}

func (c *Client) ReceiveArrival(ctx context.Context, id int64, form model.ReceiveArrivalForm) error {
	return erp.Do(ctx, c.inv, RouteReceiveArrival, model.InvocationInput{
		PathParams: erp.Path("id", erp.ID(id)),
		Body:       form,
	})
}

func (c *Client) FollowUpArrival(ctx context.Context, id int64, form model.FollowUpForm) error {
	return erp.Do(ctx, c.inv, RouteFollowUpArrival, model.InvocationInput{
		PathParams: erp.Path("id", erp.ID(id)),
		Body:       form,
	})
}

func (c *Client) ListSubstitutions(ctx context.Context, p model.ListParams) ([]model.Substitution, envelope.Meta, error) {
	return erp.List[model.Substitution](ctx, c.inv, RouteListSubstitutions, model.InvocationInput{QueryParams: p.Query()})
}

func (c *Client) CreateSubstitution(ctx context.Context, form model.SubstitutionForm) error {
	return erp.Do(ctx, c.inv, RouteCreateSubstitution, model.InvocationInput{Body: form})
}

// TechApprove, ProdApprove, Reject and Execute move a substitution through
// its approval chain. The backend decides whether the move is allowed.
func (c *Client) TechApprove(ctx context.Context, id int64, form model.ApprovalForm) error {
	return c.transition(ctx, RouteTechApprove, id, form)
}

func (c *Client) ProdApprove(ctx context.Context, id int64, form model.ApprovalForm) error {
	return c.transition(ctx, RouteProdApprove, id, form)
}

func (c *Client) Reject(ctx context.Context, id int64, form model.RejectForm) error {
	return c.transition(ctx, RouteReject, id, form)
}

func (c *Client) Execute(ctx context.Context, id int64) error {
	return c.transition(ctx, RouteExecute, id, nil)
}

func (c *Client) transition(ctx context.Context, route model.Route, id int64, body any) error {
	return erp.Do(ctx, c.inv, route, model.InvocationInput{
		PathParams: erp.Path("id", erp.ID(id)),
		Body:       body,
	})
}

// CreateReport files a shortage report and returns the created record.
func (c *Client) CreateReport(ctx context.Context, form model.ShortageReportForm) (model.ShortageReport, error) {
	return erp.Object[model.ShortageReport](ctx, c.inv, RouteCreateReport, model.InvocationInput{Body: form})
}
