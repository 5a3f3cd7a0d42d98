// Package customer is the API client of the CRM backend used by the
// customer 360 page.
package customer

import (
	"context"
	"net/http"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const svc = config.ServiceCustomer

var (
	RouteGet            = erp.Route(svc, "getCustomer", http.MethodGet, "/api/v1/customers/{id}")
	RouteProjects       = erp.Route(svc, "listCustomerProjects", http.MethodGet, "/api/v1/customers/{id}/projects")
	RouteFollowUps      = erp.Route(svc, "listCustomerFollowUps", http.MethodGet, "/api/v1/customers/{id}/follow-ups")
	RouteSurveys        = erp.Route(svc, "listCustomerSurveys", http.MethodGet, "/api/v1/customers/{id}/satisfaction-surveys")
	RouteCreateFollowUp = erp.Route(svc, "createCustomerFollowUp", http.MethodPost, "/api/v1/customers/{id}/follow-ups")
)

// Routes returns every backend operation the client calls.
func Routes() []model.Route {
	return []model.Route{RouteGet, RouteProjects, RouteFollowUps, RouteSurveys, RouteCreateFollowUp}
}

// Client calls the CRM backend.
type Client struct {
	inv model.OperationInvoker
}

// New creates a Client over inv.
func New(inv model.OperationInvoker) *Client {
	return &Client{inv: inv}
}

func byID(id int64) model.InvocationInput {
	return model.InvocationInput{PathParams: erp.Path("id", erp.ID(id))}
}

func (c *Client) Get(ctx context.Context, id int64) (model.Customer, error) {
	return erp.Object[model.Customer](ctx, c.inv, RouteGet, byID(id))
}

func (c *Client) Projects(ctx context.Context, id int64) ([]model.CustomerProject, envelope.Meta, error) {
	return erp.List[model.CustomerProject](ctx, c.inv, RouteProjects, byID(id))
}

func (c *Client) FollowUps(ctx context.Context, id int64) ([]model.FollowUp, envelope.Meta, error) {
	return erp.List[model.FollowUp](ctx, c.inv, RouteFollowUps, byID(id))
}

func (c *Client) Surveys(ctx context.Context, id int64) ([]model.SatisfactionSurvey, envelope.Meta, error) {
	return erp.List[model.SatisfactionSurvey](ctx, c.inv, RouteSurveys, byID(id))
}

func (c *Client) CreateFollowUp(ctx context.Context, id int64, form model.FollowUpForm) error {
	in := byID(id)
	in.Body = form
	return erp.Do(ctx, c.inv, RouteCreateFollowUp, in)
}
