// Package stageview is the API client of the project stage backend.
package stageview

import (
	"context"
	"net/http"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const svc = config.ServiceStageView

var (
	RoutePipeline = erp.Route(svc, "getStagePipeline", http.MethodGet, "/api/v1/stage-views/pipeline")
	RouteProject  = erp.Route(svc, "getProjectStages", http.MethodGet, "/api/v1/stage-views/projects/{project_id}")
	RouteAdvance  = erp.Route(svc, "advanceProjectStage", http.MethodPost, "/api/v1/stage-views/projects/{project_id}/stages/{stage_code}/advance")
)

// Routes returns every backend operation the client calls.
func Routes() []model.Route {
	return []model.Route{RoutePipeline, RouteProject, RouteAdvance}
}

// Client calls the stage backend.
type Client struct {
	inv model.OperationInvoker
}

// New creates a Client over inv.
func New(inv model.OperationInvoker) *Client {
	return &Client{inv: inv}
}

// Pipeline returns the stage pipelines of all visible projects.
func (c *Client) Pipeline(ctx context.Context, p model.ListParams) ([]model.StageView, envelope.Meta, error) {
	return erp.List[model.StageView](ctx, c.inv, RoutePipeline, model.InvocationInput{QueryParams: p.Query()})
}

// Project returns one project's stages. Stages is never nil.
func (c *Client) Project(ctx context.Context, projectID int64) (model.StageView, error) {
	v, err := erp.Object[model.StageView](ctx, c.inv, RouteProject, model.InvocationInput{
		PathParams: erp.Path("project_id", erp.ID(projectID)),
	})
	if v.Stages == nil {
		v.Stages = []model.ProjectStage{}
	}
	return v, err
}

func (c *Client) Advance(ctx context.Context, projectID int64, stageCode string, form model.AdvanceStageForm) error {
	return erp.Do(ctx, c.inv, RouteAdvance, model.InvocationInput{
		PathParams: erp.Path("project_id", erp.ID(projectID), "stage_code", stageCode),
		Body:       form,
	})
}
