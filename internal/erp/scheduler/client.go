// Package scheduler is the API client of the job scheduler backend,
// including its Prometheus text export.
package scheduler

import (
	"context"
	"net/http"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const svc = config.ServiceScheduler

var (
	RouteMetrics           = erp.Route(svc, "listSchedulerJobMetrics", http.MethodGet, "/api/v1/scheduler/metrics")
	RouteJobs              = erp.Route(svc, "listSchedulerJobs", http.MethodGet, "/api/v1/scheduler/jobs")
	RouteTrigger           = erp.Route(svc, "triggerSchedulerJob", http.MethodPost, "/api/v1/scheduler/jobs/{id}/trigger")
	RouteMetricsPrometheus = erp.Route(svc, "getSchedulerMetricsPrometheus", http.MethodGet, "/api/v1/scheduler/metrics/prometheus")
)

// Routes returns every backend operation the client calls.
func Routes() []model.Route {
	return []model.Route{RouteMetrics, RouteJobs, RouteTrigger, RouteMetricsPrometheus}
}

// Client calls the scheduler backend.
type Client struct {
	inv model.OperationInvoker
}

// New creates a Client over inv.
func New(inv model.OperationInvoker) *Client {
	return &Client{inv: inv}
}

func (c *Client) Metrics(ctx context.Context) ([]model.SchedulerJobMetric, envelope.Meta, error) {
	return erp.List[model.SchedulerJobMetric](ctx, c.inv, RouteMetrics, model.InvocationInput{})
}

func (c *Client) Jobs(ctx context.Context) ([]model.SchedulerJob, envelope.Meta, error) {
	return erp.List[model.SchedulerJob](ctx, c.inv, RouteJobs, model.InvocationInput{})
}

func (c *Client) Trigger(ctx context.Context, jobID string) error {
	return erp.Do(ctx, c.inv, RouteTrigger, model.InvocationInput{PathParams: erp.Path("id", jobID)})
}

// MetricsPrometheus streams the metrics in Prometheus text format. The
// caller must close the body.
func (c *Client) MetricsPrometheus(ctx context.Context) (model.RawResult, error) {
	return erp.Stream(ctx, c.inv, RouteMetricsPrometheus, model.InvocationInput{})
}
