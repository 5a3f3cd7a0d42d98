package page

import (
	"context"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/display"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const (
	pageSchedulerMetrics = "scheduler_metrics"
	pageSchedulerJobs    = "scheduler_jobs"

	// ActionTrigger runs a scheduled job immediately.
	ActionTrigger = "trigger"
)

// JobMetricRow is the run counters of one job with its last status.
type JobMetricRow struct {
	model.SchedulerJobMetric
	Badge       model.Badge         `json:"badge"`
	Actions     []model.ActionState `json:"actions"`
	LastRunText string              `json:"last_run_at_text,omitempty"`
}

// HeatRow is a failure heat entry with its level badge.
type HeatRow struct {
	display.HeatEntry
	Badge    model.Badge `json:"badge"`
	RateText string      `json:"failure_rate_text"`
}

// JobRow is a registered job.
type JobRow struct {
	model.SchedulerJob
	NextRunText string `json:"next_run_time_text,omitempty"`
}

// SchedulerDashboard is the scheduler monitoring screen.
type SchedulerDashboard struct {
	LoadState
	Stats           display.SchedulerStats `json:"stats"`
	SuccessRateText string                 `json:"success_rate_text"`
	Metrics         []JobMetricRow         `json:"metrics"`
	Heat            []HeatRow              `json:"heat"`
	Jobs            []JobRow               `json:"jobs"`
	JobsError       string                 `json:"jobs_error,omitempty"`
}

// SchedulerDashboard loads the job metrics and the job list.
func (s *Service) SchedulerDashboard(ctx context.Context) (SchedulerDashboard, error) {
	st := load(ctx, s, pageSchedulerMetrics, func(ctx context.Context) ([]model.SchedulerJobMetric, envelope.Meta, error) {
		return s.c.Scheduler.Metrics(ctx)
	})
	if err := fatal(st.Err); err != nil {
		return SchedulerDashboard{LoadState: stateOf(st), Metrics: []JobMetricRow{}, Heat: []HeatRow{}, Jobs: []JobRow{}}, err
	}
	jst := load(ctx, s, pageSchedulerJobs, func(ctx context.Context) ([]model.SchedulerJob, envelope.Meta, error) {
		return s.c.Scheduler.Jobs(ctx)
	})

	stats := display.AggregateSchedulerStats(st.Data)
	out := SchedulerDashboard{
		LoadState:       stateOf(st),
		Stats:           stats,
		SuccessRateText: display.FormatPercent(stats.SuccessRate, 1),
		Metrics:         make([]JobMetricRow, 0, len(st.Data)),
		Heat:            []HeatRow{},
		Jobs:            make([]JobRow, 0, len(jst.Data)),
		JobsError:       jst.Error,
	}
	for _, m := range st.Data {
		out.Metrics = append(out.Metrics, JobMetricRow{
			SchedulerJobMetric: m,
			Badge:              s.status.Badge(statusreg.DomainSchedulerJob, m.LastStatus),
			Actions:            s.status.Actions(statusreg.DomainSchedulerJob, m.LastStatus, ActionTrigger),
			LastRunText:        display.DateTime(m.LastRunAt),
		})
	}
	for _, h := range display.FailureHeat(st.Data) {
		out.Heat = append(out.Heat, HeatRow{
			HeatEntry: h,
			Badge:     s.status.Badge(statusreg.DomainWarningLevel, h.Level),
			RateText:  display.FormatPercent(h.FailureRate, 1),
		})
	}
	for _, j := range jst.Data {
		out.Jobs = append(out.Jobs, JobRow{SchedulerJob: j, NextRunText: display.DateTime(j.NextRunTime)})
	}
	return out, fatal(jst.Err)
}

// TriggerJob runs a job now and returns the refreshed dashboard.
func (s *Service) TriggerJob(ctx context.Context, jobID string, req resource.Request[struct{}]) (model.ActionOutcome, error) {
	return run(ctx, s, "scheduler_job."+ActionTrigger, actionKey("scheduler_job", jobID, ActionTrigger), req,
		func(ctx context.Context, _ struct{}) error {
			return s.c.Scheduler.Trigger(ctx, jobID)
		},
		func(ctx context.Context) any {
			d, _ := s.SchedulerDashboard(ctx)
			return d
		})
}

// SchedulerMetricsExport streams the scheduler metrics in Prometheus text
// format. The caller closes the body.
func (s *Service) SchedulerMetricsExport(ctx context.Context) (model.RawResult, error) {
	return s.c.Scheduler.MetricsPrometheus(ctx)
}
