package page

import (
	"context"
	"fmt"
	"math"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/display"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/listview"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const (
	pagePipeline = "stage_pipeline"

	// ActionAdvance completes a stage and starts the next one.
	ActionAdvance = "advance"
)

// StageRow is one pipeline stage with its badge and progress.
type StageRow struct {
	model.ProjectStage
	Badge        model.Badge         `json:"badge"`
	Actions      []model.ActionState `json:"actions"`
	Current      bool                `json:"current"`
	ProgressText string              `json:"progress_text"`
	PlannedText  string              `json:"planned_end_date_text,omitempty"`
	ActualText   string              `json:"actual_end_date_text,omitempty"`
}

// ProjectStages is the stage view of one project.
type ProjectStages struct {
	LoadState
	ProjectID    int64      `json:"project_id"`
	ProjectCode  string     `json:"project_code,omitempty"`
	ProjectName  string     `json:"project_name,omitempty"`
	CurrentStage string     `json:"current_stage,omitempty"`
	Stages       []StageRow `json:"stages"`
	Completed    int        `json:"completed"`
	Delayed      int        `json:"delayed"`
	Progress     float64    `json:"progress"`
	ProgressText string     `json:"progress_text"`
}

// PipelineRow is a project in the pipeline overview.
type PipelineRow struct {
	ProjectID    int64       `json:"project_id"`
	ProjectCode  string      `json:"project_code"`
	ProjectName  string      `json:"project_name"`
	CurrentStage string      `json:"current_stage"`
	StageName    string      `json:"current_stage_name,omitempty"`
	Badge        model.Badge `json:"badge"`
	Progress     float64     `json:"progress"`
	Delayed      bool        `json:"is_delayed"`
}

// Pipeline is the overview of every project's current stage.
type Pipeline struct {
	LoadState
	List    listview.Result[PipelineRow] `json:"list"`
	ByStage map[string]int               `json:"by_stage"`
}

var pipelineSpec = listview.Spec[PipelineRow]{
	Keywords: []func(PipelineRow) string{
		func(r PipelineRow) string { return r.ProjectCode },
		func(r PipelineRow) string { return r.ProjectName },
	},
	Category: func(r PipelineRow) string { return r.CurrentStage },
	Value:    func(r PipelineRow) float64 { return r.Progress },
	Sorts: map[string]func(a, b PipelineRow) bool{
		"progress":     func(a, b PipelineRow) bool { return a.Progress < b.Progress },
		"project_code": func(a, b PipelineRow) bool { return a.ProjectCode < b.ProjectCode },
	},
}

// ProjectStages loads the stages of one project.
func (s *Service) ProjectStages(ctx context.Context, projectID int64) (ProjectStages, error) {
	view, st := loadOne(ctx, s, fmt.Sprintf("stages:%d", projectID), func(ctx context.Context) (model.StageView, error) {
		return s.c.Stages.Project(ctx, projectID)
	})
	out := ProjectStages{LoadState: objectStateOf(st), ProjectID: projectID, Stages: []StageRow{}}
	if view == nil {
		out.ProgressText = display.FormatPercent(0, 0)
		return out, fatal(st.Err)
	}

	out.ProjectCode = view.ProjectCode
	out.ProjectName = view.ProjectName
	out.CurrentStage = view.CurrentStage
	var sum float64
	for _, stg := range view.Stages {
		sum += stg.Progress
		if stg.Status == "COMPLETED" {
			out.Completed++
		}
		if stg.IsDelayed {
			out.Delayed++
		}
		out.Stages = append(out.Stages, StageRow{
			ProjectStage: stg,
			Badge:        s.status.Badge(statusreg.DomainStage, stg.Status),
			Actions:      s.status.Actions(statusreg.DomainStage, stg.Status, ActionAdvance),
			Current:      stg.StageCode == view.CurrentStage,
			ProgressText: display.FormatPercent(stg.Progress, 0),
			PlannedText:  display.Date(stg.PlannedEnd),
			ActualText:   display.Date(stg.ActualEnd),
		})
	}
	if n := len(view.Stages); n > 0 {
		out.Progress = math.Round(sum/float64(n)*10) / 10
	}
	out.ProgressText = display.FormatPercent(out.Progress, 1)
	return out, nil
}

// Pipeline loads the stage overview of all projects.
func (s *Service) Pipeline(ctx context.Context, q listview.Query) (Pipeline, error) {
	st := load(ctx, s, pagePipeline, fetchAll(s.c.Stages.Pipeline))

	rows := make([]PipelineRow, 0, len(st.Data))
	for _, v := range st.Data {
		row := PipelineRow{
			ProjectID:    v.ProjectID,
			ProjectCode:  v.ProjectCode,
			ProjectName:  v.ProjectName,
			CurrentStage: v.CurrentStage,
			Badge:        s.status.Badge(statusreg.DomainStage, ""),
		}
		for _, stg := range v.Stages {
			if stg.StageCode != v.CurrentStage {
				continue
			}
			row.StageName = stg.StageName
			row.Badge = s.status.Badge(statusreg.DomainStage, stg.Status)
			row.Progress = stg.Progress
			row.Delayed = stg.IsDelayed
		}
		rows = append(rows, row)
	}

	return Pipeline{
		LoadState: stateOf(st),
		List:      listview.Apply(rows, q, pipelineSpec),
		ByStage:   countBy(rows, func(r PipelineRow) string { return r.CurrentStage }),
	}, fatal(st.Err)
}

// AdvanceStage completes stageCode of a project and returns the refreshed
// stage view.
func (s *Service) AdvanceStage(ctx context.Context, projectID int64, stageCode string, req resource.Request[model.AdvanceStageForm]) (model.ActionOutcome, error) {
	return run(ctx, s, "stage."+ActionAdvance, actionKey("project", projectID, stageCode+":"+ActionAdvance), req,
		func(ctx context.Context, form model.AdvanceStageForm) error {
			return s.c.Stages.Advance(ctx, projectID, stageCode, form)
		},
		func(ctx context.Context) any {
			v, _ := s.ProjectStages(ctx, projectID)
			return v
		})
}
