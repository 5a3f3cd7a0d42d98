package page

import (
	"context"

	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/display"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/listview"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/optimistic"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const pageTemplates = "presale_templates"

// Presale template actions and the counters they bump.
const (
	ActionApply = "apply"
	ActionRate  = "rate"

	counterApply  = "apply_count"
	counterRating = "rating_count"
)

// TemplateRow is a presale template whose counters include bumps the
// backend has not reflected yet.
type TemplateRow struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	Industry    string              `json:"industry,omitempty"`
	Status      string              `json:"status"`
	AvgRating   float64             `json:"avg_rating"`
	UpdatedText string              `json:"updated_at_text,omitempty"`
	ApplyCount  optimistic.Value    `json:"apply_count"`
	RatingCount optimistic.Value    `json:"rating_count"`
	Badge       model.Badge         `json:"badge"`
	Actions     []model.ActionState `json:"actions"`
}

// TemplatesPage is the presale template library.
type TemplatesPage struct {
	LoadState
	List       listview.Result[TemplateRow] `json:"list"`
	Categories map[string]int               `json:"categories"`
}

var templateSpec = listview.Spec[TemplateRow]{
	Keywords: []func(TemplateRow) string{
		func(r TemplateRow) string { return r.Name },
		func(r TemplateRow) string { return r.Industry },
	},
	Category: func(r TemplateRow) string { return r.Category },
	Value:    func(r TemplateRow) float64 { return r.AvgRating },
	Sorts: map[string]func(a, b TemplateRow) bool{
		"apply_count": func(a, b TemplateRow) bool { return a.ApplyCount.Value < b.ApplyCount.Value },
		"avg_rating":  func(a, b TemplateRow) bool { return a.AvgRating < b.AvgRating },
		"name":        func(a, b TemplateRow) bool { return a.Name < b.Name },
	},
}

// Templates loads the template library and overlays pending counter bumps.
func (s *Service) Templates(ctx context.Context, q listview.Query) (TemplatesPage, error) {
	st := load(ctx, s, pageTemplates, fetchAll(s.c.Presale.ListTemplates))

	rows := make([]TemplateRow, 0, len(st.Data))
	for _, t := range st.Data {
		rows = append(rows, TemplateRow{
			ID:          t.ID,
			Name:        t.Name,
			Category:    t.Category,
			Industry:    t.Industry,
			Status:      t.Status,
			AvgRating:   t.AvgRating,
			UpdatedText: display.DateTime(t.UpdatedAt),
			ApplyCount:  s.optimistic.Overlay(ctx, optimistic.Key("template", t.ID, counterApply), int64(t.ApplyCount)),
			RatingCount: s.optimistic.Overlay(ctx, optimistic.Key("template", t.ID, counterRating), int64(t.RatingCount)),
			Badge:       s.status.Badge(statusreg.DomainTemplate, t.Status),
			Actions:     s.status.Actions(statusreg.DomainTemplate, t.Status, ActionApply, ActionRate),
		})
	}

	return TemplatesPage{
		LoadState:  stateOf(st),
		List:       listview.Apply(rows, q, templateSpec),
		Categories: countBy(rows, func(r TemplateRow) string { return r.Category }),
	}, fatal(st.Err)
}

// ApplyTemplate applies a template and bumps its apply counter until the
// backend reports it.
func (s *Service) ApplyTemplate(ctx context.Context, id int64, req resource.Request[model.ApplyTemplateForm], q listview.Query) (model.ActionOutcome, error) {
	return run(ctx, s, "template."+ActionApply, actionKey("template", id, ActionApply), req,
		func(ctx context.Context, form model.ApplyTemplateForm) error {
			baseline := s.counterBaseline(ctx, id, counterApply)
			if err := s.c.Presale.Apply(ctx, id, form); err != nil {
				return err
			}
			s.bump(ctx, id, counterApply, baseline)
			return nil
		},
		s.reloadTemplates(q))
}

// RateTemplate rates a template and bumps its rating counter until the
// backend reports it.
func (s *Service) RateTemplate(ctx context.Context, id int64, req resource.Request[model.RateTemplateForm], q listview.Query) (model.ActionOutcome, error) {
	return run(ctx, s, "template."+ActionRate, actionKey("template", id, ActionRate), req,
		func(ctx context.Context, form model.RateTemplateForm) error {
			baseline := s.counterBaseline(ctx, id, counterRating)
			if err := s.c.Presale.Rate(ctx, id, form); err != nil {
				return err
			}
			s.bump(ctx, id, counterRating, baseline)
			return nil
		},
		s.reloadTemplates(q))
}

// counterBaseline returns the counter value before an action. It prefers
// the session's last load and otherwise asks the backend, so a session that
// never opened the library still gets a pending overlay.
func (s *Service) counterBaseline(ctx context.Context, id int64, counter string) int64 {
	if v, ok := templateCounter(last[model.PresaleTemplate](ctx, s, pageTemplates), id, counter); ok {
		return v
	}
	items, _, err := fetchAll(s.c.Presale.ListTemplates)(ctx)
	if err != nil {
		observability.RequestLogger(ctx, s.opts.Logger).Warn("loading counter baseline failed",
			zap.Int64("template_id", id),
			zap.String("counter", counter),
			zap.Error(err),
		)
		return 0
	}
	v, _ := templateCounter(items, id, counter)
	return v
}

func templateCounter(items []model.PresaleTemplate, id int64, counter string) (int64, bool) {
	for _, t := range items {
		if t.ID != id {
			continue
		}
		if counter == counterApply {
			return int64(t.ApplyCount), true
		}
		return int64(t.RatingCount), true
	}
	return 0, false
}

// bump records one increment over baseline. A failure only costs the
// overlay, so it is logged and swallowed.
func (s *Service) bump(ctx context.Context, id int64, counter string, baseline int64) {
	if err := s.optimistic.Bump(ctx, optimistic.Key("template", id, counter), baseline); err != nil {
		observability.RequestLogger(ctx, s.opts.Logger).Warn("recording optimistic counter failed",
			zap.Int64("template_id", id),
			zap.String("counter", counter),
			zap.Error(err),
		)
	}
}

func (s *Service) reloadTemplates(q listview.Query) resource.ReloadFunc {
	return func(ctx context.Context) any {
		p, _ := s.Templates(ctx, q)
		return p
	}
}
