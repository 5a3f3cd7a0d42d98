package page

import (
	"context"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/display"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/listview"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const pageSubstitutions = "substitutions"

// Substitution actions, as named in the status registry and in the URL.
const (
	ActionTechApprove = "tech_approve"
	ActionProdApprove = "prod_approve"
	ActionReject      = "reject"
	ActionExecute     = "execute"
)

// SubstitutionRow is a substitution decorated for the approval table.
type SubstitutionRow struct {
	model.Substitution
	Badge       model.Badge         `json:"badge"`
	Actions     []model.ActionState `json:"actions"`
	CreatedText string              `json:"created_at_text"`
}

// SubstitutionsPage is the material substitution screen.
type SubstitutionsPage struct {
	LoadState
	List    listview.Result[SubstitutionRow] `json:"list"`
	Summary map[string]int                   `json:"summary"`
}

var substitutionSpec = listview.Spec[SubstitutionRow]{
	Keywords: []func(SubstitutionRow) string{
		func(r SubstitutionRow) string { return r.SubstitutionNo },
		func(r SubstitutionRow) string { return r.ProjectName },
		func(r SubstitutionRow) string { return r.OriginalMaterial },
		func(r SubstitutionRow) string { return r.SubstituteMaterial },
	},
	Category: func(r SubstitutionRow) string { return r.Status },
	Sorts: map[string]func(a, b SubstitutionRow) bool{
		"created_at":      func(a, b SubstitutionRow) bool { return a.CreatedAt < b.CreatedAt },
		"substitution_no": func(a, b SubstitutionRow) bool { return a.SubstitutionNo < b.SubstitutionNo },
	},
}

// Substitutions loads the substitution requests and applies q locally.
func (s *Service) Substitutions(ctx context.Context, q listview.Query) (SubstitutionsPage, error) {
	st := load(ctx, s, pageSubstitutions, fetchAll(s.c.Shortage.ListSubstitutions))

	rows := make([]SubstitutionRow, 0, len(st.Data))
	for _, sub := range st.Data {
		rows = append(rows, SubstitutionRow{
			Substitution: sub,
			Badge:        s.status.Badge(statusreg.DomainSubstitution, sub.Status),
			Actions: s.status.Actions(statusreg.DomainSubstitution, sub.Status,
				ActionTechApprove, ActionProdApprove, ActionReject, ActionExecute),
			CreatedText: display.DateTime(sub.CreatedAt),
		})
	}
	summary := countBy(rows, func(r SubstitutionRow) string { return r.Status })
	summary["total"] = len(rows)

	return SubstitutionsPage{
		LoadState: stateOf(st),
		List:      listview.Apply(rows, q, substitutionSpec),
		Summary:   summary,
	}, fatal(st.Err)
}

func (s *Service) reloadSubstitutions(q listview.Query) resource.ReloadFunc {
	return func(ctx context.Context) any {
		p, _ := s.Substitutions(ctx, q)
		return p
	}
}

// CreateSubstitution submits a new substitution request.
func (s *Service) CreateSubstitution(ctx context.Context, req resource.Request[model.SubstitutionForm], q listview.Query) (model.ActionOutcome, error) {
	return run(ctx, s, "substitution.create", "substitution:new:create", req,
		s.c.Shortage.CreateSubstitution, s.reloadSubstitutions(q))
}

// TechApprove records the technical approval of a substitution.
func (s *Service) TechApprove(ctx context.Context, id int64, req resource.Request[model.ApprovalForm], q listview.Query) (model.ActionOutcome, error) {
	return run(ctx, s, "substitution."+ActionTechApprove, actionKey("substitution", id, ActionTechApprove), req,
		func(ctx context.Context, form model.ApprovalForm) error {
			return s.c.Shortage.TechApprove(ctx, id, form)
		},
		s.reloadSubstitutions(q))
}

// ProdApprove records the production approval of a substitution.
func (s *Service) ProdApprove(ctx context.Context, id int64, req resource.Request[model.ApprovalForm], q listview.Query) (model.ActionOutcome, error) {
	return run(ctx, s, "substitution."+ActionProdApprove, actionKey("substitution", id, ActionProdApprove), req,
		func(ctx context.Context, form model.ApprovalForm) error {
			return s.c.Shortage.ProdApprove(ctx, id, form)
		},
		s.reloadSubstitutions(q))
}

// RejectSubstitution rejects a substitution with a reason.
func (s *Service) RejectSubstitution(ctx context.Context, id int64, req resource.Request[model.RejectForm], q listview.Query) (model.ActionOutcome, error) {
	return run(ctx, s, "substitution."+ActionReject, actionKey("substitution", id, ActionReject), req,
		func(ctx context.Context, form model.RejectForm) error {
			return s.c.Shortage.Reject(ctx, id, form)
		},
		s.reloadSubstitutions(q))
}

// ExecuteSubstitution executes an approved substitution.
func (s *Service) ExecuteSubstitution(ctx context.Context, id int64, req resource.Request[struct{}], q listview.Query) (model.ActionOutcome, error) {
	return run(ctx, s, "substitution."+ActionExecute, actionKey("substitution", id, ActionExecute), req,
		func(ctx context.Context, _ struct{}) error {
			return s.c.Shortage.Execute(ctx, id)
		},
		s.reloadSubstitutions(q))
}

// CreateShortageReport reports a shortage. On success the outcome carries
// the created report.
func (s *Service) CreateShortageReport(ctx context.Context, req resource.Request[model.ShortageReportForm]) (model.ActionOutcome, error) {
	var created model.ShortageReport
	return run(ctx, s, "shortage_report.create", "shortage_report:new:create", req,
		func(ctx context.Context, form model.ShortageReportForm) error {
			r, err := s.c.Shortage.CreateReport(ctx, form)
			created = r
			return err
		},
		func(context.Context) any { return created })
}
