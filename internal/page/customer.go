package page

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/display"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// Customer 360 branch names.
const (
	BranchCustomer  = "customer"
	BranchProjects  = "projects"
	BranchFollowUps = "follow_ups"
	BranchSurveys   = "surveys"
)

// CustomerProjectRow is a customer project with its status badge.
type CustomerProjectRow struct {
	model.CustomerProject
	Badge      model.Badge `json:"badge"`
	AmountText string      `json:"contract_amount_text"`
	StartText  string      `json:"start_date_text,omitempty"`
}

// FollowUpRow is a follow-up with its type badge.
type FollowUpRow struct {
	model.FollowUp
	Badge       model.Badge `json:"badge"`
	CreatedText string      `json:"created_at_text"`
}

// CustomerStats are the figures shown in the customer header.
type CustomerStats struct {
	CooperationYears    int     `json:"cooperation_years"`
	ProjectCount        int     `json:"project_count"`
	ActiveProjects      int     `json:"active_projects"`
	TotalContractAmount string  `json:"total_contract_amount"`
	TotalContractText   string  `json:"total_contract_amount_text"`
	AverageSatisfaction float64 `json:"average_satisfaction"`
	FollowUpCount       int     `json:"follow_up_count"`
	SurveyCount         int     `json:"survey_count"`
}

// Customer360 combines the customer record with its projects, follow-ups
// and surveys. Each part loads independently; Branches reports which ones
// failed.
type Customer360 struct {
	Customer  *model.Customer            `json:"customer"`
	Projects  []CustomerProjectRow       `json:"projects"`
	FollowUps []FollowUpRow              `json:"follow_ups"`
	Surveys   []model.SatisfactionSurvey `json:"surveys"`
	Stats     CustomerStats              `json:"stats"`
	Branches  resource.Report            `json:"branches"`
}

// Customer360 loads the four parts of the customer view in parallel.
func (s *Service) Customer360(ctx context.Context, id int64) (Customer360, error) {
	var (
		cust      *model.Customer
		projects  []model.CustomerProject
		followUps []model.FollowUp
		surveys   []model.SatisfactionSurvey
	)
	report := s.fanout.Run(ctx,
		resource.NewObjectBranch(BranchCustomer, &cust, func(ctx context.Context) (model.Customer, error) {
			return s.c.Customers.Get(ctx, id)
		}),
		resource.NewBranch(BranchProjects, &projects, func(ctx context.Context) ([]model.CustomerProject, error) {
			items, _, err := s.c.Customers.Projects(ctx, id)
			return items, err
		}),
		resource.NewBranch(BranchFollowUps, &followUps, func(ctx context.Context) ([]model.FollowUp, error) {
			items, _, err := s.c.Customers.FollowUps(ctx, id)
			return items, err
		}),
		resource.NewBranch(BranchSurveys, &surveys, func(ctx context.Context) ([]model.SatisfactionSurvey, error) {
			items, _, err := s.c.Customers.Surveys(ctx, id)
			return items, err
		}),
	)

	out := Customer360{
		Customer:  cust,
		Projects:  make([]CustomerProjectRow, 0, len(projects)),
		FollowUps: make([]FollowUpRow, 0, len(followUps)),
		Surveys:   surveys,
		Branches:  report,
	}
	active := 0
	for _, p := range projects {
		if p.Status == model.ProjectActive || p.Status == model.ProjectDelayed {
			active++
		}
		out.Projects = append(out.Projects, CustomerProjectRow{
			CustomerProject: p,
			Badge:           s.status.Badge(statusreg.DomainProject, p.Status),
			AmountText:      display.FormatCurrency(p.ContractAmount),
			StartText:       display.Date(p.StartDate),
		})
	}
	for _, f := range followUps {
		out.FollowUps = append(out.FollowUps, FollowUpRow{
			FollowUp:    f,
			Badge:       s.status.Badge(statusreg.DomainFollowUp, f.FollowUpType),
			CreatedText: display.DateTime(f.CreatedAt),
		})
	}

	total := display.TotalContractAmount(projects)
	out.Stats = CustomerStats{
		CooperationYears:    display.CooperationYears(projects, s.now()),
		ProjectCount:        len(projects),
		ActiveProjects:      active,
		TotalContractAmount: total.StringFixed(2),
		TotalContractText:   display.FormatCurrencyCompact(total),
		AverageSatisfaction: display.AverageSatisfaction(surveys),
		FollowUpCount:       len(followUps),
		SurveyCount:         len(surveys),
	}
	return out, report.FirstError(model.ErrUnauthorized)
}

// CreateCustomerFollowUp records a follow-up and returns the refreshed
// customer view.
func (s *Service) CreateCustomerFollowUp(ctx context.Context, id int64, req resource.Request[model.FollowUpForm]) (model.ActionOutcome, error) {
	req.Payload.Content = strings.TrimSpace(req.Payload.Content)
	return run(ctx, s, "customer.follow_up", fmt.Sprintf("customer:%d:follow_up", id), req,
		func(ctx context.Context, form model.FollowUpForm) error {
			return s.c.Customers.CreateFollowUp(ctx, id, form)
		},
		func(ctx context.Context) any {
			v, _ := s.Customer360(ctx, id)
			return v
		})
}
