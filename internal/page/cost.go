package page

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/display"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/listview"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// BudgetRow is one budget line with its usage.
type BudgetRow struct {
	Category      string          `json:"category"`
	Budget        decimal.Decimal `json:"budget_amount"`
	Used          decimal.Decimal `json:"used_amount"`
	Remaining     decimal.Decimal `json:"remaining_amount"`
	UsageRate     decimal.Decimal `json:"usage_rate"`
	Level         string          `json:"level"`
	Badge         model.Badge     `json:"badge"`
	BudgetText    string          `json:"budget_amount_text"`
	UsedText      string          `json:"used_amount_text"`
	RemainingText string          `json:"remaining_amount_text"`
	UsageText     string          `json:"usage_rate_text"`
}

// CostItemRow is a booked cost with its display strings.
type CostItemRow struct {
	model.CostItem
	AmountText   string `json:"amount_text"`
	OccurredText string `json:"occurred_at_text"`
}

// CostDashboard is the budget overview of one project.
type CostDashboard struct {
	LoadState
	ProjectID   int64                        `json:"project_id"`
	ProjectCode string                       `json:"project_code,omitempty"`
	ProjectName string                       `json:"project_name"`
	Budgets     []BudgetRow                  `json:"budgets"`
	Totals      BudgetRow                    `json:"totals"`
	Items       listview.Result[CostItemRow] `json:"items"`
	ItemsError  string                       `json:"items_error,omitempty"`
}

var costItemSpec = listview.Spec[CostItemRow]{
	Keywords: []func(CostItemRow) string{
		func(r CostItemRow) string { return r.Description },
		func(r CostItemRow) string { return r.SourceNo },
	},
	Category: func(r CostItemRow) string { return r.Category },
	Value:    func(r CostItemRow) float64 { return r.Amount.InexactFloat64() },
	Sorts: map[string]func(a, b CostItemRow) bool{
		"occurred_at": func(a, b CostItemRow) bool { return a.OccurredAt < b.OccurredAt },
		"amount":      func(a, b CostItemRow) bool { return a.Amount.LessThan(b.Amount) },
	},
}

// CostDashboard loads the budget summary of a project together with its
// cost items. A failed item load is shown next to the summary rather than
// failing the page.
func (s *Service) CostDashboard(ctx context.Context, projectID int64, q listview.Query) (CostDashboard, error) {
	summary, st := loadOne(ctx, s, fmt.Sprintf("cost:%d", projectID), func(ctx context.Context) (model.CostSummary, error) {
		return s.c.Cost.Summary(ctx, projectID)
	})
	if err := fatal(st.Err); err != nil {
		return CostDashboard{LoadState: objectStateOf(st), ProjectID: projectID, Budgets: []BudgetRow{}}, err
	}

	out := CostDashboard{LoadState: objectStateOf(st), ProjectID: projectID, Budgets: []BudgetRow{}}
	total, used := decimal.Zero, decimal.Zero
	if summary != nil {
		out.ProjectCode = summary.ProjectCode
		out.ProjectName = summary.ProjectName
		for _, b := range summary.Budgets {
			out.Budgets = append(out.Budgets, s.budgetRow(b.Category, b.BudgetAmount, b.UsedAmount))
			total = total.Add(b.BudgetAmount)
			used = used.Add(b.UsedAmount)
		}
	}
	out.Totals = s.budgetRow("合计", total, used)

	items := load(ctx, s, fmt.Sprintf("cost_items:%d", projectID), fetchAll(func(ctx context.Context, p model.ListParams) ([]model.CostItem, envelope.Meta, error) {
		return s.c.Cost.Items(ctx, projectID, p)
	}))
	rows := make([]CostItemRow, 0, len(items.Data))
	for _, it := range items.Data {
		rows = append(rows, CostItemRow{
			CostItem:     it,
			AmountText:   display.FormatCurrency(it.Amount),
			OccurredText: display.Date(it.OccurredAt),
		})
	}
	out.Items = listview.Apply(rows, q, costItemSpec)
	out.ItemsError = items.Error
	return out, fatal(items.Err)
}

func (s *Service) budgetRow(category string, budget, used decimal.Decimal) BudgetRow {
	rate := display.UsageRate(used, budget)
	level := display.UsageLevel(rate)
	remaining := budget.Sub(used)
	return BudgetRow{
		Category:      category,
		Budget:        budget,
		Used:          used,
		Remaining:     remaining,
		UsageRate:     rate,
		Level:         level,
		Badge:         s.status.Badge(statusreg.DomainUsageLevel, level),
		BudgetText:    display.FormatCurrency(budget),
		UsedText:      display.FormatCurrency(used),
		RemainingText: display.FormatCurrency(remaining),
		UsageText:     display.FormatPercent(rate.InexactFloat64(), 1),
	}
}
