package page

import (
	"context"
	"strings"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/display"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/listview"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const pageArrivals = "arrivals"

// ArrivalRow is an arrival decorated for the arrivals table.
type ArrivalRow struct {
	model.Arrival
	Badge        model.Badge         `json:"badge"`
	Actions      []model.ActionState `json:"actions"`
	ExpectedText string              `json:"expected_date_text"`
	ActualText   string              `json:"actual_date_text,omitempty"`
	Outstanding  float64             `json:"outstanding_qty"`
}

// ArrivalsPage is the arrival tracking screen.
type ArrivalsPage struct {
	LoadState
	List    listview.Result[ArrivalRow] `json:"list"`
	Summary map[string]int              `json:"summary"`
}

var arrivalSpec = listview.Spec[ArrivalRow]{
	Keywords: []func(ArrivalRow) string{
		func(r ArrivalRow) string { return r.ArrivalNo },
		func(r ArrivalRow) string { return r.MaterialCode },
		func(r ArrivalRow) string { return r.MaterialName },
		func(r ArrivalRow) string { return r.SupplierName },
		func(r ArrivalRow) string { return r.ProjectName },
	},
	Category: func(r ArrivalRow) string { return r.Status },
	Value:    func(r ArrivalRow) float64 { return float64(r.DelayDays) },
	Sorts: map[string]func(a, b ArrivalRow) bool{
		"expected_date": func(a, b ArrivalRow) bool { return a.ExpectedDate < b.ExpectedDate },
		"delay_days":    func(a, b ArrivalRow) bool { return a.DelayDays < b.DelayDays },
		"arrival_no":    func(a, b ArrivalRow) bool { return a.ArrivalNo < b.ArrivalNo },
	},
}

// Arrivals loads every arrival and applies q locally. Summary counts all
// loaded arrivals per status, before filtering.
func (s *Service) Arrivals(ctx context.Context, q listview.Query) (ArrivalsPage, error) {
	st := load(ctx, s, pageArrivals, fetchAll(s.c.Shortage.ListArrivals))

	rows := make([]ArrivalRow, 0, len(st.Data))
	for _, a := range st.Data {
		rows = append(rows, s.arrivalRow(a))
	}
	summary := countBy(rows, func(r ArrivalRow) string { return r.Status })
	summary["total"] = len(rows)

	return ArrivalsPage{
		LoadState: stateOf(st),
		List:      listview.Apply(rows, q, arrivalSpec),
		Summary:   summary,
	}, fatal(st.Err)
}

func (s *Service) arrivalRow(a model.Arrival) ArrivalRow {
	return ArrivalRow{
		Arrival:      a,
		Badge:        s.status.Badge(statusreg.DomainArrival, a.Status),
		Actions:      s.status.Actions(statusreg.DomainArrival, a.Status, "receive", "follow_up"),
		ExpectedText: display.Date(a.ExpectedDate),
		ActualText:   display.Date(a.ActualDate),
		Outstanding:  max(a.ExpectedQty-a.ReceivedQty, 0),
	}
}

// ArrivalExport returns every arrival matching q, unpaginated, for a
// spreadsheet download.
func (s *Service) ArrivalExport(ctx context.Context, q listview.Query) ([]ArrivalRow, error) {
	items, meta, err := fetchAll(s.c.Shortage.ListArrivals)(ctx)
	if err != nil {
		return nil, err
	}
	s.warnTruncated(ctx, pageArrivals, len(items), meta)
	rows := make([]ArrivalRow, 0, len(items))
	for _, a := range items {
		rows = append(rows, s.arrivalRow(a))
	}
	return listview.Select(rows, q, arrivalSpec), nil
}

// ReceiveArrival confirms receipt of an arrival and returns the refreshed
// page.
func (s *Service) ReceiveArrival(ctx context.Context, id int64, req resource.Request[model.ReceiveArrivalForm], q listview.Query) (model.ActionOutcome, error) {
	return run(ctx, s, "arrival.receive", actionKey("arrival", id, "receive"), req,
		func(ctx context.Context, form model.ReceiveArrivalForm) error {
			return s.c.Shortage.ReceiveArrival(ctx, id, form)
		},
		s.reloadArrivals(q))
}

// FollowUpArrival records a follow-up with the supplier of a late arrival.
func (s *Service) FollowUpArrival(ctx context.Context, id int64, req resource.Request[model.FollowUpForm], q listview.Query) (model.ActionOutcome, error) {
	req.Payload.Content = strings.TrimSpace(req.Payload.Content)
	return run(ctx, s, "arrival.follow_up", actionKey("arrival", id, "follow_up"), req,
		func(ctx context.Context, form model.FollowUpForm) error {
			return s.c.Shortage.FollowUpArrival(ctx, id, form)
		},
		s.reloadArrivals(q))
}

func (s *Service) reloadArrivals(q listview.Query) resource.ReloadFunc {
	return func(ctx context.Context) any {
		p, _ := s.Arrivals(ctx, q)
		return p
	}
}
