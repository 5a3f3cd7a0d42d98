package page

import (
	"context"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/display"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/listview"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const (
	pageWorkload  = "workload"
	pageConflicts = "workload_conflicts"
)

// EngineerRow is an engineer with the computed workload.
type EngineerRow struct {
	model.EngineerMember
	Workload     int         `json:"workload"`
	WorkloadText string      `json:"workload_text"`
	Bucket       string      `json:"bucket"`
	Badge        model.Badge `json:"badge"`
	Conflicts    int         `json:"conflict_count"`
}

// ConflictRow is a backend-detected scheduling conflict.
type ConflictRow struct {
	model.WorkloadConflict
	Badge        model.Badge `json:"badge"`
	DetectedText string      `json:"detected_at_text,omitempty"`
}

// WorkloadBoard is the engineer workload screen.
type WorkloadBoard struct {
	LoadState
	Engineers      listview.Result[EngineerRow] `json:"engineers"`
	Buckets        map[string]int               `json:"buckets"`
	Conflicts      []ConflictRow                `json:"conflicts"`
	ConflictsError string                       `json:"conflicts_error,omitempty"`
}

var engineerSpec = listview.Spec[EngineerRow]{
	Keywords: []func(EngineerRow) string{
		func(r EngineerRow) string { return r.Name },
		func(r EngineerRow) string { return r.Department },
		func(r EngineerRow) string { return r.Role },
	},
	Category: func(r EngineerRow) string { return r.Bucket },
	Value:    func(r EngineerRow) float64 { return float64(r.Workload) },
	Sorts: map[string]func(a, b EngineerRow) bool{
		"workload": func(a, b EngineerRow) bool { return a.Workload < b.Workload },
		"name":     func(a, b EngineerRow) bool { return a.Name < b.Name },
	},
}

// WorkloadBoard loads the engineers and the conflicts the backend detected.
// Conflicts are rendered as received; the board does not recompute them.
func (s *Service) WorkloadBoard(ctx context.Context, q listview.Query) (WorkloadBoard, error) {
	st := load(ctx, s, pageWorkload, fetchAll(s.c.Engineering.Workload))
	if err := fatal(st.Err); err != nil {
		return WorkloadBoard{LoadState: stateOf(st), Buckets: map[string]int{}, Conflicts: []ConflictRow{}}, err
	}
	cst := load(ctx, s, pageConflicts, fetchAll(s.c.Engineering.Conflicts))

	perUser := countBy(cst.Data, func(c model.WorkloadConflict) int64 { return c.UserID })
	rows := make([]EngineerRow, 0, len(st.Data))
	for _, m := range st.Data {
		if m.AssignedProjects == nil {
			m.AssignedProjects = []model.AssignedProject{}
		}
		w := display.CalculateWorkload(m)
		bucket := display.WorkloadBucket(float64(w))
		rows = append(rows, EngineerRow{
			EngineerMember: m,
			Workload:       w,
			WorkloadText:   display.FormatPercent(float64(w), 0),
			Bucket:         bucket,
			Badge:          s.status.Badge(statusreg.DomainWorkload, bucket),
			Conflicts:      perUser[m.UserID],
		})
	}

	conflicts := make([]ConflictRow, 0, len(cst.Data))
	for _, c := range cst.Data {
		conflicts = append(conflicts, ConflictRow{
			WorkloadConflict: c,
			Badge:            s.status.Badge(statusreg.DomainWarningLevel, c.WarningLevel),
			DetectedText:     display.DateTime(c.DetectedAt),
		})
	}

	return WorkloadBoard{
		LoadState:      stateOf(st),
		Engineers:      listview.Apply(rows, q, engineerSpec),
		Buckets:        countBy(rows, func(r EngineerRow) string { return r.Bucket }),
		Conflicts:      conflicts,
		ConflictsError: cst.Error,
	}, fatal(cst.Err)
}
