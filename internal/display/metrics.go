package display

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// Workload buckets.
const (
	WorkloadLow        = "LOW"
	WorkloadNormal     = "NORMAL"
	WorkloadHigh       = "HIGH"
	WorkloadOverloaded = "OVERLOADED"
)

// Budget usage levels.
const (
	UsageNormal  = "normal"
	UsageWarning = "warning"
	UsageOver    = "over"
)

// Failure heat levels.
const (
	HeatNormal   = "NORMAL"
	HeatWarning  = "WARNING"
	HeatCritical = "CRITICAL"
)

// CalculateWorkload returns min(n*20, 100) where n counts the member's
// ACTIVE or DELAYED projects.
func CalculateWorkload(member model.EngineerMember) int {
	n := 0
	for _, p := range member.AssignedProjects {
		if p.Status == model.ProjectActive || p.Status == model.ProjectDelayed {
			n++
		}
	}
	return min(n*20, 100)
}

// WorkloadBucket maps a workload percentage to its bucket. Intervals are
// half-open: [0,30) LOW, [30,60) NORMAL, [60,80) HIGH, [80,∞) OVERLOADED.
// Negative values count as LOW.
func WorkloadBucket(v float64) string {
	switch {
	case v >= 80:
		return WorkloadOverloaded
	case v >= 60:
		return WorkloadHigh
	case v >= 30:
		return WorkloadNormal
	}
	return WorkloadLow
}

// UsageRate returns used/budget*100 rounded to two decimals, or zero for a
// non-positive budget.
func UsageRate(used, budget decimal.Decimal) decimal.Decimal {
	if !budget.IsPositive() {
		return decimal.Zero
	}
	return used.Div(budget).Mul(decimal.NewFromInt(100)).Round(2)
}

// UsageLevel classifies a usage rate: below 80 normal, below 100 warning,
// otherwise over.
func UsageLevel(rate decimal.Decimal) string {
	switch {
	case rate.GreaterThanOrEqual(decimal.NewFromInt(100)):
		return UsageOver
	case rate.GreaterThanOrEqual(decimal.NewFromInt(80)):
		return UsageWarning
	}
	return UsageNormal
}

// CooperationYears returns the number of calendar years between the
// earliest project start (or creation) date and now. Projects without a
// parseable date are ignored; the result is never negative.
func CooperationYears(projects []model.CustomerProject, now time.Time) int {
	var earliest time.Time
	for _, p := range projects {
		t := ParseTime(p.StartDate)
		if t.IsZero() {
			t = ParseTime(p.CreatedAt)
		}
		if t.IsZero() {
			continue
		}
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	if earliest.IsZero() {
		return 0
	}
	return max(now.Year()-earliest.Year(), 0)
}

// TotalContractAmount sums the contract amounts of projects.
func TotalContractAmount(projects []model.CustomerProject) decimal.Decimal {
	total := decimal.Zero
	for _, p := range projects {
		total = total.Add(p.ContractAmount)
	}
	return total
}

// AverageSatisfaction returns the mean overall score rounded to one
// decimal, or zero without surveys.
func AverageSatisfaction(surveys []model.SatisfactionSurvey) float64 {
	if len(surveys) == 0 {
		return 0
	}
	var sum float64
	for _, s := range surveys {
		sum += s.OverallScore
	}
	return round1(sum / float64(len(surveys)))
}

// SchedulerStats aggregates the run counters of all jobs.
type SchedulerStats struct {
	Total        int     `json:"total"`
	TotalSuccess int     `json:"total_success"`
	TotalFailure int     `json:"total_failure"`
	SuccessRate  float64 `json:"success_rate"`
}

// AggregateSchedulerStats sums job counters. SuccessRate is
// success/(success+failure)*100 rounded to one decimal, zero without runs.
func AggregateSchedulerStats(metrics []model.SchedulerJobMetric) SchedulerStats {
	stats := SchedulerStats{Total: len(metrics)}
	for _, m := range metrics {
		stats.TotalSuccess += m.SuccessCount
		stats.TotalFailure += m.FailureCount
	}
	if runs := stats.TotalSuccess + stats.TotalFailure; runs > 0 {
		stats.SuccessRate = round1(float64(stats.TotalSuccess) / float64(runs) * 100)
	}
	return stats
}

// HeatEntry is one job's failure rate in the failure heat list.
type HeatEntry struct {
	JobID       string  `json:"job_id"`
	JobName     string  `json:"job_name,omitempty"`
	Runs        int     `json:"runs"`
	Failures    int     `json:"failures"`
	FailureRate float64 `json:"failure_rate"`
	Level       string  `json:"level"`
}

// FailureHeat ranks jobs by failure rate, highest first. Rates below 10%
// are NORMAL, below 30% WARNING, otherwise CRITICAL.
func FailureHeat(metrics []model.SchedulerJobMetric) []HeatEntry {
	out := make([]HeatEntry, 0, len(metrics))
	for _, m := range metrics {
		runs := m.SuccessCount + m.FailureCount
		var rate float64
		if runs > 0 {
			rate = round1(float64(m.FailureCount) / float64(runs) * 100)
		}
		out = append(out, HeatEntry{
			JobID:       m.JobID,
			JobName:     m.JobName,
			Runs:        runs,
			Failures:    m.FailureCount,
			FailureRate: rate,
			Level:       heatLevel(rate),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FailureRate != out[j].FailureRate {
			return out[i].FailureRate > out[j].FailureRate
		}
		return out[i].JobID < out[j].JobID
	})
	return out
}

func heatLevel(rate float64) string {
	switch {
	case rate >= 30:
		return HeatCritical
	case rate >= 10:
		return HeatWarning
	}
	return HeatNormal
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
