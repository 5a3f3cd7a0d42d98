package resource

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// Branch statuses reported by Fanout.
const (
	BranchOK      = "ok"
	BranchError   = "error"
	BranchTimeout = "timeout"
)

// Branch is one independent sub-load of a fan-out.
type Branch struct {
	Name string
	run  func(ctx context.Context) error
	zero func()
}

// NewBranch fetches a collection into dst. On failure dst is set to an
// empty slice.
func NewBranch[T any](name string, dst *[]T, fetch func(ctx context.Context) ([]T, error)) Branch {
	*dst = []T{}
	return Branch{
		Name: name,
		run: func(ctx context.Context) error {
			items, err := fetch(ctx)
			if err != nil {
				return err
			}
			if items != nil {
				*dst = items
			}
			return nil
		},
		zero: func() { *dst = []T{} },
	}
}

// NewObjectBranch fetches a single record into dst. On failure dst is nil.
func NewObjectBranch[T any](name string, dst **T, fetch func(ctx context.Context) (T, error)) Branch {
	*dst = nil
	return Branch{
		Name: name,
		run: func(ctx context.Context) error {
			v, err := fetch(ctx)
			if err != nil {
				return err
			}
			*dst = &v
			return nil
		},
		zero: func() { *dst = nil },
	}
}

// BranchResult is the per-branch outcome of a fan-out.
type BranchResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`

	Err error `json:"-"`
}

// Report maps branch names to their results.
type Report map[string]BranchResult

// OK reports whether the named branch succeeded.
func (r Report) OK(name string) bool {
	return r[name].Status == BranchOK
}

// FirstError returns the first error matching code, in any branch.
func (r Report) FirstError(code string) error {
	for _, res := range r {
		if res.Err != nil && model.IsCode(res.Err, code) {
			return res.Err
		}
	}
	return nil
}

// Fanout runs branches in parallel, each with its own timeout and error
// capture. A failed branch never fails the others.
type Fanout struct {
	timeoutPerBranch time.Duration
	opts             Options
}

// NewFanout creates a Fanout. A non-positive timeout defaults to 5s.
func NewFanout(timeoutPerBranch time.Duration, opts Options) *Fanout {
	if timeoutPerBranch <= 0 {
		timeoutPerBranch = 5 * time.Second
	}
	return &Fanout{timeoutPerBranch: timeoutPerBranch, opts: opts}
}

type branchOutcome struct {
	name   string
	result BranchResult
}

// Run executes all branches and waits for every one of them to return.
func (f *Fanout) Run(ctx context.Context, branches ...Branch) Report {
	report := make(Report, len(branches))
	if len(branches) == 0 {
		return report
	}

	ch := make(chan branchOutcome, len(branches))
	var wg sync.WaitGroup

	for _, b := range branches {
		wg.Add(1)
		go func(b Branch) {
			defer wg.Done()
			ch <- branchOutcome{name: b.Name, result: f.runBranch(ctx, b)}
		}(b)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	for o := range ch {
		report[o.name] = o.result
	}
	return report
}

func (f *Fanout) runBranch(ctx context.Context, b Branch) BranchResult {
	bctx, cancel := context.WithTimeout(ctx, f.timeoutPerBranch)
	defer cancel()

	bctx, span := observability.StartSpan(bctx, "resource.fanout.branch",
		observability.AttrBranch.String(b.Name))
	err := b.run(bctx)
	observability.EndSpanWithError(span, err)

	if err == nil {
		f.opts.Metrics.RecordFanoutBranch(b.Name, BranchOK)
		return BranchResult{Status: BranchOK}
	}

	b.zero()
	status := BranchError
	if errors.Is(bctx.Err(), context.DeadlineExceeded) || model.IsCode(err, model.ErrBackendTimeout) {
		status = BranchTimeout
	}
	observability.RequestLogger(ctx, f.opts.Logger).Warn("fan-out branch failed",
		zap.String("branch", b.Name),
		zap.String("status", status),
		zap.Error(err),
	)
	f.opts.Metrics.RecordFanoutBranch(b.Name, status)
	return BranchResult{Status: status, Error: model.UserMessage(err), Err: err}
}
