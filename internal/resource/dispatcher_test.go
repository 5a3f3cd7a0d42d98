package resource

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/command"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

type reportForm struct {
	RequiredQty float64 `json:"required_qty"`
	ShortageQty float64 `json:"shortage_qty"`
}

type countingBackend struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (b *countingBackend) do(context.Context, reportForm) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return b.err
}

func (b *countingBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func reportAction(b *countingBackend) Action[reportForm] {
	return Action[reportForm]{
		Name: "shortage.report",
		Validate: func(p reportForm) []model.FieldError {
			if p.ShortageQty > p.RequiredQty {
				return []model.FieldError{{Field: "shortage_qty", Code: "LTEFIELD", Message: "缺料数量不能大于需求数量"}}
			}
			return nil
		},
		Do: b.do,
	}
}

type reloadCounter struct {
	n int
}

func (r *reloadCounter) reload(context.Context) any {
	r.n++
	return map[string]any{"reloaded": r.n}
}

func TestDispatch_validationFailureMakesNoCall(t *testing.T) {
	opts, m := testOptions()
	d := NewDispatcher(opts)
	backend := &countingBackend{}
	reloads := &reloadCounter{}

	out, err := Dispatch(context.Background(), d, reportAction(backend),
		Request[reportForm]{Key: "report", Payload: reportForm{RequiredQty: 5, ShortageQty: 6}}, reloads.reload)

	if !model.IsCode(err, model.ErrValidationError) {
		t.Fatalf("err = %v, want VALIDATION_ERROR", err)
	}
	if !out.DialogOpen || len(out.FieldErrors) != 1 || out.FieldErrors[0].Field != "shortage_qty" {
		t.Errorf("outcome = %+v", out)
	}
	if backend.Calls() != 0 || reloads.n != 0 {
		t.Errorf("calls = %d, reloads = %d; want 0, 0", backend.Calls(), reloads.n)
	}
	if got := testutil.ToFloat64(m.ValidationFailuresTotal.WithLabelValues("shortage.report")); got != 1 {
		t.Errorf("validation failures = %v, want 1", got)
	}
}

func TestDispatch_successClosesDialogAndReloadsOnce(t *testing.T) {
	opts, m := testOptions()
	d := NewDispatcher(opts)
	backend := &countingBackend{}
	reloads := &reloadCounter{}

	out, err := Dispatch(context.Background(), d, reportAction(backend),
		Request[reportForm]{Key: "report", Payload: reportForm{RequiredQty: 5, ShortageQty: 5}}, reloads.reload)

	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if out.DialogOpen {
		t.Error("DialogOpen = true after success")
	}
	if backend.Calls() != 1 || reloads.n != 1 {
		t.Errorf("calls = %d, reloads = %d; want 1, 1", backend.Calls(), reloads.n)
	}
	if data, _ := out.Data.(map[string]any); data["reloaded"] != 1 {
		t.Errorf("Data = %v, want refreshed page", out.Data)
	}
	if got := testutil.ToFloat64(m.ActionDispatchesTotal.WithLabelValues("shortage.report", observability.OutcomeSuccess)); got != 1 {
		t.Errorf("dispatches{success} = %v, want 1", got)
	}
	if d.InFlight("report") {
		t.Error("in-flight key should be released")
	}
}

func TestDispatch_failureKeepsDialogOpenWithDetail(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"backend detail", model.NewBackendError(400, "物料已被占用"), "物料已被占用"},
		{"message fallback", errors.New("connection reset by peer"), "connection reset by peer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, _ := testOptions()
			d := NewDispatcher(opts)
			backend := &countingBackend{err: tt.err}
			reloads := &reloadCounter{}

			out, err := Dispatch(context.Background(), d, reportAction(backend),
				Request[reportForm]{Key: "report", Payload: reportForm{RequiredQty: 2, ShortageQty: 1}}, reloads.reload)

			if err == nil {
				t.Fatal("Dispatch() should return the action error")
			}
			if !out.DialogOpen || out.Message != tt.wantMsg {
				t.Errorf("outcome = %+v, want open dialog with %q", out, tt.wantMsg)
			}
			if reloads.n != 0 {
				t.Errorf("reloads = %d, want 0 after failure", reloads.n)
			}
		})
	}
}

func TestDispatch_inFlightGuard(t *testing.T) {
	opts, _ := testOptions()
	d := NewDispatcher(opts)

	started := make(chan struct{})
	release := make(chan struct{})
	slow := Action[string]{
		Name: "arrival.receive",
		Do: func(context.Context, string) error {
			close(started)
			<-release
			return nil
		},
	}

	done := make(chan error, 1)
	go func() {
		_, err := Dispatch(context.Background(), d, slow, Request[string]{Key: "arrival:1:receive"}, nil)
		done <- err
	}()
	<-started

	if !d.InFlight("arrival:1:receive") {
		t.Error("InFlight() = false while running")
	}
	out, err := Dispatch(context.Background(), d, slow, Request[string]{Key: "arrival:1:receive"}, nil)
	if !model.IsCode(err, model.ErrActionInFlight) || !out.DialogOpen {
		t.Errorf("second dispatch = %+v, %v; want ACTION_IN_FLIGHT", out, err)
	}

	other := Action[string]{Name: "arrival.receive", Do: func(context.Context, string) error { return nil }}
	if _, err := Dispatch(context.Background(), d, other, Request[string]{Key: "arrival:2:receive"}, nil); err != nil {
		t.Errorf("different key should not be blocked: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first dispatch error = %v", err)
	}
}

func TestDispatch_idempotentReplay(t *testing.T) {
	opts, m := testOptions()
	store := command.NewMemoryIdempotencyStore()
	d := NewDispatcher(opts, WithIdempotencyStore(store, time.Hour))
	backend := &countingBackend{}
	reloads := &reloadCounter{}
	req := Request[reportForm]{Key: "report", IdempotencyKey: "idem-1", Payload: reportForm{RequiredQty: 3, ShortageQty: 1}}

	first, err := Dispatch(context.Background(), d, reportAction(backend), req, reloads.reload)
	if err != nil {
		t.Fatalf("first Dispatch() error = %v", err)
	}
	second, err := Dispatch(context.Background(), d, reportAction(backend), req, reloads.reload)
	if err != nil {
		t.Fatalf("replayed Dispatch() error = %v", err)
	}
	if backend.Calls() != 1 || reloads.n != 1 {
		t.Errorf("calls = %d, reloads = %d; replay must not reach the backend", backend.Calls(), reloads.n)
	}
	if second.DialogOpen != first.DialogOpen {
		t.Errorf("replayed outcome = %+v, want %+v", second, first)
	}
	if got := testutil.ToFloat64(m.ActionDispatchesTotal.WithLabelValues("shortage.report", observability.OutcomeReplayed)); got != 1 {
		t.Errorf("dispatches{replayed} = %v, want 1", got)
	}

	req.Payload.ShortageQty = 2
	_, err = Dispatch(context.Background(), d, reportAction(backend), req, reloads.reload)
	if !model.IsCode(err, model.ErrConflict) {
		t.Errorf("reused key with new payload: err = %v, want CONFLICT", err)
	}
}

func TestDispatch_reusedKeyAcrossCallersAndRecords(t *testing.T) {
	opts, _ := testOptions()
	d := NewDispatcher(opts, WithIdempotencyStore(command.NewMemoryIdempotencyStore(), time.Hour))
	backend := &countingBackend{}
	payload := reportForm{RequiredQty: 3, ShortageQty: 1}

	alice := model.WithRequestContext(context.Background(), &model.RequestContext{SubjectID: "alice", TenantID: "t1", Token: "a"})
	bob := model.WithRequestContext(context.Background(), &model.RequestContext{SubjectID: "bob", TenantID: "t2", Token: "b"})

	calls := []struct {
		ctx context.Context
		key string
	}{
		{alice, "substitution:7:execute"},
		{bob, "substitution:8:execute"},
		{bob, "substitution:7:execute"},
		{alice, "substitution:8:execute"},
	}
	for _, c := range calls {
		req := Request[reportForm]{Key: c.key, IdempotencyKey: "k-1", Payload: payload}
		out, err := Dispatch(c.ctx, d, reportAction(backend), req, func(context.Context) any { return c.key })
		if err != nil {
			t.Fatalf("Dispatch(%s) error = %v", c.key, err)
		}
		if out.Data != c.key {
			t.Errorf("Dispatch(%s) data = %v, got another caller's outcome", c.key, out.Data)
		}
	}
	if backend.Calls() != len(calls) {
		t.Errorf("calls = %d, want %d; every caller and record must reach the backend", backend.Calls(), len(calls))
	}

	req := Request[reportForm]{Key: "substitution:7:execute", IdempotencyKey: "k-1", Payload: payload}
	if _, err := Dispatch(alice, d, reportAction(backend), req, nil); err != nil {
		t.Fatalf("replay error = %v", err)
	}
	if backend.Calls() != len(calls) {
		t.Errorf("calls = %d; same caller, record and key must replay", backend.Calls())
	}
}

func TestDispatch_failedOutcomeNotCached(t *testing.T) {
	opts, _ := testOptions()
	store := command.NewMemoryIdempotencyStore()
	d := NewDispatcher(opts, WithIdempotencyStore(store, time.Hour))
	backend := &countingBackend{err: model.NewBackendError(409, "状态已变更")}
	req := Request[reportForm]{IdempotencyKey: "idem-2", Payload: reportForm{RequiredQty: 1, ShortageQty: 1}}

	Dispatch(context.Background(), d, reportAction(backend), req, nil)
	Dispatch(context.Background(), d, reportAction(backend), req, nil)

	if backend.Calls() != 2 {
		t.Errorf("calls = %d, failed outcomes must not be cached", backend.Calls())
	}
	if store.Len() != 0 {
		t.Errorf("store.Len() = %d, want 0", store.Len())
	}
}
