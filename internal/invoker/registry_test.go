package invoker

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

type stubInvoker struct {
	demo   bool
	result model.InvocationResult
	calls  int
}

func (s *stubInvoker) Supports(rctx *model.RequestContext, _ model.Route) bool {
	return rctx != nil && rctx.DemoMode == s.demo
}

func (s *stubInvoker) Invoke(context.Context, *model.RequestContext, model.Route, model.InvocationInput) (model.InvocationResult, error) {
	s.calls++
	return s.result, nil
}

func (s *stubInvoker) Stream(context.Context, *model.RequestContext, model.Route, model.InvocationInput) (model.RawResult, error) {
	s.calls++
	return model.RawResult{StatusCode: s.result.StatusCode, Body: io.NopCloser(strings.NewReader("ok"))}, nil
}

var arrivalsRoute = model.Route{ServiceID: "shortage", OperationID: "listArrivals", Method: "GET", Path: "/shortage/arrivals"}

func TestRegistry_routesByDemoMode(t *testing.T) {
	demo := &stubInvoker{demo: true, result: model.InvocationResult{StatusCode: 200}}
	live := &stubInvoker{demo: false, result: model.InvocationResult{StatusCode: 201}}
	r := NewRegistry(demo, live)

	res, err := r.Invoke(context.Background(), &model.RequestContext{SubjectID: "u1", DemoMode: true}, arrivalsRoute, model.InvocationInput{})
	if err != nil {
		t.Fatalf("Invoke(demo) error = %v", err)
	}
	if res.StatusCode != 200 || demo.calls != 1 || live.calls != 0 {
		t.Errorf("demo call routed wrong: status=%d demo=%d live=%d", res.StatusCode, demo.calls, live.calls)
	}

	res, err = r.Invoke(context.Background(), &model.RequestContext{SubjectID: "u1", Token: "t"}, arrivalsRoute, model.InvocationInput{})
	if err != nil {
		t.Fatalf("Invoke(live) error = %v", err)
	}
	if res.StatusCode != 201 || live.calls != 1 {
		t.Errorf("live call routed wrong: status=%d live=%d", res.StatusCode, live.calls)
	}
}

func TestRegistry_stream(t *testing.T) {
	live := &stubInvoker{result: model.InvocationResult{StatusCode: 200}}
	r := NewRegistry(live)

	raw, err := r.Stream(context.Background(), &model.RequestContext{SubjectID: "u1"}, arrivalsRoute, model.InvocationInput{})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer raw.Body.Close()
	if raw.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", raw.StatusCode)
	}
}

func TestRegistry_noSupport(t *testing.T) {
	r := NewRegistry()
	if r.Supports(&model.RequestContext{}, arrivalsRoute) {
		t.Error("empty registry should not support anything")
	}
	if _, err := r.Invoke(context.Background(), &model.RequestContext{}, arrivalsRoute, model.InvocationInput{}); err == nil {
		t.Fatal("Invoke on empty registry should return error")
	}
	if _, err := r.Stream(context.Background(), nil, arrivalsRoute, model.InvocationInput{}); err == nil {
		t.Fatal("Stream on empty registry should return error")
	}

	r.Register(&stubInvoker{demo: true})
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	if r.Supports(&model.RequestContext{}, arrivalsRoute) {
		t.Error("demo-only registry should not support live callers")
	}
}
