package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
)

// setupTestTracer installs an always-sampling provider backed by an
// in-memory exporter.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestInitTracing_disabledOrNone(t *testing.T) {
	for _, cfg := range []config.TracingConfig{
		{Enabled: false},
		{Enabled: true, Exporter: "none"},
	} {
		shutdown, err := InitTracing(context.Background(), cfg, "erp-bff", "1.0.0")
		if err != nil {
			t.Fatalf("InitTracing(%+v) error = %v", cfg, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("shutdown() error = %v", err)
		}
	}
}

func TestInitTracing_stdout(t *testing.T) {
	cfg := config.TracingConfig{Enabled: true, Exporter: "stdout", SamplingRate: 1.0}
	shutdown, err := InitTracing(context.Background(), cfg, "erp-bff", "1.0.0")
	if err != nil {
		t.Fatalf("InitTracing() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestInitTracing_unsupportedExporter(t *testing.T) {
	cfg := config.TracingConfig{Enabled: true, Exporter: "zipkin"}
	if _, err := InitTracing(context.Background(), cfg, "erp-bff", "1.0.0"); err == nil {
		t.Fatal("expected error for unsupported exporter")
	}
}

func TestStartSpan_createsSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, span := StartSpan(context.Background(), "page.load",
		AttrResource.String("arrivals"),
		AttrTenantID.String("tenant-1"),
	)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	attrs := spanAttrMap(spans[0])
	if attrs["erp.resource"] != "arrivals" {
		t.Errorf("erp.resource = %q, want arrivals", attrs["erp.resource"])
	}
	if attrs["erp.tenant_id"] != "tenant-1" {
		t.Errorf("erp.tenant_id = %q, want tenant-1", attrs["erp.tenant_id"])
	}
	if trace.SpanFromContext(ctx) != span {
		t.Error("context should carry the created span")
	}
}

func TestStartSpan_parentChild(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, parent := StartSpan(context.Background(), "customer360.fanout")
	_, child := StartSpan(ctx, "branch.projects", AttrBranch.String("projects"))
	child.End()
	parent.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].SpanContext.TraceID() != spans[1].SpanContext.TraceID() {
		t.Error("parent and child should share the same trace ID")
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("child parent span ID should match parent span ID")
	}
}

func TestEndSpanWithError(t *testing.T) {
	exporter := setupTestTracer(t)

	_, failed := StartSpan(context.Background(), "action.receive")
	EndSpanWithError(failed, errors.New("received quantity exceeds expected"))
	_, ok := StartSpan(context.Background(), "action.approve")
	EndSpanWithError(ok, nil)

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error || spans[0].Status.Description != "received quantity exceeds expected" {
		t.Errorf("failed span status = %+v", spans[0].Status)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected an error event on the failed span")
	}
	if spans[1].Status.Code == codes.Error {
		t.Error("status should not be Error when err is nil")
	}
}

func TestTraceAndSpanIDFromContext(t *testing.T) {
	setupTestTracer(t)

	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Errorf("TraceIDFromContext without span = %q, want empty", got)
	}

	ctx, span := StartSpan(context.Background(), "ids")
	defer span.End()

	if got := TraceIDFromContext(ctx); got != span.SpanContext().TraceID().String() {
		t.Errorf("TraceIDFromContext = %q", got)
	}
	if SpanIDFromContext(ctx) == "" {
		t.Error("SpanIDFromContext should return a non-empty span ID")
	}
}

func TestTracingMiddleware_createsServerSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/shortage/substitutions", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name != "POST /api/shortage/substitutions" {
		t.Errorf("span name = %q", s.Name)
	}
	if s.SpanKind != trace.SpanKindServer {
		t.Errorf("span kind = %v, want Server", s.SpanKind)
	}
	attrs := spanAttrMap(s)
	if attrs["http.request.method"] != "POST" {
		t.Errorf("http.request.method = %q", attrs["http.request.method"])
	}
	if attrs["http.response.status_code"] != "201" {
		t.Errorf("http.response.status_code = %q, want 201", attrs["http.response.status_code"])
	}
	if rec.Header().Get("Traceparent") == "" {
		t.Error("response should have Traceparent header")
	}
}

func TestTracingMiddleware_500_setsErrorStatus(t *testing.T) {
	exporter := setupTestTracer(t)

	handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/scheduler/dashboard", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code != codes.Error {
		t.Fatalf("expected one error span, got %+v", spans)
	}
}

func TestTracingMiddleware_extractsTraceparent(t *testing.T) {
	exporter := setupTestTracer(t)

	handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	traceID := "0af7651916cd43dd8448eb211c80319c"
	parentSpanID := "b7ad6b7169203331"
	req := httptest.NewRequest(http.MethodGet, "/api/engineers/workload", nil)
	req.Header.Set("Traceparent", "00-"+traceID+"-"+parentSpanID+"-01")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].SpanContext.TraceID().String() != traceID {
		t.Errorf("trace ID = %q, want %q", spans[0].SpanContext.TraceID().String(), traceID)
	}
	if spans[0].Parent.SpanID().String() != parentSpanID {
		t.Errorf("parent span ID = %q, want %q", spans[0].Parent.SpanID().String(), parentSpanID)
	}
}

func TestInjectTraceHeaders(t *testing.T) {
	setupTestTracer(t)

	ctx, span := StartSpan(context.Background(), "backend.invoke", AttrServiceID.String("shortage"))
	defer span.End()

	headers := http.Header{}
	InjectTraceHeaders(ctx, headers)
	if headers.Get("Traceparent") == "" {
		t.Error("InjectTraceHeaders should set Traceparent header")
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.TracingConfig
		force bool
	}{
		{"default rate", config.TracingConfig{}, false},
		{"always", config.TracingConfig{SamplingRate: 1.0}, false},
		{"ratio", config.TracingConfig{SamplingRate: 0.5}, false},
		{"clamped", config.TracingConfig{SamplingRate: 2.0}, false},
		{"force", config.TracingConfig{SamplingRate: 0.5, ForceSampleErrors: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler := newSampler(tt.cfg)
			if sampler.Description() == "" {
				t.Error("sampler description should not be empty")
			}
			_, isForce := sampler.(retrySampler)
			if isForce != tt.force {
				t.Errorf("retrySampler = %v, want %v", isForce, tt.force)
			}
		})
	}
}

func TestRetrySampler_samplesMarkedSpans(t *testing.T) {
	sampler := retrySampler{sdktrace.NeverSample()}

	marked := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		Name:          "backend.retry",
		Attributes:    []attribute.KeyValue{AttrForceSample.Bool(true)},
	})
	if marked.Decision != sdktrace.RecordAndSample {
		t.Errorf("marked decision = %v, want RecordAndSample", marked.Decision)
	}

	plain := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		Name:          "backend.invoke",
	})
	if plain.Decision != sdktrace.Drop {
		t.Errorf("plain decision = %v, want Drop", plain.Decision)
	}
}

// spanAttrMap converts a span's attributes to a map for easier assertion.
func spanAttrMap(s tracetest.SpanStub) map[string]string {
	m := make(map[string]string)
	for _, a := range s.Attributes {
		m[string(a.Key)] = a.Value.Emit()
	}
	return m
}
