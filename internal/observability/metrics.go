package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	backendDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	bodySizeBuckets        = []float64{100, 1024, 10240, 102400, 1048576}
)

// Action dispatch outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
	OutcomeInFlight = "in_flight"
	OutcomeReplayed = "replayed"
)

// Metrics holds all Prometheus metric instruments for the BFF.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Page lifecycle metrics
	LoaderLoadsTotal         *prometheus.CounterVec
	LoaderStaleDiscardsTotal *prometheus.CounterVec
	ActionDispatchesTotal    *prometheus.CounterVec
	ActionDuration           *prometheus.HistogramVec
	ValidationFailuresTotal  *prometheus.CounterVec
	FanoutBranchesTotal      *prometheus.CounterVec
	OptimisticPending        prometheus.Gauge

	// Backend invocation metrics
	BackendRequestsTotal       *prometheus.CounterVec
	BackendRequestDuration     *prometheus.HistogramVec
	BackendCircuitBreakerState *prometheus.GaugeVec
	BackendRetriesTotal        *prometheus.CounterVec

	// System metrics
	SessionsStartedTotal     *prometheus.CounterVec
	SessionsEvictedTotal     prometheus.Counter
	StatusDomainsLoaded      prometheus.Gauge
	OpenAPIOperationsIndexed *prometheus.GaugeVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "erpbff_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "erpbff_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "erpbff_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "erpbff_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Page lifecycle
		LoaderLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "erpbff_loader_loads_total",
			Help: "Total number of resource loads by result.",
		}, []string{"resource", "status"}),
		LoaderStaleDiscardsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "erpbff_loader_stale_discards_total",
			Help: "Total number of load responses discarded because a newer load superseded them.",
		}, []string{"resource"}),
		ActionDispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "erpbff_action_dispatches_total",
			Help: "Total number of action dispatches by outcome.",
		}, []string{"action", "outcome"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "erpbff_action_duration_seconds",
			Help:    "Action dispatch duration in seconds, reload included.",
			Buckets: backendDurationBuckets,
		}, []string{"action"}),
		ValidationFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "erpbff_validation_failures_total",
			Help: "Total number of form validation failures.",
		}, []string{"action"}),
		FanoutBranchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "erpbff_fanout_branches_total",
			Help: "Total number of fan-out branches by result.",
		}, []string{"branch", "status"}),
		OptimisticPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "erpbff_optimistic_pending",
			Help: "Number of counters currently shown as pending sync.",
		}),

		// Backend
		BackendRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "erpbff_backend_requests_total",
			Help: "Total number of backend service requests.",
		}, []string{"service_id", "operation_id", "status"}),
		BackendRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "erpbff_backend_request_duration_seconds",
			Help:    "Backend request duration in seconds.",
			Buckets: backendDurationBuckets,
		}, []string{"service_id"}),
		BackendCircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "erpbff_backend_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"service_id"}),
		BackendRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "erpbff_backend_retries_total",
			Help: "Total number of backend request retries.",
		}, []string{"service_id"}),

		// System
		SessionsStartedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "erpbff_sessions_started_total",
			Help: "Total sessions started, split by demo mode.",
		}, []string{"demo"}),
		SessionsEvictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "erpbff_sessions_evicted_total",
			Help: "Total sessions evicted after a backend 401.",
		}),
		StatusDomainsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "erpbff_status_domains_loaded",
			Help: "Number of status domains in the active registry snapshot.",
		}),
		OpenAPIOperationsIndexed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "erpbff_openapi_operations_indexed",
			Help: "Number of indexed OpenAPI operations.",
		}, []string{"service_id"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		m.LoaderLoadsTotal,
		m.LoaderStaleDiscardsTotal,
		m.ActionDispatchesTotal,
		m.ActionDuration,
		m.ValidationFailuresTotal,
		m.FanoutBranchesTotal,
		m.OptimisticPending,
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.BackendCircuitBreakerState,
		m.BackendRetriesTotal,
		m.SessionsStartedTotal,
		m.SessionsEvictedTotal,
		m.StatusDomainsLoaded,
		m.OpenAPIOperationsIndexed,
	)

	return m
}

// --- Recording helpers ---
//
// All helpers are nil-safe so components can run without a metrics sink
// (tests, tools).

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	if m == nil {
		return
	}
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// RecordLoad records the result of a resource load ("ok" or "error").
func (m *Metrics) RecordLoad(resource, status string) {
	if m == nil {
		return
	}
	m.LoaderLoadsTotal.WithLabelValues(resource, status).Inc()
}

// RecordStaleDiscard records a load response dropped by request fencing.
func (m *Metrics) RecordStaleDiscard(resource string) {
	if m == nil {
		return
	}
	m.LoaderStaleDiscardsTotal.WithLabelValues(resource).Inc()
}

// RecordActionDispatch records an action dispatch outcome.
func (m *Metrics) RecordActionDispatch(action, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ActionDispatchesTotal.WithLabelValues(action, outcome).Inc()
	m.ActionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordValidationFailure records a rejected form submission.
func (m *Metrics) RecordValidationFailure(action string) {
	if m == nil {
		return
	}
	m.ValidationFailuresTotal.WithLabelValues(action).Inc()
}

// RecordFanoutBranch records the status of one fan-out branch.
func (m *Metrics) RecordFanoutBranch(branch, status string) {
	if m == nil {
		return
	}
	m.FanoutBranchesTotal.WithLabelValues(branch, status).Inc()
}

// SetOptimisticPending sets the number of counters awaiting confirmation.
func (m *Metrics) SetOptimisticPending(n int) {
	if m == nil {
		return
	}
	m.OptimisticPending.Set(float64(n))
}

// RecordBackendRequest records a backend service request.
func (m *Metrics) RecordBackendRequest(serviceID, operationID string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequestsTotal.WithLabelValues(serviceID, operationID, strconv.Itoa(status)).Inc()
	m.BackendRequestDuration.WithLabelValues(serviceID).Observe(duration.Seconds())
}

// SetBackendCircuitBreakerState sets the circuit breaker state for a service.
// State: 0=closed, 1=half-open, 2=open.
func (m *Metrics) SetBackendCircuitBreakerState(serviceID string, state float64) {
	if m == nil {
		return
	}
	m.BackendCircuitBreakerState.WithLabelValues(serviceID).Set(state)
}

// RecordBackendRetry records a backend request retry.
func (m *Metrics) RecordBackendRetry(serviceID string) {
	if m == nil {
		return
	}
	m.BackendRetriesTotal.WithLabelValues(serviceID).Inc()
}

// RecordSessionStart records a new session.
func (m *Metrics) RecordSessionStart(demo bool) {
	if m == nil {
		return
	}
	m.SessionsStartedTotal.WithLabelValues(strconv.FormatBool(demo)).Inc()
}

// RecordSessionEvicted records a session dropped after a backend 401.
func (m *Metrics) RecordSessionEvicted() {
	if m == nil {
		return
	}
	m.SessionsEvictedTotal.Inc()
}

// SetStatusDomainsLoaded sets the number of status domains in the registry.
func (m *Metrics) SetStatusDomainsLoaded(count int) {
	if m == nil {
		return
	}
	m.StatusDomainsLoaded.Set(float64(count))
}

// SetOpenAPIOperationsIndexed sets the number of indexed OpenAPI operations.
func (m *Metrics) SetOpenAPIOperationsIndexed(serviceID string, count int) {
	if m == nil {
		return
	}
	m.OpenAPIOperationsIndexed.WithLabelValues(serviceID).Set(float64(count))
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}
		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start), reqSize, sw.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	pattern = strings.ReplaceAll(pattern, "/*/", "/")
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	w.written = true
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
