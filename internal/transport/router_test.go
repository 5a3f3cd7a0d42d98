package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/session"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// testDeps returns Dependencies with sensible defaults for testing.
func testDeps() Dependencies {
	cfg := config.Defaults()
	cfg.Server.CORS.AllowedOrigins = []string{"https://erp.example.com"}
	cfg.Server.HandlerTimeout = 5 * time.Second
	reg := prometheus.NewRegistry()
	ok := func() bool { return true }
	return Dependencies{
		Config:    cfg,
		Sessions:  session.NewManager(session.NewMemoryStore(), cfg.Session, cfg.Demo, session.Options{}),
		Metrics:   observability.InitMetrics(reg),
		Gatherer:  reg,
		Readiness: observability.ReadinessChecks{StatusRegistryLoaded: ok, BackendsConfigured: ok},
	}
}

// --- Router tests ---

func TestNewRouter_health(t *testing.T) {
	r := NewRouter(testDeps())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ui/health", nil))

	if w.Code != 200 {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestNewRouter_ready(t *testing.T) {
	r := NewRouter(testDeps())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ui/ready", nil))

	if w.Code != 200 {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestNewRouter_notReady(t *testing.T) {
	deps := testDeps()
	deps.Readiness.StatusRegistryLoaded = func() bool { return false }
	r := NewRouter(deps)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ui/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestNewRouter_metrics(t *testing.T) {
	r := NewRouter(testDeps())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != 200 {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestNewRouter_authenticatedRoutes_areRegistered(t *testing.T) {
	// With auth rejecting all requests, all authenticated routes should
	// return 401, confirming they are registered and not 404/405.
	rejectAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, model.NewUnauthorizedError("rejected"))
		})
	}

	deps := testDeps()
	deps.Authenticate = rejectAuth
	r := NewRouter(deps)

	routes := []struct {
		method string
		path   string
	}{
		{"POST", "/api/session"},
		{"DELETE", "/api/session"},
		{"GET", "/api/shortage/arrivals"},
		{"GET", "/api/shortage/arrivals/export.xlsx"},
		{"GET", "/api/shortage/arrivals/export.csv"},
		{"POST", "/api/shortage/arrivals/1/receive"},
		{"POST", "/api/shortage/arrivals/1/follow-up"},
		{"GET", "/api/shortage/substitutions"},
		{"POST", "/api/shortage/substitutions"},
		{"POST", "/api/shortage/substitutions/1/tech_approve"},
		{"POST", "/api/shortage/reports"},
		{"GET", "/api/purchase/orders"},
		{"GET", "/api/purchase/orders/1"},
		{"GET", "/api/purchase/orders/export.xlsx"},
		{"POST", "/api/purchase/orders/1/approve"},
		{"GET", "/api/costs/projects/1"},
		{"GET", "/api/customers/1/360"},
		{"POST", "/api/customers/1/follow-ups"},
		{"GET", "/api/engineers/workload"},
		{"GET", "/api/scheduler/dashboard"},
		{"POST", "/api/scheduler/jobs/daily/trigger"},
		{"GET", "/api/scheduler/metrics/export"},
		{"GET", "/api/projects/1/stages"},
		{"POST", "/api/projects/1/stages/S3/advance"},
		{"GET", "/api/stages/pipeline"},
		{"GET", "/api/presale/templates"},
		{"POST", "/api/presale/templates/1/rate"},
		{"GET", "/api/status"},
		{"GET", "/api/status/arrival"},
	}

	for _, tc := range routes {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			if w.Code != 401 {
				t.Errorf("status = %d, want 401 (auth should reject)", w.Code)
			}
		})
	}
}

func TestNewRouter_publicRoutesbypassAuth(t *testing.T) {
	rejectAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, model.NewUnauthorizedError("rejected"))
		})
	}

	deps := testDeps()
	deps.Authenticate = rejectAuth
	r := NewRouter(deps)

	for _, path := range []string{"/ui/health", "/ui/ready", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
			if w.Code != 200 {
				t.Errorf("status = %d, want 200 (should bypass auth)", w.Code)
			}
		})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/shortage/arrivals", nil))
	if w.Code != 401 {
		t.Errorf("arrivals status = %d, want 401 (auth should reject)", w.Code)
	}
}

// --- Middleware tests ---

func TestRecovery_catchesPanic(t *testing.T) {
	handler := Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != 500 {
		t.Errorf("status = %d, want 500 after panic", w.Code)
	}
}

func TestRecovery_passesThrough(t *testing.T) {
	handler := Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != 200 {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestCORS_preflight(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins: []string{"https://erp.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         3600,
	}

	handler := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for preflight")
	}))

	req := httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "https://erp.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != 204 {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://erp.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORS_disallowedOrigin(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins: []string{"https://erp.example.com"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Authorization"},
	}

	called := false
	handler := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(200)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Error("handler should still be called for non-preflight")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin should be empty for disallowed origin, got %q", got)
	}
}

func TestRequestID_generated(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := CorrelationIDFrom(r.Context())
		if id == "" {
			t.Error("correlation ID should be generated")
		}
		w.WriteHeader(200)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if got := w.Header().Get("X-Correlation-Id"); got == "" {
		t.Error("response should have X-Correlation-Id header")
	}
}

func TestRequestID_propagated(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := CorrelationIDFrom(r.Context())
		if id != "test-corr-123" {
			t.Errorf("correlation ID = %q, want test-corr-123", id)
		}
		w.WriteHeader(200)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Correlation-Id", "test-corr-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-Id"); got != "test-corr-123" {
		t.Errorf("response X-Correlation-Id = %q, want test-corr-123", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	expected := map[string]string{
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"X-XSS-Protection":          "0",
		"Cache-Control":             "no-store",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
	}

	for header, want := range expected {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestBuildRequestContext(t *testing.T) {
	claims := map[string]any{
		"sub":       "u-42",
		"email":     "buyer@example.com",
		"tenant_id": "plant-1",
		"roles":     []any{"purchase_manager", "viewer"},
	}

	handler := BuildRequestContext(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			t.Fatal("RequestContext should be in context")
		}
		if rctx.SubjectID != "u-42" {
			t.Errorf("SubjectID = %q, want u-42", rctx.SubjectID)
		}
		if rctx.TenantID != "plant-1" {
			t.Errorf("TenantID = %q, want plant-1", rctx.TenantID)
		}
		if rctx.Token != "raw-token" {
			t.Errorf("Token = %q, want raw-token", rctx.Token)
		}
		if rctx.Locale != "zh-CN" {
			t.Errorf("Locale = %q, want zh-CN", rctx.Locale)
		}
		if len(rctx.Roles) != 2 || rctx.Roles[0] != "purchase_manager" {
			t.Errorf("Roles = %v, want [purchase_manager viewer]", rctx.Roles)
		}
		w.WriteHeader(200)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(WithClaims(req.Context(), claims, "raw-token"))
	req.Header.Set("Accept-Language", "zh-CN")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestBuildRequestContext_customPaths(t *testing.T) {
	claims := map[string]any{
		"sub":   "u-99",
		"email": "user@keycloak.com",
		"realm_access": map[string]any{
			"roles": []any{"manager"},
		},
		"custom_tenant": "tenant-kc",
	}

	paths := map[string]string{
		"tenant_id": "custom_tenant",
		"roles":     "realm_access.roles",
	}

	handler := BuildRequestContext(paths)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx.TenantID != "tenant-kc" {
			t.Errorf("TenantID = %q, want tenant-kc", rctx.TenantID)
		}
		if len(rctx.Roles) != 1 || rctx.Roles[0] != "manager" {
			t.Errorf("Roles = %v, want [manager]", rctx.Roles)
		}
		w.WriteHeader(200)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(WithClaims(req.Context(), claims, "raw-token"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
}

func TestBuildRequestContext_missingSubject(t *testing.T) {
	handler := BuildRequestContext(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called without a subject")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(WithClaims(req.Context(), map[string]any{"email": "x@example.com"}, "raw-token"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != 401 {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSessions_attachesAndEchoesID(t *testing.T) {
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, config.SessionConfig{TTL: time.Hour}, config.DemoConfig{}, session.Options{})

	var seen string
	handler := Sessions(mgr, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = model.RequestContextFrom(r.Context()).SessionID
		w.WriteHeader(200)
	}))

	serve := func(sessionID string) *httptest.ResponseRecorder {
		rctx := &model.RequestContext{SubjectID: "u-1", Token: "tok"}
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(model.WithRequestContext(context.Background(), rctx))
		if sessionID != "" {
			req.Header.Set(HeaderSessionID, sessionID)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	w := serve("")
	id := w.Header().Get(HeaderSessionID)
	if id == "" || id != seen {
		t.Fatalf("session id = %q, handler saw %q", id, seen)
	}

	w = serve(id)
	if got := w.Header().Get(HeaderSessionID); got != id {
		t.Errorf("resumed session = %q, want %q", got, id)
	}
	if store.Len() != 1 {
		t.Errorf("sessions = %d, want 1", store.Len())
	}
}

func TestSessions_requiresRequestContext(t *testing.T) {
	mgr := session.NewManager(session.NewMemoryStore(), config.SessionConfig{}, config.DemoConfig{}, session.Options{})
	handler := Sessions(mgr, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != 401 {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestHandlerTimeout_setsDeadline(t *testing.T) {
	handler := HandlerTimeout(100 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok := r.Context().Deadline()
		if !ok {
			t.Error("context should have deadline")
		}
		if time.Until(deadline) > 200*time.Millisecond {
			t.Error("deadline should be within 200ms")
		}
		w.WriteHeader(200)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
}

func TestHandlerTimeout_zeroNoDeadline(t *testing.T) {
	handler := HandlerTimeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Context().Deadline()
		if ok {
			t.Error("context should not have deadline when timeout is 0")
		}
		w.WriteHeader(200)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
}

func TestRequestLogging_capturesStatus(t *testing.T) {
	handler := RequestLogging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
}

func TestSecurityHeaders_onHealth(t *testing.T) {
	r := NewRouter(testDeps())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ui/health", nil))

	// Security headers should be present even on health endpoint.
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := w.Header().Get("X-Correlation-Id"); got == "" {
		t.Error("health should still get X-Correlation-Id")
	}
}
