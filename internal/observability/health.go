package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthChecker is implemented by the session, pending-sync and
// idempotency stores.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ReadinessChecks lists what must hold before the BFF takes traffic. The two
// funcs always run and a nil func fails; nil stores are skipped.
type ReadinessChecks struct {
	StatusRegistryLoaded func() bool
	BackendsConfigured   func() bool

	SessionStore     HealthChecker
	OptimisticStore  HealthChecker
	IdempotencyStore HealthChecker
}

const checkTimeout = 2 * time.Second

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HandleHealth answers liveness checks with the build identity.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version, Commit: Commit})
	}
}

// HandleReady runs every configured check concurrently and answers 503 if
// any of them fails.
func HandleReady(checks ReadinessChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending := map[string]HealthChecker{
			"status_registry": flagCheck(checks.StatusRegistryLoaded, "no status domains loaded"),
			"backends":        flagCheck(checks.BackendsConfigured, "no backend invoker available"),
		}
		for name, c := range map[string]HealthChecker{
			"session_store":     checks.SessionStore,
			"optimistic_store":  checks.OptimisticStore,
			"idempotency_store": checks.IdempotencyStore,
		} {
			if c != nil {
				pending[name] = c
			}
		}

		resp := ReadinessResponse{Status: "ready", Checks: make(map[string]CheckResult, len(pending))}
		var mu sync.Mutex
		var wg sync.WaitGroup
		for name, c := range pending {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res := runCheck(r.Context(), c)
				mu.Lock()
				resp.Checks[name] = res
				mu.Unlock()
			}()
		}
		wg.Wait()

		code := http.StatusOK
		for _, res := range resp.Checks {
			if res.Status != "ok" {
				resp.Status, code = "not_ready", http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, code, resp)
	}
}

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func flagCheck(ok func() bool, failure string) HealthChecker {
	return checkFunc(func(context.Context) error {
		if ok == nil || !ok() {
			return errors.New(failure)
		}
		return nil
	})
}

func runCheck(parent context.Context, c HealthChecker) CheckResult {
	ctx, cancel := context.WithTimeout(parent, checkTimeout)
	defer cancel()

	start := time.Now()
	err := c.HealthCheck(ctx)
	res := CheckResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status, res.Error = "error", err.Error()
	}
	return res
}
