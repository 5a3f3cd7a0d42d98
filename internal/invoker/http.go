package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

const maxResponseBytes = 10 << 20

// UnauthorizedHook is called when a backend rejects the caller's token.
type UnauthorizedHook func(ctx context.Context, rctx *model.RequestContext)

// Options carries the optional collaborators of an HTTPInvoker.
type Options struct {
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	OnUnauthorized UnauthorizedHook
}

// serviceClient holds the HTTP client, circuit breaker, and retry config
// for a single backend service.
type serviceClient struct {
	id      string
	cfg     config.ServiceConfig
	client  *http.Client
	breaker *CircuitBreaker
}

// HTTPInvoker calls the ERP backend services over HTTP with per-service
// timeouts, circuit breakers, and retries.
type HTTPInvoker struct {
	clients        map[string]*serviceClient
	logger         *zap.Logger
	metrics        *observability.Metrics
	onUnauthorized UnauthorizedHook
}

// NewHTTPInvoker creates an invoker with one client per configured service.
func NewHTTPInvoker(services map[string]config.ServiceConfig, opts Options) *HTTPInvoker {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	inv := &HTTPInvoker{
		clients:        make(map[string]*serviceClient, len(services)),
		logger:         logger,
		metrics:        opts.Metrics,
		onUnauthorized: opts.OnUnauthorized,
	}
	for id, svcCfg := range services {
		timeout := svcCfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		breaker := NewCircuitBreaker(svcCfg.CircuitBreaker)
		serviceID := id
		breaker.OnStateChange(func(s BreakerState) {
			inv.metrics.SetBackendCircuitBreakerState(serviceID, float64(s))
		})
		inv.metrics.SetBackendCircuitBreakerState(serviceID, float64(BreakerClosed))
		inv.clients[id] = &serviceClient{
			id:  id,
			cfg: svcCfg,
			client: &http.Client{
				Timeout: timeout,
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxConnsPerHost:     50,
					IdleConnTimeout:     90 * time.Second,
					TLSHandshakeTimeout: 10 * time.Second,
				},
			},
			breaker: breaker,
		}
	}
	return inv
}

// Services returns the configured service IDs, sorted.
func (inv *HTTPInvoker) Services() []string {
	ids := make([]string, 0, len(inv.clients))
	for id := range inv.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BreakerState returns the breaker state of a service.
func (inv *HTTPInvoker) BreakerState(serviceID string) (BreakerState, bool) {
	svc, ok := inv.clients[serviceID]
	if !ok {
		return BreakerClosed, false
	}
	return svc.breaker.State(), true
}

// Supports returns true for non-demo callers whose route targets a
// configured service.
func (inv *HTTPInvoker) Supports(rctx *model.RequestContext, route model.Route) bool {
	if rctx != nil && rctx.DemoMode {
		return false
	}
	_, ok := inv.clients[route.ServiceID]
	return ok
}

// Invoke executes the route and decodes the JSON response. Non-2xx responses
// are returned as *model.ErrorEnvelope errors carrying the backend detail.
func (inv *HTTPInvoker) Invoke(
	ctx context.Context,
	rctx *model.RequestContext,
	route model.Route,
	input model.InvocationInput,
) (model.InvocationResult, error) {
	svc, ok := inv.clients[route.ServiceID]
	if !ok {
		return model.InvocationResult{}, fmt.Errorf("invoker: service %q not configured", route.ServiceID)
	}

	var tenant string
	if rctx != nil {
		tenant = rctx.TenantID
	}
	ctx, span := observability.StartSpan(ctx, "backend.invoke",
		observability.AttrServiceID.String(route.ServiceID),
		observability.AttrOperationID.String(route.OperationID),
		observability.AttrTenantID.String(tenant),
	)

	resp, err := inv.execute(ctx, svc, rctx, route, input)
	if err != nil {
		observability.EndSpanWithError(span, err)
		return model.InvocationResult{}, err
	}
	if err := inv.checkStatus(ctx, rctx, route, resp.status, resp.body); err != nil {
		observability.EndSpanWithError(span, err)
		return model.InvocationResult{}, err
	}
	span.End()

	result := model.InvocationResult{StatusCode: resp.status, Headers: resp.headers}
	if len(bytes.TrimSpace(resp.body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(resp.body))
		dec.UseNumber()
		var parsed any
		if err := dec.Decode(&parsed); err != nil {
			return model.InvocationResult{}, fmt.Errorf("invoker: decode %s/%s response: %w", route.ServiceID, route.OperationID, err)
		}
		result.Body = parsed
	}
	return result, nil
}

// Stream executes the route once and returns the undecoded body. Streams are
// never retried. The caller must close the returned body.
func (inv *HTTPInvoker) Stream(
	ctx context.Context,
	rctx *model.RequestContext,
	route model.Route,
	input model.InvocationInput,
) (model.RawResult, error) {
	svc, ok := inv.clients[route.ServiceID]
	if !ok {
		return model.RawResult{}, fmt.Errorf("invoker: service %q not configured", route.ServiceID)
	}
	if err := svc.breaker.Allow(); err != nil {
		return model.RawResult{}, model.NewBackendUnavailableError()
	}

	req, err := inv.buildRequest(ctx, svc, rctx, route, input, nil)
	if err != nil {
		return model.RawResult{}, err
	}
	req.Header.Set("Accept", "text/plain, */*")

	start := time.Now()
	resp, err := svc.client.Do(req)
	if err != nil {
		svc.breaker.RecordFailure()
		inv.metrics.RecordBackendRequest(svc.id, route.OperationID, 0, time.Since(start))
		return model.RawResult{}, final(classifyTransportError(ctx, err))
	}
	inv.metrics.RecordBackendRequest(svc.id, route.OperationID, resp.StatusCode, time.Since(start))
	recordOutcome(svc.breaker, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
		return model.RawResult{}, inv.checkStatus(ctx, rctx, route, resp.StatusCode, body)
	}

	return model.RawResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
	}, nil
}

type rawResponse struct {
	status  int
	headers map[string]string
	body    []byte
}

// execute runs the request with retry and exponential backoff.
func (inv *HTTPInvoker) execute(
	ctx context.Context,
	svc *serviceClient,
	rctx *model.RequestContext,
	route model.Route,
	input model.InvocationInput,
) (rawResponse, error) {
	var bodyBytes []byte
	if input.Body != nil {
		var err error
		bodyBytes, err = json.Marshal(input.Body)
		if err != nil {
			return rawResponse{}, fmt.Errorf("invoker: marshal body: %w", err)
		}
	}

	maxAttempts := svc.cfg.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	canRetry := isIdempotentMethod(route.Method) || !svc.cfg.Retry.IdempotentOnly

	var lastErr error
	var last rawResponse
	for attempt := 0; attempt < maxAttempts; attempt++ {
		attemptCtx := ctx
		var retrySpan trace.Span
		if attempt > 0 {
			delay := calculateBackoff(svc.cfg.Retry, attempt)
			select {
			case <-ctx.Done():
				return rawResponse{}, model.NewBackendTimeoutError()
			case <-time.After(delay):
			}
			inv.metrics.RecordBackendRetry(svc.id)
			attemptCtx, retrySpan = observability.StartSpan(ctx, "backend.retry",
				observability.AttrServiceID.String(svc.id),
				attribute.Int("erp.attempt", attempt+1),
				observability.AttrForceSample.Bool(true),
			)
		}

		resp, err := inv.executeOnce(attemptCtx, svc, rctx, route, input, bodyBytes)
		if retrySpan != nil {
			observability.EndSpanWithError(retrySpan, err)
		}
		if err != nil {
			lastErr = err
			if !canRetry || !isRetryableError(err) {
				return rawResponse{}, final(err)
			}
			inv.logger.Debug("invoker: retrying after error",
				zap.String("service_id", svc.id),
				zap.Int("attempt", attempt+1),
				zap.Int("max", maxAttempts),
				zap.Error(err),
			)
			continue
		}

		if isRetryableStatus(resp.status) && canRetry && attempt < maxAttempts-1 {
			last = resp
			lastErr = nil
			inv.logger.Debug("invoker: retrying after status",
				zap.String("service_id", svc.id),
				zap.Int("attempt", attempt+1),
				zap.Int("status", resp.status),
			)
			continue
		}
		return resp, nil
	}

	if lastErr != nil {
		return rawResponse{}, final(lastErr)
	}
	return last, nil
}

// executeOnce performs a single HTTP request with circuit breaker protection.
func (inv *HTTPInvoker) executeOnce(
	ctx context.Context,
	svc *serviceClient,
	rctx *model.RequestContext,
	route model.Route,
	input model.InvocationInput,
	bodyBytes []byte,
) (rawResponse, error) {
	if err := svc.breaker.Allow(); err != nil {
		return rawResponse{}, model.NewBackendUnavailableError()
	}

	req, err := inv.buildRequest(ctx, svc, rctx, route, input, bodyBytes)
	if err != nil {
		return rawResponse{}, err
	}

	start := time.Now()
	resp, err := svc.client.Do(req)
	if err != nil {
		svc.breaker.RecordFailure()
		inv.metrics.RecordBackendRequest(svc.id, route.OperationID, 0, time.Since(start))
		return rawResponse{}, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	inv.metrics.RecordBackendRequest(svc.id, route.OperationID, resp.StatusCode, time.Since(start))
	if err != nil {
		svc.breaker.RecordFailure()
		return rawResponse{}, fmt.Errorf("invoker: read response: %w", err)
	}
	recordOutcome(svc.breaker, resp.StatusCode)

	return rawResponse{
		status:  resp.StatusCode,
		headers: extractResponseHeaders(resp),
		body:    body,
	}, nil
}

// checkStatus converts a non-2xx response into an error envelope. A 401
// fires the unauthorized hook so the caller's session can be dropped.
func (inv *HTTPInvoker) checkStatus(ctx context.Context, rctx *model.RequestContext, route model.Route, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	detail := ExtractDetail(body)
	log := observability.RequestLogger(ctx, inv.logger).With(
		zap.String("service_id", route.ServiceID),
		zap.String("operation_id", route.OperationID),
		zap.Int("status", status),
		zap.String("detail", detail),
	)

	if status == http.StatusUnauthorized {
		log.Warn("backend rejected credentials")
		if inv.onUnauthorized != nil {
			inv.onUnauthorized(ctx, rctx)
		}
		e := model.NewUnauthorizedError("Your session has expired, please sign in again")
		e.Detail = detail
		e.Status = status
		return e
	}

	if status >= 500 {
		log.Error("backend request failed")
	} else {
		log.Warn("backend rejected request")
	}
	return model.NewBackendError(status, detail)
}

func (inv *HTTPInvoker) buildRequest(
	ctx context.Context,
	svc *serviceClient,
	rctx *model.RequestContext,
	route model.Route,
	input model.InvocationInput,
	bodyBytes []byte,
) (*http.Request, error) {
	var body io.Reader
	if bodyBytes != nil {
		body = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, route.Method, buildRequestURL(svc.cfg.BaseURL, route.Path, input), body)
	if err != nil {
		return nil, fmt.Errorf("invoker: build request: %w", err)
	}
	req.Header = buildRequestHeaders(rctx, input, route.Method)
	observability.InjectTraceHeaders(ctx, req.Header)
	return req, nil
}

// --- URL and header building ---

func buildRequestURL(baseURL, pathTemplate string, input model.InvocationInput) string {
	path := pathTemplate
	for name, value := range input.PathParams {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}

	result := strings.TrimSuffix(baseURL, "/") + path
	if len(input.QueryParams) > 0 {
		params := url.Values{}
		for k, v := range input.QueryParams {
			params.Set(k, v)
		}
		result += "?" + params.Encode()
	}
	return result
}

func buildRequestHeaders(rctx *model.RequestContext, input model.InvocationInput, method string) http.Header {
	h := make(http.Header)

	h.Set("Accept", "application/json")
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		h.Set("Content-Type", "application/json")
	}

	if rctx != nil {
		if rctx.Token != "" {
			h.Set("Authorization", "Bearer "+sanitizeHeader(rctx.Token))
		}
		if rctx.TenantID != "" {
			h.Set("X-Tenant-Id", sanitizeHeader(rctx.TenantID))
		}
		h.Set("X-Correlation-Id", sanitizeHeader(rctx.CorrelationID))
		if rctx.Locale != "" {
			h.Set("Accept-Language", sanitizeHeader(rctx.Locale))
		}
	}

	for k, v := range input.Headers {
		h.Set(sanitizeHeader(k), sanitizeHeader(v))
	}
	return h
}

// sanitizeHeader strips newlines and carriage returns to prevent header injection.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "")
}

func extractResponseHeaders(resp *http.Response) map[string]string {
	headers := make(map[string]string)
	for _, key := range []string{"Content-Type", "X-Correlation-Id", "X-Request-Id", "Retry-After"} {
		if v := resp.Header.Get(key); v != "" {
			headers[key] = v
		}
	}
	return headers
}

// ExtractDetail pulls the human-readable error text out of a backend error
// body. It understands {"detail": "..."}, validation lists of the form
// {"detail": [{"msg": "..."}]}, {"message": "..."} and plain text.
func ExtractDetail(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		text := string(trimmed)
		if len(text) > 200 {
			text = text[:200]
		}
		return text
	}

	switch d := obj["detail"].(type) {
	case string:
		return d
	case []any:
		msgs := make([]string, 0, len(d))
		for _, item := range d {
			if m, ok := item.(map[string]any); ok {
				if msg, ok := m["msg"].(string); ok && msg != "" {
					msgs = append(msgs, msg)
				}
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	if msg, ok := obj["message"].(string); ok {
		return msg
	}
	return ""
}

// --- classification helpers ---

func recordOutcome(cb *CircuitBreaker, status int) {
	switch {
	case status >= 500:
		cb.RecordFailure()
	case status >= 400:
		// Client errors say nothing about backend health.
	default:
		cb.RecordSuccess()
	}
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil || isTimeout(err) {
		return model.NewBackendTimeoutError()
	}
	if isConnectionError(err) {
		return retryable{model.NewBackendUnavailableError()}
	}
	return retryable{fmt.Errorf("invoker: request failed: %w", err)}
}

func isIdempotentMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete,
		http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryable marks a transport failure worth another attempt.
type retryable struct{ err error }

func (r retryable) Error() string { return r.err.Error() }
func (r retryable) Unwrap() error { return r.err }

func isRetryableError(err error) bool {
	var r retryable
	return errors.As(err, &r)
}

// final strips the retryable marker before an error leaves the package.
func final(err error) error {
	var r retryable
	if errors.As(err, &r) {
		return r.err
	}
	return err
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func calculateBackoff(cfg config.RetryConfig, attempt int) time.Duration {
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = 100 * time.Millisecond
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = 2
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 2 * time.Second
	}

	delay := cfg.BackoffInitial
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
		if delay > cfg.BackoffMax {
			return cfg.BackoffMax
		}
	}
	return delay
}
