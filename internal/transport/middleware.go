package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/session"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// Header names shared with the web client.
const (
	HeaderCorrelationID  = "X-Correlation-Id"
	HeaderSessionID      = "X-Session-Id"
	HeaderIdempotencyKey = "X-Idempotency-Key"
)

// Context keys for middleware-injected values.
type correlationIDKey struct{}
type claimsKey struct{}
type tokenKey struct{}

// CorrelationIDFrom extracts the correlation ID from the request context.
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// WithClaims stores verified JWT claims and the raw bearer token in the
// context. Used by the auth middleware.
func WithClaims(ctx context.Context, claims map[string]any, token string) context.Context {
	ctx = context.WithValue(ctx, claimsKey{}, claims)
	return context.WithValue(ctx, tokenKey{}, token)
}

// ClaimsFrom extracts JWT claims from the context.
func ClaimsFrom(ctx context.Context) map[string]any {
	claims, _ := ctx.Value(claimsKey{}).(map[string]any)
	return claims
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

// Recovery catches panics in downstream handlers, logs them, and returns
// a 500 JSON error response.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					observability.LoggerFrom(r.Context(), logger).Error("panic recovered",
						zap.Any("error", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)
					WriteError(w, model.NewInternalError())
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS returns middleware that handles Cross-Origin Resource Sharing based
// on the provided configuration.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[o] = true
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := fmt.Sprintf("%d", cfg.MaxAge)
	expose := strings.Join([]string{HeaderCorrelationID, HeaderSessionID, "Content-Disposition"}, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && origins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				w.Header().Set("Access-Control-Expose-Headers", expose)
				w.Header().Set("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestID reads X-Correlation-Id from the request header or generates a
// new one, then stores it in the context and sets the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderCorrelationID)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), correlationIDKey{}, id)
		w.Header().Set(HeaderCorrelationID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SecurityHeaders sets standard security response headers on all responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "0")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// BuildRequestContext constructs a model.RequestContext from the verified
// claims and standard request headers. claimPaths maps subject_id, tenant_id,
// email and roles to dotted claim paths, e.g. "tenant_id": "org.id".
func BuildRequestContext(claimPaths map[string]string) func(http.Handler) http.Handler {
	path := func(field, def string) string {
		if p := claimPaths[field]; p != "" {
			return p
		}
		return def
	}
	subject := path("subject_id", "sub")
	tenant := path("tenant_id", "tenant_id")
	email := path("email", "email")
	roles := path("roles", "roles")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims := ClaimsFrom(ctx)
			rctx := &model.RequestContext{
				SubjectID:     claimString(claims, subject),
				Email:         claimString(claims, email),
				TenantID:      claimString(claims, tenant),
				Roles:         claimStringSlice(claims, roles),
				Claims:        claims,
				Token:         tokenFrom(ctx),
				CorrelationID: CorrelationIDFrom(ctx),
				TraceID:       observability.TraceIDFromContext(ctx),
				SpanID:        observability.SpanIDFromContext(ctx),
				Timezone:      r.Header.Get("X-Timezone"),
				Locale:        r.Header.Get("Accept-Language"),
			}
			if rctx.SubjectID == "" {
				WriteError(w, model.NewUnauthorizedError("Token has no subject"))
				return
			}
			next.ServeHTTP(w, r.WithContext(model.WithRequestContext(ctx, rctx)))
		})
	}
}

// Sessions binds every request to a session. The client echoes the
// X-Session-Id it was given; an unknown or expired ID starts a new session,
// which decides demo mode for its whole lifetime.
func Sessions(mgr *session.Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rctx := model.RequestContextFrom(r.Context())
			if rctx == nil {
				WriteError(w, model.NewUnauthorizedError("missing request context"))
				return
			}
			s, err := mgr.Attach(r.Context(), rctx, r.Header.Get(HeaderSessionID))
			if err != nil {
				observability.RequestLogger(r.Context(), logger).Error("session attach failed", zap.Error(err))
				WriteError(w, model.NewInternalError())
				return
			}
			w.Header().Set(HeaderSessionID, s.ID)
			if err := rctx.Validate(); err != nil {
				WriteError(w, model.NewUnauthorizedError(err.Error()))
				return
			}
			ctx := observability.WithLogger(r.Context(), observability.RequestLogger(r.Context(), logger))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HandlerTimeout returns middleware that sets a context deadline on requests.
func HandlerTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogging logs each request with method, path, status, and duration.
func RequestLogging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			l := observability.RequestLogger(r.Context(), logger)
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case ww.status >= 500:
				l.Error("request", fields...)
			case ww.status >= 400:
				l.Warn("request", fields...)
			default:
				l.Info("request", fields...)
			}
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the written status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// claimValue walks a dotted path through nested claim objects.
func claimValue(claims map[string]any, path string) any {
	if claims == nil || path == "" {
		return nil
	}
	if v, ok := claims[path]; ok {
		return v
	}
	var cur any = claims
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func claimString(claims map[string]any, path string) string {
	switch v := claimValue(claims, path).(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

func claimStringSlice(claims map[string]any, path string) []string {
	switch v := claimValue(claims, path).(type) {
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	return nil
}
