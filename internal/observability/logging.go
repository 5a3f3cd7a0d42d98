package observability

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

type loggerKey struct{}

// NewLogger creates a zap.Logger configured for JSON output to stdout.
//
// Level conventions:
//   - error: backend 5xx, transport failures, panics
//   - warn:  backend 4xx surfaced to the user, breaker open, stale loads
//   - info:  request start/end, actions dispatched, session start/evict
//   - debug: envelope decoding, optimistic overlays, redacted payloads
func NewLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapCfg.Build()
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger stored in the context, or fallback. A nil
// fallback yields a no-op logger so callers never have to nil-check.
func LoggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

// RequestLogger returns a logger enriched with the caller's identity, session
// and correlation fields.
func RequestLogger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	logger := LoggerFrom(ctx, fallback)

	rctx := model.RequestContextFrom(ctx)
	if rctx == nil {
		return logger
	}

	fields := []zap.Field{
		zap.String("subject_id", rctx.SubjectID),
		zap.String("correlation_id", rctx.CorrelationID),
	}
	if rctx.TenantID != "" {
		fields = append(fields, zap.String("tenant_id", rctx.TenantID))
	}
	if rctx.SessionID != "" {
		fields = append(fields, zap.String("session_id", rctx.SessionID))
	}
	if rctx.DemoMode {
		fields = append(fields, zap.Bool("demo", true))
	}
	if rctx.TraceID != "" {
		fields = append(fields, zap.String("trace_id", rctx.TraceID))
	}

	return logger.With(fields...)
}

var sensitiveFields = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"authorization": true,
	"contact_phone": true,
	"id_card":       true,
	"bank_account":  true,
}

// RedactBody returns a copy of body with sensitive fields replaced by
// "[REDACTED]". Matching is case-insensitive and recurses into nested
// objects and arrays. Debug logging only.
func RedactBody(body map[string]any, extra ...string) map[string]any {
	if body == nil {
		return nil
	}
	redact := make(map[string]bool, len(sensitiveFields)+len(extra))
	for k := range sensitiveFields {
		redact[k] = true
	}
	for _, f := range extra {
		redact[strings.ToLower(f)] = true
	}
	return redactMap(body, redact)
}

func redactMap(body map[string]any, redact map[string]bool) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		if redact[strings.ToLower(k)] {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = redactValue(v, redact)
	}
	return out
}

func redactValue(v any, redact map[string]bool) any {
	switch t := v.(type) {
	case map[string]any:
		return redactMap(t, redact)
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = redactValue(item, redact)
		}
		return items
	default:
		return v
	}
}
