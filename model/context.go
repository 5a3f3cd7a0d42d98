package model

import (
	"context"
	"errors"
	"fmt"
)

// RequestContext carries identity, session, and tracing information for the
// lifetime of an authenticated request. The session middleware fills in
// SessionID and DemoMode; after that it is read-only and safe for concurrent
// reads.
type RequestContext struct {
	SubjectID     string
	Email         string
	TenantID      string
	Roles         []string
	Claims        map[string]any
	Token         string
	SessionID     string
	DemoMode      bool
	CorrelationID string
	TraceID       string
	SpanID        string
	Locale        string
	Timezone      string
}

// Validate checks that all mandatory fields are present.
// SubjectID and Token must be non-empty; demo sessions do not need a token.
func (rc *RequestContext) Validate() error {
	var errs []error
	if rc.SubjectID == "" {
		errs = append(errs, fmt.Errorf("SubjectID is required"))
	}
	if rc.Token == "" && !rc.DemoMode {
		errs = append(errs, fmt.Errorf("Token is required"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Claim returns the value of the given claim key, or nil if not present.
func (rc *RequestContext) Claim(key string) any {
	if rc.Claims == nil {
		return nil
	}
	return rc.Claims[key]
}

type contextKey struct{}

// WithRequestContext attaches a RequestContext to the given context.
func WithRequestContext(ctx context.Context, rctx *RequestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, rctx)
}

// RequestContextFrom extracts the RequestContext from the context, or returns nil
// if not present.
func RequestContextFrom(ctx context.Context) *RequestContext {
	rctx, _ := ctx.Value(contextKey{}).(*RequestContext)
	return rctx
}
