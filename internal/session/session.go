// Package session tracks client sessions: who the caller is, which bearer
// token the backends should see, and whether the session runs in demo mode.
// Demo mode is decided once when a session starts and never re-derived from
// the token on later requests.
package session

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// Session is one client session.
type Session struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Token     string    `json:"token"`
	Demo      bool      `json:"demo"`
	CreatedAt time.Time `json:"created_at"`
}

// Options carries the optional collaborators of a Manager.
type Options struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
	// OnEvict runs for every evicted session ID, so per-session state held
	// outside the store can be dropped with it.
	OnEvict func(sessionID string)
}

// Manager starts, resumes and evicts sessions.
type Manager struct {
	store   Store
	ttl     time.Duration
	demo    config.DemoConfig
	logger  *zap.Logger
	metrics *observability.Metrics
	onEvict func(string)
	now     func() time.Time
}

// NewManager creates a Manager over store.
func NewManager(store Store, cfg config.SessionConfig, demo config.DemoConfig, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	if demo.Claim == "" {
		demo.Claim = "demo"
	}
	return &Manager{
		store:   store,
		ttl:     ttl,
		demo:    demo,
		logger:  logger,
		metrics: opts.Metrics,
		onEvict: opts.OnEvict,
		now:     time.Now,
	}
}

// Store returns the backing store.
func (m *Manager) Store() Store { return m.store }

// ResolveDemo reports whether a caller runs in demo mode. Demo mode requires
// the configuration switch and either a truthy demo claim or a subject on
// the configured demo list.
func (m *Manager) ResolveDemo(rctx *model.RequestContext) bool {
	if !m.demo.Enabled || rctx == nil {
		return false
	}
	if slices.Contains(m.demo.Subjects, rctx.SubjectID) {
		return true
	}
	return truthy(rctx.Claim(m.demo.Claim))
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

// Start creates a new session for the caller and records it on rctx.
func (m *Manager) Start(ctx context.Context, rctx *model.RequestContext) (Session, error) {
	s := Session{
		ID:        uuid.NewString(),
		SubjectID: rctx.SubjectID,
		TenantID:  rctx.TenantID,
		Token:     rctx.Token,
		Demo:      m.ResolveDemo(rctx),
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Put(ctx, s, m.ttl); err != nil {
		return Session{}, fmt.Errorf("session: start: %w", err)
	}
	m.metrics.RecordSessionStart(s.Demo)
	observability.RequestLogger(ctx, m.logger).Info("session started",
		zap.String("session_id", s.ID),
		zap.Bool("demo", s.Demo),
	)
	apply(rctx, s)
	return s, nil
}

// Attach binds rctx to the session id. A missing, expired or foreign
// session starts a new one; a refreshed token is written back. The returned
// session is the one now on rctx.
func (m *Manager) Attach(ctx context.Context, rctx *model.RequestContext, id string) (Session, error) {
	if id != "" {
		s, found, err := m.store.Get(ctx, id)
		if err != nil {
			return Session{}, fmt.Errorf("session: attach: %w", err)
		}
		if found && s.SubjectID == rctx.SubjectID {
			if rctx.Token != "" && s.Token != rctx.Token {
				s.Token = rctx.Token
				if err := m.store.Put(ctx, *s, m.ttl); err != nil {
					return Session{}, fmt.Errorf("session: refresh token: %w", err)
				}
			}
			apply(rctx, *s)
			return *s, nil
		}
	}
	return m.Start(ctx, rctx)
}

// End deletes a session on logout.
func (m *Manager) End(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("session: end: %w", err)
	}
	return nil
}

// Evict drops the caller's session after a backend rejected its token. It
// matches invoker.UnauthorizedHook.
func (m *Manager) Evict(ctx context.Context, rctx *model.RequestContext) {
	if rctx == nil || rctx.SessionID == "" {
		return
	}
	if m.onEvict != nil {
		m.onEvict(rctx.SessionID)
	}
	logger := observability.RequestLogger(ctx, m.logger)
	if err := m.store.Delete(ctx, rctx.SessionID); err != nil {
		logger.Warn("session eviction failed", zap.Error(err))
		return
	}
	m.metrics.RecordSessionEvicted()
	logger.Info("session evicted after backend 401")
}

// HealthCheck delegates to the store.
func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.store.HealthCheck(ctx)
}

func apply(rctx *model.RequestContext, s Session) {
	rctx.SessionID = s.ID
	rctx.DemoMode = s.Demo
	if rctx.Token == "" {
		rctx.Token = s.Token
	}
}
