package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

func caller(subject string, claims map[string]any) *model.RequestContext {
	return &model.RequestContext{SubjectID: subject, Token: "tok-" + subject, Claims: claims}
}

func TestResolveDemo(t *testing.T) {
	enabled := config.DemoConfig{Enabled: true, Claim: "demo", Subjects: []string{"visitor"}}

	tests := []struct {
		name string
		cfg  config.DemoConfig
		rctx *model.RequestContext
		want bool
	}{
		{"switch off ignores claim", config.DemoConfig{Claim: "demo"}, caller("u1", map[string]any{"demo": true}), false},
		{"bool claim", enabled, caller("u1", map[string]any{"demo": true}), true},
		{"string claim", enabled, caller("u1", map[string]any{"demo": "true"}), true},
		{"numeric claim", enabled, caller("u1", map[string]any{"demo": 1.0}), true},
		{"false claim", enabled, caller("u1", map[string]any{"demo": false}), false},
		{"listed subject", enabled, caller("visitor", nil), true},
		{"plain user", enabled, caller("u1", nil), false},
		{"nil caller", enabled, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(NewMemoryStore(), config.SessionConfig{}, tt.cfg, Options{})
			assert.Equal(t, tt.want, m.ResolveDemo(tt.rctx))
		})
	}
}

func TestResolveDemo_ignoresTokenShape(t *testing.T) {
	m := NewManager(NewMemoryStore(), config.SessionConfig{}, config.DemoConfig{Enabled: true}, Options{})
	rctx := &model.RequestContext{SubjectID: "u1", Token: "demo_token_123"}
	assert.False(t, m.ResolveDemo(rctx))
}

func TestStartAndAttach(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.InitMetrics(reg)
	store := NewMemoryStore()
	m := NewManager(store, config.SessionConfig{TTL: time.Hour},
		config.DemoConfig{Enabled: true, Claim: "demo"}, Options{Metrics: metrics})
	ctx := context.Background()

	rctx := caller("u1", map[string]any{"demo": true})
	s, err := m.Start(ctx, rctx)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.True(t, s.Demo)
	assert.Equal(t, s.ID, rctx.SessionID)
	assert.True(t, rctx.DemoMode)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsStartedTotal.WithLabelValues("true")))

	// The demo decision sticks even if a later token drops the claim.
	next := &model.RequestContext{SubjectID: "u1", Token: "tok-2"}
	got, err := m.Attach(ctx, next, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.True(t, next.DemoMode)

	stored, found, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "tok-2", stored.Token, "refreshed token written back")
}

func TestAttach_startsNewSessionForForeignOrMissingID(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, config.SessionConfig{}, config.DemoConfig{}, Options{})
	ctx := context.Background()

	owner, err := m.Start(ctx, caller("alice", nil))
	require.NoError(t, err)

	intruder := caller("mallory", nil)
	got, err := m.Attach(ctx, intruder, owner.ID)
	require.NoError(t, err)
	assert.NotEqual(t, owner.ID, got.ID)
	assert.Equal(t, "mallory", got.SubjectID)

	fresh := caller("bob", nil)
	got, err = m.Attach(ctx, fresh, "")
	require.NoError(t, err)
	assert.Equal(t, got.ID, fresh.SessionID)
	assert.Equal(t, 3, store.Len())
}

func TestEvict(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.InitMetrics(reg)
	store := NewMemoryStore()
	m := NewManager(store, config.SessionConfig{}, config.DemoConfig{}, Options{Metrics: metrics})
	ctx := context.Background()

	rctx := caller("u1", nil)
	s, err := m.Start(ctx, rctx)
	require.NoError(t, err)

	m.Evict(ctx, rctx)
	_, found, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsEvictedTotal))

	m.Evict(ctx, nil)
	m.Evict(ctx, &model.RequestContext{})
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsEvictedTotal))
}

func TestEvict_dropsPerSessionState(t *testing.T) {
	var dropped []string
	m := NewManager(NewMemoryStore(), config.SessionConfig{}, config.DemoConfig{}, Options{
		OnEvict: func(id string) { dropped = append(dropped, id) },
	})
	ctx := context.Background()

	rctx := caller("u1", nil)
	s, err := m.Start(ctx, rctx)
	require.NoError(t, err)

	m.Evict(ctx, rctx)
	m.Evict(ctx, &model.RequestContext{})
	assert.Equal(t, []string{s.ID}, dropped)
}

func TestMemoryStore_expiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Session{ID: "s1", SubjectID: "u1"}, time.Minute))
	_, found, _ := store.Get(ctx, "s1")
	assert.True(t, found)

	now = now.Add(2 * time.Minute)
	_, found, _ = store.Get(ctx, "s1")
	assert.False(t, found)
	assert.Equal(t, 0, store.Len())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.HealthCheck(ctx))

	in := Session{ID: "s1", SubjectID: "u1", Token: "tok", Demo: true, CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, store.Put(ctx, in, time.Minute))
	assert.True(t, mr.Exists("session:s1"))

	got, found, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, *got)

	mr.FastForward(2 * time.Minute)
	_, found, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, in, time.Minute))
	require.NoError(t, store.Delete(ctx, "s1"))
	assert.False(t, mr.Exists("session:s1"))

	mr.Close()
	assert.Error(t, store.HealthCheck(ctx))
}
