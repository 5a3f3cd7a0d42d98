// Package optimistic keeps counters that were bumped by a successful action
// visible until an authoritative fetch confirms them.
//
// After an action such as applying a presale template, the next list fetch
// may still return the old count. The tracker remembers the count the user
// saw (baseline) and how many bumps followed (delta). Overlay shows
// max(server, baseline+delta) with pending_sync set until the server
// catches up or the record expires.
package optimistic

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
)

// Record is one pending counter.
type Record struct {
	Baseline  int64     `json:"baseline"`
	Delta     int64     `json:"delta"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Target is the value the server is expected to reach.
func (r Record) Target() int64 { return r.Baseline + r.Delta }

// Value is a counter as shown to the client.
type Value struct {
	Value       int64 `json:"value"`
	PendingSync bool  `json:"pending_sync"`
}

// Options carries the optional collaborators of a Tracker.
type Options struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Tracker records bumps and overlays them on fetched values.
type Tracker struct {
	store   Store
	ttl     time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewTracker creates a Tracker. A non-positive ttl defaults to ten minutes.
func NewTracker(store Store, ttl time.Duration, opts Options) *Tracker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, ttl: ttl, logger: logger, metrics: opts.Metrics, now: time.Now}
}

// Key builds the record key of one counter of one entity.
func Key(entity string, id int64, counter string) string {
	return fmt.Sprintf("%s:%d:%s", entity, id, counter)
}

// Bump records a successful increment. current is the value the client saw
// before the action; it becomes the baseline of a new record.
func (t *Tracker) Bump(ctx context.Context, key string, current int64) error {
	rec, found, err := t.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("optimistic: bump %s: %w", key, err)
	}
	next := Record{Baseline: current, Delta: 1}
	if found {
		next = Record{Baseline: rec.Baseline, Delta: rec.Delta + 1}
	}
	next.UpdatedAt = t.now().UTC()
	if err := t.store.Put(ctx, key, next, t.ttl); err != nil {
		return fmt.Errorf("optimistic: bump %s: %w", key, err)
	}
	t.refreshGauge(ctx)
	return nil
}

// Overlay merges a pending record into the server value. When the server
// has reached baseline+delta the record is cleared. Store errors fall back
// to the server value.
func (t *Tracker) Overlay(ctx context.Context, key string, server int64) Value {
	rec, found, err := t.store.Get(ctx, key)
	if err != nil {
		observability.RequestLogger(ctx, t.logger).Warn("optimistic overlay lookup failed",
			zap.String("key", key), zap.Error(err))
		return Value{Value: server}
	}
	if !found {
		return Value{Value: server}
	}
	if server >= rec.Target() {
		if err := t.store.Delete(ctx, key); err != nil {
			observability.RequestLogger(ctx, t.logger).Warn("optimistic record cleanup failed",
				zap.String("key", key), zap.Error(err))
		}
		t.refreshGauge(ctx)
		return Value{Value: server}
	}
	return Value{Value: rec.Target(), PendingSync: true}
}

// HealthCheck delegates to the store.
func (t *Tracker) HealthCheck(ctx context.Context) error {
	return t.store.HealthCheck(ctx)
}

func (t *Tracker) refreshGauge(ctx context.Context) {
	if t.metrics == nil {
		return
	}
	n, err := t.store.Count(ctx)
	if err != nil {
		t.logger.Debug("optimistic count failed", zap.Error(err))
		return
	}
	t.metrics.SetOptimisticPending(n)
}
