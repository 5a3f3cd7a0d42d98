// Package command deduplicates mutating page actions by idempotency key.
package command

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// IdempotencyStore provides deduplication for action dispatch.
// The key format is "idem:{action}:{key}".
type IdempotencyStore interface {
	// Check looks up a previous outcome by key. If the key exists and the
	// input hash matches, it returns the cached outcome. If the key exists
	// but the hash differs, it returns a CONFLICT error.
	Check(ctx context.Context, key string, inputHash string) (outcome *model.ActionOutcome, found bool, err error)

	// Store saves an action outcome keyed by the idempotency key with a TTL.
	Store(ctx context.Context, key string, inputHash string, outcome model.ActionOutcome, ttl time.Duration) error

	// HealthCheck reports whether the backing store is reachable.
	HealthCheck(ctx context.Context) error
}

// idempotencyEntry is the stored value for an idempotency key.
type idempotencyEntry struct {
	InputHash string              `json:"input_hash"`
	Outcome   model.ActionOutcome `json:"outcome"`
}

// --- MemoryIdempotencyStore ---

// MemoryIdempotencyStore is an in-memory IdempotencyStore with TTL support.
// Suitable for testing and single-instance deployments.
type MemoryIdempotencyStore struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	now     func() time.Time
}

type memEntry struct {
	data      idempotencyEntry
	expiresAt time.Time
}

// NewMemoryIdempotencyStore creates a new in-memory idempotency store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]*memEntry),
		now:     time.Now,
	}
}

// Check looks up a cached outcome. Returns conflict error if input hash differs.
func (s *MemoryIdempotencyStore) Check(_ context.Context, key string, inputHash string) (*model.ActionOutcome, bool, error) {
	s.mu.RLock()
	entry, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}

	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}

	if entry.data.InputHash != inputHash {
		return nil, true, conflict(key)
	}

	outcome := entry.data.Outcome
	return &outcome, true, nil
}

// Store saves an outcome with TTL.
func (s *MemoryIdempotencyStore) Store(_ context.Context, key string, inputHash string, outcome model.ActionOutcome, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &memEntry{
		data: idempotencyEntry{
			InputHash: inputHash,
			Outcome:   outcome,
		},
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *MemoryIdempotencyStore) HealthCheck(context.Context) error { return nil }

// Len returns the number of entries (including expired ones). For testing.
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// --- RedisIdempotencyStore ---

// RedisIdempotencyStore is a Redis-backed IdempotencyStore with TTL.
type RedisIdempotencyStore struct {
	client redis.Cmdable
}

// NewRedisIdempotencyStore creates a new Redis-backed idempotency store.
func NewRedisIdempotencyStore(client redis.Cmdable) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

// Check looks up a cached outcome in Redis. Returns conflict error if input hash differs.
func (s *RedisIdempotencyStore) Check(ctx context.Context, key string, inputHash string) (*model.ActionOutcome, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}

	var entry idempotencyEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("unmarshal idempotency entry %q: %w", key, err)
	}

	if entry.InputHash != inputHash {
		return nil, true, conflict(key)
	}

	return &entry.Outcome, true, nil
}

// Store saves an outcome in Redis with TTL.
func (s *RedisIdempotencyStore) Store(ctx context.Context, key string, inputHash string, outcome model.ActionOutcome, ttl time.Duration) error {
	data, err := json.Marshal(idempotencyEntry{InputHash: inputHash, Outcome: outcome})
	if err != nil {
		return fmt.Errorf("marshal idempotency entry: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// HealthCheck pings Redis.
func (s *RedisIdempotencyStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func conflict(key string) error {
	return model.NewConflictError(fmt.Sprintf("idempotency key %q already used with different input", key))
}

// FormatIdempotencyKey builds the idempotency key of one client key. The key
// is scoped to the caller's tenant and subject, the session mode, the action
// and the record it targets, so a reused client key never replays another
// caller's or another record's outcome.
func FormatIdempotencyKey(rctx *model.RequestContext, action, target, key string) string {
	tenant, subject, mode := "-", "-", "live"
	if rctx != nil {
		if rctx.TenantID != "" {
			tenant = rctx.TenantID
		}
		if rctx.SubjectID != "" {
			subject = rctx.SubjectID
		}
		if rctx.DemoMode {
			mode = "demo"
		}
	}
	return fmt.Sprintf("idem:%s:%s:%s:%s:%s:%s", mode, tenant, subject, action, target, key)
}

// HashPayload returns the SHA-256 of the JSON encoding of payload.
func HashPayload(payload any) string {
	data, _ := json.Marshal(payload)
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
