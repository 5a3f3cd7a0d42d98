package optimistic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "optimistic:"

// Store persists pending counter records with a TTL.
type Store interface {
	Get(ctx context.Context, key string) (*Record, bool, error)
	Put(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Count returns the number of live records.
	Count(ctx context.Context) (int, error)
	HealthCheck(ctx context.Context) error
}

// --- MemoryStore ---

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memRecord
	now     func() time.Time
}

type memRecord struct {
	rec       Record
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]memRecord), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.records[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.records, key)
		return nil, false, nil
	}
	rec := entry.rec
	return &rec, true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, rec Record, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = memRecord{rec: rec, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// Count drops expired records and returns how many remain.
func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, entry := range m.records {
		if now.After(entry.expiresAt) {
			delete(m.records, k)
		}
	}
	return len(m.records), nil
}

func (m *MemoryStore) HealthCheck(context.Context) error { return nil }

// --- RedisStore ---

// RedisStore keeps records in redis as JSON under "optimistic:{key}".
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a redis-backed store.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) (*Record, bool, error) {
	raw, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("unmarshal optimistic record %q: %w", key, err)
	}
	return &rec, true, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal optimistic record: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// Count scans the optimistic key space.
func (r *RedisStore) Count(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if strings.HasPrefix(iter.Val(), keyPrefix) {
			n++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan optimistic keys: %w", err)
	}
	return n, nil
}

func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
