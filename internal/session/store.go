package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists sessions by ID with a TTL.
type Store interface {
	Put(ctx context.Context, s Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, bool, error)
	Delete(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error
}

func storeKey(id string) string {
	return "session:" + id
}

// --- MemoryStore ---

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memSession
	now      func() time.Time
}

type memSession struct {
	s         Session
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memSession),
		now:      time.Now,
	}
}

func (m *MemoryStore) Put(_ context.Context, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memSession{s: s, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, bool, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, false, nil
	}
	s := entry.s
	return &s, true, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// HealthCheck always succeeds.
func (m *MemoryStore) HealthCheck(context.Context) error { return nil }

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// --- RedisStore ---

// RedisStore keeps sessions in redis as JSON under "session:{id}".
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a redis-backed session store.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Put(ctx context.Context, s Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, storeKey(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %q: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, bool, error) {
	raw, err := r.client.Get(ctx, storeKey(id)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get session %q: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("unmarshal session %q: %w", id, err)
	}
	return &s, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, storeKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del session %q: %w", id, err)
	}
	return nil
}

// HealthCheck pings redis.
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
