package resource

import (
	"context"
	"sync"
	"time"
)

// Scope keeps loaders alive across requests so that consecutive loads of the
// same page by the same session are fenced against each other. Entries idle
// for longer than the configured duration are dropped.
type Scope struct {
	idle time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*scopeEntry
}

type scopeEntry struct {
	loader   any
	lastUsed time.Time
}

// NewScope creates a Scope. A non-positive idle duration defaults to 30m.
func NewScope(idle time.Duration) *Scope {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Scope{
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*scopeEntry),
	}
}

// Len returns the number of live loaders.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Forget drops every loader whose key starts with prefix, typically a
// session ID on sign-out.
func (s *Scope) Forget(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.entries, k)
		}
	}
}

func (s *Scope) sweepLocked(now time.Time) {
	for k, e := range s.entries {
		if now.Sub(e.lastUsed) > s.idle {
			delete(s.entries, k)
		}
	}
}

// ScopedLoader returns the loader stored under key, creating it when absent
// or when the stored value has a different type.
func ScopedLoader[T any](s *Scope, key, name string, fetch FetchFunc[T], opts Options) *Loader[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	if e, ok := s.entries[key]; ok {
		if l, ok := e.loader.(*Loader[T]); ok {
			e.lastUsed = now
			return l
		}
	}
	l := NewLoader(name, fetch, opts)
	s.entries[key] = &scopeEntry{loader: l, lastUsed: now}
	return l
}

// ScopedObjectLoader is ScopedLoader for single-record loads.
func ScopedObjectLoader[T any](s *Scope, key, name string, fetch func(ctx context.Context) (T, error), opts Options) *ObjectLoader[T] {
	var wrapped FetchFunc[T]
	if fetch != nil {
		wrapped = wrapObject(fetch)
	}
	return &ObjectLoader[T]{inner: ScopedLoader(s, key, name, wrapped, opts)}
}
