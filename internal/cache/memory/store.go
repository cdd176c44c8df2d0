// Package memory provides an in-memory response cache for development and
// single-instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ryanrahman1/nichegeniusproxy/internal/cache"
	"github.com/ryanrahman1/nichegeniusproxy/internal/clock/system"
)

// Store keeps entries in a map guarded by a mutex. Expired entries are
// evicted lazily on lookup.
type Store struct {
	mu      sync.Mutex
	entries map[string]item
	ttl     time.Duration
	clock   cache.Clock
}

type item struct {
	entry     cache.Entry
	expiresAt time.Time
}

// New creates a Store that holds entries for ttl. A non-positive ttl keeps
// entries until process exit. A nil clock falls back to the system clock.
func New(ttl time.Duration, clock cache.Clock) *Store {
	if clock == nil {
		clock = system.New()
	}
	return &Store{
		entries: make(map[string]item),
		ttl:     ttl,
		clock:   clock,
	}
}

// Match returns a copy of the entry stored under key, if any.
func (s *Store) Match(_ context.Context, key string) (cache.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.entries[key]
	if !ok {
		return cache.Entry{}, false, nil
	}
	if !it.expiresAt.IsZero() && !s.clock.Now().Before(it.expiresAt) {
		delete(s.entries, key)
		return cache.Entry{}, false, nil
	}
	return it.entry.Clone(), true, nil
}

// Put stores a copy of entry under key, replacing any previous value.
func (s *Store) Put(_ context.Context, key string, entry cache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := item{entry: entry.Clone()}
	if s.ttl > 0 {
		it.expiresAt = s.clock.Now().Add(s.ttl)
	}
	s.entries[key] = it
	return nil
}
