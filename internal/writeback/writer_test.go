package writeback

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ryanrahman1/nichegeniusproxy/internal/cache"
	"github.com/ryanrahman1/nichegeniusproxy/internal/metrics"
)

// TestWriterStoresEntries verifies queued entries reach the store without the
// caller waiting on them.
func TestWriterStoresEntries(t *testing.T) {
	t.Parallel()
	metrics.Init()

	store := newStubStore()
	w := New(store, Config{QueueDepth: 8})
	defer func() {
		require.NoError(t, w.Close(context.Background()))
	}()

	w.Enqueue("k1", cache.Entry{Status: 200, Body: []byte("one")})
	w.Enqueue("k2", cache.Entry{Status: 200, Body: []byte("two")})

	require.Eventually(t, func() bool {
		return store.Len() == 2
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, "one", string(store.Get("k1").Body))
	require.Equal(t, "two", string(store.Get("k2").Body))
}

// TestWriterCloseDrains ensures Close flushes whatever is still queued.
func TestWriterCloseDrains(t *testing.T) {
	t.Parallel()
	metrics.Init()

	store := newStubStore()
	store.Block()
	w := New(store, Config{QueueDepth: 8})

	for i := 0; i < 5; i++ {
		w.Enqueue(fmt.Sprintf("k%d", i), cache.Entry{Status: 200})
	}
	store.Release()
	require.NoError(t, w.Close(context.Background()))
	require.Equal(t, 5, store.Len())
}

// TestWriterDropsWhenFull asserts a full queue drops entries instead of
// blocking the caller.
func TestWriterDropsWhenFull(t *testing.T) {
	t.Parallel()
	metrics.Init()

	store := newStubStore()
	store.Block()
	w := New(store, Config{QueueDepth: 1})

	w.Enqueue("busy", cache.Entry{Status: 200})
	store.WaitEntered(t)

	w.Enqueue("queued", cache.Entry{Status: 200})

	start := time.Now()
	w.Enqueue("dropped", cache.Entry{Status: 200})
	require.Less(t, time.Since(start), 50*time.Millisecond)
	require.Equal(t, int64(1), w.dropped.Load())

	store.Release()
	require.NoError(t, w.Close(context.Background()))
	require.Equal(t, 2, store.Len())
	require.Nil(t, store.Get("dropped"))
}

// TestWriterEnqueueAfterClose ensures late entries are ignored quietly.
func TestWriterEnqueueAfterClose(t *testing.T) {
	t.Parallel()
	metrics.Init()

	store := newStubStore()
	w := New(store, Config{QueueDepth: 4})
	require.NoError(t, w.Close(context.Background()))

	w.Enqueue("late", cache.Entry{Status: 200})
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, store.Len())
}

// TestWriterLogsStoreFailures ensures a failing store never surfaces to the
// caller.
func TestWriterLogsStoreFailures(t *testing.T) {
	t.Parallel()
	metrics.Init()

	store := newStubStore()
	store.FailWith(fmt.Errorf("disk full"))
	w := New(store, Config{QueueDepth: 4})

	w.Enqueue("k1", cache.Entry{Status: 200})
	require.NoError(t, w.Close(context.Background()))
	require.Zero(t, store.Len())
}

// --- helpers ---

type stubStore struct {
	mu      sync.Mutex
	entries map[string]cache.Entry
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func newStubStore() *stubStore {
	return &stubStore{
		entries: make(map[string]cache.Entry),
		entered: make(chan struct{}, 16),
	}
}

func (s *stubStore) Block() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
}

func (s *stubStore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

func (s *stubStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubStore) WaitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-s.entered:
	case <-time.After(time.Second):
		t.Fatal("store was never called")
	}
}

func (s *stubStore) Match(context.Context, string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, nil
}

func (s *stubStore) Put(_ context.Context, key string, entry cache.Entry) error {
	s.mu.Lock()
	gate := s.gate
	err := s.err
	s.mu.Unlock()

	select {
	case s.entered <- struct{}{}:
	default:
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *stubStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *stubStore) Get(key string) *cache.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil
	}
	return &entry
}
