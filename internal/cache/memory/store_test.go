package memory

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ryanrahman1/nichegeniusproxy/internal/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := New(time.Hour, &fakeClock{now: time.Unix(1700000000, 0).UTC()})
	entry := cache.Entry{
		Status: 200,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"id":1}`),
	}
	require.NoError(t, store.Put(context.Background(), "k1", entry))

	got, ok, err := store.Match(context.Background(), "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry, got)

	_, ok, err = store.Match(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Unix(1700000000, 0).UTC()}
	store := New(time.Minute, clk)
	require.NoError(t, store.Put(context.Background(), "k1", cache.Entry{Status: 200}))

	clk.Advance(59 * time.Second)
	_, ok, err := store.Match(context.Background(), "k1")
	require.NoError(t, err)
	require.True(t, ok)

	clk.Advance(2 * time.Second)
	_, ok, err = store.Match(context.Background(), "k1")
	require.NoError(t, err)
	require.False(t, ok)

	store.mu.Lock()
	_, still := store.entries["k1"]
	store.mu.Unlock()
	require.False(t, still, "expired entry should be evicted on lookup")
}

func TestStoreCopiesOnPut(t *testing.T) {
	t.Parallel()

	store := New(0, &fakeClock{now: time.Unix(1700000000, 0).UTC()})
	body := []byte("payload")
	require.NoError(t, store.Put(context.Background(), "k1", cache.Entry{Status: 200, Body: body}))

	body[0] = 'P'
	got, ok, err := store.Match(context.Background(), "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "payload", string(got.Body))
}
