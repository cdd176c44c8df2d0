// Package writeback persists cache entries in the background so the
// response path never waits on the store.
package writeback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ryanrahman1/nichegeniusproxy/internal/cache"
	"github.com/ryanrahman1/nichegeniusproxy/internal/metrics"
)

// Config controls buffering and store timeouts for the Writer.
//   - QueueDepth: size of the internal channel (default 256).
//   - WriteTimeout: per-entry timeout for the store call (default 5s).
//   - Logger: optional structured logger used for warnings.
type Config struct {
	QueueDepth   int
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

const (
	defaultQueueDepth   = 256
	defaultWriteTimeout = 5 * time.Second
	dropLogInterval     = 5 * time.Second
)

// Writer drains a bounded queue of cache entries into a store. It is safe
// for concurrent use by multiple goroutines and never blocks callers.
type Writer struct {
	store   cache.Store
	jobs    chan job
	timeout time.Duration
	logger  *zap.Logger

	stopCh      chan struct{}
	doneCh      chan struct{}
	dropLimiter rateLimiter
	dropped     atomic.Int64
	closed      atomic.Bool
	closeOnce   sync.Once
}

type job struct {
	key   string
	entry cache.Entry
}

// New initializes a Writer and starts the background goroutine draining into
// store. The returned Writer is immediately ready to accept entries.
func New(store cache.Store, cfg Config) *Writer {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Writer{
		store:       store,
		jobs:        make(chan job, cfg.QueueDepth),
		timeout:     cfg.WriteTimeout,
		logger:      logger,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		dropLimiter: rateLimiter{interval: dropLogInterval},
	}
	go w.run()
	return w
}

// Enqueue schedules entry for storage under key. It never blocks; if the
// queue is full the entry is dropped and a rate-limited warning is logged.
func (w *Writer) Enqueue(key string, entry cache.Entry) {
	if w == nil {
		return
	}
	if w.closed.Load() {
		return
	}
	select {
	case w.jobs <- job{key: key, entry: entry}:
	default:
		w.dropped.Add(1)
		metrics.ObserveCacheEvent(metrics.CacheDrop)
		if w.dropLimiter.Allow(time.Now()) {
			count := w.dropped.Swap(0)
			w.logger.Warn("cache writes dropped due to backpressure", zap.Int64("dropped", count))
		}
	}
}

// Close drains queued entries and blocks until the background goroutine
// exits. It is safe to call multiple times; subsequent calls are ignored
// once shutdown begins.
func (w *Writer) Close(ctx context.Context) error {
	if w == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.stopCh)
	})
	select {
	case <-w.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cache writer close wait: %w", ctx.Err())
	}
}

func (w *Writer) run() {
	defer close(w.doneCh)
	for {
		select {
		case j := <-w.jobs:
			w.write(j)
		case <-w.stopCh:
			for {
				select {
				case j := <-w.jobs:
					w.write(j)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) write(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.store.Put(ctx, j.key, j.entry); err != nil {
		metrics.ObserveCacheEvent(metrics.CacheStoreError)
		w.logger.Warn("cache write failed", zap.String("key", j.key), zap.Error(err))
		return
	}
	metrics.ObserveCacheEvent(metrics.CacheStore)
}

type rateLimiter struct {
	interval time.Duration
	last     atomic.Int64
}

func (r *rateLimiter) Allow(now time.Time) bool {
	if r == nil || r.interval <= 0 {
		return true
	}
	nano := now.UnixNano()
	last := r.last.Load()
	if nano-last < r.interval.Nanoseconds() {
		return false
	}
	return r.last.CompareAndSwap(last, nano)
}
