package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// LocalConfig holds the token bucket settings applied to every client key.
type LocalConfig struct {
	RPS   float64
	Burst int
}

// Local applies a per-key token bucket in process memory. Buckets are
// created on first sight of a key and never expire; the key space is client
// IPs, which stays small enough for an edge deployment.
type Local struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

// NewLocal creates a Local limiter. A non-positive RPS disables limiting and
// a non-positive burst falls back to 1.
func NewLocal(cfg LocalConfig) *Local {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Local{
		buckets: make(map[string]*rate.Limiter),
		rps:     r,
		burst:   burst,
	}
}

// Allow reports whether key has a token available right now. It never
// blocks.
func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow(), nil
}
