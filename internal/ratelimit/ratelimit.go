// Package ratelimit decides whether a client key may proceed through the
// request pipeline. Two implementations exist: an in-process token bucket
// and a client for an external rate limit service.
package ratelimit

import "context"

// Limiter answers whether the client identified by key may proceed. A false
// verdict with a nil error means the caller should be rejected; errors are
// reserved for limiter failures, which the pipeline treats as fail-open.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
