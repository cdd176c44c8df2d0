// Package cache defines the shared response cache consulted by the request
// pipeline, plus the key derivation both backends use.
package cache

import (
	"context"
	"net/http"
	"time"

	"github.com/ryanrahman1/nichegeniusproxy/internal/hash/sha256"
)

// Entry is one cached upstream response, stored verbatim so a hit can be
// replayed byte for byte.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Clone returns a deep copy of the entry so callers and stores never share
// header maps or body bytes.
func (e Entry) Clone() Entry {
	return Entry{
		Status:   e.Status,
		Header:   e.Header.Clone(),
		Body:     append([]byte(nil), e.Body...),
		StoredAt: e.StoredAt,
	}
}

// Store is the contract the cache backends implement. Match reports a miss
// with ok false and a nil error; errors are reserved for backend failures.
type Store interface {
	Match(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, entry Entry) error
}

// Clock abstracts time.Now so stores with TTL logic can be tested
// deterministically.
type Clock interface {
	Now() time.Time
}

// Key derives the cache key for an inbound request from its method and full
// request URI, query string included.
func Key(method, uri string) string {
	return sha256.Hex([]byte(method + " " + uri))
}
