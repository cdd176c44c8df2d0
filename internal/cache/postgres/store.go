// Package postgres provides a Postgres-backed response cache so multiple
// proxy instances can share hits.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ryanrahman1/nichegeniusproxy/internal/cache"
	"github.com/ryanrahman1/nichegeniusproxy/internal/clock/system"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// StoreConfig controls the Postgres connection pool used for cache rows.
type StoreConfig struct {
	DSN             string
	Table           string
	TTL             time.Duration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store reads and writes cache rows in Postgres. It expects the following
// schema:
//
//	CREATE TABLE response_cache (
//	    cache_key  text PRIMARY KEY,
//	    status     integer NOT NULL,
//	    headers    jsonb NOT NULL,
//	    body       bytea NOT NULL,
//	    stored_at  timestamptz NOT NULL,
//	    expires_at timestamptz NOT NULL
//	);
type Store struct {
	pool  querier
	table string
	ttl   time.Duration
	clock cache.Clock
}

// NewStore creates a Postgres-backed Store using the provided config.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("cache.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "response_cache"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{
		pool:  pool,
		table: table,
		ttl:   cfg.TTL,
		clock: system.New(),
	}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewStoreWithPool(pool querier, table string, ttl time.Duration, clk cache.Clock) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "response_cache"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if clk == nil {
		clk = system.New()
	}
	return &Store{pool: pool, table: table, ttl: ttl, clock: clk}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Match returns the unexpired entry stored under key, if any. Expiry is
// enforced in SQL so clock skew between instances cannot resurrect rows.
func (s *Store) Match(ctx context.Context, key string) (cache.Entry, bool, error) {
	if s == nil || s.pool == nil {
		return cache.Entry{}, false, fmt.Errorf("cache store is not configured")
	}
	query := fmt.Sprintf(
		`SELECT status, headers, body, stored_at FROM %s WHERE cache_key = $1 AND expires_at > now()`,
		s.table,
	)
	var (
		status      int
		headersJSON []byte
		body        []byte
		storedAt    time.Time
	)
	err := s.pool.QueryRow(ctx, query, key).Scan(&status, &headersJSON, &body, &storedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("select cache row: %w", err)
	}
	header := http.Header{}
	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &header); err != nil {
			return cache.Entry{}, false, fmt.Errorf("unmarshal cached headers: %w", err)
		}
	}
	return cache.Entry{Status: status, Header: header, Body: body, StoredAt: storedAt}, true, nil
}

// Put upserts entry under key with a fresh expiry.
func (s *Store) Put(ctx context.Context, key string, entry cache.Entry) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("cache store is not configured")
	}
	if key == "" {
		return fmt.Errorf("cache key is required")
	}
	headersJSON, err := json.Marshal(normalizeHeaders(entry.Header))
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = s.clock.Now()
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	cache_key,
	status,
	headers,
	body,
	stored_at,
	expires_at
) VALUES (
	$1,$2,$3,$4,$5,$6
)
ON CONFLICT (cache_key) DO UPDATE SET
	status = EXCLUDED.status,
	headers = EXCLUDED.headers,
	body = EXCLUDED.body,
	stored_at = EXCLUDED.stored_at,
	expires_at = EXCLUDED.expires_at`, s.table)

	args := []any{
		key,
		entry.Status,
		headersJSON,
		entry.Body,
		storedAt,
		storedAt.Add(s.ttl),
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert cache row: %w", err)
	}
	return nil
}

func normalizeHeaders(h http.Header) map[string][]string {
	if len(h) == 0 {
		return map[string][]string{}
	}
	out := make(map[string][]string, len(h))
	for k, values := range h {
		out[k] = append([]string(nil), values...)
	}
	return out
}
