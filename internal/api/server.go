// Package api exposes the HTTP interface for the proxy service: the public
// request pipeline and the operational admin surface.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ryanrahman1/nichegeniusproxy/internal/cache"
	"github.com/ryanrahman1/nichegeniusproxy/internal/config"
	"github.com/ryanrahman1/nichegeniusproxy/internal/genius"
	"github.com/ryanrahman1/nichegeniusproxy/internal/metrics"
	"github.com/ryanrahman1/nichegeniusproxy/internal/ratelimit"
	"github.com/ryanrahman1/nichegeniusproxy/internal/writeback"
)

const (
	secretHeader    = "X-Proxy-Secret"
	cacheHeader     = "X-Proxy-Cache"
	cacheHit        = "HIT"
	cacheMiss       = "MISS"
	corsAllowOrigin = "*"

	// Shared edges may keep responses for a day, browsers for an hour.
	cacheControlValue = "public, s-maxage=86400, max-age=3600"
	preflightMaxAge   = "86400"
)

// Server wires the request pipeline to the upstream client, cache, and rate
// limiter. A nil store disables the cache gate, a nil limiter disables the
// rate limit gate, and a nil writer disables the asynchronous write-through.
type Server struct {
	router   chi.Router
	upstream genius.Fetcher
	store    cache.Store
	writer   *writeback.Writer
	limiter  ratelimit.Limiter
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with the gate middlewares and routes. Gates
// run in a fixed order: auth, rate limit, cache, method, then routing. The
// cache is consulted only after auth and rate limiting so cached content is
// never served to callers who would otherwise be rejected.
func NewServer(
	upstream genius.Fetcher,
	store cache.Store,
	writer *writeback.Writer,
	limiter ratelimit.Limiter,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		upstream: upstream,
		store:    store,
		writer:   writer,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	r.Use(metrics.Middleware)
	if cfg.Auth.Enabled {
		r.Use(s.authGate)
	}
	if limiter != nil {
		r.Use(s.rateLimitGate)
	}
	if store != nil {
		r.Use(s.cacheGate)
	}
	r.Use(s.methodGate)

	r.Get("/", s.handleRoot)
	r.Get("/song/{id:[0-9]+}", s.handleSong)
	r.Get("/artist/{id:[0-9]+}", s.handleArtist)
	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMethodNotAllowed(w)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Lyrics API proxy. Fetch songs and artists by numeric id.",
		"endpoints": map[string]string{
			"song":   "/song/{id}",
			"artist": "/artist/{id}",
		},
	})
}

func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	s.handleFetch(w, r, "song", func(ctx context.Context, token string) (any, error) {
		return s.upstream.Song(ctx, chi.URLParam(r, "id"), token)
	})
}

func (s *Server) handleArtist(w http.ResponseWriter, r *http.Request) {
	s.handleFetch(w, r, "artist", func(ctx context.Context, token string) (any, error) {
		return s.upstream.Artist(ctx, chi.URLParam(r, "id"), token)
	})
}

// handleFetch runs one upstream call and renders the shared success and
// error shapes. Every failure maps to a 500 with the error message in the
// body; successes carry the cache directives and the MISS marker the cache
// gate looks for when scheduling the write-through.
func (s *Server) handleFetch(
	w http.ResponseWriter,
	r *http.Request,
	resource string,
	fetch func(context.Context, string) (any, error),
) {
	token := s.cfg.Upstream.Token
	if token == "" {
		writeError(w, http.StatusInternalServerError, "Upstream API token is not configured")
		return
	}
	start := time.Now()
	record, err := fetch(r.Context(), token)
	if err != nil {
		metrics.ObserveUpstream(resource, "error", time.Since(start))
		s.logger.Error("upstream fetch failed",
			zap.String("resource", resource),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveUpstream(resource, "success", time.Since(start))
	w.Header().Set("Cache-Control", cacheControlValue)
	w.Header().Set(cacheHeader, cacheMiss)
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found. Try /song/{id} or /artist/{id}")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", corsAllowOrigin)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", corsAllowOrigin)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusMethodNotAllowed)
	if _, err := w.Write([]byte("Method not allowed")); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}
