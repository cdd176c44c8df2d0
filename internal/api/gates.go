package api

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ryanrahman1/nichegeniusproxy/internal/cache"
	"github.com/ryanrahman1/nichegeniusproxy/internal/metrics"
)

// authGate rejects any request that does not present the shared secret. An
// empty configured secret rejects everything, so a misconfigured deployment
// fails closed rather than open.
func (s *Server) authGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.cfg.Auth.Secret
		if secret == "" || r.Header.Get(secretHeader) != secret {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitGate consults the limiter keyed by the client IP header, falling
// back to a shared anonymous bucket when the header is absent. Limiter
// failures fail open: an unreachable limiter must not take the proxy down
// with it.
func (s *Server) rateLimitGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(s.cfg.RateLimit.IPHeader)
		if key == "" {
			key = "anonymous"
		}
		allowed, err := s.limiter.Allow(r.Context(), key)
		if err != nil {
			metrics.ObserveRateLimit(metrics.RateLimitFailOpen)
			s.logger.Warn("rate limiter unavailable",
				zap.String("key", key),
				zap.Error(err),
			)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			metrics.ObserveRateLimit(metrics.RateLimitRejected)
			writeError(w, http.StatusTooManyRequests, "Too Many Requests")
			return
		}
		metrics.ObserveRateLimit(metrics.RateLimitAllowed)
		next.ServeHTTP(w, r)
	})
}

// cacheGate replays stored responses for GET requests and records fresh
// 200s for the background writer. Only responses the handlers marked as
// cacheable are enqueued, so error payloads and the info page never reach
// the store.
func (s *Server) cacheGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		key := cache.Key(r.Method, r.URL.RequestURI())
		entry, ok, err := s.store.Match(r.Context(), key)
		if err != nil {
			s.logger.Warn("cache lookup failed", zap.Error(err))
		}
		if ok {
			metrics.ObserveCacheEvent(metrics.CacheHit)
			s.replayEntry(w, entry)
			return
		}
		rec := &cacheRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status != http.StatusOK || rec.Header().Get(cacheHeader) != cacheMiss {
			return
		}
		metrics.ObserveCacheEvent(metrics.CacheMiss)
		if s.writer == nil {
			return
		}
		header := rec.Header().Clone()
		header.Del(requestIDHeader)
		header.Del(cacheHeader)
		s.writer.Enqueue(key, cache.Entry{
			Status:   rec.status,
			Header:   header,
			Body:     rec.body.Bytes(),
			StoredAt: time.Now().UTC(),
		})
	})
}

// methodGate narrows the public surface to GET plus the CORS preflight.
// Every other method is turned away before routing.
func (s *Server) methodGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			next.ServeHTTP(w, r)
		case http.MethodOptions:
			writePreflight(w)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

// replayEntry writes a stored response verbatim, overriding only the cache
// marker so clients can tell a replay from a fresh fetch.
func (s *Server) replayEntry(w http.ResponseWriter, entry cache.Entry) {
	for key, values := range entry.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set(cacheHeader, cacheHit)
	w.WriteHeader(entry.Status)
	if _, err := w.Write(entry.Body); err != nil {
		s.logger.Debug("cache replay write failed", zap.Error(err))
	}
}

func writePreflight(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", corsAllowOrigin)
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, "+secretHeader)
	h.Set("Access-Control-Max-Age", preflightMaxAge)
	w.WriteHeader(http.StatusOK)
}

// cacheRecorder tees the response body while it streams to the client so the
// cache gate can hand a copy to the background writer afterwards.
type cacheRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rec *cacheRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *cacheRecorder) Write(b []byte) (int, error) {
	rec.body.Write(b)
	return rec.ResponseWriter.Write(b)
}

func (rec *cacheRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *cacheRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rec.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("response writer does not support hijacking")
}
