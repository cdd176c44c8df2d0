package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ryanrahman1/nichegeniusproxy/internal/metrics"
)

// NewAdminHandler returns the operational surface served on the admin port:
// liveness, readiness, and Prometheus metrics. It is kept off the public
// listener so the pipeline can hard 404 every unknown path.
func NewAdminHandler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}
