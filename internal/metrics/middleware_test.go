package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/song/{id:[0-9]+}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/song/2236")
	if err != nil {
		t.Fatal(err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Log(err)
	}

	resp, err = http.Get(ts.URL + "/missing")
	if err != nil {
		t.Fatal(err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Log(err)
	}

	if val := testutil.ToFloat64(proxyRequestsTotal.WithLabelValues("GET", "200")); val != 1 {
		t.Errorf("Expected proxyRequestsTotal for GET 200 to be 1, got %f", val)
	}
	if val := testutil.ToFloat64(proxyRequestsTotal.WithLabelValues("GET", "404")); val != 1 {
		t.Errorf("Expected proxyRequestsTotal for GET 404 to be 1, got %f", val)
	}
}
