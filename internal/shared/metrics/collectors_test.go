package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func TestAPIMiddleware_LabelsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAPI(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/tips/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/tips/"+id, nil))
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "tips_http_request_duration_seconds" {
			continue
		}
		if len(mf.GetMetric()) != 1 {
			t.Fatalf("expected one series, got %d", len(mf.GetMetric()))
		}
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			if lp.GetName() == "route" && lp.GetValue() != "/v1/tips/{id}" {
				t.Errorf("route label = %s", lp.GetValue())
			}
			if lp.GetName() == "status" && lp.GetValue() != "404" {
				t.Errorf("status label = %s", lp.GetValue())
			}
		}
		return
	}
	t.Fatal("histogram not gathered")
}

func TestHealthz(t *testing.T) {
	var failing error
	h := Handler(map[string]HealthFunc{
		"store": func(context.Context) error { return failing },
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy: got %d", rec.Code)
	}

	failing = errors.New("down")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: got %d", rec.Code)
	}
}
