package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsLabelsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe(http.MethodPost, "/api/v1/wizard/submit", http.StatusCreated, 15*time.Millisecond)
	metrics.Observe(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	if got := testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodPost, "/api/v1/wizard/submit", "201")); got != 1 {
		t.Fatalf("expected requests=1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "unmatched", "404")); got != 1 {
		t.Fatalf("expected unmatched=1, got %f", got)
	}
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var metrics *HTTPMetrics
	metrics.Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
}
