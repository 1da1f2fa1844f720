package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/any-hub/any-cache/internal/cache"
)

func TestObserveLoadCountsByOutcome(t *testing.T) {
	r := NewRecorder()
	r.ObserveLoad(cache.OutcomeFresh, 10*time.Millisecond)
	r.ObserveLoad(cache.OutcomeStale, 20*time.Millisecond)
	r.ObserveLoad(cache.OutcomeStale, 5*time.Millisecond)

	if got := testutil.ToFloat64(r.LoadsTotal.WithLabelValues("stale")); got != 2 {
		t.Fatalf("expected 2 stale loads, got %v", got)
	}
	if got := testutil.ToFloat64(r.LoadsTotal.WithLabelValues("fresh")); got != 1 {
		t.Fatalf("expected 1 fresh load, got %v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveLoad(cache.OutcomeFailed, time.Second)
	r.RecordRequest("npm", 502)
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder()
	r.RecordRequest("npm", 200)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/-/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `any_cache_requests_total{remote="npm",status="200"} 1`) {
		t.Fatalf("expected request counter in exposition, got:\n%s", body)
	}
}
