package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveConversion("revision", "ok", 120*time.Millisecond)
	m.ObserveConversion("revision", "ok", 80*time.Millisecond)
	m.ObserveConversion("spark", "limit_exceeded", 0)
	m.ObserveTransition("MAIN", "LIMIT_EXCEEDED")
	m.ObserveAuth("login")

	if got := testutil.ToFloat64(m.Conversions.WithLabelValues("revision", "ok")); got != 2 {
		t.Fatalf("revision ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ScreenTransitions.WithLabelValues("MAIN", "LIMIT_EXCEEDED")); got != 1 {
		t.Fatalf("transitions = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveConversion("revision", "ok", time.Second)
	m.ObserveTransition("A", "B")
	m.ObserveAuth("logout")
	m.ObserveThrottled("shortcut")
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveAuth("refresh")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `wordsmith_auth_events_total{event="refresh"} 1`) {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
