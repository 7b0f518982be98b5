// Package metrics exposes prometheus counters for conversions, screen
// transitions and session events.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wordsmith"

// Metrics holds the application's collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Conversions       *prometheus.CounterVec
	ConversionSeconds *prometheus.HistogramVec
	ScreenTransitions *prometheus.CounterVec
	AuthEvents        *prometheus.CounterVec
	ThrottledEvents   *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Conversions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "convert",
				Name:      "requests_total",
				Help:      "Conversion requests by type and result",
			},
			[]string{"type", "result"},
		),
		ConversionSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "convert",
				Name:      "duration_seconds",
				Help:      "Conversion latency in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"type"},
		),
		ScreenTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "screen",
				Name:      "transitions_total",
				Help:      "Screen transitions by source and target screen",
			},
			[]string{"from", "to"},
		),
		AuthEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "events_total",
				Help:      "Login, logout and refresh outcomes",
			},
			[]string{"event"},
		),
		ThrottledEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "throttled_total",
				Help:      "Shortcut and clipboard events dropped by the rate limiter",
			},
			[]string{"source"},
		),
	}
}

// ObserveConversion records one conversion.
func (m *Metrics) ObserveConversion(convertType, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Conversions.WithLabelValues(convertType, result).Inc()
	m.ConversionSeconds.WithLabelValues(convertType).Observe(d.Seconds())
}

// ObserveTransition records a screen change.
func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.ScreenTransitions.WithLabelValues(from, to).Inc()
}

// ObserveAuth records an auth event such as "login" or "logout".
func (m *Metrics) ObserveAuth(event string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(event).Inc()
}

// ObserveThrottled records a dropped input event.
func (m *Metrics) ObserveThrottled(source string) {
	if m == nil {
		return
	}
	m.ThrottledEvents.WithLabelValues(source).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
