// Package metrics provides Prometheus metrics for the polling loop.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roomwatch"

// Metrics holds the cycle counters. A nil *Metrics records nothing.
type Metrics struct {
	fetched       *prometheus.CounterVec
	duplicates    *prometheus.CounterVec
	accepted      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	lastSuccess   prometheus.Gauge
}

// New registers the metrics with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		fetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_fetched_total",
			Help:      "Postings returned by the listing source",
		}, []string{"area"}),
		duplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Postings skipped because they were already seen",
		}, []string{"area"}),
		accepted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accepted_total",
			Help:      "Postings that passed every condition",
		}, []string{"area"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by result",
		}, []string{"result"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full poll cycle in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix timestamp of the last completed cycle",
		}),
	}
}

// Fetched adds n fetched postings for area
func (m *Metrics) Fetched(area string, n int) {
	if m == nil {
		return
	}
	m.fetched.WithLabelValues(area).Add(float64(n))
}

// Duplicate counts a posting that was already recorded
func (m *Metrics) Duplicate(area string) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(area).Inc()
}

// Accepted counts a posting that passed the conditions
func (m *Metrics) Accepted(area string) {
	if m == nil {
		return
	}
	m.accepted.WithLabelValues(area).Inc()
}

// Notification counts a send attempt; result is "sent" or "failed"
func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

// CycleDone observes the cycle duration and stamps the completion time
func (m *Metrics) CycleDone(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
	m.lastSuccess.SetToCurrentTime()
}

// Handler serves /metrics for gatherer plus a /healthz probe
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve runs the metrics endpoint on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           Handler(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
