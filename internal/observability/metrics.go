// Package observability implements manager.Metrics on top of
// prometheus/client_golang, grounded on the pack's
// hakandemirdev-kroma/utils/service/metrics exposition pattern, replacing
// the teacher's hand-rolled internal/monitor exposition.
package observability

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements manager.Metrics, labeling every series by the
// scheduler lane name (check:<domain>:<hash> or download:<domain>).
type PrometheusMetrics struct {
	registry      *prometheus.Registry
	backoffDelay  *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	completed     *prometheus.CounterVec
	failed        *prometheus.CounterVec
	activeLanes   prometheus.Gauge
	episodesFound prometheus.Counter
}

// NewPrometheusMetrics builds a PrometheusMetrics backed by a fresh
// registry, so multiple application instances in the same process (as in
// tests) never collide on prometheus' default global registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,
		backoffDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wetvlo",
			Name:      "backoff_delay_seconds",
			Help:      "Computed backoff delay before a retried task re-runs, by lane.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"lane"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wetvlo",
			Name:      "task_retries_total",
			Help:      "Number of times a task was retried, by lane.",
		}, []string{"lane"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wetvlo",
			Name:      "task_completed_total",
			Help:      "Number of tasks that completed successfully, by lane.",
		}, []string{"lane"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wetvlo",
			Name:      "task_failed_total",
			Help:      "Number of tasks that exhausted retries and failed, by lane.",
		}, []string{"lane"}),
		activeLanes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wetvlo",
			Name:      "active_lanes",
			Help:      "Number of lanes currently registered with the scheduler.",
		}),
		episodesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wetvlo",
			Name:      "episodes_found_total",
			Help:      "Number of new episodes discovered across all series.",
		}),
	}

	registry.MustRegister(m.backoffDelay, m.retries, m.completed, m.failed, m.activeLanes, m.episodesFound)
	return m
}

// ObserveBackoff implements manager.Metrics.
func (m *PrometheusMetrics) ObserveBackoff(lane string, delay float64) {
	m.backoffDelay.WithLabelValues(lane).Observe(delay)
}

// IncRetry implements manager.Metrics.
func (m *PrometheusMetrics) IncRetry(lane string) {
	m.retries.WithLabelValues(lane).Inc()
}

// IncCompleted implements manager.Metrics.
func (m *PrometheusMetrics) IncCompleted(lane string) {
	m.completed.WithLabelValues(lane).Inc()
}

// IncFailed implements manager.Metrics.
func (m *PrometheusMetrics) IncFailed(lane string) {
	m.failed.WithLabelValues(lane).Inc()
}

// SetActiveLanes records the current number of registered scheduler lanes.
func (m *PrometheusMetrics) SetActiveLanes(n int) {
	m.activeLanes.Set(float64(n))
}

// AddEpisodesFound increments the total discovered-episode counter.
func (m *PrometheusMetrics) AddEpisodesFound(n int) {
	if n <= 0 {
		return
	}
	m.episodesFound.Add(float64(n))
}

// Registry exposes the underlying prometheus.Registry, e.g. for tests that
// want to scrape counter values directly.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ListenAndServe serves the metrics registry over HTTP until ctx is
// canceled, grounded on the pack's metrics.ListenAndServe helper.
func (m *PrometheusMetrics) ListenAndServe(ctx context.Context, hostname string, port int) error {
	addr := net.JoinHostPort(hostname, strconv.Itoa(port))
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.InstrumentMetricHandler(m.registry, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("observability: shutdown metrics server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("observability: serve metrics: %w", err)
		}
		return nil
	}
}
