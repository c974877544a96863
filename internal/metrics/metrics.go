// Package metrics exposes collector run statistics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stockcollector/internal/domain"
)

const namespace = "stock_collector"

// Metrics implements the collector's Recorder with Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	SymbolsFetched *prometheus.CounterVec
	DatesCommitted prometheus.Counter
	DatesSkipped   prometheus.Counter
	RecordsWritten prometheus.Counter
	Sentinels      prometheus.Counter
	Runs           *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	LastRun        prometheus.Gauge
}

// New creates and registers the collector metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SymbolsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "symbols_fetched_total",
			Help:      "Symbol-date fetches by record origin",
		}, []string{"origin"}),
		DatesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dates_committed_total",
			Help:      "Date partitions written and checkpointed",
		}),
		DatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dates_skipped_total",
			Help:      "Dates skipped as non-trading days",
		}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Records written to partitions",
		}),
		Sentinels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentinel_records_total",
			Help:      "Zero-filled records written to partitions",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Collector runs by outcome",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Collector run duration in seconds",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600},
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
	m.registry.MustRegister(
		m.SymbolsFetched,
		m.DatesCommitted,
		m.DatesSkipped,
		m.RecordsWritten,
		m.Sentinels,
		m.Runs,
		m.RunDuration,
		m.LastRun,
		collectors.NewGoCollector(),
	)
	return m
}

// SymbolFetched counts one fetch by origin.
func (m *Metrics) SymbolFetched(origin string) {
	m.SymbolsFetched.WithLabelValues(origin).Inc()
}

// DateCommitted counts a written partition.
func (m *Metrics) DateCommitted(records, sentinels int) {
	m.DatesCommitted.Inc()
	m.RecordsWritten.Add(float64(records))
	m.Sentinels.Add(float64(sentinels))
}

// DateSkipped counts a non-trading day.
func (m *Metrics) DateSkipped() {
	m.DatesSkipped.Inc()
}

// RunFinished records a run's outcome and duration.
func (m *Metrics) RunFinished(outcome domain.RunOutcome, elapsed time.Duration) {
	m.Runs.WithLabelValues(string(outcome)).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	m.LastRun.SetToCurrentTime()
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve serves /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
