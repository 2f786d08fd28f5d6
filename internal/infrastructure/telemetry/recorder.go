package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"GrantScanner/internal/domain"
)

const namespace = "grantscanner"

// Recorder exposes per-record processing outcomes as Prometheus counters.
type Recorder struct {
	registry  *prometheus.Registry
	processed *prometheus.CounterVec
	skipped   prometheus.Counter
	refreshes *prometheus.CounterVec
	lastRun   prometheus.Gauge
}

// NewRecorder registers the collectors on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_processed_total",
			Help:      "Proposals normalized and classified, by category.",
		}, []string{"category"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_skipped_total",
			Help:      "Raw records dropped as malformed.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "Pipeline refresh passes, by outcome.",
		}, []string{"outcome"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
	}
	r.registry.MustRegister(r.processed, r.skipped, r.refreshes, r.lastRun)
	for _, c := range domain.Categories {
		r.processed.WithLabelValues(string(c))
	}
	return r
}

// RecordProcessed counts one proposal in its category.
func (r *Recorder) RecordProcessed(category domain.Category) {
	r.processed.WithLabelValues(string(category)).Inc()
}

// RecordSkipped counts one malformed record.
func (r *Recorder) RecordSkipped() {
	r.skipped.Inc()
}

// RecordRefresh counts a refresh pass; err == nil marks it successful.
func (r *Recorder) RecordRefresh(at time.Time, err error) {
	if err != nil {
		r.refreshes.WithLabelValues("error").Inc()
		return
	}
	r.refreshes.WithLabelValues("ok").Inc()
	r.lastRun.Set(float64(at.Unix()))
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	if logger != nil {
		logger.Info("telemetry listening", "addr", addr)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("telemetry server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("telemetry shutdown: %w", err)
		}
		return nil
	}
}
