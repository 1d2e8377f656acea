// Package metrics holds the Prometheus collectors for one finder run.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	StageImage       = "image"
	StageDescription = "description"
	StageSearch      = "search"
	StagePublish     = "publish"
)

// Metrics holds the counters for a single run. The process is short-lived,
// so they are pushed to a Pushgateway instead of scraped.
type Metrics struct {
	registry *prometheus.Registry

	Runs          *prometheus.CounterVec
	StageFailures *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	Tutorials     prometheus.Gauge
	Dropped       prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorial_finder_runs_total",
			Help: "Runs by final outcome.",
		}, []string{"outcome"}), // e.g. 'accepted', 'rejected', 'backend_error'
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorial_finder_stage_failures_total",
			Help: "Failures that degraded or aborted a pipeline stage.",
		}, []string{"stage"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tutorial_finder_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		Tutorials: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tutorial_finder_tutorials_returned",
			Help: "Number of ranked tutorials in the last result.",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "tutorial_finder_candidates_dropped_total",
			Help: "Search hits skipped for missing title or link, or filtered by language.",
		}),
	}
}

func (m *Metrics) IncRun(outcome string) {
	m.Runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncStageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveStage(stage string, started time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// Push sends every collected metric to the Pushgateway at url under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
