// Package metrics records run and target metrics with Prometheus collectors.
package metrics

import (
	"errors"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/zerr"
)

const namespace = "rig"

// Recorder implements ports.MetricsRecorder. A nil *Recorder discards everything.
type Recorder struct {
	registry       *prom.Registry
	targetDuration *prom.HistogramVec
	targetResults  *prom.CounterVec
	runDuration    prom.Histogram
	runOutcomes    *prom.CounterVec
	lastRun        prom.Gauge
}

// NewRecorder registers the collectors with reg, or with a fresh registry when reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	r := &Recorder{
		registry: reg,
		targetDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "target_duration_seconds",
			Help:      "Duration of executed target bodies",
			Buckets:   prom.DefBuckets,
		}, []string{"target"}),
		targetResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "target_results_total",
			Help:      "Terminal target states by target and status",
		}, []string{"target", "status"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of whole runs",
			Buckets:   prom.DefBuckets,
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Runs by final outcome",
		}, []string{"outcome"}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
	reg.MustRegister(r.targetDuration, r.targetResults, r.runDuration, r.runOutcomes, r.lastRun)
	return r
}

// ObserveTarget counts the terminal status of a target. Only targets whose
// body ran contribute to the duration histogram.
func (r *Recorder) ObserveTarget(name string, status domain.Status, duration time.Duration) {
	if r == nil {
		return
	}
	r.targetResults.WithLabelValues(name, string(status)).Inc()
	if status == domain.StatusSucceeded || status == domain.StatusFailed {
		r.targetDuration.WithLabelValues(name).Observe(duration.Seconds())
	}
}

// ObserveRun records the outcome of a run.
func (r *Recorder) ObserveRun(success bool, duration time.Duration) {
	if r == nil {
		return
	}
	outcome := "failed"
	if success {
		outcome = "success"
	}
	r.runOutcomes.WithLabelValues(outcome).Inc()
	r.runDuration.Observe(duration.Seconds())
	r.lastRun.SetToCurrentTime()
}

// Export writes every collected metric to path in the text exposition
// format, suitable for the node_exporter textfile collector.
func (r *Recorder) Export(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prom.WriteToTextfile(filepath.Clean(path), r.registry); err != nil {
		return zerr.With(zerr.Wrap(errors.Join(domain.ErrMetricsWriteFailed, err), "failed to write metrics file"), "path", path)
	}
	return nil
}

// Registry returns the registry the collectors are registered with.
func (r *Recorder) Registry() *prom.Registry {
	return r.registry
}
