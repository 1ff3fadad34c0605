// Package metrics exports reconciliation outcomes as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/reconcile"
)

const namespace = "reposync"

// Observer implements reconcile.Observer with Prometheus collectors.
type Observer struct {
	gatherer prometheus.Gatherer

	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ reconcile.Observer = (*Observer)(nil)

// NewObserver registers the reconciliation collectors on a fresh registry.
func NewObserver() *Observer {
	reg := prometheus.NewRegistry()
	o := newObserver(reg)
	o.gatherer = reg
	return o
}

// NewObserverWithRegisterer registers the collectors on reg. Gather uses
// prometheus.DefaultGatherer unless reg is also a Gatherer.
func NewObserverWithRegisterer(reg prometheus.Registerer) *Observer {
	o := newObserver(reg)
	o.gatherer = prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		o.gatherer = g
	}
	return o
}

func newObserver(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)
	return &Observer{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Reconciliations that completed, by operation and whether they changed the destination.",
			},
			[]string{"operation", "changed", "check_mode"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliation_failures_total",
				Help:      "Reconciliations that failed, by error kind.",
			},
			[]string{"kind"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reconciliation_duration_seconds",
				Help:      "Wall-clock time of one reconciliation.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"outcome"},
		),
	}
}

// Observe implements reconcile.Observer.
func (o *Observer) Observe(obs reconcile.Observation) {
	outcome := "success"
	if obs.Kind != "" {
		outcome = "failure"
		o.failures.WithLabelValues(string(obs.Kind)).Inc()
	} else {
		o.runs.WithLabelValues(string(obs.Operation), boolLabel(obs.Changed), boolLabel(obs.CheckMode)).Inc()
	}
	o.duration.WithLabelValues(outcome).Observe(obs.Duration.Seconds())
}

// Gatherer returns the gatherer holding the collectors.
func (o *Observer) Gatherer() prometheus.Gatherer {
	return o.gatherer
}

// WriteToTextfile writes the current metrics in the text exposition format
// for the node_exporter textfile collector. The file is replaced atomically.
func (o *Observer) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, o.gatherer)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
