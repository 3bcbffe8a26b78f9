// Package metrics provides Prometheus metrics for the branch predictor
// simulator: observation throughput, prediction outcomes, table growth and
// the observe-path latency, exposed for scraping by cmd/branchsim.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the simulator.
type Metrics struct {
	ObservesTotal    prometheus.Counter   // All observe calls, tagged or not
	PredictionsTotal prometheus.Counter   // Tagged predictions made
	HitsTotal        prometheus.Counter   // Correct predictions
	MispredictsTotal prometheus.Counter   // Incorrect predictions
	ErrorsTotal      prometheus.Counter   // Internal observe-path errors
	TableSize        prometheus.Gauge     // Branch sites tracked
	MovingAccuracy   prometheus.Histogram // Per-observation moving accuracy samples
	ObserveLatency   prometheus.Histogram // Observe call latency in seconds
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, keeping tests
// isolated from the global state.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ObservesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "branch_observes_total",
			Help: "Total number of observed branch outcomes",
		}),
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "branch_predictions_total",
			Help: "Total number of tagged branch predictions made",
		}),
		HitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "branch_hits_total",
			Help: "Total number of correct branch predictions",
		}),
		MispredictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "branch_mispredicts_total",
			Help: "Total number of incorrect branch predictions",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "branch_errors_total",
			Help: "Total number of internal observe-path errors",
		}),
		TableSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "branch_table_size",
			Help: "Number of branch sites tracked by the predictor table",
		}),
		MovingAccuracy: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "branch_moving_accuracy",
			Help:    "Distribution of per-tag moving accuracy after each observation",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ObserveLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "branch_observe_latency_seconds",
			Help:    "Latency of a single observe call in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-7, 4, 12),
		}),
	}
}
