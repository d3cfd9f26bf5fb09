package prometheus

import (
	"time"

	"github.com/amirasaad/bankcore/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements metrics.Recorder for Prometheus.
type Collector struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewCollector creates a collector whose series are prefixed with namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "money_operations_total",
				Help:      "Total number of money operations by operation, outcome and reason",
			},
			[]string{"operation", "outcome", "reason"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "money_operation_duration_seconds",
				Help:      "Latency of money operations including lock wait and commit",
				Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation", "outcome"},
		),
	}
}

// Register registers all metrics with the given registerer.
func (c *Collector) Register(registry prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{c.operations, c.latency} {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// ObserveOperation implements metrics.Recorder.
func (c *Collector) ObserveOperation(operation, outcome, reason string, took time.Duration) {
	c.operations.WithLabelValues(operation, outcome, reason).Inc()
	c.latency.WithLabelValues(operation, outcome).Observe(took.Seconds())
}

var _ metrics.Recorder = (*Collector)(nil)
