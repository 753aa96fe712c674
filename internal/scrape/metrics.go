package scrape

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks run throughput on a dedicated registry so embedding
// applications can expose or discard it without touching the global
// default registry.
type Metrics struct {
	registry *prometheus.Registry

	targetsTotal    *prometheus.CounterVec
	targetDuration  prometheus.Histogram
	activeWorkers   prometheus.Gauge
	imagesCollected prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		targetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jumiascan",
			Name:      "targets_total",
			Help:      "Targets processed, partitioned by outcome.",
		}, []string{"outcome"}),
		targetDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "jumiascan",
			Name:      "target_duration_seconds",
			Help:      "Wall time spent processing one target.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jumiascan",
			Name:      "active_workers",
			Help:      "Workers currently driving a browser session.",
		}),
		imagesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jumiascan",
			Name:      "images_collected_total",
			Help:      "Product images collected across all records.",
		}),
	}

	m.registry.MustRegister(m.targetsTotal, m.targetDuration, m.activeWorkers, m.imagesCollected)
	return m
}

// Registry exposes the underlying registry for an HTTP metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeOutcome(outcome string, elapsed time.Duration) {
	m.targetsTotal.WithLabelValues(outcome).Inc()
	m.targetDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) workerStarted()  { m.activeWorkers.Inc() }
func (m *Metrics) workerFinished() { m.activeWorkers.Dec() }

func (m *Metrics) addImages(n int) {
	m.imagesCollected.Add(float64(n))
}
