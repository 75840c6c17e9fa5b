package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/facebridge/metric"
)

// queueMetrics mirrors queue activity into Prometheus. All fields are
// updated under the queue mutex.
type queueMetrics struct {
	writes prometheus.Counter
	drops  prometheus.Counter
	depth  prometheus.Gauge
}

// ExportMetrics registers the queue's counters and depth gauge with the
// registry under the given component label. Call once, before the queue
// is in use.
func (q *Queue[T]) ExportMetrics(registry *metric.MetricsRegistry, component string) error {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "facebridge",
			Subsystem:   "queue",
			Name:        name,
			ConstLabels: prometheus.Labels{"component": component},
			Help:        help,
		})
	}

	m := &queueMetrics{
		writes: counter("writes_total", "Frames accepted into the hand-off queue"),
		drops:  counter("drops_total", "Frames shed by the overflow policy"),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "facebridge",
			Subsystem:   "queue",
			Name:        "depth",
			ConstLabels: prometheus.Labels{"component": component},
			Help:        "Frames currently queued",
		}),
	}

	if err := registry.RegisterCounter(component, "queue_writes", m.writes); err != nil {
		return err
	}
	if err := registry.RegisterCounter(component, "queue_drops", m.drops); err != nil {
		return err
	}
	if err := registry.RegisterGauge(component, "queue_depth", m.depth); err != nil {
		return err
	}

	q.mu.Lock()
	q.metrics = m
	q.mu.Unlock()

	return nil
}
