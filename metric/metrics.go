package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the core gateway metrics shared across components.
type Metrics struct {
	// TicksTotal counts encode-and-send cycles, labeled by trigger
	// ("loopback" or "consumer").
	TicksTotal *prometheus.CounterVec

	// FramesReceived counts drains on which a backend reported live
	// tracking data.
	FramesReceived *prometheus.CounterVec

	// MessagesSent counts outbound OSC messages by kind
	// ("parameter", "input", "tracking").
	MessagesSent *prometheus.CounterVec

	// PacketsSent counts UDP datagrams actually written to the consumer.
	PacketsSent prometheus.Counter

	// SchemaRebuilds counts parameter table rebuilds from discovery.
	SchemaRebuilds prometheus.Counter

	// DriveMode reports the tick source: 1 self-driven, 0 externally driven.
	DriveMode prometheus.Gauge

	// BackendConnected reports per-backend link state (1 up, 0 down).
	BackendConnected *prometheus.GaugeVec

	// TickDuration observes how long one tick takes end to end.
	TickDuration prometheus.Histogram
}

// NewMetrics creates the core gateway metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facebridge",
			Subsystem: "gateway",
			Name:      "ticks_total",
			Help:      "Total encode-and-send cycles by trigger source",
		}, []string{"trigger"}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facebridge",
			Subsystem: "input",
			Name:      "frames_received_total",
			Help:      "Total drains on which each backend reported live tracking data",
		}, []string{"backend"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facebridge",
			Subsystem: "gateway",
			Name:      "messages_sent_total",
			Help:      "Total outbound OSC messages by kind",
		}, []string{"kind"}),
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facebridge",
			Subsystem: "gateway",
			Name:      "packets_sent_total",
			Help:      "Total UDP datagrams written to the consumer",
		}),
		SchemaRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facebridge",
			Subsystem: "params",
			Name:      "schema_rebuilds_total",
			Help:      "Total parameter table rebuilds from discovery",
		}),
		DriveMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "facebridge",
			Subsystem: "gateway",
			Name:      "self_driven",
			Help:      "Tick source: 1 when self-driven, 0 when externally driven",
		}),
		BackendConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "facebridge",
			Subsystem: "input",
			Name:      "backend_connected",
			Help:      "Per-backend link state (1 up, 0 down)",
		}, []string{"backend"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "facebridge",
			Subsystem: "gateway",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one encode-and-send cycle",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
}
