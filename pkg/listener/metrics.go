package listener

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts accept decisions. A nil *Metrics records nothing.
type Metrics struct {
	live     prometheus.Gauge
	accepted prometheus.Counter
	rejected prometheus.Counter
	removed  *prometheus.CounterVec
}

// NewMetrics creates listener metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rxpc",
			Subsystem: "listener",
			Name:      "connections_live",
			Help:      "Accepted endpoints currently registered.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rxpc",
			Subsystem: "listener",
			Name:      "connections_accepted_total",
			Help:      "Inbound endpoints kept by the accept policy.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rxpc",
			Subsystem: "listener",
			Name:      "connections_rejected_total",
			Help:      "Inbound endpoints cancelled by the accept policy.",
		}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxpc",
			Subsystem: "listener",
			Name:      "connections_removed_total",
			Help:      "Endpoints removed from the registry, by cause.",
		}, []string{"cause"}),
	}
	if reg != nil {
		reg.MustRegister(m.live, m.accepted, m.rejected, m.removed)
	}
	return m
}

func (m *Metrics) accept() {
	if m != nil {
		m.accepted.Inc()
		m.live.Inc()
	}
}

func (m *Metrics) reject() {
	if m != nil {
		m.rejected.Inc()
	}
}

func (m *Metrics) remove(cause string) {
	if m != nil {
		m.removed.WithLabelValues(cause).Inc()
		m.live.Dec()
	}
}
