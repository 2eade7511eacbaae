package connection

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts endpoint traffic. A nil *Metrics records nothing.
type Metrics struct {
	sent     *prometheus.CounterVec
	received *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	faults   *prometheus.CounterVec
}

// NewMetrics creates endpoint metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxpc",
			Subsystem: "connection",
			Name:      "messages_sent_total",
			Help:      "Messages handed to the transport, by value kind.",
		}, []string{"kind"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxpc",
			Subsystem: "connection",
			Name:      "messages_received_total",
			Help:      "Messages delivered on inbound streams, by value kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxpc",
			Subsystem: "connection",
			Name:      "messages_dropped_total",
			Help:      "Inbound native events that did not decode, by native type.",
		}, []string{"native_type"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxpc",
			Subsystem: "connection",
			Name:      "faults_total",
			Help:      "Inbound streams terminated by a connection fault.",
		}, []string{"fault"}),
	}
	if reg != nil {
		reg.MustRegister(m.sent, m.received, m.dropped, m.faults)
	}
	return m
}

func (m *Metrics) messageSent(kind string) {
	if m != nil {
		m.sent.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) messageReceived(kind string) {
	if m != nil {
		m.received.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) messageDropped(nativeType string) {
	if m != nil {
		m.dropped.WithLabelValues(nativeType).Inc()
	}
}

func (m *Metrics) fault(name string) {
	if m != nil {
		m.faults.WithLabelValues(name).Inc()
	}
}
