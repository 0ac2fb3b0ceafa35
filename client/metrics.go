package client

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/ticketfront/metric"
)

// Metrics holds the connection manager's prometheus collectors.
type Metrics struct {
	state           prometheus.Gauge
	connections     prometheus.Counter
	reconnects      prometheus.Counter
	commandsSent    *prometheus.CounterVec
	repliesReceived *prometheus.CounterVec
	sendRejected    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

func newMetrics(registry metric.Registrar, name string) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "client",
			Name:      "state",
			Help:      "Connection state (0=disconnected, 1=connecting, 2=connected, 3=errored)",
		}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "client",
			Name:      "connections_total",
			Help:      "Successful connections",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "client",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts scheduled after a close",
		}),
		commandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "client",
			Name:      "commands_sent_total",
			Help:      "Commands written to the channel",
		}, []string{"command"}),
		repliesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "client",
			Name:      "replies_received_total",
			Help:      "Inbound messages by correlated command",
		}, []string{"command"}),
		sendRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "client",
			Name:      "send_rejected_total",
			Help:      "Sends refused or failed",
		}, []string{"reason"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "client",
			Name:      "errors_total",
			Help:      "Channel errors by type",
		}, []string{"type"}),
	}

	_ = registry.RegisterGauge(name, "state", m.state)
	_ = registry.RegisterCounter(name, "connections", m.connections)
	_ = registry.RegisterCounter(name, "reconnects", m.reconnects)
	_ = registry.RegisterCounterVec(name, "commands_sent", m.commandsSent)
	_ = registry.RegisterCounterVec(name, "replies_received", m.repliesReceived)
	_ = registry.RegisterCounterVec(name, "send_rejected", m.sendRejected)
	_ = registry.RegisterCounterVec(name, "errors", m.errorsTotal)

	return m
}
