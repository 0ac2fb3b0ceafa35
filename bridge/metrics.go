package bridge

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/ticketfront/metric"
)

// Metrics holds the bridge's prometheus collectors.
type Metrics struct {
	sessionsActive    prometheus.Gauge
	sessionsTotal     prometheus.Counter
	commandsForwarded *prometheus.CounterVec
	rateLimited       prometheus.Counter
	backendFailures   *prometheus.CounterVec
	exchangeDuration  *prometheus.HistogramVec
}

func newMetrics(registry metric.Registrar, name string) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "bridge",
			Name:      "sessions_active",
			Help:      "Open websocket sessions",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "bridge",
			Name:      "sessions_total",
			Help:      "Websocket sessions accepted",
		}),
		commandsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "bridge",
			Name:      "commands_forwarded_total",
			Help:      "Commands written to a backend",
		}, []string{"command"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "bridge",
			Name:      "rate_limited_total",
			Help:      "Commands rejected by the session rate limit",
		}),
		backendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "bridge",
			Name:      "backend_failures_total",
			Help:      "Backend start and exchange failures",
		}, []string{"reason"}),
		exchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "bridge",
			Name:      "exchange_duration_seconds",
			Help:      "Time from command write to complete reply",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"command"}),
	}

	_ = registry.RegisterGauge(name, "sessions_active", m.sessionsActive)
	_ = registry.RegisterCounter(name, "sessions", m.sessionsTotal)
	_ = registry.RegisterCounterVec(name, "commands_forwarded", m.commandsForwarded)
	_ = registry.RegisterCounter(name, "rate_limited", m.rateLimited)
	_ = registry.RegisterCounterVec(name, "backend_failures", m.backendFailures)
	_ = registry.RegisterHistogramVec(name, "exchange_duration", m.exchangeDuration)

	return m
}
