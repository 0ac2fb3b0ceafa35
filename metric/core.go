package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every ticketfront metric.
const Namespace = "ticketfront"

// Metrics are the process-wide metrics shared by all components.
type Metrics struct {
	BuildInfo    *prometheus.GaugeVec
	ErrorsTotal  *prometheus.CounterVec
	HealthStatus *prometheus.GaugeVec
}

// NewMetrics creates the core metrics. They are registered by NewMetricsRegistry.
func NewMetrics() *Metrics {
	return &Metrics{
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "build_info",
				Help:      "Build information, always 1",
			},
			[]string{"version", "command"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "errors_total",
				Help:      "Errors by component and type",
			},
			[]string{"component", "type"},
		),

		HealthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "health_status",
				Help:      "Component health (1=healthy, 0.5=degraded, 0=unhealthy)",
			},
			[]string{"component"},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.BuildInfo, c.ErrorsTotal, c.HealthStatus}
}

// RecordBuild sets the build info gauge.
func (c *Metrics) RecordBuild(version, command string) {
	c.BuildInfo.WithLabelValues(version, command).Set(1)
}

// RecordError counts an error for component.
func (c *Metrics) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHealth sets the health gauge from a status level string.
func (c *Metrics) RecordHealth(component, level string) {
	value := 0.0
	switch level {
	case "healthy":
		value = 1
	case "degraded":
		value = 0.5
	}
	c.HealthStatus.WithLabelValues(component).Set(value)
}
