// Package metric wraps a prometheus registry for the ticketfront processes.
//
// MetricsRegistry holds the core metrics (build info, errors, health) and
// lets components register their own collectors under a service name:
//
//	registry := metric.NewMetricsRegistry()
//	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
//	    Namespace: metric.Namespace,
//	    Subsystem: "client",
//	    Name:      "commands_sent_total",
//	}, []string{"command"})
//	_ = registry.RegisterCounterVec("client", "commands_sent", sent)
//
// Registering the same service and metric name twice returns an invalid-class
// error rather than panicking, so a component constructed twice in tests only
// loses its metrics.
//
// Server serves the registry with promhttp and, when given a handler, the
// aggregated health document at /health.
package metric
