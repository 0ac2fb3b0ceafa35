// Package health tracks component health for the ticketfront processes.
//
// A Status has one of three levels: healthy, degraded (working, e.g. while
// reconnecting) or unhealthy. Components either implement Checker and are
// polled when health is read, or push statuses with Monitor.Update.
//
//	monitor := health.NewMonitor()
//	monitor.Register("client", manager)
//	http.Handle("/health", monitor.Handler("ticketfront"))
//
// Messages built with FromError have URLs, paths, IPs, ports and credentials
// masked before they leave the process.
package health
