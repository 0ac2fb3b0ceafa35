// Package config loads ticketfront configuration.
//
// Configuration is built in layers: compiled-in defaults, then each file
// added with AddLayer in order, then TICKETFRONT_* environment variables.
// Files may be JSON or YAML (chosen by extension) and are checked against
// an embedded JSON schema before they are merged, so a misspelt key or a
// malformed duration is reported with its path instead of being ignored.
//
// # Basic Usage
//
//	loader := config.NewLoader()
//	loader.AddLayer("ticketfront.yaml")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//	    return err
//	}
//
// Durations are written as strings ("5s", "200ms", "1d") or as integer
// nanoseconds. Only the keys present in a layer override earlier layers.
//
// # Environment Overrides
//
//	TICKETFRONT_CLIENT_URL       client.url
//	TICKETFRONT_BRIDGE_LISTEN    bridge.listen
//	TICKETFRONT_BACKEND_COMMAND  bridge.backend.command
//	TICKETFRONT_NATS_URL         sinks.nats.url
//	TICKETFRONT_JSONL_PATH       sinks.jsonl_path
//	TICKETFRONT_METRICS_PORT     metrics.port
//
// # File Safety
//
// Config files are read through safeReadFile: relative paths must stay
// inside the working directory, the file must be a regular file under
// 10MB, and JSON nesting is capped before decoding.
package config
