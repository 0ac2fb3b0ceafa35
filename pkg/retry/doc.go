// Package retry provides context-aware waiting and bounded retries.
//
// Wait is the primitive the connection manager uses for its fixed reconnect
// delay. Do and DoWithResult retry an operation under a Config; errors
// classified as fatal or invalid by the errors package stop immediately.
//
//	nc, err := retry.DoWithResult(ctx, retry.Quick(), func() (*nats.Conn, error) {
//	    return nats.Connect(url)
//	})
//
// Presets:
//
//   - DefaultConfig: 3 attempts, 100ms to 5s, doubling, jittered
//   - Quick: 10 attempts, 50ms to 1s, for startup dependencies
//   - Fixed: a constant delay between a fixed number of attempts
package retry
