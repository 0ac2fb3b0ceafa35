// Package natsclient wraps a NATS connection used to publish decoded backend
// replies, with circuit breaker protection on connect and optional JetStream
// persistence.
//
// # Circuit Breaker
//
// Consecutive connect or publish failures are counted. Once the count reaches
// the threshold (default 5) the circuit opens and Connect fails fast with
// ErrCircuitOpen for the current backoff. The backoff starts at one second and
// doubles on every opening up to the maximum (default one minute). A success
// resets the breaker.
//
// # Basic Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("ticketfront"),
//	    natsclient.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	err = client.Publish(ctx, "ticketfront.replies.query_order", data)
//
// # JetStream
//
// EnsureStream creates or updates a stream capturing the reply subjects so
// that replies survive subscriber restarts; PublishToStream then publishes
// with acknowledgement:
//
//	if _, err := client.EnsureStream(ctx, "REPLIES", "ticketfront.replies.>"); err != nil {
//	    return err
//	}
//	err = client.PublishToStream(ctx, "ticketfront.replies.buy_ticket", data)
//
// # Testing
//
// Integration tests run against a real NATS server started with
// testcontainers and are behind the integration build tag:
//
//	go test -tags=integration ./natsclient/...
package natsclient
