// Package errors provides the error classification used across ticketfront.
//
// Errors fall into three classes:
//
//   - Transient: dial failures, dropped connections, a backend that is restarting.
//     The connection manager recovers from these by reconnecting.
//   - Invalid: bad configuration, malformed console input, unparseable data.
//     Retrying does not help; the caller must fix the input.
//   - Fatal: the process cannot continue (bridge cannot listen, config unreadable).
//
// Protocol-level failures (a "-1" reply or a reply that does not match the command's
// grammar) are not Go errors at all. They are decoded into protocol.Reply values and
// rendered, never returned.
//
// # Wrapping
//
// All wrapping follows "component.method: action failed: cause":
//
//	if err := dialer.Dial(ctx, url); err != nil {
//	    return errors.WrapTransient(err, "Manager", "connect", "dial backend")
//	}
//
// The Wrap* helpers return nil for a nil error so they can wrap unconditionally.
package errors
