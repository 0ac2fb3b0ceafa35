// Package render presents decoded backend replies.
//
// A Sink receives every reply together with the target it belongs to (the
// command name for replies, or a status area such as "global"). Sinks do not
// decide outcomes; they present what protocol.Decode produced:
//
//   - Terminal writes a styled summary line and, for list replies, a table
//   - JSONLines appends one JSON record per reply to a file
//   - NATS publishes the same record to <prefix>.<command>
//   - Multi fans one reply out to several sinks
//
// Summary and Detail hold the human-readable text shared by the terminal
// sink and the interactive console.
package render
