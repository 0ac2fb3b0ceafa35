// Package timestamp provides Unix millisecond timestamps and the command sequencer.
//
// Every outgoing backend command is prefixed with "[<n>]" where n comes from a
// Sequencer. The sequencer follows the wall clock in milliseconds but never
// repeats or goes backwards: when the clock reads equal to or earlier than the
// last value handed out (coarse clock, several submits in one tick, clock
// adjusted backwards), the previous value plus one is returned instead.
//
// Usage:
//
//	seq := timestamp.NewSequencer()
//	n := seq.Next()
//
//	// or the process-wide default
//	n := timestamp.Next()
package timestamp

import (
	"time"
)

// Now returns the current time as Unix milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// FromUnixMs converts a stamp back to a time. 0 is the zero time.
func FromUnixMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Format renders a stamp as RFC3339 UTC for logs, or "" for 0. Stamps bumped
// past the clock by the sequencer read a few milliseconds late.
func Format(ms int64) string {
	t := FromUnixMs(ms)
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
