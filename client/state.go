package client

import "time"

// State is the connection manager's lifecycle state.
type State int

// Possible states
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateErrored
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// EventType identifies a state notification.
type EventType int

// Event types
const (
	EventConnected EventType = iota
	EventDisconnected
	EventError
)

// String returns the string representation of EventType
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to observers on every connect, disconnect and channel error.
type Event struct {
	Type  EventType
	State State
	Err   error
	At    time.Time

	// Reconnecting is set on EventDisconnected when another attempt will
	// follow after the reconnect delay.
	Reconnecting bool
}

// Status returns the status bar text for e.
func (e Event) Status() string {
	switch e.Type {
	case EventConnected:
		return "Connected"
	case EventError:
		return "Error. Check server console."
	default:
		if e.Reconnecting {
			return "Disconnected. Reconnecting..."
		}
		return "Disconnected. Session ended."
	}
}

// Observer receives connection events, in order, from the goroutine running
// Run or from a Send whose write failed. Observers must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}

// Handler receives every inbound message with the correlation name recorded
// by the last Send, or "" when nothing was pending.
type Handler func(raw, correlatedName string)
