package render

import (
	stderrors "errors"
	"time"

	"github.com/c360/ticketfront/protocol"
)

// Sink presents a decoded reply for target.
type Sink interface {
	Render(target string, reply protocol.Reply) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(target string, reply protocol.Reply) error

// Render calls f.
func (f SinkFunc) Render(target string, reply protocol.Reply) error {
	return f(target, reply)
}

// Record is the machine-readable form of a rendered reply.
type Record struct {
	Target  string         `json:"target"`
	At      time.Time      `json:"at"`
	Summary string         `json:"summary"`
	Reply   protocol.Reply `json:"reply"`
}

func newRecord(target string, reply protocol.Reply, now time.Time) Record {
	_, text := Summary(reply)
	return Record{Target: target, At: now.UTC(), Summary: text, Reply: reply}
}

// Multi renders to every sink in order. All sinks are called even when one
// fails; the failures are joined.
type Multi []Sink

// Render implements Sink.
func (m Multi) Render(target string, reply protocol.Reply) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Render(target, reply); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
