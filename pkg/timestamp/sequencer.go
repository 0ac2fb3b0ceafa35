package timestamp

import "sync"

// Clock returns the current time in Unix milliseconds.
type Clock func() int64

// Sequencer hands out strictly increasing command tags.
// It is safe for concurrent use.
type Sequencer struct {
	mu    sync.Mutex
	clock Clock
	last  int64
}

// NewSequencer creates a sequencer driven by the wall clock.
func NewSequencer() *Sequencer {
	return NewSequencerWithClock(Now)
}

// NewSequencerWithClock creates a sequencer driven by clock.
func NewSequencerWithClock(clock Clock) *Sequencer {
	if clock == nil {
		clock = Now
	}
	return &Sequencer{clock: clock}
}

// Next returns a value strictly greater than every value previously returned.
func (s *Sequencer) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.clock()
	if raw <= s.last {
		s.last++
	} else {
		s.last = raw
	}
	return s.last
}

// Last returns the most recently issued value, 0 before the first call.
func (s *Sequencer) Last() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

var defaultSequencer = NewSequencer()

// Next returns the next value from the process-wide sequencer.
func Next() int64 {
	return defaultSequencer.Next()
}
