package client

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeChannel is an in-memory Channel. Messages pushed with deliver are
// returned by ReadMessage until the channel is closed.
type fakeChannel struct {
	in       chan string
	closed   chan struct{}
	once     sync.Once
	closeErr error

	mu       sync.Mutex
	written  []string
	writeErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{in: make(chan string, 16), closed: make(chan struct{})}
}

func (f *fakeChannel) ReadMessage() (string, error) {
	select {
	case msg := <-f.in:
		return msg, nil
	case <-f.closed:
		return "", f.closeErr
	}
}

func (f *fakeChannel) WriteMessage(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.shutdown(io.EOF)
	return nil
}

// shutdown closes the channel as the remote side would, with err returned from reads.
func (f *fakeChannel) shutdown(err error) {
	f.once.Do(func() {
		f.closeErr = err
		close(f.closed)
	})
}

func (f *fakeChannel) deliver(msg string) {
	f.in <- msg
}

func (f *fakeChannel) Written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

func (f *fakeChannel) failWrites(err error) {
	f.mu.Lock()
	f.writeErr = err
	f.mu.Unlock()
}

// fakeDialer hands out channels in order; a nil entry fails the dial.
type fakeDialer struct {
	mu       sync.Mutex
	channels []*fakeChannel
	dials    atomic.Int32
	dialed   chan *fakeChannel
}

func newFakeDialer(channels ...*fakeChannel) *fakeDialer {
	return &fakeDialer{channels: channels, dialed: make(chan *fakeChannel, 16)}
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Channel, error) {
	d.dials.Add(1)

	d.mu.Lock()
	if len(d.channels) == 0 {
		d.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	ch := d.channels[0]
	d.channels = d.channels[1:]
	d.mu.Unlock()

	if ch == nil {
		return nil, stderrors.New("connection refused")
	}
	d.dialed <- ch
	return ch, nil
}

type eventRecorder struct {
	events chan Event
}

func newEventRecorder(m *Manager) *eventRecorder {
	r := &eventRecorder{events: make(chan Event, 64)}
	m.Subscribe(ObserverFunc(func(e Event) { r.events <- e }))
	return r
}

func (r *eventRecorder) next(t *testing.T) Event {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func (r *eventRecorder) expect(t *testing.T, want EventType) Event {
	t.Helper()
	e := r.next(t)
	if e.Type != want {
		t.Fatalf("event = %s (%v), want %s", e.Type, e.Err, want)
	}
	return e
}

func errEOF() error { return io.EOF }
