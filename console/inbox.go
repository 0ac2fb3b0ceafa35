package console

import (
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/c360/ticketfront/client"
	"github.com/c360/ticketfront/protocol"
)

// replyMsg carries one decoded inbound message.
type replyMsg struct {
	reply protocol.Reply
}

// eventMsg carries one connection event.
type eventMsg struct {
	event client.Event
}

// Inbox moves replies and connection events from the manager's reader
// goroutine into the bubbletea loop.
type Inbox struct {
	msgs   chan tea.Msg
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// NewInbox creates an inbox buffering up to size messages.
func NewInbox(size int, logger *slog.Logger) *Inbox {
	if size < 1 {
		size = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		msgs:   make(chan tea.Msg, size),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Handler decodes inbound messages under their correlated name. Pass it to
// client.NewManager.
func (in *Inbox) Handler() client.Handler {
	return func(raw, name string) {
		msg := replyMsg{reply: protocol.Decode(name, raw)}
		select {
		case in.msgs <- msg:
		case <-in.done:
		}
	}
}

// Observer forwards connection events. Events are dropped rather than
// blocking the manager when the console falls behind.
func (in *Inbox) Observer() client.Observer {
	return client.ObserverFunc(func(e client.Event) {
		select {
		case in.msgs <- eventMsg{event: e}:
		default:
			in.logger.Warn("console inbox full, dropping event", "event", e.Type.String())
		}
	})
}

// Close stops delivery. Pending Handler calls return.
func (in *Inbox) Close() {
	in.once.Do(func() { close(in.done) })
}

// wait returns a command that yields the next inbox message.
func (in *Inbox) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-in.msgs:
			return msg
		case <-in.done:
			return nil
		}
	}
}
