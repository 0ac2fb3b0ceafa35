package render

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/c360/ticketfront/errors"
	"github.com/c360/ticketfront/protocol"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "ticketfront.replies"

// Publisher sends data on a subject. natsclient.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// PublisherFunc adapts a function, such as natsclient.Client.PublishToStream,
// to Publisher.
type PublisherFunc func(ctx context.Context, subject string, data []byte) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, subject string, data []byte) error {
	return f(ctx, subject, data)
}

// NATS publishes reply records to <prefix>.<command>. Replies that were not
// correlated with a command go to <prefix>.unsolicited.
type NATS struct {
	pub     Publisher
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewNATS creates a NATS sink. An empty prefix uses DefaultSubjectPrefix.
func NewNATS(pub Publisher, prefix string, logger *slog.Logger) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATS{
		pub:     pub,
		prefix:  prefix,
		timeout: 5 * time.Second,
		logger:  logger.With("component", "render.nats"),
		now:     time.Now,
	}
}

// Subject returns the subject a reply for command is published on.
func (n *NATS) Subject(command string) string {
	if command == "" {
		command = "unsolicited"
	}
	return n.prefix + "." + command
}

// Render publishes the reply record.
func (n *NATS) Render(target string, reply protocol.Reply) error {
	data, err := json.Marshal(newRecord(target, reply, n.now()))
	if err != nil {
		return errors.Wrap(err, "NATS", "Render", "marshal record")
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	subject := n.Subject(reply.Command)
	if err := n.pub.Publish(ctx, subject, data); err != nil {
		n.logger.Warn("publish failed", "subject", subject, "error", err)
		return errors.Wrap(err, "NATS", "Render", "publish "+subject)
	}
	return nil
}
