package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360/ticketfront/client"
	"github.com/c360/ticketfront/errors"
	"github.com/c360/ticketfront/pkg/timestamp"
	"github.com/c360/ticketfront/protocol"
	"github.com/c360/ticketfront/render"
)

// commandFailedError is returned when the backend answered with a failure.
// The reply has already been rendered, so main only sets the exit code.
type commandFailedError struct {
	command string
	summary string
}

func (e *commandFailedError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.command, e.summary)
}

func newSendCmd(a *app) *cobra.Command {
	var (
		timeout time.Duration
		target  string
	)

	cmd := &cobra.Command{
		Use:   "send <command> [-key value ...]",
		Short: "Send one command and print the reply",
		Long: `Connects, sends a single backend command, prints the decoded reply and exits.
The exit status is 1 when the backend reports a failure.

  ticketfront send login -u alice -p secret
  ticketfront send query_ticket -s Beijing -t "Shanghai Hongqiao" -d 06-01`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := joinArgs(args)
			if err != nil {
				return err
			}
			name, params, err := protocol.ParseInput(line)
			if err != nil {
				return err
			}
			name = protocol.CorrelationName(name)
			if !protocol.IsKnown(name) {
				return errors.WrapInvalid(
					fmt.Errorf("%w: unknown command %q", errors.ErrInvalidData, name),
					"main", "send", "check command name")
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			out, err := a.buildSinks(ctx)
			if err != nil {
				return err
			}
			defer out.Close()

			reply, err := a.sendOne(ctx, name, params, timeout)
			if err != nil {
				return err
			}

			sink := out.multi
			if a.cfg.Sinks.Terminal {
				sink = append(render.Multi{render.NewTerminal(cmd.OutOrStdout())}, sink...)
			}
			if err := sink.Render(target, reply); err != nil {
				a.logger.Warn("reply sink failed", "error", err)
			}

			if reply.Outcome == protocol.OutcomeFailure {
				_, summary := render.Summary(reply)
				return &commandFailedError{command: name, summary: summary}
			}
			return nil
		},
	}

	// "-u alice" after the command name are backend parameters, not flags.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for the connection and the reply")
	cmd.Flags().StringVar(&target, "target", "send", "Name recorded as the target in sink records")
	return cmd
}

// sendOne connects without auto reconnect, sends one command and waits for
// its reply.
func (a *app) sendOne(ctx context.Context, name string, params []protocol.Param, timeout time.Duration) (protocol.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	replies := make(chan protocol.Reply, 1)
	handler := func(raw, correlated string) {
		select {
		case replies <- protocol.Decode(correlated, raw):
		default:
			a.logger.Debug("extra message ignored", "raw", raw)
		}
	}

	cfg := a.cfg.Client
	cfg.AutoReconnect = false
	manager := client.NewManager(cfg, handler,
		client.WithLogger(a.logger),
		client.WithMetrics(a.registry, "send"),
	)

	events := make(chan client.Event, 8)
	unsubscribe := manager.Subscribe(client.ObserverFunc(func(e client.Event) {
		select {
		case events <- e:
		default:
		}
	}))
	defer unsubscribe()

	runErr := make(chan error, 1)
	go func() { runErr <- manager.Run(ctx) }()
	defer func() {
		cancel()
		_ = manager.Close()
		<-runErr
	}()

	if err := waitConnected(ctx, events); err != nil {
		a.registry.CoreMetrics().RecordError("send", "connect")
		return protocol.Reply{}, errors.Wrap(err, "main", "send", "connect to "+cfg.URL)
	}

	command := protocol.NewEncoder(nil).Command(name, params, protocol.PredicateFor(name))
	if !manager.Send(command) {
		return protocol.Reply{}, errors.WrapTransient(errors.ErrNotConnected, "main", "send", "send "+name)
	}
	a.logger.Debug("command sent", "command", command.String(), "sent_at", timestamp.Format(command.Sequence))

	for {
		select {
		case reply := <-replies:
			return reply, nil
		case e := <-events:
			if e.Type != client.EventDisconnected {
				continue
			}
			// exit stops the backend, which may close before answering
			if name == protocol.CmdExitBackend {
				return protocol.Reply{Command: name, Kind: protocol.KindOpaque, Outcome: protocol.OutcomeInfo, Raw: "backend stopped"}, nil
			}
			return protocol.Reply{}, errors.WrapTransient(errors.ErrConnectionLost, "main", "send", "wait for reply")
		case <-ctx.Done():
			a.registry.CoreMetrics().RecordError("send", "reply_timeout")
			return protocol.Reply{}, errors.WrapTransient(errors.ErrReplyTimeout, "main", "send", "wait for "+name+" reply")
		}
	}
}

func waitConnected(ctx context.Context, events <-chan client.Event) error {
	for {
		select {
		case e := <-events:
			switch e.Type {
			case client.EventConnected:
				return nil
			case client.EventDisconnected:
				if e.Err != nil {
					return fmt.Errorf("%w: %w", errors.ErrNotConnected, e.Err)
				}
				return errors.ErrNotConnected
			}
		case <-ctx.Done():
			return errors.ErrConnectionTimeout
		}
	}
}

// joinArgs rebuilds a console line from shell arguments, quoting values that
// contain whitespace or are empty.
func joinArgs(args []string) (string, error) {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.Contains(arg, `"`) {
			return "", errors.WrapInvalid(
				fmt.Errorf("%w: argument %q contains a double quote", errors.ErrInvalidData, arg),
				"main", "send", "join arguments")
		}
		if arg == "" || strings.ContainsFunc(arg, isSpace) {
			arg = `"` + arg + `"`
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " "), nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
