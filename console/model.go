package console

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/c360/ticketfront/client"
	"github.com/c360/ticketfront/pkg/timestamp"
	"github.com/c360/ticketfront/protocol"
	"github.com/c360/ticketfront/render"
)

// NotSentMessage is shown when a command is submitted while disconnected.
const NotSentMessage = "Error: not connected. Command not sent."

// Sender is the part of client.Manager the console drives.
type Sender interface {
	Send(cmd protocol.Command) bool
	SetAutoReconnect(enabled bool)
	AutoReconnect() bool
}

// confirmPrompts lists the commands that need a "y" before they are sent.
var confirmPrompts = map[string]string{
	protocol.CmdExitBackend: "Stop the backend? The connection closes and reconnects. (y/n)",
	protocol.CmdClean:       "Clear all data? This cannot be undone. (y/n)",
}

// pending is a command waiting for confirmation.
type pending struct {
	name   string
	params []protocol.Param
}

// Model is the bubbletea model of the interactive console.
type Model struct {
	sender  Sender
	encoder *protocol.Encoder
	inbox   *Inbox
	sink    render.Sink
	target  string
	logger  *slog.Logger

	input  textinput.Model
	styles render.Styles
	extra  consoleStyles
	width  int

	status  string
	state   client.State
	echo    string
	notice  string
	failed  bool
	result  string
	confirm *pending
}

type consoleStyles struct {
	title  lipgloss.Style
	help   lipgloss.Style
	notice lipgloss.Style
}

// Option configures a Model.
type Option func(*Model)

// WithSink also renders every reply to sink, such as a JSON lines file or
// NATS publisher.
func WithSink(sink render.Sink) Option {
	return func(m *Model) {
		m.sink = sink
	}
}

// WithTarget names the console in sink records. Defaults to "console".
func WithTarget(target string) Option {
	return func(m *Model) {
		if target != "" {
			m.target = target
		}
	}
}

// WithEncoder sets the command encoder.
func WithEncoder(enc *protocol.Encoder) Option {
	return func(m *Model) {
		if enc != nil {
			m.encoder = enc
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel creates a console sending through sender and reading replies and
// events from inbox.
func NewModel(sender Sender, inbox *Inbox, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "login -u alice -p secret   (:help for commands)"
	ti.Prompt = "> "
	ti.CharLimit = 512
	ti.Focus()

	r := lipgloss.DefaultRenderer()
	m := Model{
		sender: sender,
		inbox:  inbox,
		target: "console",
		logger: slog.Default(),
		input:  ti,
		styles: render.NewStyles(r),
		extra: consoleStyles{
			title:  r.NewStyle().Bold(true).Foreground(render.ColorInfo),
			help:   r.NewStyle().Foreground(render.ColorMuted),
			notice: r.NewStyle().Foreground(render.ColorPending),
		},
		status: "Connecting...",
		state:  client.StateConnecting,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.encoder == nil {
		m.encoder = protocol.NewEncoder(nil)
	}
	return m
}

// Init starts the cursor blink and the inbox reader.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.inbox.wait())
}

// Update handles key presses, replies and connection events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.confirm != nil {
			return m.answerConfirm(msg), nil
		}
		if msg.Type == tea.KeyEnter {
			line := m.input.Value()
			m.input.Reset()
			return m.submit(line)
		}

	case replyMsg:
		m.showReply(msg.reply)
		return m, m.inbox.wait()

	case eventMsg:
		m.status = msg.event.Status()
		m.state = msg.event.State
		return m, m.inbox.wait()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs one console line: a ":" console command or a backend command.
func (m Model) submit(line string) (Model, tea.Cmd) {
	line = strings.TrimSpace(line)
	if line == "" {
		return m, nil
	}
	m.notice, m.failed = "", false

	if strings.HasPrefix(line, ":") {
		return m.consoleCommand(strings.Fields(line[1:]))
	}

	name, params, err := protocol.ParseInput(line)
	if err != nil {
		m.notice, m.failed = err.Error(), true
		return m, nil
	}
	name = protocol.CorrelationName(name)
	if !protocol.IsKnown(name) {
		m.notice, m.failed = fmt.Sprintf("unknown command %q, :help lists them", name), true
		return m, nil
	}

	if prompt, ok := confirmPrompts[name]; ok {
		m.confirm = &pending{name: name, params: params}
		m.notice = prompt
		return m, nil
	}
	m.send(name, params)
	return m, nil
}

func (m Model) consoleCommand(args []string) (Model, tea.Cmd) {
	if len(args) == 0 {
		return m, nil
	}
	switch args[0] {
	case "quit", "q":
		return m, tea.Quit
	case "reconnect":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			m.notice, m.failed = "usage: :reconnect on|off", true
			return m, nil
		}
		m.sender.SetAutoReconnect(args[1] == "on")
		m.notice = "auto reconnect " + args[1]
	case "help":
		m.notice = "commands: " + strings.Join(protocol.KnownCommands, " ")
	default:
		m.notice, m.failed = fmt.Sprintf("unknown console command :%s", args[0]), true
	}
	return m, nil
}

func (m Model) answerConfirm(key tea.KeyMsg) Model {
	p := m.confirm
	m.confirm = nil
	if key.String() == "y" || key.String() == "Y" {
		m.notice = ""
		m.send(p.name, p.params)
		return m
	}
	m.notice = p.name + " cancelled"
	return m
}

// send encodes and sends one command, updating the echo or the notice.
func (m *Model) send(name string, params []protocol.Param) {
	cmd := m.encoder.Command(name, params, protocol.PredicateFor(name))
	if !m.sender.Send(cmd) {
		m.notice, m.failed = NotSentMessage, true
		return
	}
	m.echo = "You sent: " + cmd.String()
	m.result = ""
	m.logger.Debug("console command sent", "command", cmd.String(), "sent_at", timestamp.Format(cmd.Sequence))
}

func (m *Model) showReply(reply protocol.Reply) {
	outcome, text := render.Summary(reply)
	out := m.styles.ForOutcome(outcome).Render(text)
	if headers, rows := render.Detail(reply); headers != nil {
		out += "\n" + m.styles.Table(headers, rows)
	}
	m.result = out

	if m.sink != nil {
		if err := m.sink.Render(m.target, reply); err != nil {
			m.logger.Warn("reply sink failed", "error", err)
		}
	}
}

// View renders the status bar, last command, result and input line.
func (m Model) View() string {
	var b strings.Builder

	statusStyle := m.styles.Info
	switch m.state {
	case client.StateConnected:
		statusStyle = m.styles.Success
	case client.StateDisconnected, client.StateErrored:
		statusStyle = m.styles.Failure
	}
	reconnect := "off"
	if m.sender.AutoReconnect() {
		reconnect = "on"
	}
	b.WriteString(m.extra.title.Render("ticketfront"))
	b.WriteString("  ")
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString(m.extra.help.Render("  auto reconnect " + reconnect))
	b.WriteString("\n\n")

	if m.echo != "" {
		b.WriteString(m.styles.Info.Render(m.echo))
		b.WriteString("\n")
	}
	if m.result != "" {
		b.WriteString(m.result)
		b.WriteString("\n")
	}
	if m.notice != "" {
		style := m.extra.notice
		if m.failed {
			style = m.styles.Failure
		}
		b.WriteString(style.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.extra.help.Render("enter send · :reconnect on|off · :help · :quit · ctrl+c"))
	b.WriteString("\n")
	return b.String()
}
