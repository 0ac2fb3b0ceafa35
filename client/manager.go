package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/ticketfront/errors"
	"github.com/c360/ticketfront/health"
	"github.com/c360/ticketfront/metric"
	"github.com/c360/ticketfront/pkg/retry"
	"github.com/c360/ticketfront/protocol"
)

// Manager owns the single backend channel, the connection state and the
// pending correlation slot. Construct it with NewManager and drive it with Run.
type Manager struct {
	cfg     Config
	dialer  Dialer
	handler Handler
	logger  *slog.Logger
	metrics *Metrics

	mu            sync.Mutex
	state         State
	channel       Channel
	pending       string
	pendingGen    uint64
	autoReconnect bool
	lastErr       error
	running       bool
	cancelRun     context.CancelFunc

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObsID int

	startedAt    time.Time
	lastActivity atomic.Int64
	sent         atomic.Int64
	received     atomic.Int64
	reconnects   atomic.Int64
	errorCount   atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the gorilla/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		if d != nil {
			m.dialer = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics registers the manager's collectors under name.
func WithMetrics(registry metric.Registrar, name string) Option {
	return func(m *Manager) {
		m.metrics = newMetrics(registry, name)
	}
}

// NewManager creates a disconnected manager. handler receives every inbound
// message; it may be nil.
func NewManager(cfg Config, handler Handler, opts ...Option) *Manager {
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if handler == nil {
		handler = func(string, string) {}
	}

	m := &Manager{
		cfg:           cfg,
		handler:       handler,
		logger:        slog.Default(),
		autoReconnect: cfg.AutoReconnect,
		observers:     make(map[int]Observer),
		startedAt:     time.Now(),
	}
	m.dialer = WebsocketDialer{WriteTimeout: cfg.SendTimeout}

	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "client", "url", cfg.URL)
	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pending returns the correlation name awaiting a reply, or "".
func (m *Manager) Pending() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// AutoReconnect reports whether a close schedules another dial.
func (m *Manager) AutoReconnect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoReconnect
}

// SetAutoReconnect changes the reconnect policy. It takes effect at the next close.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	m.autoReconnect = enabled
	m.mu.Unlock()
	m.logger.Info("auto reconnect changed", "enabled", enabled)
}

// Subscribe registers an observer and returns a function that removes it.
func (m *Manager) Subscribe(o Observer) (cancel func()) {
	m.obsMu.Lock()
	id := m.nextObsID
	m.nextObsID++
	m.observers[id] = o
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

// Send records cmd's correlation name and writes its wire form. It returns
// false without touching the slot unless the manager is connected. A failed
// write returns false and restores the empty slot; the failed channel is
// closed and recovery is left to the reconnect loop.
func (m *Manager) Send(cmd protocol.Command) bool {
	m.mu.Lock()
	if m.state != StateConnected || m.channel == nil {
		state := m.state
		m.mu.Unlock()
		m.logger.Warn("command not sent", "command", cmd.Name, "state", state.String())
		if m.metrics != nil {
			m.metrics.sendRejected.WithLabelValues("not_connected").Inc()
		}
		return false
	}
	m.pending = cmd.Correlation
	m.pendingGen++
	gen := m.pendingGen
	ch := m.channel
	m.mu.Unlock()

	wire := cmd.String()
	if err := ch.WriteMessage(wire); err != nil {
		m.logger.Error("write failed", "command", cmd.Name, "error", err)
		if m.metrics != nil {
			m.metrics.sendRejected.WithLabelValues("write_error").Inc()
		}
		m.clearPending(gen)
		m.markErrored(ch, err)
		_ = ch.Close()
		return false
	}

	m.sent.Add(1)
	m.lastActivity.Store(time.Now().UnixNano())
	if m.metrics != nil {
		m.metrics.commandsSent.WithLabelValues(cmd.Name).Inc()
	}
	m.logger.Debug("command sent", "command", wire)
	return true
}

// Run dials and keeps the channel alive until ctx is cancelled, Close is
// called, or a close happens while auto reconnect is off. Only one Run may be
// active at a time.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Manager", "Run", "start connection loop")
	}
	ctx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancelRun = cancel
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		m.running = false
		m.cancelRun = nil
		m.mu.Unlock()
	}()

	for {
		m.connectOnce(ctx)

		if ctx.Err() != nil {
			m.emit(Event{Type: EventDisconnected, State: StateDisconnected})
			m.logger.Info("connection loop stopped")
			return nil
		}

		reconnect := m.AutoReconnect()
		m.emit(Event{Type: EventDisconnected, State: StateDisconnected, Err: m.lastError(), Reconnecting: reconnect})
		if !reconnect {
			m.logger.Info("disconnected, session ended")
			return nil
		}

		m.reconnects.Add(1)
		if m.metrics != nil {
			m.metrics.reconnects.Inc()
		}
		m.logger.Info("disconnected, reconnecting", "delay", m.cfg.ReconnectDelay)
		if err := retry.Wait(ctx, m.cfg.ReconnectDelay); err != nil {
			return nil
		}
	}
}

// connectOnce dials, serves the channel until it closes and leaves the
// manager Disconnected.
func (m *Manager) connectOnce(ctx context.Context) {
	m.setState(StateConnecting, nil)
	m.logger.Debug("connecting")

	ch, err := m.dialer.Dial(ctx, m.cfg.URL)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("dial failed", "error", err)
			m.recordError("dial")
			m.setState(StateErrored, err)
			m.emit(Event{Type: EventError, State: StateErrored, Err: err})
		}
		m.setState(StateDisconnected, err)
		return
	}

	// a name left from the previous channel never gets its reply
	m.mu.Lock()
	m.channel = ch
	m.state = StateConnected
	m.lastErr = nil
	m.pending = ""
	m.pendingGen++
	m.mu.Unlock()
	m.observeState(StateConnected)
	if m.metrics != nil {
		m.metrics.connections.Inc()
	}
	m.logger.Info("connected")
	m.emit(Event{Type: EventConnected, State: StateConnected})

	stop := context.AfterFunc(ctx, func() { _ = ch.Close() })
	readErr := m.readLoop(ch)
	stop()
	_ = ch.Close()

	m.mu.Lock()
	m.channel = nil
	errored := m.state == StateErrored
	m.mu.Unlock()

	clean := stderrors.Is(readErr, io.EOF) || ctx.Err() != nil
	if !clean && !errored {
		m.logger.Warn("channel error", "error", readErr)
		m.recordError("read")
		m.setState(StateErrored, readErr)
		m.emit(Event{Type: EventError, State: StateErrored, Err: readErr})
	}

	var cause error
	if !clean {
		cause = errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrConnectionLost, readErr), "Manager", "Run", "read from backend")
	}
	m.setState(StateDisconnected, cause)
}

func (m *Manager) readLoop(ch Channel) error {
	for {
		raw, err := ch.ReadMessage()
		if err != nil {
			return err
		}
		m.deliver(raw)
	}
}

// deliver hands raw to the handler with the pending name and then clears the
// slot, unless a Send during the handler already refilled it.
func (m *Manager) deliver(raw string) {
	m.mu.Lock()
	name := m.pending
	gen := m.pendingGen
	m.mu.Unlock()

	m.received.Add(1)
	m.lastActivity.Store(time.Now().UnixNano())
	if m.metrics != nil {
		label := name
		if label == "" {
			label = "none"
		}
		m.metrics.repliesReceived.WithLabelValues(label).Inc()
	}
	m.logger.Debug("reply received", "command", name, "bytes", len(raw))

	m.handler(raw, name)
	m.clearPending(gen)
}

// clearPending empties the slot if no Send has filled it since gen.
func (m *Manager) clearPending(gen uint64) {
	m.mu.Lock()
	if m.pendingGen == gen {
		m.pending = ""
	}
	m.mu.Unlock()
}

// markErrored moves to Errored if ch is still the active channel.
func (m *Manager) markErrored(ch Channel, err error) {
	m.mu.Lock()
	if m.channel != ch {
		m.mu.Unlock()
		return
	}
	m.state = StateErrored
	m.lastErr = err
	m.mu.Unlock()

	m.recordError("write")
	m.observeState(StateErrored)
	m.emit(Event{Type: EventError, State: StateErrored, Err: err})
}

// Close stops Run and closes the channel. It does not change AutoReconnect.
func (m *Manager) Close() error {
	m.mu.Lock()
	cancel := m.cancelRun
	ch := m.channel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ch != nil {
		return ch.Close()
	}
	return nil
}

// Health reports healthy when connected, degraded while connecting or
// waiting to reconnect, and unhealthy when errored or terminally disconnected.
func (m *Manager) Health() health.Status {
	m.mu.Lock()
	state := m.state
	auto := m.autoReconnect
	lastErr := m.lastErr
	m.mu.Unlock()

	var status health.Status
	switch {
	case state == StateConnected:
		status = health.NewHealthy("client", "connected")
	case state == StateErrored:
		status = health.FromError("client", lastErr)
		if lastErr == nil {
			status = health.NewUnhealthy("client", "channel error")
		}
	case state == StateConnecting || auto:
		status = health.NewDegraded("client", state.String())
	default:
		status = health.NewUnhealthy("client", "disconnected, auto reconnect off")
	}

	var lastActivity time.Time
	if ns := m.lastActivity.Load(); ns > 0 {
		lastActivity = time.Unix(0, ns)
	}
	return status.WithMetrics(&health.Metrics{
		Uptime:       time.Since(m.startedAt),
		ErrorCount:   int(m.errorCount.Load()),
		Sent:         m.sent.Load(),
		Received:     m.received.Load(),
		Reconnects:   m.reconnects.Load(),
		LastActivity: lastActivity,
	})
}

func (m *Manager) setState(s State, err error) {
	m.mu.Lock()
	m.state = s
	if err != nil {
		m.lastErr = err
	}
	m.mu.Unlock()
	m.observeState(s)
}

func (m *Manager) lastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) observeState(s State) {
	if m.metrics != nil {
		m.metrics.state.Set(float64(s))
	}
}

func (m *Manager) recordError(kind string) {
	m.errorCount.Add(1)
	if m.metrics != nil {
		m.metrics.errorsTotal.WithLabelValues(kind).Inc()
	}
}

func (m *Manager) emit(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	m.obsMu.Lock()
	observers := make([]Observer, 0, len(m.observers))
	for id := 0; id < m.nextObsID; id++ {
		if o, ok := m.observers[id]; ok {
			observers = append(observers, o)
		}
	}
	m.obsMu.Unlock()

	for _, o := range observers {
		o.OnEvent(e)
	}
}
