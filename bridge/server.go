package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/c360/ticketfront/errors"
	"github.com/c360/ticketfront/health"
	"github.com/c360/ticketfront/metric"
	"github.com/c360/ticketfront/pkg/retry"
	"github.com/c360/ticketfront/protocol"
)

// RateLimitedReply is sent instead of forwarding a command over the limit.
const RateLimitedReply = "error: rate limited"

const (
	writeTimeout = 10 * time.Second
	stopGrace    = 2 * time.Second
)

// Server accepts websocket sessions and gives each its own backend process.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	metrics    *Metrics
	upgrader   websocket.Upgrader
	startRetry retry.Config

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.Mutex
	sessions   map[string]*session
	listener   net.Listener
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics registers the bridge collectors under name.
func WithMetrics(registry metric.Registrar, name string) Option {
	return func(s *Server) {
		s.metrics = newMetrics(registry, name)
	}
}

// WithStartRetry sets the policy for starting a session's backend.
func WithStartRetry(cfg retry.Config) Option {
	return func(s *Server) {
		s.startRetry = cfg
	}
}

// NewServer creates a bridge server. Call Run to listen, or mount Handler.
func NewServer(cfg Config, opts ...Option) *Server {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.ReplyIdle <= 0 {
		cfg.ReplyIdle = DefaultReplyIdle
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = DefaultReplyTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		startRetry: retry.Fixed(3, 200*time.Millisecond),
		baseCtx:    ctx,
		cancel:     cancel,
		sessions:   make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "bridge")
	return s
}

// Handler returns the websocket endpoint mounted at the configured path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWebSocket)
	return mux
}

// Run listens on the configured address and serves until ctx is cancelled.
// A listen failure is fatal.
func (s *Server) Run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Server", "Run", "start bridge")
	}
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		s.mu.Unlock()
		return errors.WrapFatal(err, "Server", "Run", "listen on "+s.cfg.Listen)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.listener = ln
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("bridge listening", "address", ln.Addr().String(), "path", s.cfg.Path, "backend", s.cfg.Backend.Command)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
		<-errCh
	case err = <-errCh:
	}

	s.Close()

	s.mu.Lock()
	s.listener = nil
	s.httpServer = nil
	s.mu.Unlock()

	if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapFatal(err, "Server", "Run", "serve websocket")
	}
	s.logger.Info("bridge stopped")
	return nil
}

// Addr returns the listening address while Run is active, or "".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close ends every session, stops their backends and waits for them. The
// server accepts no sessions afterwards.
func (s *Server) Close() {
	s.cancel()

	s.mu.Lock()
	open := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	for _, sess := range open {
		sess.close(websocket.CloseGoingAway, "bridge shutting down")
	}
	s.wg.Wait()
}

// Health reports healthy while listening.
func (s *Server) Health() health.Status {
	s.mu.Lock()
	listening := s.listener != nil
	sessions := len(s.sessions)
	s.mu.Unlock()

	if !listening {
		return health.NewUnhealthy("bridge", "not listening")
	}
	return health.NewHealthy("bridge", fmt.Sprintf("listening, %d sessions", sessions))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.baseCtx.Err() != nil {
		http.Error(w, "bridge shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		s.recordFailure("upgrade")
		return
	}

	id := uuid.NewString()
	sess := &session{
		id:     id,
		conn:   conn,
		logger: s.logger.With("session", id, "remote", r.RemoteAddr),
	}

	s.wg.Add(1)
	defer s.wg.Done()

	s.track(sess)
	defer s.untrack(sess)

	s.serve(sess)
}

// serve runs one session: start the backend, then forward messages until
// either side goes away.
func (s *Server) serve(sess *session) {
	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	sess.logger.Info("session opened")

	proc, err := retry.DoWithResult(ctx, s.startRetry, func() (*process, error) {
		return startProcess(ctx, s.cfg.Backend, sess.logger)
	})
	if err != nil {
		sess.logger.Error("backend start failed", "error", err)
		s.recordFailure("start")
		_ = sess.send("error: " + err.Error())
		sess.close(websocket.CloseInternalServerErr, "backend unavailable")
		return
	}

	var monitor sync.WaitGroup
	monitor.Add(1)
	go func() {
		defer monitor.Done()
		select {
		case <-proc.Done():
			// let an in-flight reply reach the client first
			sess.exchangeMu.Lock()
			sess.exchangeMu.Unlock()
			sess.logger.Info("backend exited, closing session", "exit", proc.Err())
			sess.close(websocket.CloseNormalClosure, "backend exited")
		case <-ctx.Done():
		}
	}()

	s.forward(ctx, sess, proc)

	cancel()
	proc.Stop(stopGrace)
	sess.close(websocket.CloseNormalClosure, "")
	monitor.Wait()
	sess.logger.Info("session closed")
}

func (s *Server) forward(ctx context.Context, sess *session, proc *process) {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if s.cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst)
	}

	for {
		msgType, data, err := sess.conn.ReadMessage()
		if err != nil {
			sess.logger.Debug("websocket read ended", "error", err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		msg := string(data)
		if !limiter.Allow() {
			sess.logger.Warn("command rate limited", "message", msg)
			if s.metrics != nil {
				s.metrics.rateLimited.Inc()
			}
			if err := sess.send(RateLimitedReply); err != nil {
				return
			}
			continue
		}

		if !s.exchange(ctx, sess, proc, msg) {
			return
		}
	}
}

// exchange forwards one command and writes its reply. It returns false when
// the session cannot continue.
func (s *Server) exchange(ctx context.Context, sess *session, proc *process, msg string) bool {
	sess.exchangeMu.Lock()
	defer sess.exchangeMu.Unlock()

	_, name, _ := protocol.ParseWire(msg)
	label := protocol.CorrelationName(name)
	if !protocol.IsKnown(label) {
		label = "other"
	}

	start := time.Now()
	reply, err := proc.Exchange(ctx, msg, s.cfg.ReplyIdle, s.cfg.ReplyTimeout)
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrBackendUnavailable):
			sess.logger.Warn("backend gone during exchange", "message", msg, "error", err)
			s.recordFailure("exited")
			return false
		case stderrors.Is(err, errors.ErrReplyTimeout):
			sess.logger.Warn("backend reply timed out", "message", msg)
			s.recordFailure("timeout")
			return sess.send("error: "+err.Error()) == nil
		default:
			return false
		}
	}

	if s.metrics != nil {
		s.metrics.commandsForwarded.WithLabelValues(label).Inc()
		s.metrics.exchangeDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}
	sess.logger.Debug("exchange complete", "command", name, "reply_bytes", len(reply))

	if err := sess.send(reply); err != nil {
		sess.logger.Debug("websocket write failed", "error", err)
		return false
	}
	return true
}

func (s *Server) track(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.sessionsTotal.Inc()
		s.metrics.sessionsActive.Inc()
	}
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.sessionsActive.Dec()
	}
}

func (s *Server) recordFailure(reason string) {
	if s.metrics != nil {
		s.metrics.backendFailures.WithLabelValues(reason).Inc()
	}
}

// session is one websocket client and its backend.
type session struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger

	// held from command write until the reply is sent
	exchangeMu sync.Mutex

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *session) send(msg string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (s *session) close(code int, text string) {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
}
