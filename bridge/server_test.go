package bridge

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ticketfront/client"
	"github.com/c360/ticketfront/errors"
	"github.com/c360/ticketfront/metric"
	"github.com/c360/ticketfront/pkg/retry"
	"github.com/c360/ticketfront/protocol"
)

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Listen = "127.0.0.1:0"
	cfg.Backend = fakeBackend(t)
	cfg.ReplyIdle = 150 * time.Millisecond
	cfg.ReplyTimeout = time.Second
	cfg.RateLimit = 0
	return cfg
}

// startBridge serves s over httptest and returns the websocket URL.
func startBridge(t *testing.T, s *Server) string {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) string {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestBridge_SingleLineReply(t *testing.T) {
	conn := dial(t, startBridge(t, NewServer(testConfig(t))))

	assert.Equal(t, "0", roundTrip(t, conn, "[1] login -u alice -p pw"))
	assert.Equal(t, "-1", roundTrip(t, conn, "[2] add_train -i G9"))
}

func TestBridge_CountPrefixedReplyIsOneMessage(t *testing.T) {
	conn := dial(t, startBridge(t, NewServer(testConfig(t))))

	reply := roundTrip(t, conn, "[1] query_ticket -s Beijing -t Shanghai -d 06-01")
	lines := strings.Split(reply, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2", lines[0])

	decoded := protocol.Decode(protocol.CmdQueryTicket, reply)
	require.Equal(t, protocol.KindTicketOptions, decoded.Kind)
	assert.Len(t, decoded.Tickets.Rows, 2)

	// framing left nothing behind for the next command
	assert.Equal(t, "0", roundTrip(t, conn, "[2] clean"))
}

func TestBridge_TransferWithoutCountLine(t *testing.T) {
	conn := dial(t, startBridge(t, NewServer(testConfig(t))))

	reply := roundTrip(t, conn, "[1] query_transfer -s Beijing -t Shanghai -d 06-01")
	assert.Len(t, strings.Split(reply, "\n"), 2)
	assert.Equal(t, "0", roundTrip(t, conn, "[2] clean"))
}

func TestBridge_UnannouncedLengthUsesIdleWindow(t *testing.T) {
	conn := dial(t, startBridge(t, NewServer(testConfig(t))))

	reply := roundTrip(t, conn, "[1] query_train -i G1 -d 06-01")
	decoded := protocol.Decode(protocol.CmdQueryTrain, reply)
	require.Equal(t, protocol.KindTrainSchedule, decoded.Kind, reply)
	assert.Len(t, decoded.Train.Stops, 2)
}

func TestBridge_ExitClosesSession(t *testing.T) {
	s := NewServer(testConfig(t))
	conn := dial(t, startBridge(t, s))

	assert.Equal(t, "bye", roundTrip(t, conn, "[1] exit"))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	assert.Eventually(t, func() bool { return s.Sessions() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestBridge_RateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	registry := metric.NewMetricsRegistry()
	conn := dial(t, startBridge(t, NewServer(cfg, WithMetrics(registry, "bridge"))))

	assert.Equal(t, "0", roundTrip(t, conn, "[1] login -u alice"))
	assert.Equal(t, RateLimitedReply, roundTrip(t, conn, "[2] login -u alice"))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["ticketfront_bridge_rate_limited_total"])
	assert.True(t, names["ticketfront_bridge_commands_forwarded_total"])
}

func TestBridge_ReplyTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReplyTimeout = 200 * time.Millisecond
	conn := dial(t, startBridge(t, NewServer(cfg)))

	reply := roundTrip(t, conn, "[1] slow")
	assert.True(t, strings.HasPrefix(reply, "error: "), reply)
}

func TestBridge_StartFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = BackendConfig{Command: "/nonexistent/ticket-backend"}
	conn := dial(t, startBridge(t, NewServer(cfg, WithStartRetry(retry.Fixed(1, time.Millisecond)))))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "error: "), string(data))

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr), "got %v", err)
}

func TestBridge_BackendCrashClosesSession(t *testing.T) {
	conn := dial(t, startBridge(t, NewServer(testConfig(t))))

	assert.Equal(t, "0", roundTrip(t, conn, "[1] clean -crash"))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestBridge_Run(t *testing.T) {
	s := NewServer(testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, s.Health().IsHealthy())

	conn := dial(t, "ws://"+s.Addr()+"/")
	assert.Equal(t, "0", roundTrip(t, conn, "[1] login"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, s.Health().IsUnhealthy())
	assert.Equal(t, 0, s.Sessions())
}

func TestBridge_RunInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend.Command = ""
	err := NewServer(cfg).Run(context.Background())
	assert.True(t, errors.IsInvalid(err))
}

// The connection manager against a real bridge: replies are correlated and
// decoded, and the exit command ends the session.
func TestBridge_WithConnectionManager(t *testing.T) {
	url := startBridge(t, NewServer(testConfig(t)))

	cfg := client.DefaultConfig()
	cfg.URL = url
	cfg.AutoReconnect = false

	replies := make(chan protocol.Reply, 4)
	m := client.NewManager(cfg, func(raw, name string) {
		replies <- protocol.Decode(name, raw)
	})
	connected := make(chan struct{}, 1)
	m.Subscribe(client.ObserverFunc(func(e client.Event) {
		if e.Type == client.EventConnected {
			connected <- struct{}{}
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case <-connected:
	case <-ctx.Done():
		t.Fatal("not connected")
	}

	enc := protocol.NewEncoder(nil)
	require.True(t, m.Send(enc.Command(protocol.CmdQueryOrder, []protocol.Param{{Key: "u", Value: "alice"}}, nil)))
	r := <-replies
	require.Equal(t, protocol.KindOrders, r.Kind)
	assert.Equal(t, protocol.OrderPending, r.Orders.Rows[0].Status)

	require.True(t, m.Send(enc.Command(protocol.CmdExitBackend, nil, nil)))
	r = <-replies
	assert.Equal(t, protocol.CodeBye, r.Scalar.Code)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("manager did not stop after the session closed")
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, testConfig(t).Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no listen", func(c *Config) { c.Listen = "" }},
		{"bad path", func(c *Config) { c.Path = "ws" }},
		{"no backend", func(c *Config) { c.Backend.Command = " " }},
		{"zero idle", func(c *Config) { c.ReplyIdle = 0 }},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }},
		{"rate without burst", func(c *Config) { c.RateLimit = 1; c.RateBurst = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			assert.True(t, errors.IsInvalid(cfg.Validate()))
		})
	}
}
