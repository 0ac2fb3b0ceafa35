package natsclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ticketfront/errors"
)

// closedURL returns a nats URL on a port nothing listens on.
func closedURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return "nats://" + addr
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("nats://localhost:4222", WithName("test"), WithTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.IsHealthy())

	_, err = NewClient("")
	assert.True(t, errors.IsInvalid(err))

	_, err = NewClient("nats://localhost:4222", WithTimeout(0))
	assert.True(t, errors.IsInvalid(err))

	_, err = NewClient("nats://localhost:4222", WithCircuitBreakerThreshold(0))
	assert.True(t, errors.IsInvalid(err))
}

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		status ConnectionStatus
		want   string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{StatusCircuitOpen, "circuit_open"},
		{ConnectionStatus(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestClient_ConnectFailureIsTransient(t *testing.T) {
	c, err := NewClient(closedURL(t), WithTimeout(500*time.Millisecond))
	require.NoError(t, err)

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, int32(1), c.Failures())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.True(t, c.Health().IsUnhealthy())
}

func TestClient_CircuitOpensAtThreshold(t *testing.T) {
	c, err := NewClient(closedURL(t), WithTimeout(500*time.Millisecond), WithCircuitBreakerThreshold(2))
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	require.Error(t, c.Connect(ctx))
	assert.ErrorIs(t, c.Connect(ctx), ErrCircuitOpen)
	assert.Equal(t, StatusCircuitOpen, c.Status())

	// still open: no dial attempted
	assert.ErrorIs(t, c.Connect(ctx), ErrCircuitOpen)
	assert.Equal(t, int32(2), c.Failures())

	// backoff elapsed: half-open, one real attempt
	now = now.Add(2 * time.Second)
	err = c.Connect(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), c.Failures())
}

func TestClient_PublishWhileDisconnected(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.ErrorIs(t, c.Publish(context.Background(), "a.b", []byte("x")), ErrNotConnected)
	assert.ErrorIs(t, c.PublishToStream(context.Background(), "a.b", []byte("x")), ErrNotConnected)
	_, err = c.EnsureStream(context.Background(), "S", "a.>")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_CloseTwice(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.NoError(t, c.Close(context.Background()))
	assert.NoError(t, c.Close(context.Background()))
	assert.True(t, errors.IsInvalid(c.Connect(context.Background())))
}
