package client

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/ticketfront/errors"
)

// Channel is a connected duplex message channel.
type Channel interface {
	// ReadMessage blocks for the next text message. A clean close by either
	// side returns io.EOF.
	ReadMessage() (string, error)
	WriteMessage(msg string) error
	Close() error
}

// Dialer opens channels.
type Dialer interface {
	Dial(ctx context.Context, url string) (Channel, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Header           http.Header
}

// Dial connects to url.
func (d WebsocketDialer) Dial(ctx context.Context, url string) (Channel, error) {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 45 * time.Second
	}

	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.WrapTransient(err, "WebsocketDialer", "Dial", "connect to backend")
	}
	return NewWebsocketChannel(conn, d.WriteTimeout), nil
}

// WebsocketChannel adapts a *websocket.Conn to Channel. Writes are serialized.
type WebsocketChannel struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewWebsocketChannel wraps conn. A zero writeTimeout disables write deadlines.
func NewWebsocketChannel(conn *websocket.Conn, writeTimeout time.Duration) *WebsocketChannel {
	return &WebsocketChannel{conn: conn, writeTimeout: writeTimeout}
}

// ReadMessage returns the next text or binary message as a string.
func (c *WebsocketChannel) ReadMessage() (string, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
			stderrors.Is(err, websocket.ErrCloseSent) {
			return "", io.EOF
		}
		return "", err
	}
	return string(data), nil
}

// WriteMessage sends msg as one text message.
func (c *WebsocketChannel) WriteMessage(msg string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Close sends a close frame and closes the connection. Repeated calls return
// the first result.
func (c *WebsocketChannel) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
