package client

import (
	"fmt"
	"net/url"
	"time"

	"github.com/c360/ticketfront/errors"
)

// DefaultURL is where the bridge listens by default.
const DefaultURL = "ws://localhost:8765"

// DefaultReconnectDelay is the fixed wait between a close and the next dial.
const DefaultReconnectDelay = 5 * time.Second

// Config configures a Manager.
type Config struct {
	URL            string        `json:"url" yaml:"url"`
	ReconnectDelay time.Duration `json:"reconnect_delay" yaml:"reconnect_delay"`
	AutoReconnect  bool          `json:"auto_reconnect" yaml:"auto_reconnect"`
	SendTimeout    time.Duration `json:"send_timeout" yaml:"send_timeout"`
}

// DefaultConfig returns ws://localhost:8765 with a 5s reconnect delay and auto reconnect on.
func DefaultConfig() Config {
	return Config{
		URL:            DefaultURL,
		ReconnectDelay: DefaultReconnectDelay,
		AutoReconnect:  true,
		SendTimeout:    10 * time.Second,
	}
}

// Validate checks the URL scheme and durations.
func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err), "client", "Validate", "parse url")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: url scheme %q, want ws or wss", errors.ErrInvalidConfig, u.Scheme),
			"client", "Validate", "check url")
	}
	if c.ReconnectDelay < 0 || c.SendTimeout < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: negative duration", errors.ErrInvalidConfig),
			"client", "Validate", "check durations")
	}
	return nil
}
