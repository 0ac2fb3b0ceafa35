package bridge

import (
	"fmt"
	"strings"
	"time"

	"github.com/c360/ticketfront/errors"
)

// Defaults
const (
	DefaultListen       = ":8765"
	DefaultPath         = "/"
	DefaultReplyIdle    = 200 * time.Millisecond
	DefaultReplyTimeout = 30 * time.Second
)

// BackendConfig describes the process spawned per session.
type BackendConfig struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Dir     string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Env     []string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Config configures the bridge server.
type Config struct {
	Listen  string        `json:"listen" yaml:"listen"`
	Path    string        `json:"path" yaml:"path"`
	Backend BackendConfig `json:"backend" yaml:"backend"`

	// ReplyIdle ends a reply whose length is not announced once no line
	// has arrived for this long.
	ReplyIdle time.Duration `json:"reply_idle" yaml:"reply_idle"`

	// ReplyTimeout bounds the wait for the first reply line.
	ReplyTimeout time.Duration `json:"reply_timeout" yaml:"reply_timeout"`

	// RateLimit is commands per second per session; 0 disables limiting.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `json:"rate_burst" yaml:"rate_burst"`
}

// DefaultConfig returns a config listening on :8765 with no backend command.
func DefaultConfig() Config {
	return Config{
		Listen:       DefaultListen,
		Path:         DefaultPath,
		ReplyIdle:    DefaultReplyIdle,
		ReplyTimeout: DefaultReplyTimeout,
		RateLimit:    20,
		RateBurst:    10,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var problems []string
	if c.Listen == "" {
		problems = append(problems, "listen address is required")
	}
	if !strings.HasPrefix(c.Path, "/") {
		problems = append(problems, fmt.Sprintf("path %q must start with /", c.Path))
	}
	if strings.TrimSpace(c.Backend.Command) == "" {
		problems = append(problems, "backend command is required")
	}
	if c.ReplyIdle <= 0 {
		problems = append(problems, "reply_idle must be positive")
	}
	if c.ReplyTimeout <= 0 {
		problems = append(problems, "reply_timeout must be positive")
	}
	if c.RateLimit < 0 {
		problems = append(problems, "rate_limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		problems = append(problems, "rate_burst must be at least 1 when rate_limit is set")
	}

	if len(problems) > 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(problems, "; ")),
			"bridge", "Validate", "check config")
	}
	return nil
}
