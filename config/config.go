package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/c360/ticketfront/bridge"
	"github.com/c360/ticketfront/client"
	"github.com/c360/ticketfront/errors"
	"github.com/c360/ticketfront/render"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TICKETFRONT"

// Config is the complete ticketfront configuration.
type Config struct {
	Client  client.Config `json:"client" yaml:"client"`
	Bridge  bridge.Config `json:"bridge" yaml:"bridge"`
	Sinks   SinksConfig   `json:"sinks" yaml:"sinks"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// SinksConfig selects where decoded replies are written.
type SinksConfig struct {
	Terminal  bool           `json:"terminal" yaml:"terminal"`
	JSONLPath string         `json:"jsonl_path,omitempty" yaml:"jsonl_path,omitempty"`
	NATS      NATSSinkConfig `json:"nats" yaml:"nats"`
}

// NATSSinkConfig publishes reply records to NATS when URL is set. With
// Stream set, records go through a JetStream stream bound to the prefix.
type NATSSinkConfig struct {
	URL           string `json:"url,omitempty" yaml:"url,omitempty"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
	Stream        string `json:"stream,omitempty" yaml:"stream,omitempty"`
}

// MetricsConfig controls the metrics and health HTTP server. Port 0
// disables it.
type MetricsConfig struct {
	Port int    `json:"port" yaml:"port"`
	Path string `json:"path" yaml:"path"`
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		Client: client.DefaultConfig(),
		Bridge: bridge.DefaultConfig(),
		Sinks: SinksConfig{
			Terminal: true,
			NATS: NATSSinkConfig{
				SubjectPrefix: render.DefaultSubjectPrefix,
			},
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// Validate checks the client, sink and metrics settings. The bridge section
// is checked by the bridge itself when it starts, since most commands never
// run one.
func (c *Config) Validate() error {
	if err := c.Client.Validate(); err != nil {
		return err
	}

	var problems []string
	if n := c.Sinks.NATS; n.URL != "" {
		u, err := url.Parse(n.URL)
		if err != nil || (u.Scheme != "nats" && u.Scheme != "tls") {
			problems = append(problems, fmt.Sprintf("sinks.nats.url %q must be a nats:// or tls:// URL", n.URL))
		}
		if !isValidNATSSubjectPart(n.SubjectPrefix) {
			problems = append(problems, fmt.Sprintf(
				"sinks.nats.subject_prefix %q is not valid for NATS subjects (alphanumeric with dots, dashes, underscores)",
				n.SubjectPrefix))
		}
		if n.Stream != "" && !isValidStreamName(n.Stream) {
			problems = append(problems, fmt.Sprintf("sinks.nats.stream %q must not contain dots, spaces or wildcards", n.Stream))
		}
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		problems = append(problems, fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
	}
	if c.Metrics.Port > 0 && !strings.HasPrefix(c.Metrics.Path, "/") {
		problems = append(problems, fmt.Sprintf("metrics.path %q must start with /", c.Metrics.Path))
	}

	if len(problems) > 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(problems, "; ")),
			"config", "Validate", "check config")
	}
	return nil
}

// isValidNATSSubjectPart checks if a string is valid for use in NATS subjects.
func isValidNATSSubjectPart(s string) bool {
	if len(s) == 0 || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

func isValidStreamName(s string) bool {
	return !strings.ContainsAny(s, ". \t*>")
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Marshal encodes the configuration as "yaml" or "json" with durations
// written as strings, in the form Load accepts.
func (c *Config) Marshal(format string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case "yaml", "yml":
		data, err = yaml.Marshal(c.document())
	case "json":
		data, err = json.MarshalIndent(c.document(), "", "  ")
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: unknown format %q", errors.ErrInvalidConfig, format),
			"config", "Marshal", "choose encoding")
	}
	if err != nil {
		return nil, errors.Wrap(err, "config", "Marshal", "encode config")
	}
	return data, nil
}

// SaveToFile writes the configuration as YAML or JSON depending on the
// extension of path.
func (c *Config) SaveToFile(path string) error {
	format := "json"
	if isYAML(path) {
		format = "yaml"
	}
	data, err := c.Marshal(format)
	if err != nil {
		return err
	}

	if err := safeWriteFile(path, data); err != nil {
		return errors.WrapInvalid(err, "config", "SaveToFile", "write "+path)
	}
	return nil
}

// document is c as a generic map with durations written as strings.
func (c *Config) document() map[string]any {
	raw, _ := json.Marshal(c)
	var doc map[string]any
	_ = json.Unmarshal(raw, &doc)
	for _, key := range durationKeys {
		section, ok := doc[key[0]].(map[string]any)
		if !ok {
			continue
		}
		if n, ok := section[key[1]].(float64); ok {
			section[key[1]] = time.Duration(n).String()
		}
	}
	return doc
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		envPrefix:  EnvPrefix,
		lookupEnv:  os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables validation of the merged config.
// Schema checks on each file always run.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, err
		}
		merged, err := l.mergeFromMap(cfg, raw)
		if err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "merge "+path)
		}
		cfg = merged
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadRaw reads one layer into a map, checks it against the schema and
// converts duration strings.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s", errors.ErrConfigNotFound, path), "config", "Load", "read "+path)
		}
		return nil, errors.WrapInvalid(err, "config", "Load", "read "+path)
	}

	var raw map[string]any
	if isYAML(path) {
		err = yaml.Unmarshal(data, &raw)
	} else {
		// Validate JSON depth to prevent DoS
		if err = validateJSONDepth(data); err == nil {
			err = json.Unmarshal(data, &raw)
		}
	}
	if err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrParsingFailed, err), "config", "Load", "decode "+path)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	if err := validateDocument(raw); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "validate "+path)
	}

	if err := parseDurations(raw); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "parse durations in "+path)
	}
	return raw, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields
// present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		// If both base and override have maps at this key, merge them
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// durationKeys are the section/key pairs holding time.Duration values.
var durationKeys = [][2]string{
	{"client", "reconnect_delay"},
	{"client", "send_timeout"},
	{"bridge", "reply_idle"},
	{"bridge", "reply_timeout"},
}

// parseDurations converts duration strings to nanoseconds for json
// unmarshaling.
func parseDurations(data map[string]any) error {
	for _, key := range durationKeys {
		section, ok := data[key[0]].(map[string]any)
		if !ok {
			continue
		}
		s, ok := section[key[1]].(string)
		if !ok {
			continue
		}
		d, err := parseDurationWithDays(s)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", key[0], key[1], err)
		}
		section[key[1]] = d.Nanoseconds()
	}
	return nil
}

// parseDurationWithDays parses durations that may include days (e.g., "1d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days := strings.TrimSuffix(s, "d")
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		name  string
		apply func(string) error
	}{
		{"_CLIENT_URL", func(v string) error { cfg.Client.URL = v; return nil }},
		{"_BRIDGE_LISTEN", func(v string) error { cfg.Bridge.Listen = v; return nil }},
		{"_BACKEND_COMMAND", func(v string) error { cfg.Bridge.Backend.Command = v; return nil }},
		{"_NATS_URL", func(v string) error { cfg.Sinks.NATS.URL = v; return nil }},
		{"_JSONL_PATH", func(v string) error { cfg.Sinks.JSONLPath = v; return nil }},
		{"_METRICS_PORT", func(v string) error {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("not a port number: %w", err)
			}
			cfg.Metrics.Port = port
			return nil
		}},
	}

	for _, o := range overrides {
		key := l.envPrefix + o.name
		val, ok := l.lookupEnv(key)
		if !ok || val == "" {
			continue
		}
		if err := validateEnvVar(key, val); err != nil {
			return errors.WrapInvalid(err, "config", "applyEnvOverrides", "read "+key)
		}
		if err := o.apply(val); err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s: %v", errors.ErrInvalidConfig, key, err),
				"config", "applyEnvOverrides", "apply "+key)
		}
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
