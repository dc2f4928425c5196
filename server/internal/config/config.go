package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
	"github.com/tolerancevision/tolerancevision/pkg/types"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "pass_rate < 90", "fail_count > 0",
	// "max_deviation > 5", "status == fail".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Scope is "floor" (each floor separately), "project" (whole project) or
	// empty for both.
	Scope string `yaml:"scope"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultBroadcastInterval = 5 * time.Second
	DefaultLogLevel          = "info"
	DefaultEventsTopic       = "window-qc.events"
	DefaultHistoryTTL        = 24 * time.Hour
)

// Config is the full server configuration file.
type Config struct {
	Server    ServerConfig          `yaml:"server"`
	Tolerance ToleranceConfig       `yaml:"tolerance"`
	Project   types.ProjectMetadata `yaml:"project"`
	Alerts    AlertsConfig          `yaml:"alerts"`
	Events    EventsConfig          `yaml:"events"`
}

// ServerConfig holds listener and transport settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, metrics and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates REST clients.
	Auth AuthConfig `yaml:"auth"`

	// CORS lists the browser origins allowed to call the API. Empty allows any.
	CORS CORSConfig `yaml:"cors"`

	// BroadcastInterval is how often the hub pushes the summary to WebSocket
	// clients when nothing changed. Mutations push immediately.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// History controls the in-memory activity log behind GET /api/v1/events.
	History HistoryConfig `yaml:"history"`
}

// HistoryConfig sets how long QC events are kept in memory.
type HistoryConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// CORSConfig lists allowed origins.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ToleranceConfig holds the classification parameters.
type ToleranceConfig struct {
	// WarningMultiplier is k in the warning band k·T. Must be >= 1.
	WarningMultiplier float64 `yaml:"warning_multiplier"`

	// DefaultLimit is applied to windows submitted without a limit. Zero
	// means a limit is required on every window.
	DefaultLimit float64 `yaml:"default_limit"`
}

// EventsConfig controls publication of QC events to Kafka.
type EventsConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Level maps LogLevel to a slog.Level. Unknown values map to info.
func (s ServerConfig) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			BroadcastInterval: DefaultBroadcastInterval,
			LogLevel:          DefaultLogLevel,
			History:           HistoryConfig{TTL: DefaultHistoryTTL},
		},
		Tolerance: ToleranceConfig{
			WarningMultiplier: tolerance.DefaultWarningMultiplier,
		},
		Events: EventsConfig{
			Topic: DefaultEventsTopic,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey":
		if cfg.Server.Auth.KeyEnv == "" {
			return fmt.Errorf("server.auth.key_env is required when mode is apikey")
		}
	case "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if cfg.Server.History.TTL <= 0 {
		return fmt.Errorf("server.history.ttl must be positive")
	}

	k := cfg.Tolerance.WarningMultiplier
	if math.IsNaN(k) || math.IsInf(k, 0) || k < 1 {
		return fmt.Errorf("tolerance.warning_multiplier %v must be a finite number >= 1", k)
	}
	dl := cfg.Tolerance.DefaultLimit
	if math.IsNaN(dl) || math.IsInf(dl, 0) || dl < 0 || dl > tolerance.MaxDimension {
		return fmt.Errorf("tolerance.default_limit %v must be in [0, %.0f]", dl, tolerance.MaxDimension)
	}

	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		switch r.Scope {
		case "", "floor", "project":
		default:
			return fmt.Errorf("alerts.rules[%d]: scope %q unknown: want floor|project", i, r.Scope)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: type %q unknown: want slack|teams|http", i, w.Type)
		}
	}

	if cfg.Events.Enabled {
		if len(cfg.Events.Brokers) == 0 {
			return fmt.Errorf("events.brokers is required when events are enabled")
		}
		if cfg.Events.Topic == "" {
			return fmt.Errorf("events.topic must not be empty")
		}
	}
	return nil
}
