package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Build-time variables injected via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Placeholder sentinels left behind by the install template. Running with
// either still in place is a fatal configuration error.
const (
	PlaceholderAPIKey  = "{{API_KEY}}"
	PlaceholderBaseURL = "{{API_BASE_URL}}"
)

// Defaults applied when the file and environment leave a value unset.
const (
	DefaultHeartbeatIntervalSeconds = 60
	DefaultCheckIntervalSeconds     = 60
	DefaultRequestTimeoutSeconds    = 5
	DefaultDegradedThresholdMs      = 1000
)

// Config holds all agent configuration. Values come from an optional YAML
// file, with environment variables taking precedence.
type Config struct {
	// APIKey authenticates this agent against the Service Monitor API.
	APIKey string `yaml:"api_key"`

	// BaseURL is the base URL of the Service Monitor API.
	BaseURL string `yaml:"base_url"`

	// HeartbeatIntervalSeconds is the nominal period between heartbeats.
	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_seconds"`

	// CheckIntervalSeconds is the nominal period between check sweeps.
	CheckIntervalSeconds int `yaml:"check_interval_seconds"`

	// RequestTimeoutSeconds bounds each probe and each API request.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`

	// DegradedThresholdMs is the connect latency above which an otherwise
	// reachable service is classified as degraded.
	DegradedThresholdMs int `yaml:"degraded_threshold_ms"`

	// StatusPort enables the local status HTTP endpoint when non-zero.
	StatusPort int `yaml:"status_port"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HeartbeatIntervalSeconds: DefaultHeartbeatIntervalSeconds,
		CheckIntervalSeconds:     DefaultCheckIntervalSeconds,
		RequestTimeoutSeconds:    DefaultRequestTimeoutSeconds,
		DegradedThresholdMs:      DefaultDegradedThresholdMs,
	}
}

// Load reads configuration from the YAML file at path (optional) and then
// from environment variables, applying defaults for anything not set.
// Validation is left to Validate so the caller controls when to fail.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(content, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("MONITOR_API_KEY"); v != "" {
		cfg.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("MONITOR_BASE_URL"); v != "" {
		cfg.BaseURL = strings.TrimSpace(v)
	}
	if v, err := strconv.Atoi(os.Getenv("MONITOR_HEARTBEAT_INTERVAL")); err == nil {
		cfg.HeartbeatIntervalSeconds = v
	}
	if v, err := strconv.Atoi(os.Getenv("MONITOR_CHECK_INTERVAL")); err == nil {
		cfg.CheckIntervalSeconds = v
	}
	if v, err := strconv.Atoi(os.Getenv("MONITOR_REQUEST_TIMEOUT")); err == nil {
		cfg.RequestTimeoutSeconds = v
	}
	if v, err := strconv.Atoi(os.Getenv("MONITOR_DEGRADED_THRESHOLD_MS")); err == nil {
		cfg.DegradedThresholdMs = v
	}
	if v, err := strconv.Atoi(os.Getenv("MONITOR_STATUS_PORT")); err == nil {
		cfg.StatusPort = v
	}
	if v := os.Getenv("MONITOR_DEBUG"); v != "" {
		cfg.Debug = v == "true"
	}

	cfg.normalize()
	return cfg, nil
}

// normalize replaces non-positive timing values with their defaults.
func (c *Config) normalize() {
	if c.HeartbeatIntervalSeconds <= 0 {
		c.HeartbeatIntervalSeconds = DefaultHeartbeatIntervalSeconds
	}
	if c.CheckIntervalSeconds <= 0 {
		c.CheckIntervalSeconds = DefaultCheckIntervalSeconds
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	if c.DegradedThresholdMs <= 0 {
		c.DegradedThresholdMs = DefaultDegradedThresholdMs
	}
	if c.StatusPort < 0 {
		c.StatusPort = 0
	}
}

// Validate rejects missing or still-templated credentials. This is the
// only validation performed before the agent enters its loop.
func (c *Config) Validate() error {
	if c.APIKey == "" || c.APIKey == PlaceholderAPIKey {
		return fmt.Errorf("api_key is not set: replace %s with your agent API key", PlaceholderAPIKey)
	}
	if c.BaseURL == "" || c.BaseURL == PlaceholderBaseURL {
		return fmt.Errorf("base_url is not set: replace %s with your Service Monitor URL", PlaceholderBaseURL)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q is not a valid URL", c.BaseURL)
	}
	return nil
}

// HeartbeatInterval returns the heartbeat period as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSeconds) * time.Second
}

// CheckInterval returns the check sweep period as a duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// DegradedThreshold returns the degraded latency threshold as a duration.
func (c *Config) DegradedThreshold() time.Duration {
	return time.Duration(c.DegradedThresholdMs) * time.Millisecond
}

// NewLogger creates the structured logger used by the whole agent.
func NewLogger(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
