package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the persistent application configuration
type Config struct {
	// Upstream API
	API APIConfig `json:"api"`

	// Paging and scroll trigger
	Feed FeedConfig `json:"feed"`

	// UI Preferences
	UI UIConfig `json:"ui"`
}

// APIConfig describes how to reach the listing endpoints
type APIConfig struct {
	BaseURL           string  `json:"base_url"`
	UserAgent         string  `json:"user_agent"`
	TimeoutMs         int     `json:"timeout_ms"`
	RequestsPerSecond float64 `json:"requests_per_second"` // 0 = unlimited
}

// FeedConfig holds paging behavior
type FeedConfig struct {
	RetryDelayMs    int `json:"retry_delay_ms"`
	MaxRetryDelayMs int `json:"max_retry_delay_ms"`
	MaxRetries      int `json:"max_retries"` // 0 = retry forever
	ArmDelayMs      int `json:"arm_delay_ms"`
	TriggerMargin   int `json:"trigger_margin"` // rows below the viewport that count as visible
	RefreshSeconds  int `json:"refresh_seconds"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	DefaultRoute string `json:"default_route"`
	RingSize     int    `json:"ring_size"` // events kept for the debug overlay
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "https://www.reddit.com",
			UserAgent:         "redview/0.1 (terminal reader)",
			TimeoutMs:         15000,
			RequestsPerSecond: 1,
		},
		Feed: FeedConfig{
			RetryDelayMs:    5000,
			MaxRetryDelayMs: 60000,
			MaxRetries:      8,
			ArmDelayMs:      1500,
			TriggerMargin:   5,
			RefreshSeconds:  120,
		},
		UI: UIConfig{
			DefaultRoute: "/?viewType=hot",
			RingSize:     1024,
		},
	}
}

// DataDir is where redview keeps its database, logs and config.
// REDVIEW_HOME overrides the default of ~/.redview.
func DataDir() string {
	if dir := os.Getenv("REDVIEW_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".redview")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// Load reads config from disk, or returns defaults. Environment overrides
// are applied either way.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg.ApplyEnv()
		return cfg, nil
	}

	// Missing fields keep their defaults.
	if err := json.Unmarshal(data, cfg); err != nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides fields from REDVIEW_* environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv("REDVIEW_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("REDVIEW_USER_AGENT"); v != "" {
		c.API.UserAgent = v
	}
	if v := os.Getenv("REDVIEW_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Feed.MaxRetries = n
		}
	}
}

// Timeout is the per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutMs) * time.Millisecond
}

// RetryDelay is the wait before the first retry of a failed page.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Feed.RetryDelayMs) * time.Millisecond
}

// MaxRetryDelay caps the doubling retry delay.
func (c *Config) MaxRetryDelay() time.Duration {
	return time.Duration(c.Feed.MaxRetryDelayMs) * time.Millisecond
}

// ArmDelay is how long a freshly mounted feed waits before it may load more.
func (c *Config) ArmDelay() time.Duration {
	return time.Duration(c.Feed.ArmDelayMs) * time.Millisecond
}

// RefreshInterval is the live refresh polling period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Feed.RefreshSeconds) * time.Second
}
