package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"aqualink/internal/models"
)

// Config represents the application configuration
type Config struct {
	API        APIConfig        `yaml:"api"`
	Cache      CacheConfig      `yaml:"cache"`
	Server     ServerConfig     `yaml:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	View       ViewConfig       `yaml:"view"`
}

// APIConfig contains backend endpoint settings
type APIConfig struct {
	BaseURL         string `yaml:"base_url"`          // Backend root (e.g. http://localhost:8000)
	AuthToken       string `yaml:"auth_token"`        // Bearer token (inline)
	AuthTokenFile   string `yaml:"auth_token_file"`   // Path to file containing bearer token
	TimeoutStr      string `yaml:"timeout"`           // Per-request timeout (default: 30s)
	PollIntervalStr string `yaml:"poll_interval"`     // Catalog polling interval (default: 60s)
	MaxRetries      *int   `yaml:"max_retries"`       // Pointer to distinguish "not set" from "explicitly 0"
	RetryBackoffStr string `yaml:"retry_backoff"`     // Base delay for exponential backoff (default: 1s)
	MaxBackoffStr   string `yaml:"retry_max_backoff"` // Cap on backoff delay (default: 30s)
	JitterPercent   *int   `yaml:"jitter_percent"`    // Pointer to distinguish "not set" from "explicitly 0"
}

// Timeout parses the request timeout, defaulting to 30s
func (a *APIConfig) Timeout() (time.Duration, error) {
	return positiveDuration(a.TimeoutStr, "api.timeout", 30*time.Second)
}

// PollInterval parses the catalog polling interval, defaulting to 60s
func (a *APIConfig) PollInterval() (time.Duration, error) {
	return positiveDuration(a.PollIntervalStr, "api.poll_interval", 60*time.Second)
}

// RetryBackoff parses the base retry delay, defaulting to 1s
func (a *APIConfig) RetryBackoff() (time.Duration, error) {
	return positiveDuration(a.RetryBackoffStr, "api.retry_backoff", 1*time.Second)
}

// MaxBackoff parses the backoff cap, defaulting to 30s
func (a *APIConfig) MaxBackoff() (time.Duration, error) {
	return positiveDuration(a.MaxBackoffStr, "api.retry_max_backoff", 30*time.Second)
}

// CacheConfig contains local snapshot cache settings
type CacheConfig struct {
	Path string `yaml:"path"` // SQLite file for the last-good snapshots; empty disables caching
}

// ServerConfig contains the UI-facing serving surface settings
type ServerConfig struct {
	Address string `yaml:"address"` // Listen address (default: ":8080")
}

// GetAddress returns the listen address or the default
func (s *ServerConfig) GetAddress() string {
	if s.Address == "" {
		return ":8080"
	}
	return s.Address
}

// MonitoringConfig contains health endpoint settings
type MonitoringConfig struct {
	HealthAddress string `yaml:"health_address"` // Address for health endpoint server (e.g. ":9100")
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format"` // json, console (default: console)
}

// ViewConfig contains initial view state settings
type ViewConfig struct {
	DefaultRangeMinutes int    `yaml:"default_range_minutes"` // Initial time window (default: 10080 = 7 days)
	Timezone            string `yaml:"timezone"`              // IANA zone for chart labels (default: local)
}

// GetDefaultRangeMinutes returns the initial window or the default
func (v *ViewConfig) GetDefaultRangeMinutes() int {
	if v.DefaultRangeMinutes == 0 {
		return models.DefaultTimeRangeMinutes
	}
	return v.DefaultRangeMinutes
}

// Location resolves the configured timezone, falling back to local time
func (v *ViewConfig) Location() (*time.Location, error) {
	if v.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(v.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid view.timezone '%s': %w", v.Timezone, err)
	}
	return loc, nil
}

// positiveDuration parses a duration string with a default, guarding
// against non-positive values to prevent panics in time.NewTicker
func positiveDuration(value, field string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", field, value, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", field, duration)
	}
	return duration, nil
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate that both auth_token and auth_token_file are not specified
	if cfg.API.AuthToken != "" && cfg.API.AuthTokenFile != "" {
		return nil, fmt.Errorf("cannot specify both api.auth_token and api.auth_token_file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadAuthToken reads a bearer token from a file, trimmed of whitespace
func LoadAuthToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file %s: %w", path, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}

	return token, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}

	if _, err := c.API.Timeout(); err != nil {
		return err
	}
	if _, err := c.API.PollInterval(); err != nil {
		return err
	}
	if _, err := c.API.RetryBackoff(); err != nil {
		return err
	}
	if _, err := c.API.MaxBackoff(); err != nil {
		return err
	}

	if c.API.MaxRetries != nil && *c.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries must be >= 0, got %d", *c.API.MaxRetries)
	}
	if c.API.JitterPercent != nil && (*c.API.JitterPercent < 0 || *c.API.JitterPercent > 100) {
		return fmt.Errorf("api.jitter_percent must be between 0 and 100, got %d", *c.API.JitterPercent)
	}

	if c.View.DefaultRangeMinutes != 0 && !models.ValidTimeRange(c.View.DefaultRangeMinutes) {
		return fmt.Errorf("view.default_range_minutes must be one of the presets, got %d", c.View.DefaultRangeMinutes)
	}
	if _, err := c.View.Location(); err != nil {
		return err
	}

	return nil
}
