package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aqualink/internal/models"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	yamlContent := `
api:
  base_url: http://localhost:8000
  auth_token: secret-token
  timeout: 10s
  poll_interval: 30s
  max_retries: 5
  jitter_percent: 10

cache:
  path: /tmp/aqualink.db

server:
  address: ":8090"

monitoring:
  health_address: ":9100"

logging:
  level: debug
  format: json

view:
  default_range_minutes: 1440
  timezone: UTC
`

	cfg, err := Load(writeConfig(t, yamlContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.API.AuthToken != "secret-token" {
		t.Errorf("AuthToken = %s", cfg.API.AuthToken)
	}
	if timeout, _ := cfg.API.Timeout(); timeout != 10*time.Second {
		t.Errorf("Timeout = %v", timeout)
	}
	if interval, _ := cfg.API.PollInterval(); interval != 30*time.Second {
		t.Errorf("PollInterval = %v", interval)
	}
	if cfg.API.MaxRetries == nil || *cfg.API.MaxRetries != 5 {
		t.Errorf("MaxRetries = %v", cfg.API.MaxRetries)
	}
	if cfg.API.JitterPercent == nil || *cfg.API.JitterPercent != 10 {
		t.Errorf("JitterPercent = %v", cfg.API.JitterPercent)
	}
	if cfg.Cache.Path != "/tmp/aqualink.db" {
		t.Errorf("Cache.Path = %s", cfg.Cache.Path)
	}
	if cfg.Server.GetAddress() != ":8090" {
		t.Errorf("Server address = %s", cfg.Server.GetAddress())
	}
	if cfg.Monitoring.HealthAddress != ":9100" {
		t.Errorf("HealthAddress = %s", cfg.Monitoring.HealthAddress)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.View.GetDefaultRangeMinutes() != 1440 {
		t.Errorf("DefaultRangeMinutes = %d", cfg.View.GetDefaultRangeMinutes())
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "api:\n  base_url: http://localhost:8000\n"))
	if err != nil {
		t.Fatalf("Failed to load minimal config: %v", err)
	}

	if timeout, _ := cfg.API.Timeout(); timeout != 30*time.Second {
		t.Errorf("Default timeout = %v, want 30s", timeout)
	}
	if interval, _ := cfg.API.PollInterval(); interval != 60*time.Second {
		t.Errorf("Default poll interval = %v, want 60s", interval)
	}
	if backoff, _ := cfg.API.RetryBackoff(); backoff != 1*time.Second {
		t.Errorf("Default retry backoff = %v, want 1s", backoff)
	}
	if maxBackoff, _ := cfg.API.MaxBackoff(); maxBackoff != 30*time.Second {
		t.Errorf("Default max backoff = %v, want 30s", maxBackoff)
	}
	if cfg.Server.GetAddress() != ":8080" {
		t.Errorf("Default server address = %s, want :8080", cfg.Server.GetAddress())
	}
	if cfg.View.GetDefaultRangeMinutes() != models.DefaultTimeRangeMinutes {
		t.Errorf("Default range = %d, want %d", cfg.View.GetDefaultRangeMinutes(), models.DefaultTimeRangeMinutes)
	}
	if loc, err := cfg.View.Location(); err != nil || loc != time.Local {
		t.Errorf("Default location = %v, %v", loc, err)
	}
}

func TestLoadConfig_MissingBaseURL(t *testing.T) {
	_, err := Load(writeConfig(t, "api:\n  timeout: 5s\n"))
	if err == nil || !strings.Contains(err.Error(), "base_url") {
		t.Errorf("Expected base_url error, got %v", err)
	}
}

func TestLoadConfig_BothTokenSourcesRejected(t *testing.T) {
	yamlContent := `
api:
  base_url: http://localhost:8000
  auth_token: inline
  auth_token_file: /etc/aqualink/token
`
	_, err := Load(writeConfig(t, yamlContent))
	if err == nil || !strings.Contains(err.Error(), "auth_token") {
		t.Errorf("Expected mutual-exclusion error, got %v", err)
	}
}

func TestLoadConfig_InvalidDurations(t *testing.T) {
	tests := []string{
		"api:\n  base_url: http://x\n  timeout: banana\n",
		"api:\n  base_url: http://x\n  poll_interval: -30s\n",
		"api:\n  base_url: http://x\n  poll_interval: 0s\n",
	}
	for _, yamlContent := range tests {
		if _, err := Load(writeConfig(t, yamlContent)); err == nil {
			t.Errorf("Expected error for config:\n%s", yamlContent)
		}
	}
}

func TestLoadConfig_RangeMustBePreset(t *testing.T) {
	yamlContent := `
api:
  base_url: http://localhost:8000
view:
  default_range_minutes: 77
`
	_, err := Load(writeConfig(t, yamlContent))
	if err == nil || !strings.Contains(err.Error(), "default_range_minutes") {
		t.Errorf("Expected preset validation error, got %v", err)
	}
}

func TestLoadConfig_InvalidTimezone(t *testing.T) {
	yamlContent := `
api:
  base_url: http://localhost:8000
view:
  timezone: Marte/Olympus
`
	if _, err := Load(writeConfig(t, yamlContent)); err == nil {
		t.Error("Expected error for unknown timezone")
	}
}

func TestLoadAuthToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  secret-value\n"), 0600); err != nil {
		t.Fatalf("Failed to write token file: %v", err)
	}

	token, err := LoadAuthToken(path)
	if err != nil {
		t.Fatalf("LoadAuthToken failed: %v", err)
	}
	if token != "secret-value" {
		t.Errorf("Token = %q, want trimmed value", token)
	}
}

func TestLoadAuthToken_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("   \n"), 0600); err != nil {
		t.Fatalf("Failed to write token file: %v", err)
	}
	if _, err := LoadAuthToken(path); err == nil {
		t.Error("Expected error for empty token file")
	}
}

func TestValidate_RetrySettings(t *testing.T) {
	neg := -1
	big := 150

	cfg := &Config{API: APIConfig{BaseURL: "http://x", MaxRetries: &neg}}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for negative max_retries")
	}

	cfg = &Config{API: APIConfig{BaseURL: "http://x", JitterPercent: &big}}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for jitter_percent over 100")
	}
}
