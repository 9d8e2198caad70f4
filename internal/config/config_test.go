package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_WithRequiredVars(t *testing.T) {
	t.Setenv("BEACON_COLLECTOR_URL", "https://collector.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.CollectorURL != "https://collector.example.com" {
		t.Errorf("expected CollectorURL to be set, got %s", cfg.CollectorURL)
	}
}

func TestLoad_MissingCollectorFailsValidate(t *testing.T) {
	t.Setenv("BEACON_COLLECTOR_URL", "")
	os.Unsetenv("BEACON_COLLECTOR_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error from Load, got %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate error for missing collector url, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("BEACON_COLLECTOR_URL", "https://collector.example.com")
	t.Setenv("BEACON_HEARTBEAT_INTERVAL", "often")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparsable duration, got nil")
	}
}

func TestConfig_Defaults(t *testing.T) {
	t.Setenv("BEACON_COLLECTOR_URL", "https://collector.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.HeaderScheme != "plain" {
		t.Errorf("expected default HeaderScheme 'plain', got %s", cfg.HeaderScheme)
	}
	if cfg.Variant != "heartbeat" {
		t.Errorf("expected default Variant 'heartbeat', got %s", cfg.Variant)
	}
	if cfg.HeartbeatInterval != 5*time.Second {
		t.Errorf("expected default HeartbeatInterval 5s, got %s", cfg.HeartbeatInterval)
	}
	if cfg.ProfileStore != "sqlite" {
		t.Errorf("expected default ProfileStore 'sqlite', got %s", cfg.ProfileStore)
	}
	if cfg.SessionStore != "memory" {
		t.Errorf("expected default SessionStore 'memory', got %s", cfg.SessionStore)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default LogLevel 'info', got %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected default LogFormat 'json', got %s", cfg.LogFormat)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	base := Config{
		CollectorURL:      "https://collector.example.com",
		HeartbeatInterval: 5 * time.Second,
		ProfileStore:      "sqlite",
		SessionStore:      "memory",
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing url", func(c *Config) { c.CollectorURL = "" }, true},
		{"relative url", func(c *Config) { c.CollectorURL = "/collect" }, true},
		{"zero interval", func(c *Config) { c.HeartbeatInterval = 0 }, true},
		{"redis without url", func(c *Config) { c.SessionStore = "redis" }, true},
		{"redis with url", func(c *Config) { c.SessionStore = "redis"; c.RedisURL = "redis://localhost:6379" }, false},
		{"sqlite session store", func(c *Config) { c.SessionStore = "sqlite" }, true},
		{"postgres without url", func(c *Config) { c.ProfileStore = "postgres" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
