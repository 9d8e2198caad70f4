// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Collector endpoint (opaque HTTP sink)
	CollectorURL string `env:"BEACON_COLLECTOR_URL"`

	// Wire schema: "plain" (TYPE, USR, ...) or "prefixed" (X_TYPE, X_USR, ...)
	HeaderScheme string `env:"BEACON_HEADER_SCHEME" envDefault:"plain"`

	// Page variant: "pageload" or "heartbeat"
	Variant           string        `env:"BEACON_VARIANT" envDefault:"heartbeat"`
	HeartbeatInterval time.Duration `env:"BEACON_HEARTBEAT_INTERVAL" envDefault:"5s"`

	// Send PAGE_SECONDS on TIME and SCROLLED on UNLOAD
	ExtendedFields bool `env:"BEACON_EXTENDED_FIELDS" envDefault:"false"`

	// Transport
	RequestTimeout time.Duration `env:"BEACON_REQUEST_TIMEOUT" envDefault:"10s"`
	HTTP2          bool          `env:"BEACON_HTTP2" envDefault:"false"`

	// Identity stores
	ProfileStore     string        `env:"PROFILE_STORE" envDefault:"sqlite"`
	ProfileStorePath string        `env:"PROFILE_STORE_PATH" envDefault:"beacon-profile.db"`
	SessionStore     string        `env:"SESSION_STORE" envDefault:"memory"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	RedisURL         string        `env:"REDIS_URL"`
	DatabaseURL      string        `env:"DATABASE_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Shutdown window for the final UNLOAD beacon
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// Seed for identifier generation; 0 means seed from the OS
	RandSeed uint64 `env:"RAND_SEED" envDefault:"0"`
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.CollectorURL == "" {
		return fmt.Errorf("BEACON_COLLECTOR_URL is required")
	}
	u, err := url.Parse(c.CollectorURL)
	if err != nil {
		return fmt.Errorf("parse collector url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("collector url must be absolute, got %q", c.CollectorURL)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %s", c.HeartbeatInterval)
	}
	if c.SessionStore != "memory" && c.SessionStore != "redis" {
		return fmt.Errorf("session store must be memory or redis, got %q", c.SessionStore)
	}
	if c.usesBackend("redis") && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL required for redis store")
	}
	if c.usesBackend("postgres") && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL required for postgres store")
	}
	return nil
}

func (c *Config) usesBackend(name string) bool {
	return c.ProfileStore == name || c.SessionStore == name
}

// Load parses environment variables and returns a Config.
// Command-line flags may override fields afterwards, so call Validate once
// they are applied.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
