// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Zone database for BOOSTY_TIMEZONE on hosts without one.

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	// CredentialsPath is the JSON file (or SQLite database) holding tokens.
	CredentialsPath string        `env:"BOOSTY_CONFIG_PATH"  envDefault:"config.json"`
	APIURL          string        `env:"BOOSTY_API_URL"      envDefault:"https://api.boosty.to"`
	SiteURL         string        `env:"BOOSTY_SITE_URL"     envDefault:"https://boosty.to"`
	OutputDir       string        `env:"BOOSTY_OUTPUT_DIR"   envDefault:"."`
	Timezone        string        `env:"BOOSTY_TIMEZONE"     envDefault:"UTC"`
	HTTPTimeout     time.Duration `env:"BOOSTY_HTTP_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL"           envDefault:"info"`
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from the given variables instead of the
// process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if strings.TrimSpace(cfg.CredentialsPath) == "" {
		return nil, fmt.Errorf("BOOSTY_CONFIG_PATH must not be empty")
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("BOOSTY_HTTP_TIMEOUT must be positive, got %s", cfg.HTTPTimeout)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid BOOSTY_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return &cfg, nil
}

// Location returns the zone publish dates are shown in. Load has already
// validated Timezone; UTC is returned if it has since become invalid.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
