// Package config loads process settings for the harmonize CLI from the
// environment.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix, e.g. CCHSFLOW_LOG_LEVEL.
const Prefix = "CCHSFLOW"

// Config holds the settings the CLI reads before parsing flags.
type Config struct {
	// PatternsFile is tried before the default search paths.
	PatternsFile string `envconfig:"PATTERNS_FILE"`
	// CatalogFile is a CSV or XLSX variable catalogue.
	CatalogFile string `envconfig:"CATALOG_FILE"`
	// RulesFile replaces the embedded naming rules.
	RulesFile string `envconfig:"RULES_FILE"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"warn" validate:"oneof=debug info warn error"`
	// Watch reloads the patterns file when it changes.
	Watch bool `envconfig:"WATCH" default:"false"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads Config from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints. Flag overrides should be applied
// before calling it again.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Watch && c.PatternsFile == "" {
		return fmt.Errorf("config validation failed: %s_WATCH requires %s_PATTERNS_FILE", Prefix, Prefix)
	}
	return nil
}
