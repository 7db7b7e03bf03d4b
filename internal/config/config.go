// Package config provides configuration management for the wheel tracker.
package config

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

const (
	// defaultPort is used when server.port is unset.
	defaultPort = 8080
	// defaultStoragePath is used when storage.path is unset.
	defaultStoragePath = "chains.json"
	// defaultQuoteTimeoutSeconds bounds a single quote fetch.
	defaultQuoteTimeoutSeconds = 10
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	MarketData  MarketDataConfig  `yaml:"market_data"`
	Analyzer    AnalyzerConfig    `yaml:"analyzer"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// StorageConfig defines where wheel chains are persisted.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LedgerConfig points at the position ledger snapshot supplied by the
// synchronization layer.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// MarketDataConfig defines the optional quote endpoint used to fill in
// current prices when a caller does not supply one.
type MarketDataConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AnalyzerConfig tunes the inferred chain analyzer.
type AnalyzerConfig struct {
	// ClosedRequiresAssignment controls the round-trip rule: when true
	// (the default), an underlying with zero held shares is only inferred
	// CLOSED if an assignment is present in its history.
	ClosedRequiresAssignment *bool `yaml:"closed_requires_assignment"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath
	}
	if c.MarketData.TimeoutSeconds == 0 {
		c.MarketData.TimeoutSeconds = defaultQuoteTimeoutSeconds
	}
}

// ClosedRequiresAssignment returns the analyzer round-trip setting, defaulting
// to true when unset.
func (c *Config) ClosedRequiresAssignment() bool {
	if c.Analyzer.ClosedRequiresAssignment == nil {
		return true
	}
	return *c.Analyzer.ClosedRequiresAssignment
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	switch c.Environment.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must be set")
	}

	if c.MarketData.Enabled && c.MarketData.Endpoint == "" {
		return fmt.Errorf("market_data.endpoint must be set when market_data.enabled is true")
	}
	if c.MarketData.TimeoutSeconds < 0 {
		return fmt.Errorf("market_data.timeout_seconds must not be negative")
	}

	return nil
}
