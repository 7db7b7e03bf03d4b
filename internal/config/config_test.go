package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  auth_token: secret
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.Environment.LogLevel)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Path != "chains.json" {
		t.Errorf("Storage.Path = %s, want chains.json", cfg.Storage.Path)
	}
	if cfg.MarketData.TimeoutSeconds != 10 {
		t.Errorf("TimeoutSeconds = %d, want 10", cfg.MarketData.TimeoutSeconds)
	}
	if !cfg.ClosedRequiresAssignment() {
		t.Error("ClosedRequiresAssignment should default to true")
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
environment:
  log_level: debug
server:
  port: 9090
  auth_token: secret
storage:
  path: /var/lib/wheel/chains.json
ledger:
  path: /var/lib/wheel/ledger.json
market_data:
  enabled: true
  endpoint: https://quotes.example.com
  api_key: key-123
  timeout_seconds: 5
analyzer:
  closed_requires_assignment: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Ledger.Path != "/var/lib/wheel/ledger.json" {
		t.Errorf("Ledger.Path = %s", cfg.Ledger.Path)
	}
	if !cfg.MarketData.Enabled || cfg.MarketData.Endpoint != "https://quotes.example.com" {
		t.Errorf("MarketData not parsed: %+v", cfg.MarketData)
	}
	if cfg.ClosedRequiresAssignment() {
		t.Error("closed_requires_assignment: false should be honored")
	}
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("WHEEL_AUTH_TOKEN", "from-env")
	path := writeConfig(t, `
server:
  auth_token: ${WHEEL_AUTH_TOKEN}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.AuthToken != "from-env" {
		t.Errorf("AuthToken = %s, want from-env", cfg.Server.AuthToken)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
server:
  prot: 9090
`)
	if _, err := Load(path); err == nil {
		t.Error("Misspelled field should be rejected")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Missing config file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad log level", func(c *Config) { c.Environment.LogLevel = "verbose" }},
		{"port too low", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"missing storage path", func(c *Config) { c.Storage.Path = "" }},
		{"market data enabled without endpoint", func(c *Config) {
			c.MarketData.Enabled = true
			c.MarketData.Endpoint = ""
		}},
		{"negative quote timeout", func(c *Config) { c.MarketData.TimeoutSeconds = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{}
			cfg.applyDefaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation failure")
			}
		})
	}
}
