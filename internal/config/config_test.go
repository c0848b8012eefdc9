package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got %q", cfg.Server.Host)
	}

	if cfg.Source.Dir != "." {
		t.Errorf("Expected default source dir '.', got %q", cfg.Source.Dir)
	}
	if cfg.Source.Workers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.Source.Workers)
	}

	if cfg.Output.Path != "openapi.yaml" {
		t.Errorf("Expected default output 'openapi.yaml', got %q", cfg.Output.Path)
	}
	if cfg.Output.Version != "1.0.0" {
		t.Errorf("Expected default version '1.0.0', got %q", cfg.Output.Version)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got %q", cfg.Logging.Level)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
source:
  dir: /srv/app
  workers: 4
output:
  path: docs/api.json
  title: Payment API
  version: 2.1.0
  serverUrl: https://api.example.com
server:
  port: 9090
  host: localhost
  watch: true
auth:
  tokens:
    - token-one
    - token-two
  basic:
    - admin:secret
logging:
  level: debug
  format: text
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Source.Dir != "/srv/app" {
		t.Errorf("Expected source dir '/srv/app', got %q", cfg.Source.Dir)
	}
	if cfg.Source.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Source.Workers)
	}
	if cfg.Output.Path != "docs/api.json" {
		t.Errorf("Expected output 'docs/api.json', got %q", cfg.Output.Path)
	}
	if cfg.Output.Title != "Payment API" {
		t.Errorf("Expected title 'Payment API', got %q", cfg.Output.Title)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Server.Watch {
		t.Error("Expected watch to be enabled")
	}
	if len(cfg.Auth.Tokens) != 2 || cfg.Auth.Tokens[0] != "token-one" {
		t.Errorf("Expected two tokens, got %v", cfg.Auth.Tokens)
	}
	if len(cfg.Auth.Basic) != 1 || cfg.Auth.Basic[0] != "admin:secret" {
		t.Errorf("Expected one basic pair, got %v", cfg.Auth.Basic)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level 'debug', got %q", cfg.Logging.Level)
	}
}

func TestLoad_PartialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 3000
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", cfg.Server.Port)
	}

	// Defaults are preserved for everything else.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got %q", cfg.Server.Host)
	}
	if cfg.Output.Path != "openapi.yaml" {
		t.Errorf("Expected default output path, got %q", cfg.Output.Path)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: [invalid yaml
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err = Load(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte(""), 0644)
	if err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
}
