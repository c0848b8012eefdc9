package config

import (
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig locates the PHP application to analyze
type SourceConfig struct {
	Dir     string `yaml:"dir"`     // Application root containing routes/ and app/
	Workers int    `yaml:"workers"` // Parallel analysis workers, 0 means NumCPU
}

// OutputConfig controls the generated document
type OutputConfig struct {
	Path        string `yaml:"path"` // .yaml or .json decides the encoding
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	ServerURL   string `yaml:"serverUrl"`
}

// ServerConfig holds mock server configuration
type ServerConfig struct {
	Port  int       `yaml:"port"`
	Host  string    `yaml:"host"`
	Watch bool      `yaml:"watch"` // Re-analyze and reload on source changes
	Seed  int64     `yaml:"seed"`  // Response generator seed, 0 means time-based
	TLS   TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Enabled      bool   `yaml:"enabled"`
	CertFile     string `yaml:"certFile"`
	KeyFile      string `yaml:"keyFile"`
	AutoGenerate bool   `yaml:"autoGenerate"` // Generate a self-signed cert when none is configured
	StorePath    string `yaml:"storePath"`    // Where auto-generated certs are kept
}

// AuthConfig lists credentials the mock server accepts. Empty lists accept
// any non-empty credential of that shape.
type AuthConfig struct {
	Tokens  []string `yaml:"tokens"`
	APIKeys []string `yaml:"apiKeys"`
	Basic   []string `yaml:"basic"` // user:password pairs
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Dir:     ".",
			Workers: runtime.NumCPU(),
		},
		Output: OutputConfig{
			Path:      "openapi.yaml",
			Title:     "API Documentation",
			Version:   "1.0.0",
			ServerURL: "http://localhost:8080",
		},
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
			TLS: TLSConfig{
				AutoGenerate: true,
				StorePath:    ".laragen/certs",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
