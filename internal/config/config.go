package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LLMConfig holds all LLM-related configuration
type LLMConfig struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider"` // ollama, bedrock
	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
	Region   string `json:"region"` // For AWS Bedrock
	Timeout  string `json:"timeout"`

	// MaxRequestsPerSecond throttles provider calls across all runs.
	// Zero means unlimited.
	MaxRequestsPerSecond float64 `json:"max_requests_per_second"`
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Addr        string `json:"addr"`
	CORSEnabled bool   `json:"cors_enabled"`
}

// StorageConfig controls template persistence. With storage disabled the
// tool runs on an in-memory library seeded with the starter templates.
type StorageConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ExecutionConfig supplies the execution policy used when a request does
// not carry one
type ExecutionConfig struct {
	DefaultMode    string `json:"default_mode"` // serial, parallel
	MaxConcurrency int    `json:"max_concurrency"`
	TimeoutMs      int64  `json:"timeout_ms"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Debug bool `json:"debug"`
	JSON  bool `json:"json"`
}

// Config holds all configuration for the prompt lab
type Config struct {
	Server    ServerConfig    `json:"server"`
	LLM       LLMConfig       `json:"llm"`
	Storage   StorageConfig   `json:"storage"`
	Execution ExecutionConfig `json:"execution"`
	Logging   LoggingConfig   `json:"logging"`

	// TemplateDir is imported into the library at startup when set
	TemplateDir string `json:"template_dir,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		LLM:       DefaultLLMConfig(),
		Storage:   DefaultStorageConfig(),
		Execution: DefaultExecutionConfig(),
	}
}

// DefaultServerConfig returns default HTTP server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:        ":8080",
		CORSEnabled: true,
	}
}

// DefaultLLMConfig returns default LLM configuration
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Enabled:  true,
		Provider: "ollama",
		Model:    "llama3.2:latest",
		Endpoint: "http://localhost:11434/api/generate",
		Timeout:  "20s",
	}
}

// DefaultStorageConfig returns default storage configuration
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Enabled: true,
		Path:    "",
	}
}

// DefaultExecutionConfig returns default execution configuration
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		DefaultMode: "serial",
		TimeoutMs:   30000,
	}
}

// LoadConfig loads configuration, falling back to defaults for anything
// the file does not set
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config file
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", configPath, err)
			}
		}
	}

	return cfg, nil
}

// SaveConfig writes the configuration to the given path, creating parent
// directories as needed
func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o644)
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "promptlab", "config.json")
}

// DefaultStoragePath returns the default template database path
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "promptlab", "templates.db")
}

// StoragePath returns the configured database path, falling back to the
// default location
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return DefaultStoragePath()
}

// GetLLMTimeout returns the provider call timeout
func (c *Config) GetLLMTimeout() time.Duration {
	if c.LLM.Timeout != "" {
		if d, err := time.ParseDuration(c.LLM.Timeout); err == nil {
			return d
		}
	}
	return 20 * time.Second
}
