package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/aschepis/backscratcher/legion/llm"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// LogConfig controls where and how verbosely legion logs.
type LogConfig struct {
	Level   string `yaml:"level,omitempty"`   // zerolog level name (default: "info")
	File    string `yaml:"file,omitempty"`    // Log file path (default: ~/.legion/legion.log)
	Console bool   `yaml:"console,omitempty"` // Also write human-readable logs to stderr
}

// Config is the user configuration for legion.
type Config struct {
	// Provider is the backend used when none is given on the command line.
	Provider string `yaml:"provider,omitempty"`
	// Timeout bounds each backend HTTP request, in seconds.
	Timeout int `yaml:"timeout,omitempty"`
	// Debug enables tool-call diagnostics in every adapter.
	Debug bool `yaml:"debug,omitempty"`

	// LLM provider configurations
	Ollama    OllamaConfig    `yaml:"ollama,omitempty"`
	OpenAI    OpenAIConfig    `yaml:"openai,omitempty"`
	Anthropic AnthropicConfig `yaml:"anthropic,omitempty"`

	Log LogConfig `yaml:"log,omitempty"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Provider: llm.ProviderOllama,
		Timeout:  120,
		Ollama: OllamaConfig{
			Host:  "http://localhost:11434",
			Model: "llama3.2",
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-haiku-4-5",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// GetConfigPath returns the default config file path.
// Can be overridden via LEGION_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("LEGION_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.legion/config.yaml"
	}
	return filepath.Join(homeDir, ".legion", "config.yaml")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Load reads the configuration at path and merges it onto the defaults.
// A missing file yields the defaults. Environment variables are applied last.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	expandedPath := expandPath(path)
	if _, err := os.Stat(expandedPath); err == nil {
		data, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", expandedPath, err)
		}

		// Merge file config onto defaults
		if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	cfg.applyEnv()
	return &cfg, nil
}

// Save writes the configuration to path.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(expandedPath), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnv overlays environment variable overrides.
func (c *Config) applyEnv() {
	if provider := os.Getenv("LEGION_PROVIDER"); provider != "" {
		c.Provider = provider
	}
	c.Ollama.applyEnv()
	c.OpenAI.applyEnv()
	c.Anthropic.applyEnv()
}

// ProviderConfig builds the adapter configuration for the named backend.
func (c *Config) ProviderConfig(name string, logger zerolog.Logger) (*llm.ProviderConfig, error) {
	var pc llm.ProviderConfig
	switch name {
	case llm.ProviderOllama:
		pc = c.Ollama.providerConfig()
	case llm.ProviderOpenAI:
		pc = c.OpenAI.providerConfig()
	case llm.ProviderAnthropic:
		pc = c.Anthropic.providerConfig()
	default:
		return nil, fmt.Errorf("no configuration for provider %q", name)
	}

	if pc.Timeout == 0 && c.Timeout > 0 {
		pc.Timeout = time.Duration(c.Timeout) * time.Second
	}
	pc.Debug = c.Debug
	pc.Logger = logger
	return &pc, nil
}
