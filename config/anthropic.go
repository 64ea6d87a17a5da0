package config

import (
	"os"

	"github.com/aschepis/backscratcher/legion/llm"
)

// AnthropicConfig represents configuration for the Anthropic backend.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`  // Anthropic API key
	BaseURL string `yaml:"base_url,omitempty"` // Custom base URL (default: official API)
	Model   string `yaml:"model,omitempty"`    // Default model name
}

// applyEnv applies ANTHROPIC_API_KEY and ANTHROPIC_MODEL.
func (a *AnthropicConfig) applyEnv() {
	if envAPIKey := os.Getenv("ANTHROPIC_API_KEY"); envAPIKey != "" {
		a.APIKey = envAPIKey
	}
	if envModel := os.Getenv("ANTHROPIC_MODEL"); envModel != "" {
		a.Model = envModel
	}
}

func (a AnthropicConfig) providerConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		APIKey:       a.APIKey,
		BaseURL:      a.BaseURL,
		DefaultModel: a.Model,
	}
}
