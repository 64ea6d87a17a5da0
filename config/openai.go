package config

import (
	"os"

	"github.com/aschepis/backscratcher/legion/llm"
)

// OpenAIConfig represents configuration for the OpenAI backend.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key,omitempty"`      // OpenAI API key
	BaseURL      string `yaml:"base_url,omitempty"`     // Custom base URL (default: official API)
	Model        string `yaml:"model,omitempty"`        // Default model name
	Organization string `yaml:"organization,omitempty"` // Organization ID
}

// applyEnv applies the OPENAI_* environment variables.
func (o *OpenAIConfig) applyEnv() {
	if envAPIKey := os.Getenv("OPENAI_API_KEY"); envAPIKey != "" {
		o.APIKey = envAPIKey
	}
	if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
		o.BaseURL = envBaseURL
	}
	if envModel := os.Getenv("OPENAI_MODEL"); envModel != "" {
		o.Model = envModel
	}
	if envOrg := os.Getenv("OPENAI_ORG_ID"); envOrg != "" {
		o.Organization = envOrg
	}
}

func (o OpenAIConfig) providerConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		APIKey:       o.APIKey,
		BaseURL:      o.BaseURL,
		DefaultModel: o.Model,
		Organization: o.Organization,
	}
}
