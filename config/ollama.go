package config

import (
	"os"
	"time"

	"github.com/aschepis/backscratcher/legion/llm"
)

// OllamaConfig represents configuration for the Ollama backend.
type OllamaConfig struct {
	Host    string `yaml:"host,omitempty"`    // Ollama host (default: "http://localhost:11434")
	Model   string `yaml:"model,omitempty"`   // Default model name
	Timeout int    `yaml:"timeout,omitempty"` // Request timeout in seconds; overrides the global timeout
}

// applyEnv applies OLLAMA_HOST and OLLAMA_MODEL.
func (o *OllamaConfig) applyEnv() {
	if envHost := os.Getenv("OLLAMA_HOST"); envHost != "" {
		o.Host = envHost
	}
	if envModel := os.Getenv("OLLAMA_MODEL"); envModel != "" {
		o.Model = envModel
	}
}

func (o OllamaConfig) providerConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		BaseURL:      o.Host,
		DefaultModel: o.Model,
		Timeout:      time.Duration(o.Timeout) * time.Second,
	}
}
