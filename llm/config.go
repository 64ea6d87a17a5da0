package llm

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ProviderConfig holds what an adapter needs to build its backend handles.
// It is owned by the caller; adapters keep a copy and never modify it.
type ProviderConfig struct {
	BaseURL      string
	APIKey       string
	Organization string
	// DefaultModel is used when a request leaves Model empty.
	DefaultModel string
	// Timeout bounds each HTTP request made by the backend client. Zero
	// means no client-side timeout.
	Timeout time.Duration
	// MaxRetries is accepted for compatibility; adapters perform exactly
	// one request per call.
	MaxRetries int
	// Debug enables the tool-call diagnostic output.
	Debug bool
	// DebugWriter receives diagnostic output. Defaults to stderr.
	DebugWriter io.Writer
	Logger      zerolog.Logger
}

// WithDefaults returns a copy of cfg (or of an empty config when cfg is nil)
// with the diagnostic writer filled in.
func (cfg *ProviderConfig) WithDefaults() ProviderConfig {
	var out ProviderConfig
	if cfg != nil {
		out = *cfg
	} else {
		out.Logger = zerolog.Nop()
	}
	if out.DebugWriter == nil {
		out.DebugWriter = os.Stderr
	}
	return out
}

// ResolveModel returns model, or the configured default when model is empty.
func (cfg ProviderConfig) ResolveModel(model string) string {
	if model != "" {
		return model
	}
	return cfg.DefaultModel
}
