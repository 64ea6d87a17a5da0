package llm

import (
	"fmt"
	"sort"
	"sync"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
)

// Factory constructs adapters for one backend.
type Factory interface {
	// CreateProvider builds a new, independent adapter. A nil config selects
	// backend defaults.
	CreateProvider(cfg *ProviderConfig) (Adapter, error)
}

// FactoryFunc is a function type that implements Factory.
type FactoryFunc func(cfg *ProviderConfig) (Adapter, error)

// CreateProvider calls f.
func (f FactoryFunc) CreateProvider(cfg *ProviderConfig) (Adapter, error) {
	return f(cfg)
}

// ProviderRegistry maps backend names to factories.
type ProviderRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		factories: make(map[string]Factory),
	}
}

// Register attaches or replaces the factory for name.
func (r *ProviderRegistry) Register(name string, f Factory) {
	if f == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// IsRegistered reports whether a factory exists for name.
func (r *ProviderRegistry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Providers returns the registered backend names, sorted.
func (r *ProviderRegistry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateProvider builds a new adapter for the named backend. Nothing is
// cached; every call returns a new instance.
func (r *ProviderRegistry) CreateProvider(name string, cfg *ProviderConfig) (Adapter, error) {
	r.mu.RLock()
	f := r.factories[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("unknown provider: %s (registered: %v)", name, r.Providers())
	}
	adapter, err := f.CreateProvider(cfg)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

// ResolveFirst returns the first name in preferences that is registered.
func (r *ProviderRegistry) ResolveFirst(preferences []string) (string, error) {
	for _, name := range preferences {
		if r.IsRegistered(name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("no registered provider among preferences %v (registered: %v)", preferences, r.Providers())
}

var defaultRegistry = NewProviderRegistry()

// DefaultRegistry returns the process-wide registry backend packages
// register themselves into.
func DefaultRegistry() *ProviderRegistry {
	return defaultRegistry
}

// Register adds a factory to the default registry.
func Register(name string, f Factory) {
	defaultRegistry.Register(name, f)
}

// CreateProvider builds an adapter from the default registry.
func CreateProvider(name string, cfg *ProviderConfig) (Adapter, error) {
	return defaultRegistry.CreateProvider(name, cfg)
}

// Providers lists the backends in the default registry.
func Providers() []string {
	return defaultRegistry.Providers()
}
