package providers

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry holds references to inference engines. It supports config-driven
// instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu            sync.RWMutex
	engines       map[string]Engine
	defaultEngine string
	logger        *slog.Logger
}

// NewRegistry creates a new empty engine registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register registers an engine by name.
func (r *Registry) Register(name string, engine Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = engine
	if r.logger != nil {
		r.logger.Info("registered engine", "name", name)
	}
}

// Unregister removes an engine by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, name)
	if r.logger != nil {
		r.logger.Info("unregistered engine", "name", name)
	}
}

// Get returns an engine by name. An empty name resolves to the default.
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultEngine
	}
	engine, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("engine not found: %s", name)
	}
	return engine, nil
}

// Has checks if an engine is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.engines[name]
	return ok
}

// List returns all registered engine names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	return names
}

// DefaultEngine returns the configured default engine name.
func (r *Registry) DefaultEngine() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultEngine
}

// EngineConfig matches config.EngineCfg with the API key resolved.
type EngineConfig struct {
	Type           string // "llamaserver", "anthropic", "mock"
	BaseURL        string
	Model          string
	APIKey         string // Resolved API key
	ContextWindow  int
	RateLimit      float64 // Requests per minute
	TimeoutSeconds int
	Enabled        bool
}

// RegistryConfig defines the engines to instantiate from config.
type RegistryConfig struct {
	Engines       map[string]EngineConfig
	DefaultEngine string
}

// NewRegistryFromConfig creates a registry with engines based on
// configuration. Only enabled engines are registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration. Engines that are
// no longer configured are unregistered; changed engines are rebuilt.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, engCfg := range cfg.Engines {
		if !engCfg.Enabled {
			continue
		}
		engine := createEngine(engCfg)
		if engine == nil {
			if r.logger != nil {
				r.logger.Warn("unknown engine type, skipping", "name", name, "type", engCfg.Type)
			}
			continue
		}
		want[name] = true
		r.engines[name] = engine
		if r.logger != nil {
			r.logger.Info("registered engine", "name", name, "type", engCfg.Type)
		}
	}

	for name := range r.engines {
		if !want[name] {
			delete(r.engines, name)
			if r.logger != nil {
				r.logger.Info("unregistered engine", "name", name)
			}
		}
	}

	r.defaultEngine = cfg.DefaultEngine
}

// createEngine instantiates an engine from its config.
func createEngine(cfg EngineConfig) Engine {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Type {
	case "llamaserver":
		return NewLlamaServerEngine(LlamaServerConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			RateLimit: cfg.RateLimit,
			Timeout:   timeout,
		})
	case "anthropic":
		return NewAnthropicEngine(AnthropicConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
			Timeout:   timeout,
		})
	case "mock":
		return NewMockEngine()
	default:
		return nil
	}
}
