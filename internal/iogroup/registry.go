package iogroup

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Factory creates a new IOGroup instance
type Factory func() (IOGroup, error)

// Registrar adds one or more plugins to a registry.
// Registrars log their own failures and never return them.
type Registrar func(reg *Registry, logger *zap.Logger)

// Registry maps plugin names to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Default is the registry the perfio binaries populate at startup
var Default = NewRegistry()

// Register registers a plugin factory with error handling
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("plugin name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("plugin %s already registered", name)
	}

	r.factories[name] = factory
	return nil
}

// Create instantiates the plugin registered under name
func (r *Registry) Create(name string) (IOGroup, error) {
	if name == "" {
		return nil, fmt.Errorf("plugin name cannot be empty")
	}

	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown plugin: %s", name)
	}

	group, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin %s: %w", name, err)
	}
	return group, nil
}

// List returns a sorted list of registered plugin names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// IsRegistered checks if a plugin is registered
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[name]
	return exists
}

// RegisterBuiltins runs every registrar against reg. A panicking registrar
// is logged and skipped so one broken plugin cannot take down the host.
func RegisterBuiltins(reg *Registry, logger *zap.Logger, registrars ...Registrar) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for i, registrar := range registrars {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Plugin registration panicked",
						zap.Int("registrar", i),
						zap.Any("cause", r))
				}
			}()
			registrar(reg, logger)
		}()
	}
	logger.Debug("Plugin registration complete", zap.Strings("plugins", reg.List()))
}
