package upscale

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a configured pipeline.
type Factory func(opts Options) (*Pipeline, error)

// Registry maps pipeline names to factories. Registration is an
// explicit call made by the embedding application at startup, there is
// no import-time side effect.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("pipeline %q already registered", name)
	}

	r.factories[name] = factory
	return nil
}

func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	return factory, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
