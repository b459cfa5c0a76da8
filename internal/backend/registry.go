package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps providers to processor factories.
type Registry struct {
	factories map[Provider]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new backend registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Provider]Factory),
	}
}

// Register adds a factory for provider.
func (r *Registry) Register(provider Provider, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[provider]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, provider)
	}

	r.factories[provider] = factory
	return nil
}

// Get retrieves the factory for provider.
func (r *Registry) Get(provider Provider) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[provider]
	return f, ok
}

// Open builds a processor with the factory registered for provider.
func (r *Registry) Open(ctx context.Context, provider Provider, opts Options) (Processor, error) {
	f, ok := r.Get(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, provider)
	}
	return f(ctx, opts)
}

// Providers lists the registered providers in sorted order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.factories))
	for p := range r.factories {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
