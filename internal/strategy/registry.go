// Package strategy holds the pluggable cost algorithms and the registry that
// maps a configuration type tag to the builder for that algorithm.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/observability"
)

// Builder constructs a strategy from its rule configuration.
type Builder func(cfg domain.StrategyConfig) (domain.Strategy, error)

// Registry maps strategy type tags to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates an empty registry. Call RegisterBuiltins to add the
// standard strategies.
func NewRegistry() *Registry {
	return &Registry{
		mu:       sync.RWMutex{},
		builders: make(map[string]Builder),
	}
}

// Register adds a builder for a type tag. Registering an existing tag
// replaces the previous builder and logs a warning.
func (r *Registry) Register(ctx context.Context, typeTag string, builder Builder) error {
	if typeTag == "" {
		return errors.New("strategy type cannot be empty")
	}
	if builder == nil {
		return errors.New("strategy builder cannot be nil")
	}

	r.mu.Lock()
	_, exists := r.builders[typeTag]
	r.builders[typeTag] = builder
	r.mu.Unlock()

	if exists {
		observability.FromContext(ctx).Warn("strategy type re-registered, previous builder replaced",
			observability.String("strategy", typeTag))
	}

	return nil
}

// Build constructs a strategy for cfg.
func (r *Registry) Build(cfg domain.StrategyConfig) (domain.Strategy, error) {
	r.mu.RLock()
	builder, exists := r.builders[cfg.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, cfg.Type)
	}

	s, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s strategy: %w", cfg.Type, err)
	}

	return s, nil
}

// Has reports whether a type tag is registered.
func (r *Registry) Has(typeTag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.builders[typeTag]
	return exists
}

// List returns the registered type tags in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.builders))
	for tag := range r.builders {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return tags
}
