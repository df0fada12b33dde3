package ruleset

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/observability"
	"github.com/davidbz/tollbooth/internal/strategy"
)

// Option customises a Loader.
type Option func(*Loader)

// WithMetrics records load and invalidation metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(l *Loader) {
		l.metrics = metrics
	}
}

// Loader caches validated documents per service until explicitly cleared.
// Failed loads are never cached.
type Loader struct {
	source   Source
	registry *strategy.Registry
	metrics  *observability.Metrics

	mu    sync.RWMutex
	cache map[string]*domain.BillingConfig
}

// NewLoader creates a loader. registry may be nil to skip strategy checks.
func NewLoader(source Source, registry *strategy.Registry, opts ...Option) (*Loader, error) {
	if source == nil {
		return nil, errors.New("rule source cannot be nil")
	}

	l := &Loader{
		source:   source,
		registry: registry,
		cache:    make(map[string]*domain.BillingConfig),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Load returns the validated rules for serviceID.
func (l *Loader) Load(ctx context.Context, serviceID string) (*domain.BillingConfig, error) {
	l.mu.RLock()
	cfg, ok := l.cache[serviceID]
	l.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	ctx = observability.WithServiceID(ctx, serviceID)
	logger := observability.FromContext(ctx)

	cfg, err := l.load(ctx, serviceID)
	if err != nil {
		outcome := "invalid"
		if errors.Is(err, domain.ErrConfigNotFound) {
			outcome = "not_found"
		}
		l.metrics.RecordConfigLoad(serviceID, outcome)
		logger.Warn("billing config load failed", observability.Error(err))
		return nil, err
	}

	l.mu.Lock()
	l.cache[serviceID] = cfg
	l.mu.Unlock()

	l.metrics.RecordConfigLoad(serviceID, "success")
	logger.Info("billing config loaded",
		observability.Int("version", cfg.Version),
		observability.Int("rules", len(cfg.Rules)))

	return cfg, nil
}

// ClearCache drops the cached document for serviceID.
func (l *Loader) ClearCache(serviceID string) {
	l.mu.Lock()
	delete(l.cache, serviceID)
	l.mu.Unlock()

	l.metrics.RecordConfigInvalidation(serviceID)
	observability.FromContext(context.Background()).Info("billing config invalidated",
		observability.String("service_id", serviceID))
}

// ClearAll drops every cached document.
func (l *Loader) ClearAll() {
	l.mu.Lock()
	l.cache = make(map[string]*domain.BillingConfig)
	l.mu.Unlock()

	l.metrics.RecordConfigInvalidation("")
	observability.FromContext(context.Background()).Info("billing config cache cleared")
}

// RuleProvider adapts one service's document into a domain.RuleProvider.
// Every Rules call goes through Load, so invalidations apply immediately.
func (l *Loader) RuleProvider(serviceID string) domain.RuleProvider {
	return &serviceRules{loader: l, serviceID: serviceID}
}

func (l *Loader) load(ctx context.Context, serviceID string) (*domain.BillingConfig, error) {
	data, name, err := l.source.Fetch(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if err = Validate(cfg, serviceID, l.registry); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return cfg, nil
}

type serviceRules struct {
	loader    *Loader
	serviceID string
}

func (s *serviceRules) Rules(ctx context.Context) ([]*domain.BillingRule, error) {
	cfg, err := s.loader.Load(ctx, s.serviceID)
	if err != nil {
		return nil, err
	}
	return cfg.Rules, nil
}
