package billing

import (
	"errors"
	"sync"

	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/strategy"
)

// RuleSource hands out a rule provider per service.
type RuleSource interface {
	RuleProvider(serviceID string) domain.RuleProvider
}

// Service keeps one Engine per service id. Engines share the registry and
// options but each owns its strategy cache.
type Service struct {
	rules    RuleSource
	registry *strategy.Registry
	opts     []Option

	mu      sync.RWMutex
	engines map[string]*Engine
}

// NewService creates a multi-service front for engines.
func NewService(rules RuleSource, registry *strategy.Registry, opts ...Option) (*Service, error) {
	if rules == nil {
		return nil, errors.New("rule source cannot be nil")
	}
	if registry == nil {
		return nil, errors.New("strategy registry cannot be nil")
	}

	return &Service{
		rules:    rules,
		registry: registry,
		opts:     opts,
		engines:  make(map[string]*Engine),
	}, nil
}

// Engine returns the engine for serviceID, creating it on first use.
func (s *Service) Engine(serviceID string) (*Engine, error) {
	if serviceID == "" {
		return nil, errors.New("service id cannot be empty")
	}

	s.mu.RLock()
	e, ok := s.engines[serviceID]
	s.mu.RUnlock()
	if ok {
		return e, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok = s.engines[serviceID]; ok {
		return e, nil
	}

	e, err := NewEngine(s.rules.RuleProvider(serviceID), s.registry, s.opts...)
	if err != nil {
		return nil, err
	}
	s.engines[serviceID] = e

	return e, nil
}

// ClearStrategyCache drops compiled strategies for one service, or for all
// services when serviceID is empty.
func (s *Service) ClearStrategyCache(serviceID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if serviceID != "" {
		if e, ok := s.engines[serviceID]; ok {
			e.ClearStrategyCache()
		}
		return
	}

	for _, e := range s.engines {
		e.ClearStrategyCache()
	}
}
