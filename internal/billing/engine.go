// Package billing orchestrates request costing: it resolves the billing rule
// for a request, evaluates the rule's strategy and converts the picoUSD result
// into settlement asset units when an asset is requested.
package billing

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/davidbz/tollbooth/internal/converter"
	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/observability"
	"github.com/davidbz/tollbooth/internal/strategy"
)

// EventCostCalculated is published for every successful evaluation.
const EventCostCalculated = "billing.cost_calculated"

// Phase tells middleware when a rule's cost can be computed.
type Phase string

const (
	// PhaseImmediate costs are known before the request executes.
	PhaseImmediate Phase = "immediate"
	// PhaseDeferred costs need usage measured after execution.
	PhaseDeferred Phase = "deferred"
)

// Result is a detailed cost calculation.
type Result struct {
	Rule       *domain.BillingRule
	Strategy   string
	Deferred   bool
	USDCost    *big.Int
	Cost       *big.Int // asset units when converted, otherwise picoUSD
	Conversion *domain.ConversionResult
}

// Option customises an Engine.
type Option func(*Engine)

// WithConverter enables asset conversion.
func WithConverter(c *converter.Converter) Option {
	return func(e *Engine) {
		e.converter = c
	}
}

// WithEvents publishes an audit event per calculation.
func WithEvents(events domain.EventPublisher) Option {
	return func(e *Engine) {
		e.events = events
	}
}

// WithMetrics records calculation metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// Engine computes request costs for one rule source.
type Engine struct {
	rules     domain.RuleProvider
	registry  *strategy.Registry
	converter *converter.Converter
	events    domain.EventPublisher
	metrics   *observability.Metrics

	mu         sync.RWMutex
	strategies map[*domain.BillingRule]domain.Strategy
}

// NewEngine creates an engine. The strategy cache is owned by the engine so
// separate engines never share compiled strategies.
func NewEngine(rules domain.RuleProvider, registry *strategy.Registry, opts ...Option) (*Engine, error) {
	if rules == nil {
		return nil, errors.New("rule provider cannot be nil")
	}
	if registry == nil {
		return nil, errors.New("strategy registry cannot be nil")
	}

	e := &Engine{
		rules:      rules,
		registry:   registry,
		strategies: make(map[*domain.BillingRule]domain.Strategy),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// ResolveRule matches the request against the provider's current rules.
// Rules are fetched on every call so configuration changes apply at once.
func (e *Engine) ResolveRule(ctx context.Context, bc *domain.BillingContext) (*domain.BillingRule, error) {
	if bc == nil {
		return nil, errors.New("billing context cannot be nil")
	}

	rules, err := e.rules.Rules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for %s: %w", bc.ServiceID, err)
	}

	rule, ok := domain.FindRule(bc, rules)
	if !ok {
		return nil, fmt.Errorf("%w: service %s, operation %q, path %q",
			domain.ErrNoRuleMatched, bc.ServiceID, bc.Operation, bc.Meta.Path)
	}

	return rule, nil
}

// CalcCost resolves the rule and returns the request's cost, converted to
// asset units when bc.AssetID is set and a converter is configured. Units
// come from bc.Meta.Units or, for deferred strategies, from bc.Meta.Usage.
func (e *Engine) CalcCost(ctx context.Context, bc *domain.BillingContext) (*big.Int, error) {
	result, err := e.Quote(ctx, bc, unitsOf(bc))
	if err != nil {
		return nil, err
	}
	return result.Cost, nil
}

// CalcCostByRule is CalcCost for a rule the caller has already matched.
func (e *Engine) CalcCostByRule(ctx context.Context, bc *domain.BillingContext, rule *domain.BillingRule) (*big.Int, error) {
	result, err := e.QuoteByRule(ctx, bc, rule, unitsOf(bc))
	if err != nil {
		return nil, err
	}
	return result.Cost, nil
}

// Quote resolves the rule and evaluates it with explicit units.
func (e *Engine) Quote(ctx context.Context, bc *domain.BillingContext, units *big.Int) (*Result, error) {
	rule, err := e.ResolveRule(ctx, bc)
	if err != nil {
		if bc != nil {
			bc.State.Error = err
		}
		e.metrics.RecordCostCalculation(serviceOf(bc), "", "no_rule", 0)
		observability.FromContext(ctx).Warn("billing rule resolution failed", observability.Error(err))
		return nil, err
	}

	return e.QuoteByRule(ctx, bc, rule, units)
}

// QuoteByRule evaluates rule for the request and converts the result.
func (e *Engine) QuoteByRule(
	ctx context.Context,
	bc *domain.BillingContext,
	rule *domain.BillingRule,
	units *big.Int,
) (*Result, error) {
	if bc == nil {
		return nil, errors.New("billing context cannot be nil")
	}
	if rule == nil {
		return nil, errors.New("billing rule cannot be nil")
	}

	start := time.Now()
	ctx = observability.WithServiceID(ctx, bc.ServiceID)
	logger := observability.FromContext(ctx)

	result, err := e.evaluate(ctx, bc, rule, units)
	if err != nil {
		bc.State.Error = err
		e.metrics.RecordCostCalculation(bc.ServiceID, rule.Strategy.Type, "error", time.Since(start))
		logger.Warn("billing evaluation failed",
			observability.String("rule_id", rule.ID),
			observability.Error(err))
		return nil, err
	}

	bc.State.RuleID = rule.ID
	bc.State.Deferred = result.Deferred
	bc.State.USDCost = result.USDCost
	bc.State.Cost = result.Cost
	bc.State.Conversion = result.Conversion
	bc.State.Error = nil

	e.metrics.RecordCostCalculation(bc.ServiceID, result.Strategy, "success", time.Since(start))
	e.publish(ctx, bc, result)

	return result, nil
}

// Classify reports whether the rule's cost is computed before or after the
// request executes.
func (e *Engine) Classify(rule *domain.BillingRule) (Phase, error) {
	deferred, err := e.IsDeferred(rule)
	if err != nil {
		return "", err
	}
	if deferred {
		return PhaseDeferred, nil
	}
	return PhaseImmediate, nil
}

// IsDeferred reports the rule's strategy deferred flag.
func (e *Engine) IsDeferred(rule *domain.BillingRule) (bool, error) {
	if rule == nil {
		return false, errors.New("billing rule cannot be nil")
	}

	s, err := e.strategyFor(rule)
	if err != nil {
		return false, err
	}
	return s.Deferred(), nil
}

// IsDeferredByContext resolves the request's rule and reports its deferred flag.
func (e *Engine) IsDeferredByContext(ctx context.Context, bc *domain.BillingContext) (bool, error) {
	rule, err := e.ResolveRule(ctx, bc)
	if err != nil {
		return false, err
	}
	return e.IsDeferred(rule)
}

// ClearStrategyCache drops all compiled strategies.
func (e *Engine) ClearStrategyCache() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.strategies = make(map[*domain.BillingRule]domain.Strategy)
}

func (e *Engine) evaluate(
	ctx context.Context,
	bc *domain.BillingContext,
	rule *domain.BillingRule,
	units *big.Int,
) (*Result, error) {
	s, err := e.strategyFor(rule)
	if err != nil {
		return nil, err
	}

	usdCost, err := s.Evaluate(ctx, bc, units)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if usdCost == nil || usdCost.Sign() < 0 {
		return nil, fmt.Errorf("rule %s: strategy %s returned invalid cost %v", rule.ID, s.Type(), usdCost)
	}

	result := &Result{
		Rule:     rule,
		Strategy: s.Type(),
		Deferred: s.Deferred(),
		USDCost:  usdCost,
		Cost:     usdCost,
	}

	if bc.AssetID == "" || e.converter == nil {
		return result, nil
	}

	conversion, err := e.converter.Convert(observability.WithAssetID(ctx, bc.AssetID), usdCost, bc.AssetID)
	if err != nil {
		return nil, fmt.Errorf("rule %s: conversion to %s failed: %w", rule.ID, bc.AssetID, err)
	}

	result.Conversion = &conversion
	result.Cost = conversion.AssetCost

	return result, nil
}

// strategyFor returns the cached strategy for rule, building it on first use.
// Concurrent first uses may both build; the last write wins.
func (e *Engine) strategyFor(rule *domain.BillingRule) (domain.Strategy, error) {
	e.mu.RLock()
	s, ok := e.strategies[rule]
	e.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := e.registry.Build(rule.Strategy)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	e.mu.Lock()
	e.strategies[rule] = s
	e.mu.Unlock()

	return s, nil
}

func (e *Engine) publish(ctx context.Context, bc *domain.BillingContext, result *Result) {
	if e.events == nil {
		return
	}

	data := map[string]interface{}{
		"service_id": bc.ServiceID,
		"operation":  bc.Operation,
		"rule_id":    result.Rule.ID,
		"strategy":   result.Strategy,
		"deferred":   result.Deferred,
		"usd_cost":   result.USDCost.String(),
		"cost":       result.Cost.String(),
	}
	if bc.Meta.ClientTxRef != "" {
		data["client_tx_ref"] = bc.Meta.ClientTxRef
	}
	if c := result.Conversion; c != nil {
		data["asset_id"] = c.AssetID
		data["asset_cost"] = c.AssetCost.String()
		data["convention"] = string(c.Convention)
		data["rate_provider"] = c.Provider
		data["rate_stale"] = c.Stale
		if c.Price != nil {
			data["rate_price"] = c.Price.String()
			data["rate_timestamp"] = c.PriceTimestamp
		}
	}

	e.events.Publish(ctx, EventCostCalculated, data)
}

func unitsOf(bc *domain.BillingContext) *big.Int {
	if bc == nil {
		return nil
	}
	return bc.Meta.Units
}

func serviceOf(bc *domain.BillingContext) string {
	if bc == nil {
		return ""
	}
	return bc.ServiceID
}
