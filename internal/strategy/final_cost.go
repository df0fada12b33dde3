package strategy

import (
	"context"
	"math/big"

	"github.com/davidbz/tollbooth/internal/domain"
)

const defaultFinalCostUsageKey = "cost"

// FinalCost passes through a cost the caller computed elsewhere, for example
// from an upstream metering API. Units are the picoUSD cost itself.
type FinalCost struct {
	usageKey string
}

// NewFinalCost builds a FinalCost strategy. "usageKey" optionally names the
// Meta.Usage entry holding the cost when units are not passed.
func NewFinalCost(cfg domain.StrategyConfig) (domain.Strategy, error) {
	usageKey, err := stringParam(cfg, "usageKey", defaultFinalCostUsageKey)
	if err != nil {
		return nil, err
	}

	return &FinalCost{usageKey: usageKey}, nil
}

// Evaluate returns units unchanged.
func (s *FinalCost) Evaluate(_ context.Context, bc *domain.BillingContext, units *big.Int) (*big.Int, error) {
	if err := checkUnits(units); err != nil {
		return nil, err
	}

	if units == nil {
		if bc == nil {
			return nil, domain.ErrUsageRequired
		}
		return bc.UsageUnits(s.usageKey)
	}

	return new(big.Int).Set(units), nil
}

// Deferred is always true.
func (s *FinalCost) Deferred() bool { return true }

// Type returns TypeFinalCost.
func (s *FinalCost) Type() string { return TypeFinalCost }
