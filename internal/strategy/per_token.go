package strategy

import (
	"context"
	"math/big"

	"github.com/davidbz/tollbooth/internal/domain"
)

const defaultTokenUsageKey = "total_tokens"

// PerToken charges unitPricePicoUSD for every measured unit. It is deferred:
// units are only known after the request has executed.
type PerToken struct {
	unitPrice *big.Int
	usageKey  string
}

// NewPerToken builds a PerToken strategy from "unitPricePicoUSD" and an
// optional "usageKey" naming the Meta.Usage entry to read when the caller
// does not pass units explicitly.
func NewPerToken(cfg domain.StrategyConfig) (domain.Strategy, error) {
	unitPrice, err := priceParam(cfg, "unitPricePicoUSD")
	if err != nil {
		return nil, err
	}

	usageKey, err := stringParam(cfg, "usageKey", defaultTokenUsageKey)
	if err != nil {
		return nil, err
	}

	return &PerToken{unitPrice: unitPrice, usageKey: usageKey}, nil
}

// Evaluate returns unitPrice × units. Explicit units must be positive; a
// measured usage of zero tokens costs nothing.
func (s *PerToken) Evaluate(_ context.Context, bc *domain.BillingContext, units *big.Int) (*big.Int, error) {
	if err := checkMultiplier(units); err != nil {
		return nil, err
	}

	if units == nil {
		if bc == nil {
			return nil, domain.ErrUsageRequired
		}
		measured, err := bc.UsageUnits(s.usageKey)
		if err != nil {
			return nil, err
		}
		units = measured
	}

	return new(big.Int).Mul(s.unitPrice, units), nil
}

// Deferred is always true.
func (s *PerToken) Deferred() bool { return true }

// Type returns TypePerToken.
func (s *PerToken) Type() string { return TypePerToken }
