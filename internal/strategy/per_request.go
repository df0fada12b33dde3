package strategy

import (
	"context"
	"math/big"

	"github.com/davidbz/tollbooth/internal/domain"
)

// PerRequest charges a fixed price per unit, one unit by default.
type PerRequest struct {
	price *big.Int
}

// NewPerRequest builds a PerRequest strategy. The "price" parameter is
// picoUSD and may be an integer, a decimal string or scientific notation.
func NewPerRequest(cfg domain.StrategyConfig) (domain.Strategy, error) {
	price, err := priceParam(cfg, "price")
	if err != nil {
		return nil, err
	}

	return &PerRequest{price: price}, nil
}

// Evaluate returns price × units. Request metadata is ignored.
func (s *PerRequest) Evaluate(_ context.Context, _ *domain.BillingContext, units *big.Int) (*big.Int, error) {
	if err := checkMultiplier(units); err != nil {
		return nil, err
	}
	if units == nil {
		return new(big.Int).Set(s.price), nil
	}
	return new(big.Int).Mul(s.price, units), nil
}

// Deferred is always false.
func (s *PerRequest) Deferred() bool { return false }

// Type returns TypePerRequest.
func (s *PerRequest) Type() string { return TypePerRequest }

// Price returns a copy of the configured price.
func (s *PerRequest) Price() *big.Int { return new(big.Int).Set(s.price) }
