package strategy

import (
	"context"
	"fmt"
	"math/big"

	"github.com/davidbz/tollbooth/internal/domain"
)

// Built-in strategy type tags.
const (
	TypePerRequest = "PerRequest"
	TypePerToken   = "PerToken"
	TypeFinalCost  = "FinalCost"
)

// RegisterBuiltins adds PerRequest, PerToken and FinalCost to reg.
func RegisterBuiltins(ctx context.Context, reg *Registry) error {
	builtins := []struct {
		tag     string
		builder Builder
	}{
		{TypePerRequest, NewPerRequest},
		{TypePerToken, NewPerToken},
		{TypeFinalCost, NewFinalCost},
	}

	for _, b := range builtins {
		if err := reg.Register(ctx, b.tag, b.builder); err != nil {
			return fmt.Errorf("failed to register %s: %w", b.tag, err)
		}
	}

	return nil
}

// NewBuiltinRegistry returns a registry with the built-in strategies registered.
func NewBuiltinRegistry() (*Registry, error) {
	reg := NewRegistry()
	if err := RegisterBuiltins(context.Background(), reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// priceParam reads a required non-negative integer picoUSD parameter.
func priceParam(cfg domain.StrategyConfig, name string) (*big.Int, error) {
	raw, ok := cfg.Param(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s strategy requires %q", domain.ErrInvalidConfig, cfg.Type, name)
	}

	price, err := domain.ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %w", domain.ErrInvalidConfig, cfg.Type, name, err)
	}

	return price, nil
}

// stringParam reads an optional string parameter.
func stringParam(cfg domain.StrategyConfig, name, fallback string) (string, error) {
	raw, ok := cfg.Param(name)
	if !ok || raw == nil {
		return fallback, nil
	}

	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s.%s must be a non-empty string", domain.ErrInvalidConfig, cfg.Type, name)
	}

	return s, nil
}

// checkUnits rejects negative caller-supplied units.
func checkUnits(units *big.Int) error {
	if units != nil && units.Sign() < 0 {
		return fmt.Errorf("%w: units %s is negative", domain.ErrInvalidUsage, units.String())
	}
	return nil
}

// checkMultiplier rejects caller-supplied multipliers that are not positive.
// A zero multiplier would price any rule at nothing.
func checkMultiplier(units *big.Int) error {
	if units != nil && units.Sign() <= 0 {
		return fmt.Errorf("%w: units %s must be positive", domain.ErrInvalidUsage, units.String())
	}
	return nil
}
