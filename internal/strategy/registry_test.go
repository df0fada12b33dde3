package strategy_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/strategy"
)

type fixedStrategy struct {
	cost int64
}

func (f *fixedStrategy) Evaluate(_ context.Context, _ *domain.BillingContext, _ *big.Int) (*big.Int, error) {
	return big.NewInt(f.cost), nil
}

func (f *fixedStrategy) Deferred() bool { return false }

func (f *fixedStrategy) Type() string { return "Fixed" }

func TestRegistry_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("should start empty until builtins are registered", func(t *testing.T) {
		reg := strategy.NewRegistry()
		require.Empty(t, reg.List())

		_, err := reg.Build(domain.StrategyConfig{Type: strategy.TypePerRequest, Params: map[string]any{"price": 1}})
		require.ErrorIs(t, err, domain.ErrUnknownStrategy)

		require.NoError(t, strategy.RegisterBuiltins(ctx, reg))
		require.Equal(t, []string{"FinalCost", "PerRequest", "PerToken"}, reg.List())
	})

	t.Run("should reject empty type and nil builder", func(t *testing.T) {
		reg := strategy.NewRegistry()

		err := reg.Register(ctx, "", strategy.NewFinalCost)
		require.Error(t, err)
		require.Contains(t, err.Error(), "strategy type cannot be empty")

		err = reg.Register(ctx, "Fixed", nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "strategy builder cannot be nil")
	})

	t.Run("should overwrite an existing builder without error", func(t *testing.T) {
		reg := strategy.NewRegistry()

		require.NoError(t, reg.Register(ctx, "Fixed", func(domain.StrategyConfig) (domain.Strategy, error) {
			return &fixedStrategy{cost: 1}, nil
		}))
		require.NoError(t, reg.Register(ctx, "Fixed", func(domain.StrategyConfig) (domain.Strategy, error) {
			return &fixedStrategy{cost: 2}, nil
		}))

		s, err := reg.Build(domain.StrategyConfig{Type: "Fixed"})
		require.NoError(t, err)

		cost, err := s.Evaluate(ctx, nil, nil)
		require.NoError(t, err)
		require.Equal(t, int64(2), cost.Int64())
	})

	t.Run("should be idempotent for builtins", func(t *testing.T) {
		reg := strategy.NewRegistry()
		require.NoError(t, strategy.RegisterBuiltins(ctx, reg))
		require.NoError(t, strategy.RegisterBuiltins(ctx, reg))
		require.Len(t, reg.List(), 3)
		require.True(t, reg.Has(strategy.TypePerToken))
	})
}

func TestRegistry_Build_UnknownType(t *testing.T) {
	reg, err := strategy.NewBuiltinRegistry()
	require.NoError(t, err)

	_, err = reg.Build(domain.StrategyConfig{Type: "PerMoonPhase"})
	require.ErrorIs(t, err, domain.ErrUnknownStrategy)
	require.Contains(t, err.Error(), "PerMoonPhase")
}
