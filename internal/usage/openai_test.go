package usage_test

import (
	"context"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/tollbooth/internal/billing"
	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/strategy"
	"github.com/davidbz/tollbooth/internal/usage"
)

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [],
  "usage": {
    "prompt_tokens": 100,
    "completion_tokens": 50,
    "total_tokens": 150,
    "prompt_tokens_details": {"cached_tokens": 20},
    "completion_tokens_details": {"reasoning_tokens": 5}
  }
}`

func TestFromCompletionUsage(t *testing.T) {
	t.Run("should copy token counts", func(t *testing.T) {
		u := usage.FromCompletionUsage(openai.CompletionUsage{
			PromptTokens:     100,
			CompletionTokens: 50,
			TotalTokens:      150,
		})

		require.Equal(t, int64(100), u[usage.KeyPromptTokens])
		require.Equal(t, int64(50), u[usage.KeyCompletionTokens])
		require.Equal(t, int64(150), u[usage.KeyTotalTokens])
	})

	t.Run("should derive a missing total", func(t *testing.T) {
		u := usage.FromCompletionUsage(openai.CompletionUsage{PromptTokens: 7, CompletionTokens: 3})
		require.Equal(t, int64(10), u[usage.KeyTotalTokens])
	})
}

func TestFromChatCompletionJSON(t *testing.T) {
	u, err := usage.FromChatCompletionJSON([]byte(completionJSON))
	require.NoError(t, err)
	require.Equal(t, int64(150), u[usage.KeyTotalTokens])
	require.Equal(t, int64(20), u[usage.KeyCachedTokens])
	require.Equal(t, int64(5), u[usage.KeyReasoningTokens])

	_, err = usage.FromChatCompletionJSON([]byte("{not json"))
	require.ErrorIs(t, err, domain.ErrInvalidUsage)

	_, err = usage.FromChatCompletion(nil)
	require.ErrorIs(t, err, domain.ErrUsageRequired)
}

func TestApply_SettlesDeferredRule(t *testing.T) {
	reg, err := strategy.NewBuiltinRegistry()
	require.NoError(t, err)

	engine, err := billing.NewEngine(domain.StaticRules{{
		ID:      "llm",
		Default: true,
		Strategy: domain.StrategyConfig{
			Type:   strategy.TypePerToken,
			Params: map[string]any{"unitPricePicoUSD": 2_000_000_000},
		},
	}}, reg)
	require.NoError(t, err)

	completion := &openai.ChatCompletion{
		Model: "gpt-4o-mini",
		Usage: openai.CompletionUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}

	bc := &domain.BillingContext{ServiceID: "llm", Meta: domain.Meta{Path: "/v1/chat/completions"}}
	require.NoError(t, usage.Apply(bc, completion))
	require.Equal(t, "gpt-4o-mini", bc.Meta.Model)

	cost, err := engine.CalcCost(context.Background(), bc)
	require.NoError(t, err)
	require.Equal(t, "300000000000", cost.String())

	units, err := usage.TotalTokens(completion)
	require.NoError(t, err)
	require.Equal(t, int64(150), units.Int64())

	require.Error(t, usage.Apply(nil, completion))
}
