// Package usage turns upstream usage reports into billing usage maps that
// deferred strategies read after a request has executed.
package usage

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/openai/openai-go"

	"github.com/davidbz/tollbooth/internal/domain"
)

// Usage map keys produced from OpenAI completions.
const (
	KeyPromptTokens     = "prompt_tokens"
	KeyCompletionTokens = "completion_tokens"
	KeyTotalTokens      = "total_tokens"
	KeyCachedTokens     = "cached_tokens"
	KeyReasoningTokens  = "reasoning_tokens"
)

// FromCompletionUsage converts an OpenAI usage block into a usage map.
// A missing total is derived from prompt and completion tokens.
func FromCompletionUsage(u openai.CompletionUsage) map[string]any {
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}

	return map[string]any{
		KeyPromptTokens:     u.PromptTokens,
		KeyCompletionTokens: u.CompletionTokens,
		KeyTotalTokens:      total,
		KeyCachedTokens:     u.PromptTokensDetails.CachedTokens,
		KeyReasoningTokens:  u.CompletionTokensDetails.ReasoningTokens,
	}
}

// FromChatCompletion extracts the usage map from a chat completion.
func FromChatCompletion(c *openai.ChatCompletion) (map[string]any, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil completion", domain.ErrUsageRequired)
	}
	return FromCompletionUsage(c.Usage), nil
}

// FromChatCompletionJSON decodes a raw chat completion response body, as
// relayed by a proxy, and extracts its usage.
func FromChatCompletionJSON(body []byte) (map[string]any, error) {
	var c openai.ChatCompletion
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidUsage, err)
	}
	return FromChatCompletion(&c)
}

// Apply records a completion's usage and model on bc so a deferred rule can
// be settled with engine.CalcCost.
func Apply(bc *domain.BillingContext, c *openai.ChatCompletion) error {
	if bc == nil {
		return fmt.Errorf("billing context cannot be nil")
	}

	u, err := FromChatCompletion(c)
	if err != nil {
		return err
	}

	if bc.Meta.Usage == nil {
		bc.Meta.Usage = make(map[string]any, len(u))
	}
	for k, v := range u {
		bc.Meta.Usage[k] = v
	}

	if bc.Meta.Model == "" {
		bc.Meta.Model = c.Model
	}

	return nil
}

// TotalTokens returns the completion's total token count as billing units.
func TotalTokens(c *openai.ChatCompletion) (*big.Int, error) {
	u, err := FromChatCompletion(c)
	if err != nil {
		return nil, err
	}
	return domain.ParseAmount(u[KeyTotalTokens])
}
