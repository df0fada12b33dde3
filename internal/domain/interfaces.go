package domain

import (
	"context"
	"math/big"
	"time"
)

// Strategy computes a request's cost in picoUSD.
type Strategy interface {
	// Evaluate returns the non-negative cost for the given units. A nil units
	// value lets the strategy apply its own default or read measured usage.
	Evaluate(ctx context.Context, bc *BillingContext, units *big.Int) (*big.Int, error)

	// Deferred reports whether evaluation needs post-execution usage data.
	Deferred() bool

	// Type returns the registry tag the strategy was built from.
	Type() string
}

// RuleProvider supplies the ordered rule list for one service.
type RuleProvider interface {
	// Rules returns the current rules. Called on every cost calculation.
	Rules(ctx context.Context) ([]*BillingRule, error)
}

// RateProvider is a USD price oracle for settlement assets.
type RateProvider interface {
	// GetPricePicoUSD returns the current price snapshot for an asset.
	GetPricePicoUSD(ctx context.Context, assetID string) (RateResult, error)

	// GetAssetInfo returns decimals, symbol and name for an asset.
	GetAssetInfo(ctx context.Context, assetID string) (AssetInfo, error)

	// GetLastUpdated returns when the asset's price was last fetched successfully.
	GetLastUpdated(assetID string) (time.Time, bool)

	// ClearCache drops cached data for one asset, or all assets when assetID is empty.
	ClearCache(assetID string)
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}

// StaticRules is a RuleProvider over a fixed list, mostly for tests and
// embedded configurations.
type StaticRules []*BillingRule

// Rules returns the fixed list.
func (s StaticRules) Rules(_ context.Context) ([]*BillingRule, error) {
	return s, nil
}
