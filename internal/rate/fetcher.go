// Package rate implements the price oracle used to convert picoUSD costs into
// settlement asset units. CachedProvider layers TTL caching, bounded retries
// and stale-price fallback over a Fetcher that talks to the actual source.
package rate

import (
	"context"
	"math/big"
	"time"

	"github.com/davidbz/tollbooth/internal/domain"
)

// Quote is a raw price observation returned by a Fetcher.
type Quote struct {
	Price     *big.Int // picoUSD per unit, per the deployment's convention
	Timestamp time.Time
}

// Fetcher retrieves prices and asset metadata from an upstream source.
type Fetcher interface {
	// FetchPrice returns the current price for an asset.
	FetchPrice(ctx context.Context, assetID string) (Quote, error)

	// FetchAssetInfo returns decimals, symbol and name for an asset.
	FetchAssetInfo(ctx context.Context, assetID string) (domain.AssetInfo, error)

	// Name identifies the source in conversion provenance.
	Name() string
}

// PriceEntry is a cached price.
type PriceEntry struct {
	Price     *big.Int  `json:"price"`
	Timestamp time.Time `json:"timestamp"`  // as reported by the source
	FetchedAt time.Time `json:"fetched_at"` // when this process received it
	Provider  string    `json:"provider"`
}

// InfoEntry is cached asset metadata.
type InfoEntry struct {
	Info      domain.AssetInfo `json:"info"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Store persists cache entries. Implementations must be safe for concurrent
// use; writes are last-write-wins.
type Store interface {
	GetPrice(ctx context.Context, assetID string) (PriceEntry, bool, error)
	SetPrice(ctx context.Context, assetID string, entry PriceEntry) error
	GetInfo(ctx context.Context, assetID string) (InfoEntry, bool, error)
	SetInfo(ctx context.Context, assetID string, entry InfoEntry) error
	Delete(ctx context.Context, assetID string) error
	Clear(ctx context.Context) error
}
