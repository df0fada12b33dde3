package rate

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/davidbz/tollbooth/internal/domain"
)

// StaticFetcher serves fixed prices configured at startup. It is used for
// development deployments and as a stand-in oracle in tests.
type StaticFetcher struct {
	mu     sync.RWMutex
	prices map[string]*big.Int
	infos  map[string]domain.AssetInfo
}

// NewStaticFetcher creates a fetcher with no prices.
func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{
		mu:     sync.RWMutex{},
		prices: make(map[string]*big.Int),
		infos:  make(map[string]domain.AssetInfo),
	}
}

// NewStaticFetcherFromConfig parses prices given as picoUSD amounts keyed by
// asset id, with optional per-asset decimals.
func NewStaticFetcherFromConfig(prices map[string]string, decimals map[string]int) (*StaticFetcher, error) {
	f := NewStaticFetcher()

	assets := make([]string, 0, len(prices))
	for assetID := range prices {
		assets = append(assets, assetID)
	}
	sort.Strings(assets)

	for _, assetID := range assets {
		price, err := domain.ParseAmount(prices[assetID])
		if err != nil {
			return nil, fmt.Errorf("invalid static price for %s: %w", assetID, err)
		}
		f.SetPrice(assetID, price, decimals[assetID])
	}

	return f, nil
}

// SetPrice sets the price and decimals for an asset.
func (f *StaticFetcher) SetPrice(assetID string, price *big.Int, decimals int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prices[assetID] = new(big.Int).Set(price)
	f.infos[assetID] = domain.AssetInfo{
		AssetID:  assetID,
		Decimals: decimals,
		Symbol:   symbolFromAssetID(assetID),
		Name:     symbolFromAssetID(assetID),
	}
}

// FetchPrice returns the configured price.
func (f *StaticFetcher) FetchPrice(_ context.Context, assetID string) (Quote, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	price, ok := f.prices[assetID]
	if !ok {
		return Quote{}, backoff.Permanent(fmt.Errorf("%w: no static price for %s", domain.ErrRateNotFound, assetID))
	}

	return Quote{Price: new(big.Int).Set(price), Timestamp: time.Now()}, nil
}

// FetchAssetInfo returns the configured metadata.
func (f *StaticFetcher) FetchAssetInfo(_ context.Context, assetID string) (domain.AssetInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	info, ok := f.infos[assetID]
	if !ok {
		return domain.AssetInfo{}, backoff.Permanent(fmt.Errorf("%w: no static asset info for %s", domain.ErrRateNotFound, assetID))
	}

	return info, nil
}

// Name returns "static".
func (f *StaticFetcher) Name() string {
	return "static"
}

// symbolFromAssetID takes the last "::" segment of a Move-style type tag.
func symbolFromAssetID(assetID string) string {
	if i := strings.LastIndex(assetID, "::"); i >= 0 {
		return assetID[i+2:]
	}
	return assetID
}
