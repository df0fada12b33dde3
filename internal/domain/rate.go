package domain

import (
	"fmt"
	"math/big"
	"time"
)

// Convention selects how a price relates to the asset's units. One
// convention is used for every asset in a deployment.
type Convention string

const (
	// PerMinUnit prices are picoUSD per smallest asset unit.
	PerMinUnit Convention = "per_min_unit"
	// PerWholeUnit prices are picoUSD per whole coin; conversion scales by 10^decimals.
	PerWholeUnit Convention = "per_whole_unit"
)

// ParseConvention validates a configured convention name.
func ParseConvention(s string) (Convention, error) {
	switch Convention(s) {
	case PerMinUnit, "":
		return PerMinUnit, nil
	case PerWholeUnit:
		return PerWholeUnit, nil
	default:
		return "", fmt.Errorf("unknown rate convention %q", s)
	}
}

// AssetInfo describes a settlement asset.
type AssetInfo struct {
	AssetID  string `json:"assetId"`
	Decimals int    `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// RateResult is one price snapshot for an asset.
type RateResult struct {
	AssetID   string
	Price     *big.Int // picoUSD per unit, see Convention
	Decimals  *int     // nil when the asset's decimals are unknown
	Timestamp time.Time
	Provider  string
	Stale     bool // served from cache after a failed refresh
}

// ConversionResult records which price snapshot produced a charge.
type ConversionResult struct {
	AssetID        string     `json:"assetId"`
	USDCost        *big.Int   `json:"usdCost"`
	AssetCost      *big.Int   `json:"assetCost"`
	Price          *big.Int   `json:"price,omitempty"`
	PriceTimestamp time.Time  `json:"priceTimestamp,omitempty"`
	Provider       string     `json:"provider,omitempty"`
	Convention     Convention `json:"convention"`
	Stale          bool       `json:"stale,omitempty"`
}
