// Package converter turns picoUSD costs into settlement asset units using
// integer-only ceiling division, so the payer is never under-charged.
package converter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/davidbz/tollbooth/internal/domain"
)

//nolint:gochecknoglobals // Immutable constants
var (
	bigOne = big.NewInt(1)
	bigTen = big.NewInt(10)
)

// Converter converts USD costs into asset costs.
type Converter struct {
	provider   domain.RateProvider
	convention domain.Convention
}

// NewConverter creates a converter. The provider may be nil when only
// ConvertWithRate is used.
func NewConverter(provider domain.RateProvider, convention domain.Convention) (*Converter, error) {
	if _, err := domain.ParseConvention(string(convention)); err != nil {
		return nil, err
	}
	if convention == "" {
		convention = domain.PerMinUnit
	}

	return &Converter{
		provider:   provider,
		convention: convention,
	}, nil
}

// Convention returns the deployment's pricing convention.
func (c *Converter) Convention() domain.Convention {
	return c.convention
}

// Convert fetches the live rate for assetID and converts usdCost. A zero
// cost returns immediately without consulting the provider.
func (c *Converter) Convert(ctx context.Context, usdCost *big.Int, assetID string) (domain.ConversionResult, error) {
	if err := checkCost(usdCost); err != nil {
		return domain.ConversionResult{}, err
	}

	if usdCost.Sign() == 0 {
		return c.zeroResult(assetID), nil
	}

	if c.provider == nil {
		return domain.ConversionResult{}, errors.New("no rate provider configured")
	}

	rate, err := c.provider.GetPricePicoUSD(ctx, assetID)
	if err != nil {
		return domain.ConversionResult{}, fmt.Errorf("failed to get rate for %s: %w", assetID, err)
	}

	if c.convention == domain.PerWholeUnit && rate.Decimals == nil {
		info, infoErr := c.provider.GetAssetInfo(ctx, assetID)
		if infoErr != nil {
			return domain.ConversionResult{}, fmt.Errorf("failed to get asset info for %s: %w", assetID, infoErr)
		}
		decimals := info.Decimals
		rate.Decimals = &decimals
	}

	if rate.AssetID == "" {
		rate.AssetID = assetID
	}

	return c.ConvertWithRate(usdCost, rate)
}

// ConvertWithRate converts usdCost using an already fetched rate. It is pure
// and never blocks. Under PerWholeUnit the rate must carry its decimals.
func (c *Converter) ConvertWithRate(usdCost *big.Int, rate domain.RateResult) (domain.ConversionResult, error) {
	if err := checkCost(usdCost); err != nil {
		return domain.ConversionResult{}, err
	}

	if usdCost.Sign() == 0 {
		return c.zeroResult(rate.AssetID), nil
	}

	if rate.Price == nil || rate.Price.Sign() <= 0 {
		return domain.ConversionResult{}, fmt.Errorf("%w: %v for %s", domain.ErrInvalidPrice, rate.Price, rate.AssetID)
	}

	numerator := new(big.Int).Set(usdCost)
	if c.convention == domain.PerWholeUnit {
		if rate.Decimals == nil {
			return domain.ConversionResult{}, fmt.Errorf("%w: %s", domain.ErrDecimalsUnknown, rate.AssetID)
		}
		if *rate.Decimals < 0 {
			return domain.ConversionResult{}, fmt.Errorf("invalid decimals %d for %s", *rate.Decimals, rate.AssetID)
		}
		scale := new(big.Int).Exp(bigTen, big.NewInt(int64(*rate.Decimals)), nil)
		numerator.Mul(numerator, scale)
	}

	return domain.ConversionResult{
		AssetID:        rate.AssetID,
		USDCost:        new(big.Int).Set(usdCost),
		AssetCost:      CeilDiv(numerator, rate.Price),
		Price:          new(big.Int).Set(rate.Price),
		PriceTimestamp: rate.Timestamp,
		Provider:       rate.Provider,
		Convention:     c.convention,
		Stale:          rate.Stale,
	}, nil
}

// CeilDiv returns ceil(n / d) for n >= 0 and d > 0 as (n + d - 1) / d.
func CeilDiv(n, d *big.Int) *big.Int {
	sum := new(big.Int).Add(n, d)
	sum.Sub(sum, bigOne)
	return sum.Quo(sum, d)
}

func (c *Converter) zeroResult(assetID string) domain.ConversionResult {
	return domain.ConversionResult{
		AssetID:        assetID,
		USDCost:        new(big.Int),
		AssetCost:      new(big.Int),
		PriceTimestamp: time.Time{},
		Convention:     c.convention,
	}
}

func checkCost(usdCost *big.Int) error {
	if usdCost == nil {
		return errors.New("usd cost cannot be nil")
	}
	if usdCost.Sign() < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNegativeCost, usdCost.String())
	}
	return nil
}
