package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var errNotInteger = errors.New("value is not a whole number")

// ParseAmount converts an integer-valued amount in any of the accepted shapes
// (Go integers, integral floats, json.Number, decimal or scientific-notation
// strings, *big.Int) into a non-negative *big.Int.
func ParseAmount(v any) (*big.Int, error) {
	var d decimal.Decimal

	switch x := v.(type) {
	case nil:
		return nil, errors.New("value is missing")
	case *big.Int:
		if x == nil {
			return nil, errors.New("value is missing")
		}
		d = decimal.NewFromBigInt(x, 0)
	case big.Int:
		d = decimal.NewFromBigInt(&x, 0)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int32:
		d = decimal.NewFromInt32(x)
	case int64:
		d = decimal.NewFromInt(x)
	case uint:
		d = decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(x)), 0)
	case uint32:
		d = decimal.NewFromInt(int64(x))
	case uint64:
		d = decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("value %v is not finite", x)
		}
		d = decimal.NewFromFloat(x)
	case json.Number:
		parsed, err := decimal.NewFromString(x.String())
		if err != nil {
			return nil, fmt.Errorf("value %q is not numeric: %w", x.String(), err)
		}
		d = parsed
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(x, "_", ""))
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("value %q is not numeric: %w", x, err)
		}
		d = parsed
	default:
		return nil, fmt.Errorf("value of type %T is not numeric", v)
	}

	if d.IsNegative() {
		return nil, fmt.Errorf("value %s is negative", d.String())
	}
	if !d.IsInteger() {
		return nil, fmt.Errorf("%w: %s", errNotInteger, d.String())
	}

	return d.BigInt(), nil
}

// UsageUnits reads a measured quantity from Meta.Usage.
func (b *BillingContext) UsageUnits(key string) (*big.Int, error) {
	raw, ok := b.Meta.Usage[key]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: %q is missing", ErrUsageRequired, key)
	}

	units, err := ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidUsage, key, err)
	}

	return units, nil
}
