package domain_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/tollbooth/internal/domain"
)

func TestParseAmount(t *testing.T) {
	huge, _ := new(big.Int).SetString("100000000000000000000000", 10)

	tests := []struct {
		name     string
		input    any
		expected string
		wantErr  bool
	}{
		{name: "int", input: 42, expected: "42"},
		{name: "int64", input: int64(9_000_000_000_000), expected: "9000000000000"},
		{name: "uint64", input: uint64(18_000_000_000_000_000_000), expected: "18000000000000000000"},
		{name: "integral float", input: 3.0, expected: "3"},
		{name: "json number", input: json.Number("150"), expected: "150"},
		{name: "decimal string", input: "2000", expected: "2000"},
		{name: "scientific string", input: "1e23", expected: "100000000000000000000000"},
		{name: "underscored string", input: "2_000_000_000", expected: "2000000000"},
		{name: "big int", input: huge, expected: huge.String()},
		{name: "nil", input: nil, wantErr: true},
		{name: "negative", input: -1, wantErr: true},
		{name: "fraction", input: "1.25", wantErr: true},
		{name: "non numeric", input: "abc", wantErr: true},
		{name: "bool", input: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.expected, got.String())
		})
	}
}

func TestBillingContext_UsageUnits(t *testing.T) {
	bc := &domain.BillingContext{Meta: domain.Meta{Usage: map[string]any{
		"total_tokens": 150,
		"bad":          "n/a",
		"nil":          nil,
	}}}

	units, err := bc.UsageUnits("total_tokens")
	require.NoError(t, err)
	require.Equal(t, int64(150), units.Int64())

	_, err = bc.UsageUnits("missing")
	require.ErrorIs(t, err, domain.ErrUsageRequired)

	_, err = bc.UsageUnits("nil")
	require.ErrorIs(t, err, domain.ErrUsageRequired)

	_, err = bc.UsageUnits("bad")
	require.ErrorIs(t, err, domain.ErrInvalidUsage)
}
