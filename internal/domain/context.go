package domain

import (
	"fmt"
	"math/big"
)

// BillingContext carries one request through rule matching, strategy
// evaluation and conversion. It is created per request and is not retained
// by the engine once the request completes.
type BillingContext struct {
	ServiceID string
	AssetID   string // optional; required only for asset-level conversion
	Operation string // e.g. "POST:/v1/chat"
	Meta      Meta
	State     State
}

// Meta holds the match-relevant request metadata.
type Meta struct {
	Path   string
	Method string
	Model  string

	// Usage holds post-execution measurements such as token counts. Values are
	// decoded lazily so malformed input is reported as a usage error.
	Usage map[string]any

	// Units, when set, overrides usage lookup as the strategy multiplier.
	Units *big.Int

	// Payment-channel fields, carried opaque.
	SignedSubRAV string
	ClientTxRef  string
	MaxAmount    *big.Int

	Attributes map[string]any
}

// State is populated by the engine as the request moves through the pipeline.
type State struct {
	RuleID     string
	Deferred   bool
	USDCost    *big.Int
	Cost       *big.Int
	Conversion *ConversionResult
	Error      error
	Persisted  bool
}

// Lookup resolves a metadata key used by rule conditions. Well-known keys map
// to the typed fields; anything else is read from Attributes.
func (b *BillingContext) Lookup(key string) (string, bool) {
	switch key {
	case "path":
		return b.Meta.Path, b.Meta.Path != ""
	case "method":
		return b.Meta.Method, b.Meta.Method != ""
	case "model":
		return b.Meta.Model, b.Meta.Model != ""
	case "assetId":
		return b.AssetID, b.AssetID != ""
	case "serviceId":
		return b.ServiceID, b.ServiceID != ""
	case "operation":
		return b.Operation, b.Operation != ""
	case "clientTxRef":
		return b.Meta.ClientTxRef, b.Meta.ClientTxRef != ""
	}

	v, ok := b.Meta.Attributes[key]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}
