package domain

import "errors"

// Configuration errors, reported at load time.
var (
	ErrConfigNotFound  = errors.New("billing configuration not found")
	ErrInvalidConfig   = errors.New("invalid billing configuration")
	ErrServiceMismatch = errors.New("billing configuration service id mismatch")
)

// Resolution errors, fatal per request.
var (
	ErrNoRuleMatched   = errors.New("no billing rule matched")
	ErrUnknownStrategy = errors.New("unknown billing strategy")
)

// Usage errors: a caller invoked a strategy without valid usage data.
var (
	ErrUsageRequired = errors.New("usage data required")
	ErrInvalidUsage  = errors.New("invalid usage value")
)

// Rate errors, surfaced after the rate provider exhausted its retries.
var (
	ErrRateNotFound = errors.New("rate not found")
	ErrInvalidPrice = errors.New("invalid price")
	ErrRateStale    = errors.New("rate is stale beyond tolerance")

	ErrDecimalsUnknown = errors.New("asset decimals unknown")
)

// ErrNegativeCost is returned when a conversion is asked for a negative cost.
var ErrNegativeCost = errors.New("cost cannot be negative")
