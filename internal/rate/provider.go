package rate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/observability"
)

// Config controls caching and retry behaviour of a CachedProvider.
type Config struct {
	// TTL is how long a fetched price or asset info is served without refetching.
	TTL time.Duration
	// MaxStaleness bounds the age of a price served after a failed refresh.
	// Zero means any previously fetched price may be used.
	MaxStaleness time.Duration
	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int
	// InitialBackoff is the delay before the first retry; it doubles per attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// FetchTimeout bounds a single upstream attempt.
	FetchTimeout time.Duration
}

// DefaultConfig returns the defaults used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		TTL:            30 * time.Second,
		MaxStaleness:   0,
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		FetchTimeout:   5 * time.Second,
	}
}

// Option customises a CachedProvider.
type Option func(*CachedProvider)

// WithStore replaces the default in-memory store.
func WithStore(store Store) Option {
	return func(p *CachedProvider) {
		if store != nil {
			p.store = store
		}
	}
}

// WithMetrics records fetch, cache-hit and fallback metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(p *CachedProvider) {
		p.metrics = metrics
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *CachedProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// CachedProvider implements domain.RateProvider over a Fetcher.
type CachedProvider struct {
	fetcher Fetcher
	store   Store
	cfg     Config
	metrics *observability.Metrics
	now     func() time.Time

	mu          sync.RWMutex
	lastUpdated map[string]time.Time
}

// NewCachedProvider creates a caching, retrying rate provider.
func NewCachedProvider(fetcher Fetcher, cfg Config, opts ...Option) (*CachedProvider, error) {
	if fetcher == nil {
		return nil, errors.New("rate fetcher cannot be nil")
	}

	defaults := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaults.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaults.MaxBackoff
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}

	p := &CachedProvider{
		fetcher:     fetcher,
		store:       NewMemoryStore(),
		cfg:         cfg,
		now:         time.Now,
		lastUpdated: make(map[string]time.Time),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// GetPricePicoUSD returns the asset price, refreshing it when the cached
// value is older than the TTL. If the refresh fails, the last known price is
// returned with Stale set, provided one exists and is within MaxStaleness.
func (p *CachedProvider) GetPricePicoUSD(ctx context.Context, assetID string) (domain.RateResult, error) {
	if assetID == "" {
		return domain.RateResult{}, errors.New("asset id cannot be empty")
	}

	ctx = observability.WithAssetID(ctx, assetID)
	logger := observability.FromContext(ctx)

	now := p.now()
	cached, hasCached, err := p.store.GetPrice(ctx, assetID)
	if err != nil {
		logger.Warn("rate cache read failed, treating as miss", observability.Error(err))
		hasCached = false
	}

	if hasCached && now.Sub(cached.FetchedAt) < p.cfg.TTL {
		p.metrics.RecordRateCacheHit(assetID)
		return p.toResult(ctx, assetID, cached, false), nil
	}

	start := time.Now()
	quote, fetchErr := p.fetchPrice(ctx, assetID)
	if fetchErr == nil {
		p.metrics.RecordRateFetch(assetID, "success", time.Since(start))

		entry := PriceEntry{
			Price:     quote.Price,
			Timestamp: quote.Timestamp,
			FetchedAt: now,
			Provider:  p.fetcher.Name(),
		}
		if entry.Timestamp.IsZero() {
			entry.Timestamp = now
		}

		if setErr := p.store.SetPrice(ctx, assetID, entry); setErr != nil {
			logger.Warn("rate cache write failed", observability.Error(setErr))
		}
		p.markUpdated(assetID, now)

		return p.toResult(ctx, assetID, entry, false), nil
	}

	p.metrics.RecordRateFetch(assetID, "failure", time.Since(start))

	if !hasCached {
		logger.Error("rate fetch failed with no cached price", observability.Error(fetchErr))
		return domain.RateResult{}, fmt.Errorf("%w: %s: %w", domain.ErrRateNotFound, assetID, fetchErr)
	}

	age := now.Sub(cached.FetchedAt)
	if p.cfg.MaxStaleness > 0 && age > p.cfg.MaxStaleness {
		logger.Error("rate fetch failed and cached price exceeds staleness tolerance",
			observability.Duration("age", age),
			observability.Duration("max_staleness", p.cfg.MaxStaleness),
			observability.Error(fetchErr))
		return domain.RateResult{}, fmt.Errorf("%w: %s is %s old: %w", domain.ErrRateStale, assetID, age, fetchErr)
	}

	logger.Warn("rate fetch failed, serving stale price",
		observability.Duration("age", age),
		observability.Error(fetchErr))
	p.metrics.RecordStaleFallback(assetID)

	return p.toResult(ctx, assetID, cached, true), nil
}

// GetAssetInfo returns asset metadata, cached with the same TTL as prices.
func (p *CachedProvider) GetAssetInfo(ctx context.Context, assetID string) (domain.AssetInfo, error) {
	if assetID == "" {
		return domain.AssetInfo{}, errors.New("asset id cannot be empty")
	}

	ctx = observability.WithAssetID(ctx, assetID)
	logger := observability.FromContext(ctx)

	now := p.now()
	cached, hasCached, err := p.store.GetInfo(ctx, assetID)
	if err != nil {
		logger.Warn("asset info cache read failed, treating as miss", observability.Error(err))
		hasCached = false
	}

	if hasCached && now.Sub(cached.FetchedAt) < p.cfg.TTL {
		return cached.Info, nil
	}

	info, fetchErr := retry(ctx, p.cfg, func(attemptCtx context.Context) (domain.AssetInfo, error) {
		return p.fetcher.FetchAssetInfo(attemptCtx, assetID)
	})
	if fetchErr != nil {
		if hasCached {
			logger.Warn("asset info fetch failed, serving cached info", observability.Error(fetchErr))
			return cached.Info, nil
		}
		return domain.AssetInfo{}, fmt.Errorf("%w: asset info for %s: %w", domain.ErrRateNotFound, assetID, fetchErr)
	}

	if info.AssetID == "" {
		info.AssetID = assetID
	}

	if setErr := p.store.SetInfo(ctx, assetID, InfoEntry{Info: info, FetchedAt: now}); setErr != nil {
		logger.Warn("asset info cache write failed", observability.Error(setErr))
	}

	return info, nil
}

// GetLastUpdated returns when this process last fetched a price for the asset.
func (p *CachedProvider) GetLastUpdated(assetID string) (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t, ok := p.lastUpdated[assetID]
	return t, ok
}

// ClearCache drops cached data for one asset, or everything when assetID is empty.
func (p *CachedProvider) ClearCache(assetID string) {
	ctx := context.Background()
	logger := observability.FromContext(ctx)

	p.mu.Lock()
	if assetID == "" {
		p.lastUpdated = make(map[string]time.Time)
	} else {
		delete(p.lastUpdated, assetID)
	}
	p.mu.Unlock()

	var err error
	if assetID == "" {
		err = p.store.Clear(ctx)
	} else {
		err = p.store.Delete(ctx, assetID)
	}
	if err != nil {
		logger.Warn("rate cache clear failed",
			observability.String("asset_id", assetID),
			observability.Error(err))
	}
}

func (p *CachedProvider) fetchPrice(ctx context.Context, assetID string) (Quote, error) {
	return retry(ctx, p.cfg, func(attemptCtx context.Context) (Quote, error) {
		quote, err := p.fetcher.FetchPrice(attemptCtx, assetID)
		if err != nil {
			return Quote{}, err
		}
		if quote.Price == nil || quote.Price.Sign() <= 0 {
			return Quote{}, fmt.Errorf("%w: %s reported %v", domain.ErrInvalidPrice, p.fetcher.Name(), quote.Price)
		}
		return quote, nil
	})
}

func (p *CachedProvider) toResult(ctx context.Context, assetID string, entry PriceEntry, stale bool) domain.RateResult {
	result := domain.RateResult{
		AssetID:   assetID,
		Price:     entry.Price,
		Timestamp: entry.Timestamp,
		Provider:  entry.Provider,
		Stale:     stale,
	}

	info, err := p.GetAssetInfo(ctx, assetID)
	if err != nil {
		observability.FromContext(ctx).Warn("asset info unavailable, snapshot carries no decimals",
			observability.Error(err))
		return result
	}

	decimals := info.Decimals
	result.Decimals = &decimals

	return result
}

func (p *CachedProvider) markUpdated(assetID string, t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastUpdated[assetID] = t
}

// retry runs op with a per-attempt timeout and exponential backoff, up to
// cfg.MaxRetries retries after the first attempt.
func retry[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	logger := observability.FromContext(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.Multiplier = 2

	attempt := 0
	operation := func() (T, error) {
		attempt++

		attemptCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
		defer cancel()

		result, err := op(attemptCtx)
		if err != nil {
			logger.Debug("rate fetch attempt failed",
				observability.Int("attempt", attempt),
				observability.Error(err))
		}
		return result, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(cfg.MaxRetries)+1), //nolint:gosec // MaxRetries is clamped to >= 0
	)
}
