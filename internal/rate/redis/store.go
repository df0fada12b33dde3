// Package redis provides a rate.Store backed by Redis so that several engine
// instances share price snapshots and stale fallbacks.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/tollbooth/internal/observability"
	"github.com/davidbz/tollbooth/internal/rate"
)

const (
	priceSuffix = ":price"
	infoSuffix  = ":info"
	scanBatch   = 100
)

// Config contains Redis connection settings.
type Config struct {
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB"         envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"tollbooth:rate:"`
	// Retention is how long entries survive in Redis. It must exceed the rate
	// provider's MaxStaleness for stale fallback to work.
	Retention time.Duration `env:"REDIS_RATE_RETENTION" envDefault:"24h"`
}

// Store implements rate.Store on Redis strings holding JSON entries.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	retention time.Duration
}

// NewClient builds a go-redis client from cfg.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewStore creates a Redis-backed rate store.
func NewStore(client redis.UniversalClient, keyPrefix string, retention time.Duration) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	return &Store{
		client:    client,
		keyPrefix: keyPrefix,
		retention: retention,
	}, nil
}

// GetPrice reads a cached price.
func (s *Store) GetPrice(ctx context.Context, assetID string) (rate.PriceEntry, bool, error) {
	var entry rate.PriceEntry
	ok, err := s.get(ctx, s.key(assetID, priceSuffix), &entry)
	return entry, ok, err
}

// SetPrice writes a price.
func (s *Store) SetPrice(ctx context.Context, assetID string, entry rate.PriceEntry) error {
	return s.set(ctx, s.key(assetID, priceSuffix), entry)
}

// GetInfo reads cached asset metadata.
func (s *Store) GetInfo(ctx context.Context, assetID string) (rate.InfoEntry, bool, error) {
	var entry rate.InfoEntry
	ok, err := s.get(ctx, s.key(assetID, infoSuffix), &entry)
	return entry, ok, err
}

// SetInfo writes asset metadata.
func (s *Store) SetInfo(ctx context.Context, assetID string, entry rate.InfoEntry) error {
	return s.set(ctx, s.key(assetID, infoSuffix), entry)
}

// Delete removes both entries for an asset.
func (s *Store) Delete(ctx context.Context, assetID string) error {
	if err := s.client.Del(ctx, s.key(assetID, priceSuffix), s.key(assetID, infoSuffix)).Err(); err != nil {
		return fmt.Errorf("failed to delete rate entries: %w", err)
	}
	return nil
}

// Clear removes every key under the store's prefix.
func (s *Store) Clear(ctx context.Context) error {
	logger := observability.FromContext(ctx)

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.keyPrefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan rate keys: %w", err)
		}

		if len(keys) > 0 {
			if delErr := s.client.Del(ctx, keys...).Err(); delErr != nil {
				return fmt.Errorf("failed to delete rate keys: %w", delErr)
			}
			deleted += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	logger.Debug("cleared redis rate cache", observability.Int("keys", deleted))
	return nil
}

func (s *Store) key(assetID, suffix string) string {
	return s.keyPrefix + assetID + suffix
}

func (s *Store) get(ctx context.Context, key string, out any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if decodeErr := json.Unmarshal(data, out); decodeErr != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, decodeErr)
	}

	return true, nil
}

func (s *Store) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if setErr := s.client.Set(ctx, key, data, s.retention).Err(); setErr != nil {
		return fmt.Errorf("failed to write %s: %w", key, setErr)
	}

	return nil
}
