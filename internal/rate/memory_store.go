package rate

import (
	"context"
	"math/big"
	"sync"
)

// MemoryStore keeps cache entries in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	prices map[string]PriceEntry
	infos  map[string]InfoEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:     sync.RWMutex{},
		prices: make(map[string]PriceEntry),
		infos:  make(map[string]InfoEntry),
	}
}

// GetPrice returns the cached price for an asset.
func (s *MemoryStore) GetPrice(_ context.Context, assetID string) (PriceEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.prices[assetID]
	if ok {
		entry.Price = new(big.Int).Set(entry.Price)
	}
	return entry, ok, nil
}

// SetPrice stores a price for an asset.
func (s *MemoryStore) SetPrice(_ context.Context, assetID string, entry PriceEntry) error {
	entry.Price = new(big.Int).Set(entry.Price)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[assetID] = entry
	return nil
}

// GetInfo returns cached metadata for an asset.
func (s *MemoryStore) GetInfo(_ context.Context, assetID string) (InfoEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.infos[assetID]
	return entry, ok, nil
}

// SetInfo stores metadata for an asset.
func (s *MemoryStore) SetInfo(_ context.Context, assetID string, entry InfoEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.infos[assetID] = entry
	return nil
}

// Delete drops everything cached for an asset.
func (s *MemoryStore) Delete(_ context.Context, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.prices, assetID)
	delete(s.infos, assetID)
	return nil
}

// Clear drops all entries.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices = make(map[string]PriceEntry)
	s.infos = make(map[string]InfoEntry)
	return nil
}
