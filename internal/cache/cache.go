// Package cache holds short-lived price caches shared by exchange decorators.
package cache

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no price is cached for a key.
var ErrNotFound = stderrors.New("cache: price not found")

// PriceCache stores the latest price per market together with the time it was observed.
// Freshness is decided by the reader from the returned timestamp.
type PriceCache interface {
	SetPrice(ctx context.Context, key string, price decimal.Decimal, ts time.Time) error
	GetPrice(ctx context.Context, key string) (decimal.Decimal, time.Time, error)
}

type entry struct {
	price decimal.Decimal
	ts    time.Time
}

// MemoryPriceCache is an in-process PriceCache.
type MemoryPriceCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemoryPriceCache creates an empty in-memory cache.
func NewMemoryPriceCache() *MemoryPriceCache {
	return &MemoryPriceCache{entries: make(map[string]entry)}
}

func (c *MemoryPriceCache) SetPrice(_ context.Context, key string, price decimal.Decimal, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{price: price, ts: ts}

	return nil
}

func (c *MemoryPriceCache) GetPrice(_ context.Context, key string) (decimal.Decimal, time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return decimal.Zero, time.Time{}, ErrNotFound
	}

	return e.price, e.ts, nil
}

var _ PriceCache = (*MemoryPriceCache)(nil)
