package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-dca/internal/cache"
	"github.com/shopspring/decimal"
)

// PriceCache stores each market's price as a hash at "price:{key}" with
// fields "price" and "ts" (unix nanoseconds). Keys expire after ttl.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.Underlying(), ttl: ttl}
}

func priceKey(key string) string {
	return "price:" + key
}

func encodeFields(price decimal.Decimal, ts time.Time) map[string]any {
	return map[string]any{
		"price": price.String(),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
}

func decodeFields(vals map[string]string) (decimal.Decimal, time.Time, error) {
	priceStr, ok := vals["price"]
	if !ok {
		return decimal.Zero, time.Time{}, cache.ErrNotFound
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("parse price: %w", err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return decimal.Zero, time.Time{}, cache.ErrNotFound
	}

	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("parse ts: %w", err)
	}

	return price, time.Unix(0, tsNano).UTC(), nil
}

// SetPrice stores the price and refreshes the key expiry in one pipeline.
func (pc *PriceCache) SetPrice(ctx context.Context, key string, price decimal.Decimal, ts time.Time) error {
	k := priceKey(key)

	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, k, encodeFields(price, ts))

	if pc.ttl > 0 {
		pipe.Expire(ctx, k, pc.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", key, err)
	}

	return nil
}

// GetPrice returns cache.ErrNotFound when the key does not exist or has expired.
func (pc *PriceCache) GetPrice(ctx context.Context, key string) (decimal.Decimal, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(key)).Result()
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("redis: get price %s: %w", key, err)
	}

	if len(vals) == 0 {
		return decimal.Zero, time.Time{}, cache.ErrNotFound
	}

	price, ts, err := decodeFields(vals)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("redis: %s: %w", key, err)
	}

	return price, ts, nil
}

var _ cache.PriceCache = (*PriceCache)(nil)
