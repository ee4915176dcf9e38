package exchange

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/cache"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"go.uber.org/zap"
)

// DefaultPriceTTL bounds how often the current price is fetched from the venue.
const DefaultPriceTTL = 10 * time.Second

// CachedPriceExchange serves GetCurrentPrice from a cache while the cached
// value is younger than the TTL. Every other call goes to the wrapped driver.
type CachedPriceExchange struct {
	Exchange
	cache cache.PriceCache
	ttl   time.Duration
	clock runtime.Clock
	log   *logger.Logger
}

// NewCachedPriceExchange wraps ex with a time-based price cache.
func NewCachedPriceExchange(ex Exchange, priceCache cache.PriceCache, ttl time.Duration, clock runtime.Clock, log *logger.Logger) *CachedPriceExchange {
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}

	return &CachedPriceExchange{
		Exchange: ex,
		cache:    priceCache,
		ttl:      ttl,
		clock:    clock,
		log:      log,
	}
}

func (c *CachedPriceExchange) GetCurrentPrice(ctx context.Context, pair types.Pair) (types.Money, error) {
	key := c.Name() + ":" + c.PairToTicker(pair)
	now := c.clock.Now()

	price, ts, err := c.cache.GetPrice(ctx, key)
	if err == nil && now.Sub(ts) < c.ttl {
		return types.NewMoney(price, pair.QuoteCurrency), nil
	}

	money, err := c.Exchange.GetCurrentPrice(ctx, pair)
	if err != nil {
		return types.Money{}, err
	}

	if err := c.cache.SetPrice(ctx, key, money.Amount, now); err != nil {
		c.log.Warn("Failed to cache price", zap.String("key", key), zap.Error(err))
	}

	return money, nil
}
