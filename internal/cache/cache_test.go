package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MemoryPriceCacheTestSuite struct {
	suite.Suite
	cache *MemoryPriceCache
}

func TestMemoryPriceCacheSuite(t *testing.T) {
	suite.Run(t, new(MemoryPriceCacheTestSuite))
}

func (suite *MemoryPriceCacheTestSuite) SetupTest() {
	suite.cache = NewMemoryPriceCache()
}

func (suite *MemoryPriceCacheTestSuite) TestMiss() {
	_, _, err := suite.cache.GetPrice(context.Background(), "bybit:BTCUSDT")
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *MemoryPriceCacheTestSuite) TestSetThenGet() {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.NoError(suite.cache.SetPrice(context.Background(), "k", decimal.NewFromInt(42), ts))
	suite.NoError(suite.cache.SetPrice(context.Background(), "k", decimal.NewFromInt(43), ts.Add(time.Second)))

	price, got, err := suite.cache.GetPrice(context.Background(), "k")
	suite.NoError(err)
	suite.True(price.Equal(decimal.NewFromInt(43)))
	suite.Equal(ts.Add(time.Second), got)
}
