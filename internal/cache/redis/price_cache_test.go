package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PriceCacheTestSuite struct {
	suite.Suite
}

func TestPriceCacheSuite(t *testing.T) {
	suite.Run(t, new(PriceCacheTestSuite))
}

func (suite *PriceCacheTestSuite) TestFieldRoundTrip() {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 123, time.UTC)
	fields := encodeFields(decimal.RequireFromString("64321.12345678"), ts)

	vals := map[string]string{}
	for k, v := range fields {
		vals[k] = v.(string)
	}

	price, got, err := decodeFields(vals)
	suite.NoError(err)
	suite.Equal("64321.12345678", price.String())
	suite.True(ts.Equal(got))
}

func (suite *PriceCacheTestSuite) TestDecodeMissingFields() {
	_, _, err := decodeFields(map[string]string{"ts": "1"})
	suite.ErrorIs(err, cache.ErrNotFound)

	_, _, err = decodeFields(map[string]string{"price": "abc", "ts": "1"})
	suite.Error(err)
}

func (suite *PriceCacheTestSuite) TestAgainstServer() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		suite.T().Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := New(ctx, ClientConfig{Addr: addr})
	suite.Require().NoError(err)
	defer client.Close()

	pc := NewPriceCache(client, 10*time.Second)
	ts := time.Now().UTC()

	suite.NoError(pc.SetPrice(ctx, "test:BTCUSDT", decimal.NewFromInt(100), ts))

	price, _, err := pc.GetPrice(ctx, "test:BTCUSDT")
	suite.NoError(err)
	suite.True(price.Equal(decimal.NewFromInt(100)))

	_, _, err = pc.GetPrice(ctx, "test:missing")
	suite.ErrorIs(err, cache.ErrNotFound)
}
