package exchange_test

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/cache"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type CachedPriceTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	mock   *mocks.MockExchange
	clock  *runtime.SimClock
	cached *exchange.CachedPriceExchange
	pair   types.Pair
}

func TestCachedPriceSuite(t *testing.T) {
	suite.Run(t, new(CachedPriceTestSuite))
}

func (suite *CachedPriceTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.mock = mocks.NewMockExchange(suite.ctrl)
	suite.clock = runtime.NewSimClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	suite.pair = types.Pair{BaseCurrency: "BTC", QuoteCurrency: "USDT", ExchangeName: "bybit", MarketType: types.MarketTypeFutures}

	suite.mock.EXPECT().Name().Return("bybit").AnyTimes()
	suite.mock.EXPECT().PairToTicker(suite.pair).Return("BTCUSDT").AnyTimes()

	suite.cached = exchange.NewCachedPriceExchange(suite.mock, cache.NewMemoryPriceCache(), 0, suite.clock, logger.NewNopLogger())
}

func (suite *CachedPriceTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *CachedPriceTestSuite) TestServesFromCacheWithinTTL() {
	ctx := context.Background()

	suite.mock.EXPECT().GetCurrentPrice(gomock.Any(), suite.pair).
		Return(types.NewMoney(decimal.NewFromInt(100), "USDT"), nil).Times(1)

	first, err := suite.cached.GetCurrentPrice(ctx, suite.pair)
	suite.Require().NoError(err)

	suite.clock.Set(suite.clock.Now().Add(9 * time.Second))

	second, err := suite.cached.GetCurrentPrice(ctx, suite.pair)
	suite.Require().NoError(err)
	suite.True(first.Amount.Equal(second.Amount))
	suite.Equal("USDT", second.Currency)
}

func (suite *CachedPriceTestSuite) TestRefetchesAfterTTL() {
	ctx := context.Background()

	gomock.InOrder(
		suite.mock.EXPECT().GetCurrentPrice(gomock.Any(), suite.pair).
			Return(types.NewMoney(decimal.NewFromInt(100), "USDT"), nil),
		suite.mock.EXPECT().GetCurrentPrice(gomock.Any(), suite.pair).
			Return(types.NewMoney(decimal.NewFromInt(105), "USDT"), nil),
	)

	_, err := suite.cached.GetCurrentPrice(ctx, suite.pair)
	suite.Require().NoError(err)

	suite.clock.Set(suite.clock.Now().Add(exchange.DefaultPriceTTL))

	price, err := suite.cached.GetCurrentPrice(ctx, suite.pair)
	suite.Require().NoError(err)
	suite.True(price.Amount.Equal(decimal.NewFromInt(105)))
}

func (suite *CachedPriceTestSuite) TestOtherCallsPassThrough() {
	suite.mock.EXPECT().GetTickSize(gomock.Any(), suite.pair).Return(decimal.RequireFromString("0.1"), nil)

	tick, err := suite.cached.GetTickSize(context.Background(), suite.pair)
	suite.Require().NoError(err)
	suite.True(tick.Equal(decimal.RequireFromString("0.1")))
}
