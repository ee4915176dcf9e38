package position_test

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type SynchronizerTestSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	ex    *mocks.MockExchange
	repo  *mocks.MockRepository
	clock *runtime.SimClock
	sync  *position.Synchronizer
	ctx   context.Context
}

func TestSynchronizerSuite(t *testing.T) {
	suite.Run(t, new(SynchronizerTestSuite))
}

func (suite *SynchronizerTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.ex = mocks.NewMockExchange(suite.ctrl)
	suite.repo = mocks.NewMockRepository(suite.ctrl)
	suite.clock = runtime.NewSimClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rt := runtime.NewSimulationContext(logger.NewNopLogger(), suite.clock, "sync-test")
	suite.sync = position.NewSynchronizer(rt, suite.ex, suite.repo)
	suite.ctx = context.Background()
}

func (suite *SynchronizerTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func pair(marketType types.MarketType) types.Pair {
	return types.Pair{
		BaseCurrency:  "BTC",
		QuoteCurrency: "USDT",
		ExchangeName:  "sim",
		MarketType:    marketType,
	}
}

func (suite *SynchronizerTestSuite) newPosition(marketType types.MarketType, orderID string) *types.Position {
	return position.New(position.NewParams{
		Pair:                  pair(marketType),
		Ticker:                "BTCUSDT",
		Direction:             types.DirectionLong,
		EntryPrice:            d("100"),
		Volume:                d("1"),
		EntryOrderID:          orderID,
		ExpectedProfitPercent: 10,
	}, suite.clock.Now())
}

func (suite *SynchronizerTestSuite) expectPrice(p types.Pair, price string) {
	suite.ex.EXPECT().GetCurrentPrice(gomock.Any(), p).Return(types.NewMoney(d(price), "USDT"), nil)
}

func (suite *SynchronizerTestSuite) TestSpotPendingOpensWhenOrderGone() {
	p := pair(types.MarketTypeSpot)
	pos := suite.newPosition(types.MarketTypeSpot, "order-1")

	suite.expectPrice(p, "100")
	suite.ex.EXPECT().HasActiveOrder(gomock.Any(), p, "order-1").Return(false, nil)
	suite.repo.EXPECT().Update(gomock.Any(), pos).Return(nil)

	suite.clock.Set(suite.clock.Now().Add(time.Minute))
	suite.NoError(suite.sync.Sync(suite.ctx, p, pos))
	suite.Equal(types.PositionStatusOpen, pos.Status)
	suite.Equal(suite.clock.Now(), pos.UpdatedAt)
}

func (suite *SynchronizerTestSuite) TestUnchangedPassStillPersists() {
	p := pair(types.MarketTypeSpot)
	pos := suite.newPosition(types.MarketTypeSpot, "order-1")

	suite.expectPrice(p, "100")
	suite.ex.EXPECT().HasActiveOrder(gomock.Any(), p, "order-1").Return(true, nil)
	suite.repo.EXPECT().Update(gomock.Any(), pos).Return(nil)

	suite.clock.Set(suite.clock.Now().Add(time.Minute))
	suite.NoError(suite.sync.Sync(suite.ctx, p, pos))
	suite.Equal(types.PositionStatusPending, pos.Status)
	suite.Equal(suite.clock.Now(), pos.UpdatedAt)
}

func (suite *SynchronizerTestSuite) TestSpotExternalFillRecomputesAverage() {
	p := pair(types.MarketTypeSpot)
	pos := suite.newPosition(types.MarketTypeSpot, "")
	pos.Status = types.PositionStatusOpen

	suite.expectPrice(p, "80")
	suite.ex.EXPECT().GetBalance(gomock.Any(), "BTC").Return(types.NewMoney(d("2"), "BTC"), nil)
	suite.repo.EXPECT().Update(gomock.Any(), pos).Return(nil)

	suite.NoError(suite.sync.Sync(suite.ctx, p, pos))
	suite.True(pos.Volume.Equal(d("2")))
	suite.True(pos.AverageEntryPrice.Equal(d("90")))
}

func (suite *SynchronizerTestSuite) TestSpotFinishedWhenHoldingsDrop() {
	p := pair(types.MarketTypeSpot)
	pos := suite.newPosition(types.MarketTypeSpot, "")
	pos.Status = types.PositionStatusOpen
	pos.TakeProfitPrice = decimal.NewNullDecimal(d("110"))

	suite.expectPrice(p, "111")
	suite.ex.EXPECT().GetBalance(gomock.Any(), "BTC").Return(types.NewMoney(decimal.Zero, "BTC"), nil)
	suite.repo.EXPECT().Update(gomock.Any(), pos).Return(nil)

	suite.NoError(suite.sync.Sync(suite.ctx, p, pos))
	suite.Equal(types.PositionStatusFinished, pos.Status)
	suite.Equal(types.FinishReasonTakeProfit, pos.FinishReason)
	suite.True(pos.RealizedPnl.Equal(d("10")))
}

func (suite *SynchronizerTestSuite) TestFuturesDriftCancelsPendingEntry() {
	p := pair(types.MarketTypeFutures)
	pos := suite.newPosition(types.MarketTypeFutures, "order-1")

	suite.expectPrice(p, "100.6")
	suite.ex.EXPECT().GetCurrentFuturesPosition(gomock.Any(), p).Return(optional.None[exchange.ExchangePosition](), nil)
	suite.ex.EXPECT().HasActiveOrder(gomock.Any(), p, "order-1").Return(true, nil)
	suite.ex.EXPECT().RemoveLimitOrders(gomock.Any(), p).Return(nil)
	suite.repo.EXPECT().Update(gomock.Any(), pos).Return(nil)

	suite.NoError(suite.sync.Sync(suite.ctx, p, pos))
	suite.Equal(types.PositionStatusCanceled, pos.Status)
	suite.Equal(types.FinishReasonEntryDrift, pos.FinishReason)
}

func (suite *SynchronizerTestSuite) TestFuturesSmallDriftKeepsPending() {
	p := pair(types.MarketTypeFutures)
	pos := suite.newPosition(types.MarketTypeFutures, "order-1")

	suite.expectPrice(p, "100.4")
	suite.ex.EXPECT().GetCurrentFuturesPosition(gomock.Any(), p).Return(optional.None[exchange.ExchangePosition](), nil)
	suite.ex.EXPECT().HasActiveOrder(gomock.Any(), p, "order-1").Return(true, nil)
	suite.repo.EXPECT().Update(gomock.Any(), pos).Return(nil)

	suite.NoError(suite.sync.Sync(suite.ctx, p, pos))
	suite.Equal(types.PositionStatusPending, pos.Status)
}

func (suite *SynchronizerTestSuite) TestFuturesOpenResyncsFromVenue() {
	p := pair(types.MarketTypeFutures)
	pos := suite.newPosition(types.MarketTypeFutures, "order-1")

	suite.expectPrice(p, "99")
	suite.ex.EXPECT().GetCurrentFuturesPosition(gomock.Any(), p).Return(optional.Some(exchange.ExchangePosition{
		Direction:         types.DirectionLong,
		Volume:            d("0.98"),
		AverageEntryPrice: d("99.5"),
	}), nil)
	suite.ex.EXPECT().HasActiveOrder(gomock.Any(), p, "order-1").Return(false, nil)
	suite.repo.EXPECT().Update(gomock.Any(), pos).Return(nil)

	suite.NoError(suite.sync.Sync(suite.ctx, p, pos))
	suite.Equal(types.PositionStatusOpen, pos.Status)
	suite.True(pos.Volume.Equal(d("0.98")))
	suite.True(pos.AverageEntryPrice.Equal(d("99.5")))
}

func (suite *SynchronizerTestSuite) TestFuturesFinishedWhenVenueFlat() {
	p := pair(types.MarketTypeFutures)
	pos := suite.newPosition(types.MarketTypeFutures, "")
	pos.Status = types.PositionStatusOpen
	pos.StopLossPrice = decimal.NewNullDecimal(d("95"))

	suite.expectPrice(p, "94")
	suite.ex.EXPECT().GetCurrentFuturesPosition(gomock.Any(), p).Return(optional.None[exchange.ExchangePosition](), nil)
	suite.repo.EXPECT().Update(gomock.Any(), pos).Return(nil)

	suite.NoError(suite.sync.Sync(suite.ctx, p, pos))
	suite.Equal(types.PositionStatusFinished, pos.Status)
	suite.Equal(types.FinishReasonStopLoss, pos.FinishReason)
	suite.True(pos.RealizedPnl.Equal(d("-5")))
}

func (suite *SynchronizerTestSuite) TestUpdateTakeProfitHysteresis() {
	p := pair(types.MarketTypeFutures)
	pos := suite.newPosition(types.MarketTypeFutures, "")
	pos.ExpectedProfitPercent = 1
	tick := d("0.01")

	// target 101, stored 101.05: 0.05% apart, no re-issue
	pos.TakeProfitPrice = decimal.NewNullDecimal(d("101.05"))
	changed, err := position.UpdateTakeProfit(suite.ctx, suite.ex, p, pos, tick)
	suite.NoError(err)
	suite.False(changed)

	// target 101, stored 101.2: 0.2% apart, re-issue
	pos.TakeProfitPrice = decimal.NewNullDecimal(d("101.2"))
	suite.ex.EXPECT().SetTakeProfit(gomock.Any(), p, mocks.DecimalEq("101")).Return(nil)

	changed, err = position.UpdateTakeProfit(suite.ctx, suite.ex, p, pos, tick)
	suite.NoError(err)
	suite.True(changed)
	suite.True(pos.TakeProfitPrice.Decimal.Equal(d("101")))
}

func (suite *SynchronizerTestSuite) TestUpdateStopLossShort() {
	p := pair(types.MarketTypeFutures)
	pos := suite.newPosition(types.MarketTypeFutures, "")
	pos.Direction = types.DirectionShort
	pos.ExpectedStopLossPercent = 5

	suite.ex.EXPECT().SetStopLoss(gomock.Any(), p, mocks.DecimalEq("105")).Return(nil)

	changed, err := position.UpdateStopLoss(suite.ctx, suite.ex, p, pos, d("0.01"))
	suite.NoError(err)
	suite.True(changed)
}
