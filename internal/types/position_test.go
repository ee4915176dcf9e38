package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PositionTestSuite struct {
	suite.Suite
}

func TestPositionSuite(t *testing.T) {
	suite.Run(t, new(PositionTestSuite))
}

func (suite *PositionTestSuite) TestApplyFillWeightedAverage() {
	pos := &Position{
		Direction:         DirectionLong,
		Volume:            decimal.NewFromInt(100),
		AverageEntryPrice: decimal.NewFromInt(50),
	}

	pos.ApplyFill(decimal.NewFromInt(50), decimal.NewFromInt(40))

	expected := decimal.NewFromInt(100*50 + 50*40).Div(decimal.NewFromInt(150))
	suite.True(pos.AverageEntryPrice.Equal(expected))
	suite.Equal("46.6666666666666667", pos.AverageEntryPrice.String())
	suite.True(pos.Volume.Equal(decimal.NewFromInt(150)))
}

func (suite *PositionTestSuite) TestApplyFillIgnoresNonPositive() {
	pos := &Position{Volume: decimal.NewFromInt(1), AverageEntryPrice: decimal.NewFromInt(10)}
	pos.ApplyFill(decimal.Zero, decimal.NewFromInt(5))

	suite.True(pos.AverageEntryPrice.Equal(decimal.NewFromInt(10)))
}

func (suite *PositionTestSuite) TestPnlByDirection() {
	long := &Position{Direction: DirectionLong, Volume: decimal.NewFromInt(10), AverageEntryPrice: decimal.NewFromInt(50)}
	short := &Position{Direction: DirectionShort, Volume: decimal.NewFromInt(10), AverageEntryPrice: decimal.NewFromInt(50)}

	suite.True(long.UnrealizedPnl(decimal.NewFromInt(40)).Equal(decimal.NewFromInt(-100)))
	suite.True(short.UnrealizedPnl(decimal.NewFromInt(40)).Equal(decimal.NewFromInt(100)))
	suite.True(long.PnlAt(decimal.NewFromInt(55), decimal.NewFromInt(2)).Equal(decimal.NewFromInt(10)))
}

func (suite *PositionTestSuite) TestProgressToTakeProfit() {
	pos := &Position{
		Direction:         DirectionShort,
		InitialEntryPrice: decimal.NewFromInt(100),
		TakeProfitPrice:   decimal.NewNullDecimal(decimal.NewFromInt(90)),
	}

	suite.InDelta(50.0, pos.ProgressToTakeProfit(decimal.NewFromInt(95)), 1e-9)

	pos.TakeProfitPrice = decimal.NullDecimal{}
	suite.Equal(0.0, pos.ProgressToTakeProfit(decimal.NewFromInt(95)))
}

func (suite *PositionTestSuite) TestDuration() {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pos := &Position{CreatedAt: created}

	suite.Equal(2*time.Hour, pos.Duration(created.Add(2*time.Hour)))

	pos.FinishedAt = optional.Some(created.Add(time.Hour))
	suite.Equal(time.Hour, pos.Duration(created.Add(2*time.Hour)))
}

func (suite *PositionTestSuite) TestKey() {
	pos := &Position{ExchangeName: "bybit", Ticker: "BTCUSDT", MarketType: MarketTypeFutures}
	suite.Equal("bybit:BTCUSDT:FUTURES", pos.Key().String())
}
