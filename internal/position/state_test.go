package position

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type StateTestSuite struct {
	suite.Suite
	now time.Time
}

func TestStateSuite(t *testing.T) {
	suite.Run(t, new(StateTestSuite))
}

func (suite *StateTestSuite) SetupTest() {
	suite.now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *StateTestSuite) TestCanTransition() {
	tests := []struct {
		from, to types.PositionStatus
		ok       bool
	}{
		{types.PositionStatusPending, types.PositionStatusOpen, true},
		{types.PositionStatusPending, types.PositionStatusCanceled, true},
		{types.PositionStatusOpen, types.PositionStatusFinished, true},
		{types.PositionStatusOpen, types.PositionStatusError, true},
		{types.PositionStatusPending, types.PositionStatusFinished, false},
		{types.PositionStatusOpen, types.PositionStatusPending, false},
		{types.PositionStatusOpen, types.PositionStatusCanceled, false},
		{types.PositionStatusFinished, types.PositionStatusOpen, false},
		{types.PositionStatusCanceled, types.PositionStatusOpen, false},
	}

	for _, tc := range tests {
		suite.Run(string(tc.from)+"->"+string(tc.to), func() {
			suite.Equal(tc.ok, CanTransition(tc.from, tc.to))
		})
	}
}

func (suite *StateTestSuite) TestInvalidTransitionPanics() {
	pos := &types.Position{ID: "p1", Status: types.PositionStatusFinished}
	suite.Panics(func() { Transition(pos, types.PositionStatusOpen, suite.now) })
}

func (suite *StateTestSuite) TestFinishBooksPnl() {
	pos := New(NewParams{
		Pair:       types.Pair{ExchangeName: "sim", BaseCurrency: "BTC", QuoteCurrency: "USDT", MarketType: types.MarketTypeFutures},
		Ticker:     "BTCUSDT",
		Direction:  types.DirectionLong,
		EntryPrice: decimal.NewFromInt(100),
		Volume:     decimal.NewFromInt(1),
	}, suite.now)

	suite.Equal(types.PositionStatusPending, pos.Status)
	suite.NotEmpty(pos.ID)

	Transition(pos, types.PositionStatusOpen, suite.now)
	ReduceVolume(pos, decimal.RequireFromString("0.5"), decimal.NewFromInt(104), suite.now)
	Finish(pos, types.FinishReasonTakeProfit, decimal.NewFromInt(110), suite.now.Add(time.Hour))

	suite.Equal(types.PositionStatusFinished, pos.Status)
	suite.Equal(types.FinishReasonTakeProfit, pos.FinishReason)
	suite.True(pos.RealizedPnl.Equal(decimal.NewFromInt(7)), pos.RealizedPnl.String())
	suite.True(pos.FinishedAt.IsSome())
	suite.True(pos.ClosePrice.Decimal.Equal(decimal.NewFromInt(110)))
}

func (suite *StateTestSuite) TestCancel() {
	pos := &types.Position{ID: "p1", Status: types.PositionStatusPending}
	Cancel(pos, types.FinishReasonEntryDrift, suite.now)

	suite.Equal(types.PositionStatusCanceled, pos.Status)
	suite.Equal(types.FinishReasonEntryDrift, pos.FinishReason)
	suite.Panics(func() { Cancel(pos, types.FinishReasonManual, suite.now) })
}
