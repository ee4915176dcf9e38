package grid

import (
	"math"
	"testing"

	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type GridTestSuite struct {
	suite.Suite
	ctx types.TradingContext
}

func TestGridSuite(t *testing.T) {
	suite.Run(t, new(GridTestSuite))
}

func (suite *GridTestSuite) SetupTest() {
	suite.ctx = types.TradingContext{
		Balance:      types.MoneyFromFloat(1000, "USDT"),
		Margin:       types.MoneyFromFloat(500, "USDT"),
		CurrentPrice: types.MoneyFromFloat(100, "USDT"),
	}
}

func (suite *GridTestSuite) params(levels int, direction types.Direction, mode types.OffsetMode) Parameters {
	return Parameters{
		NumberOfLevels:           levels,
		EntryVolume:              decimal.NewFromInt(10),
		VolumeMultiplier:         2,
		PriceDeviation:           1,
		PriceDeviationMultiplier: 1.5,
		Direction:                direction,
		ExpectedProfit:           1,
		OffsetMode:               mode,
		VolumeMode:               types.VolumeModeAbsoluteQuote,
	}
}

func (suite *GridTestSuite) TestLevelCountAndEntryOffset() {
	for levels := 1; levels <= 6; levels++ {
		g, err := FromParameters(suite.params(levels, types.DirectionLong, types.OffsetModeFromEntry))
		suite.Require().NoError(err)
		suite.Len(g.Levels, levels)
		suite.Equal(0.0, g.Levels[0].OffsetPercent)
	}
}

func (suite *GridTestSuite) TestVolumesAndOffsetsIncrease() {
	g, err := FromParameters(suite.params(5, types.DirectionLong, types.OffsetModeFromEntry))
	suite.Require().NoError(err)

	orders := g.BuildOrderMap(suite.ctx)
	suite.Require().Len(orders, 5)

	for i := 1; i < len(orders); i++ {
		suite.True(orders[i].Volume.GreaterThan(orders[i-1].Volume))
	}

	for i := 2; i < len(orders); i++ {
		suite.Greater(math.Abs(orders[i].OffsetPercent), math.Abs(orders[i-1].OffsetPercent))
	}

	// accumulated offsets: 1, 2.5, 4.75, 8.125
	suite.InDelta(-1.0, orders[1].OffsetPercent, 1e-9)
	suite.InDelta(-2.5, orders[2].OffsetPercent, 1e-9)
	suite.InDelta(-8.125, orders[4].OffsetPercent, 1e-9)
}

func (suite *GridTestSuite) TestOffsetSignsByDirection() {
	tests := []struct {
		name      string
		direction types.Direction
		mode      types.OffsetMode
		negative  bool
	}{
		{name: "long from entry", direction: types.DirectionLong, mode: types.OffsetModeFromEntry, negative: true},
		{name: "short from entry", direction: types.DirectionShort, mode: types.OffsetModeFromEntry, negative: false},
		{name: "long from previous", direction: types.DirectionLong, mode: types.OffsetModeFromPrevious, negative: true},
		{name: "short from previous", direction: types.DirectionShort, mode: types.OffsetModeFromPrevious, negative: false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			g, err := FromParameters(suite.params(4, tc.direction, tc.mode))
			suite.Require().NoError(err)

			orders := g.BuildOrderMap(suite.ctx)
			suite.Equal(0.0, orders[0].OffsetPercent)

			for _, o := range orders[1:] {
				if tc.negative {
					suite.Less(o.OffsetPercent, 0.0)
				} else {
					suite.Greater(o.OffsetPercent, 0.0)
				}
			}
		})
	}
}

func (suite *GridTestSuite) TestFromPreviousCompoundsRatio() {
	p := suite.params(3, types.DirectionLong, types.OffsetModeFromPrevious)
	p.PriceDeviationMultiplier = 2

	g, err := FromParameters(p)
	suite.Require().NoError(err)

	// steps 1% and 2%: ratio 0.99 then 0.9702
	suite.Equal(1.0, g.Levels[1].OffsetPercent)
	suite.Equal(2.0, g.Levels[2].OffsetPercent)

	orders := g.BuildOrderMap(suite.ctx)
	suite.InDelta(-1.0, orders[1].OffsetPercent, 1e-9)
	suite.InDelta(-2.98, orders[2].OffsetPercent, 1e-9)

	p.Direction = types.DirectionShort
	g, err = FromParameters(p)
	suite.Require().NoError(err)

	orders = g.BuildOrderMap(suite.ctx)
	// 1.01 * 1.02 = 1.0302
	suite.InDelta(3.02, orders[2].OffsetPercent, 1e-9)
}

func (suite *GridTestSuite) TestOrderPrice() {
	order := Order{OffsetPercent: -2.5}
	suite.True(order.Price(decimal.NewFromInt(100)).Equal(decimal.RequireFromString("97.5")))
}

func (suite *GridTestSuite) TestResolveVolumeModes() {
	tests := []struct {
		name     string
		mode     types.VolumeMode
		raw      string
		expected string
	}{
		{name: "absolute quote", mode: types.VolumeModeAbsoluteQuote, raw: "25", expected: "25"},
		{name: "absolute base", mode: types.VolumeModeAbsoluteBase, raw: "0.5", expected: "50"},
		{name: "percent balance", mode: types.VolumeModePercentBalance, raw: "10", expected: "100"},
		{name: "percent margin", mode: types.VolumeModePercentMargin, raw: "10", expected: "50"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			level := Level{RawVolume: decimal.RequireFromString(tc.raw), VolumeMode: tc.mode}
			suite.True(level.ResolveVolume(suite.ctx).Equal(decimal.RequireFromString(tc.expected)))
		})
	}
}

func (suite *GridTestSuite) TestEmptyGridHasZeroVolume() {
	g := &Grid{}
	suite.True(g.TotalVolume(suite.ctx).IsZero())
	suite.True(g.EntryVolume(suite.ctx).IsZero())
	suite.Equal(0.0, g.MaxOffsetPercent())
}

func (suite *GridTestSuite) TestInvalidParameters() {
	p := suite.params(0, types.DirectionLong, types.OffsetModeFromEntry)
	_, err := FromParameters(p)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidGrid))

	p = suite.params(3, types.DirectionLong, types.OffsetModeFromEntry)
	p.EntryVolume = decimal.Zero
	_, err = FromParameters(p)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidVolume))
}
