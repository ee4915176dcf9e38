package backtest

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/stretchr/testify/suite"
)

type TicksTestSuite struct {
	suite.Suite
	open time.Time
}

func TestTicksSuite(t *testing.T) {
	suite.Run(t, new(TicksTestSuite))
}

func (suite *TicksTestSuite) SetupTest() {
	suite.open = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *TicksTestSuite) prices(ticks []Tick) []float64 {
	out := make([]float64, len(ticks))
	for i, t := range ticks {
		out[i] = t.Price
	}

	return out
}

func (suite *TicksTestSuite) TestBullishPathDipsFirst() {
	c := types.Candle{OpenTime: suite.open, Open: 100, High: 110, Low: 95, Close: 105, Volume: 40}

	ticks := SynthesizeTicks(c, types.Timeframe("1h"), 4)

	suite.Require().Len(ticks, 4)
	suite.Equal([]float64{100, 95, 110, 105}, suite.prices(ticks))

	for i, t := range ticks {
		suite.Equal(suite.open.Add(time.Duration(i)*15*time.Minute), t.Time)
	}
}

func (suite *TicksTestSuite) TestBearishPathSpikesFirst() {
	c := types.Candle{OpenTime: suite.open, Open: 100, High: 110, Low: 90, Close: 95}

	ticks := SynthesizeTicks(c, types.Timeframe("1h"), 4)

	suite.Equal([]float64{100, 110, 90, 95}, suite.prices(ticks))
}

func (suite *TicksTestSuite) TestPartialCandleOnlySeesWalkedPath() {
	c := types.Candle{OpenTime: suite.open, Open: 100, High: 110, Low: 95, Close: 105, Volume: 40}

	ticks := SynthesizeTicks(c, types.Timeframe("1h"), 4)

	first := ticks[0].Partial
	suite.Equal(100.0, first.High)
	suite.Equal(100.0, first.Low)
	suite.Equal(0.0, first.Volume)

	dip := ticks[1].Partial
	suite.Equal(100.0, dip.Open)
	suite.Equal(100.0, dip.High)
	suite.Equal(95.0, dip.Low)
	suite.Equal(95.0, dip.Close)
	suite.InDelta(10.0, dip.Volume, 1e-9)

	spike := ticks[2].Partial
	suite.Equal(110.0, spike.High)
	suite.Equal(95.0, spike.Low)
	suite.InDelta(30.0, spike.Volume, 1e-9)

	suite.Equal(c, ticks[3].Partial)

	for _, t := range ticks {
		suite.Equal(c.OpenTime, t.Partial.OpenTime)
	}
}

func (suite *TicksTestSuite) TestInterpolatesOtherTickCounts() {
	c := types.Candle{OpenTime: suite.open, Open: 100, High: 110, Low: 95, Close: 105, Volume: 10}

	ticks := SynthesizeTicks(c, types.Timeframe("1h"), 7)

	suite.Require().Len(ticks, 7)

	expected := []float64{100, 97.5, 95, 102.5, 110, 107.5, 105}
	for i, want := range expected {
		suite.InDelta(want, ticks[i].Price, 1e-9, "tick %d", i)
	}

	suite.InDelta(1.0, ticks[1].Partial.Volume, 1e-9)
	suite.Equal(10.0, ticks[6].Partial.Volume)
	suite.Equal(suite.open.Add(time.Hour/7*6), ticks[6].Time)
}

func (suite *TicksTestSuite) TestSingleTickIsTheCandle() {
	c := types.Candle{OpenTime: suite.open, Open: 1, High: 2, Low: 0.5, Close: 1.5}

	ticks := SynthesizeTicks(c, types.Timeframe("1h"), 1)

	suite.Require().Len(ticks, 1)
	suite.Equal(1.5, ticks[0].Price)
	suite.Equal(c, ticks[0].Partial)
}
