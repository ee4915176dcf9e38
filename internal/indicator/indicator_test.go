package indicator

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func seriesFromCloses(closes ...float64) *types.CandleSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, len(closes))

	for i, c := range closes {
		candles[i] = types.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     c,
			High:     c + 1,
			Low:      c - 1,
			Close:    c,
			Volume:   1,
		}
	}

	return types.NewCandleSeries(candles)
}

func (suite *IndicatorTestSuite) TestNewFromConfig() {
	tests := []struct {
		name        string
		cfg         Config
		expectedKey string
		expectErr   bool
	}{
		{name: "ema with period", cfg: Config{Name: NameEMA, Period: 21}, expectedKey: "ema_21"},
		{name: "rsi default period", cfg: Config{Name: NameRSI}, expectedKey: "rsi_14"},
		{name: "atr", cfg: Config{Name: NameATR, Period: 7}, expectedKey: "atr_7"},
		{name: "macd", cfg: Config{Name: NameMACD}, expectedKey: "macd"},
		{name: "bbands", cfg: Config{Name: NameBBands}, expectedKey: "bbands"},
		{name: "period too small", cfg: Config{Name: NameSMA, Period: 1}, expectErr: true},
		{name: "unknown", cfg: Config{Name: "vwap"}, expectErr: true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			ind, err := New(tc.cfg)
			if tc.expectErr {
				suite.Error(err)
				suite.Nil(ind)

				return
			}

			suite.NoError(err)
			suite.Equal(tc.expectedKey, ind.Key())
		})
	}
}

func (suite *IndicatorTestSuite) TestSMA() {
	result := NewSMA(5).Compute(seriesFromCloses(1, 2, 3, 4, 5))
	suite.True(result.OK())
	suite.InDelta(3.0, result.Value, 1e-9)
}

func (suite *IndicatorTestSuite) TestEMAOfConstantSeries() {
	result := NewEMA(3).Compute(seriesFromCloses(10, 10, 10, 10, 10, 10))
	suite.True(result.OK())
	suite.InDelta(10.0, result.Value, 1e-9)
}

func (suite *IndicatorTestSuite) TestRSIOfRisingSeries() {
	result := NewRSI(3).Compute(seriesFromCloses(1, 2, 3, 4, 5, 6))
	suite.True(result.OK())
	suite.InDelta(100.0, result.Value, 1e-9)
}

func (suite *IndicatorTestSuite) TestATROfConstantRange() {
	result := NewATR(3).Compute(seriesFromCloses(10, 10, 10, 10, 10))
	suite.True(result.OK())
	suite.InDelta(2.0, result.Value, 1e-9)
}

func (suite *IndicatorTestSuite) TestInsufficientCandles() {
	result := NewEMA(20).Compute(seriesFromCloses(1, 2, 3))
	suite.False(result.OK())
	suite.True(errors.IsInsufficientCandles(result.Err))
}

func (suite *IndicatorTestSuite) TestEMASeries() {
	suite.Nil(EMASeries([]float64{1, 2}, 5))
	suite.Len(EMASeries([]float64{1, 2, 3, 4, 5}, 3), 5)
}
