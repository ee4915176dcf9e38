package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
)

// Name identifies an indicator family.
type Name string

const (
	NameEMA    Name = "ema"
	NameSMA    Name = "sma"
	NameRSI    Name = "rsi"
	NameATR    Name = "atr"
	NameMACD   Name = "macd"
	NameBBands Name = "bbands"
)

// Config describes one indicator instance as it appears in strategy configuration.
type Config struct {
	Name   Name `yaml:"name" json:"name" validate:"required,oneof=ema sma rsi atr macd bbands"`
	Period int  `yaml:"period" json:"period" validate:"min=0"`
}

// Key returns the snapshot key, e.g. "ema_21".
func (c Config) Key() string {
	if c.Period <= 0 {
		return string(c.Name)
	}

	return fmt.Sprintf("%s_%d", c.Name, c.Period)
}

// Indicator computes a value from the candle arena. Implementations are pure:
// the same series always yields the same result.
type Indicator interface {
	// Name returns the family of the indicator
	Name() Name
	// Key returns the unique key of this instance within a registry
	Key() string
	// RequiredCandles is the minimum series length Compute accepts
	RequiredCandles() int
	// Compute evaluates the indicator on the whole series
	Compute(series *types.CandleSeries) Result
}

// Result is the outcome of one computation. Err is set instead of panicking
// so callers can skip and log a failing indicator.
type Result struct {
	Key    string
	Value  float64
	Extras map[string]float64
	Err    error
}

// OK reports whether the computation produced a value.
func (r Result) OK() bool {
	return r.Err == nil
}

// New builds an indicator from its configuration.
func New(cfg Config) (Indicator, error) {
	period := cfg.Period

	switch cfg.Name {
	case NameEMA:
		return newPeriodIndicator(NameEMA, period, 20)
	case NameSMA:
		return newPeriodIndicator(NameSMA, period, 20)
	case NameRSI:
		return newPeriodIndicator(NameRSI, period, 14)
	case NameATR:
		return newPeriodIndicator(NameATR, period, 14)
	case NameMACD:
		return NewMACD(12, 26, 9), nil
	case NameBBands:
		if period == 0 {
			period = 20
		}

		if period < 2 {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "bbands period must be at least 2, got %d", period)
		}

		return NewBollingerBands(period, 2), nil
	default:
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "unknown indicator %q", cfg.Name)
	}
}

func newPeriodIndicator(name Name, period, fallback int) (Indicator, error) {
	if period == 0 {
		period = fallback
	}

	if period < 2 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "%s period must be at least 2, got %d", name, period)
	}

	switch name {
	case NameEMA:
		return NewEMA(period), nil
	case NameSMA:
		return NewSMA(period), nil
	case NameRSI:
		return NewRSI(period), nil
	default:
		return NewATR(period), nil
	}
}

func insufficient(ind Indicator, series *types.CandleSeries) Result {
	return Result{
		Key: ind.Key(),
		Err: errors.NewInsufficientCandlesError(ind.RequiredCandles(), series.Len(), ind.Key()),
	}
}

func lastValid(series []float64) (float64, error) {
	if len(series) == 0 {
		return 0, errors.New(errors.ErrCodeIndicatorCalculation, "empty output series")
	}

	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New(errors.ErrCodeIndicatorCalculation, "indicator produced a non-finite value")
	}

	return v, nil
}

func highsLowsCloses(series *types.CandleSeries) ([]float64, []float64, []float64) {
	candles := series.All()
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))

	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}

	return highs, lows, closes
}
