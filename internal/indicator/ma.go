package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/rxtech-lab/argo-dca/internal/types"
)

// EMA is the exponential moving average of closes.
type EMA struct {
	period int
}

// NewEMA creates an EMA over period closes.
func NewEMA(period int) *EMA {
	return &EMA{period: period}
}

func (e *EMA) Name() Name { return NameEMA }

func (e *EMA) Key() string { return fmt.Sprintf("ema_%d", e.period) }

func (e *EMA) RequiredCandles() int { return e.period }

func (e *EMA) Compute(series *types.CandleSeries) Result {
	if series.Len() < e.RequiredCandles() {
		return insufficient(e, series)
	}

	value, err := lastValid(talib.Ema(series.Closes(), e.period))

	return Result{Key: e.Key(), Value: value, Err: err}
}

// SMA is the simple moving average of closes.
type SMA struct {
	period int
}

// NewSMA creates an SMA over period closes.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() Name { return NameSMA }

func (s *SMA) Key() string { return fmt.Sprintf("sma_%d", s.period) }

func (s *SMA) RequiredCandles() int { return s.period }

func (s *SMA) Compute(series *types.CandleSeries) Result {
	if series.Len() < s.RequiredCandles() {
		return insufficient(s, series)
	}

	value, err := lastValid(talib.Sma(series.Closes(), s.period))

	return Result{Key: s.Key(), Value: value, Err: err}
}

// EMASeries computes a full EMA series over arbitrary closes. Used by the
// trend filter on aggregated candles. Returns nil when there is not enough data.
func EMASeries(closes []float64, period int) []float64 {
	if period < 2 || len(closes) < period {
		return nil
	}

	return talib.Ema(closes, period)
}
