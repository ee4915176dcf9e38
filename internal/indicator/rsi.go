package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/rxtech-lab/argo-dca/internal/types"
)

// RSI is Wilder's relative strength index of closes.
type RSI struct {
	period int
}

// NewRSI creates an RSI over period closes.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() Name { return NameRSI }

func (r *RSI) Key() string { return fmt.Sprintf("rsi_%d", r.period) }

// RequiredCandles includes the extra close the first delta needs.
func (r *RSI) RequiredCandles() int { return r.period + 1 }

func (r *RSI) Compute(series *types.CandleSeries) Result {
	if series.Len() < r.RequiredCandles() {
		return insufficient(r, series)
	}

	value, err := lastValid(talib.Rsi(series.Closes(), r.period))

	return Result{Key: r.Key(), Value: value, Err: err}
}
