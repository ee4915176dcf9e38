package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/rxtech-lab/argo-dca/internal/types"
)

// ATR is the average true range.
type ATR struct {
	period int
}

// NewATR creates an ATR over period candles.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() Name { return NameATR }

func (a *ATR) Key() string { return fmt.Sprintf("atr_%d", a.period) }

func (a *ATR) RequiredCandles() int { return a.period + 1 }

func (a *ATR) Compute(series *types.CandleSeries) Result {
	if series.Len() < a.RequiredCandles() {
		return insufficient(a, series)
	}

	highs, lows, closes := highsLowsCloses(series)
	value, err := lastValid(talib.Atr(highs, lows, closes, a.period))

	return Result{Key: a.Key(), Value: value, Err: err}
}
