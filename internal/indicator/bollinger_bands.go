package indicator

import (
	"github.com/markcheno/go-talib"
	"github.com/rxtech-lab/argo-dca/internal/types"
)

// BollingerBands reports the middle band with upper and lower as extras.
type BollingerBands struct {
	period int
	stdDev float64
}

func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{period: period, stdDev: stdDev}
}

func (b *BollingerBands) Name() Name { return NameBBands }

func (b *BollingerBands) Key() string { return string(NameBBands) }

func (b *BollingerBands) RequiredCandles() int { return b.period }

func (b *BollingerBands) Compute(series *types.CandleSeries) Result {
	if series.Len() < b.RequiredCandles() {
		return insufficient(b, series)
	}

	upper, middle, lower := talib.BBands(series.Closes(), b.period, b.stdDev, b.stdDev, talib.SMA)

	value, err := lastValid(middle)
	if err != nil {
		return Result{Key: b.Key(), Err: err}
	}

	up, _ := lastValid(upper)
	low, _ := lastValid(lower)

	return Result{
		Key:    b.Key(),
		Value:  value,
		Extras: map[string]float64{"upper": up, "lower": low},
	}
}
