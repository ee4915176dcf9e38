package indicator

import (
	"github.com/markcheno/go-talib"
	"github.com/rxtech-lab/argo-dca/internal/types"
)

// MACD reports the MACD line with signal and histogram as extras.
type MACD struct {
	fast   int
	slow   int
	signal int
}

func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{fast: fast, slow: slow, signal: signal}
}

func (m *MACD) Name() Name { return NameMACD }

func (m *MACD) Key() string { return string(NameMACD) }

func (m *MACD) RequiredCandles() int { return m.slow + m.signal - 1 }

func (m *MACD) Compute(series *types.CandleSeries) Result {
	if series.Len() < m.RequiredCandles() {
		return insufficient(m, series)
	}

	macd, signal, hist := talib.Macd(series.Closes(), m.fast, m.slow, m.signal)

	value, err := lastValid(macd)
	if err != nil {
		return Result{Key: m.Key(), Err: err}
	}

	sig, _ := lastValid(signal)
	h, _ := lastValid(hist)

	return Result{
		Key:    m.Key(),
		Value:  value,
		Extras: map[string]float64{"signal": sig, "histogram": h},
	}
}
