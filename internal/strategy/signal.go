package strategy

import (
	"github.com/rxtech-lab/argo-dca/internal/indicator"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
)

const (
	SignalAlways   = "always"
	SignalRSI      = "rsi"
	SignalEMACross = "ema_cross"
)

// Signal is an entry trigger evaluated after the gating policies pass.
type Signal interface {
	Long(m MarketView) bool
	Short(m MarketView) bool
	Indicators() []indicator.Config
	RequiredCandles() int
}

// NewSignal builds the signal named by the "signal" parameter.
func NewSignal(params Params) (Signal, error) {
	switch params.String("signal") {
	case SignalAlways:
		return AlwaysSignal{}, nil
	case SignalRSI:
		return RSISignal{
			Period:     params.Int("rsi_period"),
			Oversold:   params.Float("rsi_oversold"),
			Overbought: params.Float("rsi_overbought"),
		}, nil
	case SignalEMACross:
		fast, slow := params.Int("ema_fast"), params.Int("ema_slow")
		if fast >= slow {
			return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "ema_fast (%d) must be below ema_slow (%d)", fast, slow)
		}

		return EMACrossSignal{Fast: fast, Slow: slow}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "unknown signal %q", params.String("signal"))
	}
}

// AlwaysSignal fires on every cycle.
type AlwaysSignal struct{}

func (AlwaysSignal) Long(MarketView) bool           { return true }
func (AlwaysSignal) Short(MarketView) bool          { return true }
func (AlwaysSignal) Indicators() []indicator.Config { return nil }
func (AlwaysSignal) RequiredCandles() int           { return 1 }

// RSISignal buys oversold and sells overbought markets.
type RSISignal struct {
	Period     int
	Oversold   float64
	Overbought float64
}

func (s RSISignal) config() indicator.Config {
	return indicator.Config{Name: indicator.NameRSI, Period: s.Period}
}

func (s RSISignal) Long(m MarketView) bool {
	rsi, ok := m.Indicators().Get(s.config().Key())

	return ok && rsi < s.Oversold
}

func (s RSISignal) Short(m MarketView) bool {
	rsi, ok := m.Indicators().Get(s.config().Key())

	return ok && rsi > s.Overbought
}

func (s RSISignal) Indicators() []indicator.Config {
	return []indicator.Config{s.config()}
}

func (s RSISignal) RequiredCandles() int { return s.Period + 1 }

// EMACrossSignal fires when the fast EMA crosses the slow EMA on the newest candle.
type EMACrossSignal struct {
	Fast int
	Slow int
}

func (s EMACrossSignal) cross(m MarketView) (up bool, down bool) {
	closes := m.Candles().Closes()

	fast := indicator.EMASeries(closes, s.Fast)
	slow := indicator.EMASeries(closes, s.Slow)

	n := len(closes)
	if fast == nil || slow == nil || n < s.Slow+1 {
		return false, false
	}

	prevDiff := fast[n-2] - slow[n-2]
	diff := fast[n-1] - slow[n-1]

	return prevDiff <= 0 && diff > 0, prevDiff >= 0 && diff < 0
}

func (s EMACrossSignal) Long(m MarketView) bool {
	up, _ := s.cross(m)

	return up
}

func (s EMACrossSignal) Short(m MarketView) bool {
	_, down := s.cross(m)

	return down
}

func (s EMACrossSignal) Indicators() []indicator.Config {
	return []indicator.Config{
		{Name: indicator.NameEMA, Period: s.Fast},
		{Name: indicator.NameEMA, Period: s.Slow},
	}
}

func (s EMACrossSignal) RequiredCandles() int { return s.Slow + 1 }
