package strategy

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/indicator"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DirectionParamLong  = "long"
	DirectionParamShort = "short"
	DirectionParamBoth  = "both"
)

var volumeModeChoices = []string{
	string(types.VolumeModeAbsoluteQuote),
	string(types.VolumeModeAbsoluteBase),
	string(types.VolumeModePercentBalance),
	string(types.VolumeModePercentMargin),
}

// commonSpecs are shared by every family.
func commonSpecs(takeProfit, stopLoss float64) []ParamSpec {
	return []ParamSpec{
		{Name: "signal", Kind: KindChoice, Default: SignalAlways, Choices: []string{SignalAlways, SignalRSI, SignalEMACross}, Description: "entry signal"},
		{Name: "direction", Kind: KindChoice, Default: DirectionParamLong, Choices: []string{DirectionParamLong, DirectionParamShort, DirectionParamBoth}, Description: "allowed entry sides"},
		{Name: "entry_volume", Kind: KindFloat, Default: 100.0, Min: 0.00000001, Max: 1e9, Step: 10, Description: "entry size, unit given by volume_mode"},
		{Name: "volume_mode", Kind: KindChoice, Default: string(types.VolumeModeAbsoluteQuote), Choices: volumeModeChoices},
		{Name: "take_profit_percent", Kind: KindFloat, Default: takeProfit, Min: 0.05, Max: 100, Step: 0.1},
		{Name: "stop_loss_percent", Kind: KindFloat, Default: stopLoss, Min: 0, Max: 100, Step: 0.5, Description: "0 disables the stop-loss"},
		{Name: "rsi_period", Kind: KindInt, Default: 14, Min: 2, Max: 100, Step: 1},
		{Name: "rsi_oversold", Kind: KindFloat, Default: 30.0, Min: 1, Max: 50, Step: 2},
		{Name: "rsi_overbought", Kind: KindFloat, Default: 70.0, Min: 50, Max: 99, Step: 2},
		{Name: "ema_fast", Kind: KindInt, Default: 9, Min: 2, Max: 200, Step: 1},
		{Name: "ema_slow", Kind: KindInt, Default: 21, Min: 3, Max: 400, Step: 2},
		{Name: "cooldown_minutes", Kind: KindInt, Default: 0, Min: 0, Max: 10080, Step: 15, Description: "no entries this long after a stop-loss"},
		{Name: "trend_filter", Kind: KindBool, Default: false},
		{Name: "trend_ema_period", Kind: KindInt, Default: 50, Min: 2, Max: 400, Step: 5},
		{Name: "trend_timeframe_factor", Kind: KindInt, Default: 4, Min: 1, Max: 24, Step: 1, Fixed: true},
	}
}

// base carries what both families share: resolved parameters and the entry gate.
type base struct {
	name     string
	params   Params
	signal   Signal
	cooldown CooldownPolicy
	trend    TrendFilter
}

func newBase(name string, params Params) (base, error) {
	signal, err := NewSignal(params)
	if err != nil {
		return base{}, err
	}

	return base{
		name:     name,
		params:   params,
		signal:   signal,
		cooldown: CooldownPolicy{Minutes: params.Int("cooldown_minutes")},
		trend: TrendFilter{
			Enabled: params.Bool("trend_filter"),
			Period:  params.Int("trend_ema_period"),
			Factor:  params.Int("trend_timeframe_factor"),
		},
	}, nil
}

func (b *base) Name() string { return b.name }

func (b *base) Params() Params { return b.params.Clone() }

func (b *base) Indicators() []indicator.Config { return b.signal.Indicators() }

func (b *base) RequiredCandles() int {
	return max(1, b.signal.RequiredCandles(), b.trend.RequiredCandles())
}

func (b *base) ShouldLong(ctx context.Context, m MarketView) bool {
	return b.should(ctx, m, types.DirectionLong)
}

func (b *base) ShouldShort(ctx context.Context, m MarketView) bool {
	return b.should(ctx, m, types.DirectionShort)
}

func (b *base) allowsDirection(d types.Direction) bool {
	switch b.params.String("direction") {
	case DirectionParamBoth:
		return true
	case DirectionParamShort:
		return d == types.DirectionShort
	default:
		return d == types.DirectionLong
	}
}

// should applies the gates before the signal is evaluated.
func (b *base) should(ctx context.Context, m MarketView, d types.Direction) bool {
	if !b.allowsDirection(d) {
		return false
	}

	if d == types.DirectionShort && !m.Pair().MarketType.IsFutures() {
		return false
	}

	if !b.cooldown.Allow(ctx, m) {
		return false
	}

	if !b.trend.Allow(m, d) {
		return false
	}

	if d == types.DirectionLong {
		return b.signal.Long(m)
	}

	return b.signal.Short(m)
}

func (b *base) volumeMode() types.VolumeMode {
	return types.VolumeMode(b.params.String("volume_mode"))
}

func openMarket(ctx context.Context, m MarketView, d types.Direction, quote decimal.Decimal) (exchange.OrderResult, error) {
	if d == types.DirectionShort {
		return m.Exchange().OpenShort(ctx, m.Pair(), quote)
	}

	return m.Exchange().OpenLong(ctx, m.Pair(), quote)
}

func addAtMarket(ctx context.Context, m MarketView, d types.Direction, quote decimal.Decimal) (exchange.OrderResult, error) {
	if d == types.DirectionShort {
		return m.Exchange().SellAdditional(ctx, m.Pair(), quote)
	}

	return m.Exchange().BuyAdditional(ctx, m.Pair(), quote)
}

// insertPosition persists a freshly created position and logs it.
func insertPosition(ctx context.Context, m MarketView, pos *types.Position) (optional.Option[*types.Position], error) {
	if err := m.Positions().Insert(ctx, pos); err != nil {
		return optional.None[*types.Position](), errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "insert position for %s", m.Ticker())
	}

	m.Runtime().Log.Info("Position created",
		zap.String("id", pos.ID),
		zap.String("ticker", pos.Ticker),
		zap.String("direction", string(pos.Direction)),
		zap.String("entry", pos.InitialEntryPrice.String()),
		zap.String("volume", pos.Volume.String()),
	)

	return optional.Some(pos), nil
}

// applyProtection sets missing take-profit and stop-loss orders from the average entry.
func applyProtection(ctx context.Context, m MarketView, pos *types.Position, recompute bool) (bool, error) {
	changed := false

	if recompute || !pos.TakeProfitPrice.Valid {
		ok, err := position.UpdateTakeProfit(ctx, m.Exchange(), m.Pair(), pos, m.TickSize())
		if err != nil {
			return changed, err
		}

		changed = changed || ok
	}

	if recompute || !pos.StopLossPrice.Valid {
		ok, err := position.UpdateStopLoss(ctx, m.Exchange(), m.Pair(), pos, m.TickSize())
		if err != nil {
			return changed, err
		}

		changed = changed || ok
	}

	return changed, nil
}
