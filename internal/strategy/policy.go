package strategy

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/indicator"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CooldownPolicy blocks new entries for a while after a stop-loss.
type CooldownPolicy struct {
	Minutes int
}

// Allow reports whether the cooldown has elapsed.
func (p CooldownPolicy) Allow(ctx context.Context, m MarketView) bool {
	if p.Minutes <= 0 {
		return true
	}

	key := types.PositionKey{ExchangeName: m.Pair().ExchangeName, Ticker: m.Ticker(), MarketType: m.Pair().MarketType}

	last, err := m.Positions().LastFinishedWithReason(ctx, key, types.FinishReasonStopLoss)
	if err != nil {
		m.Runtime().Log.Warn("Cooldown lookup failed", zap.String("ticker", m.Ticker()), zap.Error(err))

		return false
	}

	if last.IsNone() {
		return true
	}

	finished := last.Unwrap().FinishedAt
	if finished.IsNone() {
		return true
	}

	return m.Runtime().Now().Sub(finished.Unwrap()) >= time.Duration(p.Minutes)*time.Minute
}

// TrendFilter requires close above (long) or below (short) an EMA computed
// on candles aggregated to a higher timeframe.
type TrendFilter struct {
	Enabled bool
	Period  int
	// Factor is the multiple of the pair timeframe used for aggregation.
	Factor int
}

// Allow reports whether direction agrees with the higher-timeframe trend.
// Without enough aggregated candles the filter blocks entries.
func (f TrendFilter) Allow(m MarketView, direction types.Direction) bool {
	if !f.Enabled {
		return true
	}

	higher := m.Pair().Timeframe.Duration() * time.Duration(max(f.Factor, 1))
	aggregated := m.Candles().Aggregate(higher)

	closes := make([]float64, len(aggregated))
	for i, c := range aggregated {
		closes[i] = c.Close
	}

	ema := indicator.EMASeries(closes, f.Period)
	if ema == nil {
		return false
	}

	last := closes[len(closes)-1]
	trend := ema[len(ema)-1]

	if direction == types.DirectionLong {
		return last > trend
	}

	return last < trend
}

// RequiredCandles is the base-timeframe warm-up the filter needs.
func (f TrendFilter) RequiredCandles() int {
	if !f.Enabled {
		return 0
	}

	return f.Period * max(f.Factor, 1)
}

// PartialClosePolicy closes a fraction of a position once, when its progress
// toward the take-profit crosses TriggerPercent. The position carries the
// marker, so a restarted worker does not close it again.
type PartialClosePolicy struct {
	Enabled        bool
	TriggerPercent float64
	Fraction       float64
	UseLimit       bool
}

// Apply closes the fraction when due. Returns true when the position changed
// and must be saved.
func (p *PartialClosePolicy) Apply(ctx context.Context, m MarketView, pos *types.Position) (bool, error) {
	if !p.Enabled || pos.PartialClosedAt.IsSome() {
		return false, nil
	}

	if pos.ProgressToTakeProfit(m.CurrentPrice()) < p.TriggerPercent {
		return false, nil
	}

	now := m.Runtime().Now()

	qty := utils.RoundDownToStep(pos.Volume.Mul(decimal.NewFromFloat(p.Fraction)), m.QtyStep())
	if !qty.IsPositive() || qty.GreaterThanOrEqual(pos.Volume) {
		pos.PartialClosedAt = optional.Some(now)

		return true, nil
	}

	// Spot positions are tracked through holdings, so a resting reduce order
	// would read as a full exit. Spot always closes at market.
	if p.UseLimit && m.Pair().MarketType.IsFutures() {
		price := m.CurrentPrice()
		if _, err := m.Exchange().PlaceLimitClose(ctx, m.Pair(), qty, price, pos.Direction); err != nil {
			return false, err
		}

		pos.ReduceOrderPrice = decimal.NewNullDecimal(price)
	} else if err := closeAtMarket(ctx, m, pos, qty); err != nil {
		return false, err
	}

	pos.PartialClosedAt = optional.Some(now)
	m.Runtime().Log.Info("Partial close",
		zap.String("id", pos.ID),
		zap.String("qty", qty.String()),
		zap.Bool("limit", p.UseLimit),
	)

	return true, nil
}

// BreakevenLockPolicy partially closes and moves the stop-loss one tick past
// entry on the losing side once progress crosses TriggerPercent.
type BreakevenLockPolicy struct {
	Enabled        bool
	TriggerPercent float64
	CloseFraction  float64
}

// Locked reports whether the stop-loss already sits within two ticks of entry.
// A position without an entry price is never locked.
func Locked(pos *types.Position, tick decimal.Decimal) bool {
	if !pos.StopLossPrice.Valid || !pos.AverageEntryPrice.IsPositive() {
		return false
	}

	distance := pos.StopLossPrice.Decimal.Sub(pos.AverageEntryPrice).Abs()

	return distance.LessThanOrEqual(tick.Mul(decimal.NewFromInt(2)))
}

// BreakevenPrice is entry moved one tick to the losing side.
func BreakevenPrice(pos *types.Position, tick decimal.Decimal) decimal.Decimal {
	if pos.Direction == types.DirectionShort {
		return pos.AverageEntryPrice.Add(tick)
	}

	return pos.AverageEntryPrice.Sub(tick)
}

// Apply executes the lock when due. Returns true when the stop-loss moved.
func (p BreakevenLockPolicy) Apply(ctx context.Context, m MarketView, pos *types.Position) (bool, error) {
	if !p.Enabled || Locked(pos, m.TickSize()) {
		return false, nil
	}

	if pos.ProgressToTakeProfit(m.CurrentPrice()) < p.TriggerPercent {
		return false, nil
	}

	if p.CloseFraction > 0 {
		qty := utils.RoundDownToStep(pos.Volume.Mul(decimal.NewFromFloat(p.CloseFraction)), m.QtyStep())
		if qty.IsPositive() && qty.LessThan(pos.Volume) {
			if err := closeAtMarket(ctx, m, pos, qty); err != nil {
				return false, err
			}
		}
	}

	stop := utils.RoundToTick(BreakevenPrice(pos, m.TickSize()), m.TickSize())
	if err := m.Exchange().SetStopLoss(ctx, m.Pair(), stop); err != nil {
		return false, err
	}

	pos.StopLossPrice = decimal.NewNullDecimal(stop)
	m.Runtime().Log.Info("Breakeven lock",
		zap.String("id", pos.ID),
		zap.String("stop_loss", stop.String()),
	)

	return true, nil
}

func closeAtMarket(ctx context.Context, m MarketView, pos *types.Position, qty decimal.Decimal) error {
	res, err := m.Exchange().ClosePosition(ctx, m.Pair(), pos.Direction, optional.Some(qty))
	if err != nil {
		return err
	}

	position.ReduceVolume(pos, res.Qty, res.Price, m.Runtime().Now())

	return nil
}
