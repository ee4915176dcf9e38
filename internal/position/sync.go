package position

import (
	"context"

	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// EntryDriftCancelPercent is how far price may move away from a pending
	// futures entry before the entry is canceled.
	EntryDriftCancelPercent = 0.5
	// spotVolumeTolerance absorbs fee deductions when comparing spot holdings
	// against the recorded volume.
	spotVolumeTolerance = 0.001
)

// Synchronizer reconciles stored positions with what the venue reports.
type Synchronizer struct {
	rt   *runtime.Context
	ex   exchange.Exchange
	repo Repository
}

// NewSynchronizer creates a synchronizer for one exchange.
func NewSynchronizer(rt *runtime.Context, ex exchange.Exchange, repo Repository) *Synchronizer {
	return &Synchronizer{rt: rt, ex: ex, repo: repo}
}

// Sync runs one reconciliation pass for pos. UpdatedAt is stamped and the
// position persisted on every successful pass, changed or not.
func (s *Synchronizer) Sync(ctx context.Context, pair types.Pair, pos *types.Position) error {
	if !pos.IsActive() {
		return nil
	}

	price, err := s.ex.GetCurrentPrice(ctx, pair)
	if err != nil {
		return err
	}

	pos.CurrentPrice = price.Amount

	if pair.MarketType.IsFutures() {
		err = s.syncFutures(ctx, pair, pos)
	} else {
		err = s.syncSpot(ctx, pair, pos)
	}

	if err != nil {
		return err
	}

	pos.UpdatedAt = s.rt.Now()

	return s.repo.Update(ctx, pos)
}

func (s *Synchronizer) entryOrderActive(ctx context.Context, pair types.Pair, pos *types.Position) (bool, error) {
	if pos.EntryOrderID == "" {
		return false, nil
	}

	return s.ex.HasActiveOrder(ctx, pair, pos.EntryOrderID)
}

func (s *Synchronizer) syncSpot(ctx context.Context, pair types.Pair, pos *types.Position) error {
	if pos.Status == types.PositionStatusPending {
		active, err := s.entryOrderActive(ctx, pair, pos)
		if err != nil {
			return err
		}

		if !active {
			Transition(pos, types.PositionStatusOpen, s.rt.Now())
			s.rt.Log.Info("Position opened", zap.String("id", pos.ID), zap.String("ticker", pos.Ticker))
		}

		return nil
	}

	holdings, err := s.ex.GetBalance(ctx, pos.BaseCurrency)
	if err != nil {
		return err
	}

	tolerance := pos.Volume.Mul(decimal.NewFromFloat(spotVolumeTolerance))

	switch {
	case holdings.Amount.LessThan(pos.Volume.Sub(tolerance)):
		reason, closePrice := inferCloseReason(pos, pos.CurrentPrice)
		Finish(pos, reason, closePrice, s.rt.Now())
		s.rt.Log.Info("Position finished",
			zap.String("id", pos.ID),
			zap.String("reason", string(reason)),
			zap.String("pnl", pos.RealizedPnl.String()),
		)
	case holdings.Amount.GreaterThan(pos.Volume.Add(tolerance)):
		added := holdings.Amount.Sub(pos.Volume)
		pos.ApplyFill(added, pos.CurrentPrice)
		s.rt.Log.Info("External fill detected",
			zap.String("id", pos.ID),
			zap.String("added", added.String()),
			zap.String("average_entry", pos.AverageEntryPrice.String()),
		)
	}

	return nil
}

func (s *Synchronizer) syncFutures(ctx context.Context, pair types.Pair, pos *types.Position) error {
	venue, err := s.ex.GetCurrentFuturesPosition(ctx, pair)
	if err != nil {
		return err
	}

	if pos.Status == types.PositionStatusPending {
		active, err := s.entryOrderActive(ctx, pair, pos)
		if err != nil {
			return err
		}

		if active {
			drift := types.NewMoney(pos.InitialEntryPrice, pos.QuoteCurrency).
				PercentDifference(types.NewMoney(pos.CurrentPrice, pos.QuoteCurrency))
			if drift < 0 {
				drift = -drift
			}

			if drift > EntryDriftCancelPercent {
				if err := s.ex.RemoveLimitOrders(ctx, pair); err != nil {
					return err
				}

				Cancel(pos, types.FinishReasonEntryDrift, s.rt.Now())
				s.rt.Log.Warn("Pending entry canceled on price drift",
					zap.String("id", pos.ID),
					zap.Float64("drift_percent", drift),
				)
			}

			return nil
		}

		if venue.IsNone() {
			Cancel(pos, types.FinishReasonExternal, s.rt.Now())
			s.rt.Log.Warn("Entry order gone without a venue position", zap.String("id", pos.ID))

			return nil
		}

		refreshFromVenue(pos, venue.Unwrap())
		Transition(pos, types.PositionStatusOpen, s.rt.Now())
		s.rt.Log.Info("Position opened",
			zap.String("id", pos.ID),
			zap.String("ticker", pos.Ticker),
			zap.String("volume", pos.Volume.String()),
		)

		return nil
	}

	if venue.IsNone() {
		reason, closePrice := inferCloseReason(pos, pos.CurrentPrice)
		Finish(pos, reason, closePrice, s.rt.Now())
		s.rt.Log.Info("Position finished",
			zap.String("id", pos.ID),
			zap.String("reason", string(reason)),
			zap.String("pnl", pos.RealizedPnl.String()),
		)

		return nil
	}

	refreshFromVenue(pos, venue.Unwrap())

	return nil
}

// refreshFromVenue copies the venue's view. A volume drop not yet booked is
// a fill of a reduce order. It realizes PnL at the price of the resting
// reduce order when one was placed, otherwise at the current price.
func refreshFromVenue(pos *types.Position, venue exchange.ExchangePosition) {
	if venue.MarkPrice.IsPositive() {
		pos.CurrentPrice = venue.MarkPrice
	}

	if venue.Volume.IsPositive() && venue.Volume.LessThan(pos.Volume) && pos.Status == types.PositionStatusOpen {
		exit := pos.CurrentPrice
		if pos.ReduceOrderPrice.Valid {
			exit = pos.ReduceOrderPrice.Decimal
			pos.ReduceOrderPrice = decimal.NullDecimal{}
		}

		reduced := pos.Volume.Sub(venue.Volume)
		pos.RealizedPnl = pos.RealizedPnl.Add(pos.PnlAt(exit, reduced))
	}

	if venue.Volume.IsPositive() {
		pos.Volume = venue.Volume
	}

	if venue.AverageEntryPrice.IsPositive() {
		pos.AverageEntryPrice = venue.AverageEntryPrice
	}
}

// inferCloseReason decides why the venue no longer holds a position: the
// take-profit or stop-loss when price is at or beyond it, otherwise external.
func inferCloseReason(pos *types.Position, price decimal.Decimal) (types.FinishReason, decimal.Decimal) {
	long := pos.Direction == types.DirectionLong

	if pos.TakeProfitPrice.Valid {
		tp := pos.TakeProfitPrice.Decimal
		if (long && price.GreaterThanOrEqual(tp)) || (!long && price.LessThanOrEqual(tp)) {
			return types.FinishReasonTakeProfit, tp
		}
	}

	if pos.StopLossPrice.Valid {
		sl := pos.StopLossPrice.Decimal
		if (long && price.LessThanOrEqual(sl)) || (!long && price.GreaterThanOrEqual(sl)) {
			return types.FinishReasonStopLoss, sl
		}
	}

	return types.FinishReasonExternal, price
}
