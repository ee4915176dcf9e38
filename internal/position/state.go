// Package position implements the position lifecycle: the status state
// machine, synchronization against the venue and take-profit/stop-loss upkeep.
package position

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/shopspring/decimal"
)

var allowedTransitions = map[types.PositionStatus][]types.PositionStatus{
	types.PositionStatusPending: {types.PositionStatusOpen, types.PositionStatusCanceled, types.PositionStatusError},
	types.PositionStatusOpen:    {types.PositionStatusFinished, types.PositionStatusError},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to types.PositionStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// Transition moves pos to the given status. An illegal transition is a logic
// error and panics.
func Transition(pos *types.Position, to types.PositionStatus, now time.Time) {
	if !CanTransition(pos.Status, to) {
		panic(fmt.Sprintf("position %s: invalid transition %s -> %s", pos.ID, pos.Status, to))
	}

	pos.Status = to
	pos.UpdatedAt = now

	if !to.IsActive() {
		pos.FinishedAt = optional.Some(now)
	}
}

// Finish closes an OPEN position at closePrice and books the realized PnL of the remaining volume.
func Finish(pos *types.Position, reason types.FinishReason, closePrice decimal.Decimal, now time.Time) {
	pos.RealizedPnl = pos.RealizedPnl.Add(pos.PnlAt(closePrice, pos.Volume))
	pos.ClosePrice = decimal.NewNullDecimal(closePrice)
	pos.CurrentPrice = closePrice
	pos.FinishReason = reason
	Transition(pos, types.PositionStatusFinished, now)
}

// Cancel abandons a PENDING position.
func Cancel(pos *types.Position, reason types.FinishReason, now time.Time) {
	pos.FinishReason = reason
	Transition(pos, types.PositionStatusCanceled, now)
}

// ReduceVolume books the PnL of a partial close and lowers the recorded volume.
func ReduceVolume(pos *types.Position, qty, price decimal.Decimal, now time.Time) {
	if qty.GreaterThan(pos.Volume) {
		qty = pos.Volume
	}

	pos.RealizedPnl = pos.RealizedPnl.Add(pos.PnlAt(price, qty))
	pos.Volume = pos.Volume.Sub(qty)
	pos.UpdatedAt = now
}

// NewParams describes a position created by an entry handler.
type NewParams struct {
	Pair                    types.Pair
	Ticker                  string
	Direction               types.Direction
	EntryPrice              decimal.Decimal
	Volume                  decimal.Decimal
	EntryOrderID            string
	ExpectedProfitPercent   float64
	ExpectedStopLossPercent float64
}

// New creates a PENDING position. Market entries carry no order id and open on the next sync.
func New(p NewParams, now time.Time) *types.Position {
	return &types.Position{
		ID:                      uuid.NewString(),
		ExchangeName:            p.Pair.ExchangeName,
		Ticker:                  p.Ticker,
		MarketType:              p.Pair.MarketType,
		Direction:               p.Direction,
		Status:                  types.PositionStatusPending,
		InitialEntryPrice:       p.EntryPrice,
		AverageEntryPrice:       p.EntryPrice,
		CurrentPrice:            p.EntryPrice,
		Volume:                  p.Volume,
		BaseCurrency:            p.Pair.BaseCurrency,
		QuoteCurrency:           p.Pair.QuoteCurrency,
		EntryOrderID:            p.EntryOrderID,
		ExpectedProfitPercent:   p.ExpectedProfitPercent,
		ExpectedStopLossPercent: p.ExpectedStopLossPercent,
		RealizedPnl:             decimal.Zero,
		CreatedAt:               now,
		UpdatedAt:               now,
		FinishedAt:              optional.None[time.Time](),
	}
}
