// Package strategy holds the trading decision logic. A strategy is composed of
// capability interfaces and policy objects injected per instance, and runs
// unchanged against live drivers and the simulated exchange.
package strategy

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/indicator"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/shopspring/decimal"
)

// MarketView is the part of a market a strategy may read and act through.
type MarketView interface {
	Pair() types.Pair
	Ticker() string
	Candles() *types.CandleSeries
	Indicators() indicator.Snapshot
	CurrentPrice() decimal.Decimal
	TickSize() decimal.Decimal
	QtyStep() decimal.Decimal
	Exchange() exchange.Exchange
	Positions() position.Repository
	Runtime() *runtime.Context
}

// EntryDecider answers whether a new position should be opened now.
type EntryDecider interface {
	ShouldLong(ctx context.Context, m MarketView) bool
	ShouldShort(ctx context.Context, m MarketView) bool
}

// EntryHandler opens a position. None means no position was created.
type EntryHandler interface {
	HandleLong(ctx context.Context, m MarketView) (optional.Option[*types.Position], error)
	HandleShort(ctx context.Context, m MarketView) (optional.Option[*types.Position], error)
}

// PositionUpdater manages an active position once per cycle.
type PositionUpdater interface {
	UpdatePosition(ctx context.Context, m MarketView, pos *types.Position) error
}

// Strategy is one configured strategy instance.
type Strategy interface {
	EntryDecider
	EntryHandler
	PositionUpdater

	Name() string
	Params() Params
	// Indicators lists the indicators the strategy reads from the market snapshot.
	Indicators() []indicator.Config
	// RequiredCandles is the warm-up the market needs before the strategy may act.
	RequiredCandles() int
}
