package strategy

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/grid"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NameSingleEntry is the registry name of the single-entry family.
const NameSingleEntry = "single_entry"

func singleEntrySpecs() []ParamSpec {
	specs := commonSpecs(10.0, 5.0)
	for i := range specs {
		if specs[i].Name == "stop_loss_percent" {
			specs[i].Min = 0.1
		}
	}

	return append(specs, []ParamSpec{
		{Name: "partial_close_enabled", Kind: KindBool, Default: false},
		{Name: "partial_close_trigger_percent", Kind: KindFloat, Default: 50.0, Min: 1, Max: 99, Step: 5},
		{Name: "partial_close_fraction", Kind: KindFloat, Default: 0.5, Min: 0.05, Max: 0.95, Step: 0.05},
		{Name: "partial_close_use_limit", Kind: KindBool, Default: false},
		{Name: "breakeven_enabled", Kind: KindBool, Default: false},
		{Name: "breakeven_trigger_percent", Kind: KindFloat, Default: 70.0, Min: 1, Max: 99, Step: 5},
		{Name: "breakeven_close_fraction", Kind: KindFloat, Default: 0.25, Min: 0, Max: 0.95, Step: 0.05},
	}...)
}

// SingleEntry opens one position with a fixed stop-loss and take-profit.
type SingleEntry struct {
	base
	partial   *PartialClosePolicy
	breakeven BreakevenLockPolicy
}

func newSingleEntry(params Params) (Strategy, error) {
	b, err := newBase(NameSingleEntry, params)
	if err != nil {
		return nil, err
	}

	return &SingleEntry{
		base: b,
		partial: &PartialClosePolicy{
			Enabled:        params.Bool("partial_close_enabled"),
			TriggerPercent: params.Float("partial_close_trigger_percent"),
			Fraction:       params.Float("partial_close_fraction"),
			UseLimit:       params.Bool("partial_close_use_limit"),
		},
		breakeven: BreakevenLockPolicy{
			Enabled:        params.Bool("breakeven_enabled"),
			TriggerPercent: params.Float("breakeven_trigger_percent"),
			CloseFraction:  params.Float("breakeven_close_fraction"),
		},
	}, nil
}

func (s *SingleEntry) HandleLong(ctx context.Context, m MarketView) (optional.Option[*types.Position], error) {
	return s.open(ctx, m, types.DirectionLong)
}

func (s *SingleEntry) HandleShort(ctx context.Context, m MarketView) (optional.Option[*types.Position], error) {
	return s.open(ctx, m, types.DirectionShort)
}

func (s *SingleEntry) open(ctx context.Context, m MarketView, d types.Direction) (optional.Option[*types.Position], error) {
	none := optional.None[*types.Position]()

	tctx, err := exchange.TradingContext(ctx, m.Exchange(), m.Pair())
	if err != nil {
		return none, err
	}

	level := grid.Level{RawVolume: decimal.NewFromFloat(s.params.Float("entry_volume")), VolumeMode: s.volumeMode()}

	quote := level.ResolveVolume(tctx)
	if !quote.IsPositive() {
		return none, errors.New(errors.ErrCodeInvalidVolume, "entry volume resolves to zero")
	}

	res, err := openMarket(ctx, m, d, quote)
	if err != nil {
		return none, err
	}

	pos := position.New(position.NewParams{
		Pair:                    m.Pair(),
		Ticker:                  m.Ticker(),
		Direction:               d,
		EntryPrice:              res.Price,
		Volume:                  res.Qty,
		ExpectedProfitPercent:   s.params.Float("take_profit_percent"),
		ExpectedStopLossPercent: s.params.Float("stop_loss_percent"),
	}, m.Runtime().Now())

	if _, err := applyProtection(ctx, m, pos, false); err != nil {
		m.Runtime().Log.Warn("Failed to set protection orders", zap.String("ticker", m.Ticker()), zap.Error(err))
	}

	return insertPosition(ctx, m, pos)
}

// UpdatePosition keeps the fixed take-profit and stop-loss in place and runs
// the partial-close and breakeven policies.
func (s *SingleEntry) UpdatePosition(ctx context.Context, m MarketView, pos *types.Position) error {
	if pos.Status != types.PositionStatusOpen {
		return nil
	}

	changed, err := applyProtection(ctx, m, pos, false)
	if err != nil {
		return err
	}

	partial, err := s.partial.Apply(ctx, m, pos)
	if err != nil {
		return err
	}

	locked, err := s.breakeven.Apply(ctx, m, pos)
	if err != nil {
		return err
	}

	if changed || partial || locked {
		pos.UpdatedAt = m.Runtime().Now()

		return m.Positions().Update(ctx, pos)
	}

	return nil
}
