package strategy

import (
	"context"
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/grid"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/internal/utils"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NameDCA is the registry name of the DCA family.
const NameDCA = "dca"

// minTriggerOffsetPercent filters out levels too close to entry to matter.
const minTriggerOffsetPercent = 0.01

func dcaSpecs() []ParamSpec {
	return append(commonSpecs(1.0, 0), []ParamSpec{
		{Name: "number_of_levels", Kind: KindInt, Default: 5, Min: 1, Max: 50, Step: 1},
		{Name: "volume_multiplier", Kind: KindFloat, Default: 1.5, Min: 1, Max: 5, Step: 0.1},
		{Name: "price_deviation", Kind: KindFloat, Default: 1.0, Min: 0.05, Max: 50, Step: 0.1},
		{Name: "price_deviation_multiplier", Kind: KindFloat, Default: 1.2, Min: 1, Max: 5, Step: 0.1},
		{Name: "offset_mode", Kind: KindChoice, Default: string(types.OffsetModeFromEntry), Choices: []string{string(types.OffsetModeFromEntry), string(types.OffsetModeFromPrevious)}},
		{Name: "always_market_entry", Kind: KindBool, Default: false},
		{Name: "use_limit_orders", Kind: KindBool, Default: true},
	}...)
}

// DCA averages into losing positions along an order grid.
type DCA struct {
	base
}

func newDCA(params Params) (Strategy, error) {
	b, err := newBase(NameDCA, params)
	if err != nil {
		return nil, err
	}

	s := &DCA{base: b}

	// validate the grid once at construction
	if _, err := s.buildGrid(types.DirectionLong); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *DCA) buildGrid(d types.Direction) (*grid.Grid, error) {
	return grid.FromParameters(grid.Parameters{
		NumberOfLevels:           s.params.Int("number_of_levels"),
		EntryVolume:              decimal.NewFromFloat(s.params.Float("entry_volume")),
		VolumeMultiplier:         s.params.Float("volume_multiplier"),
		PriceDeviation:           s.params.Float("price_deviation"),
		PriceDeviationMultiplier: s.params.Float("price_deviation_multiplier"),
		Direction:                d,
		ExpectedProfit:           s.params.Float("take_profit_percent"),
		OffsetMode:               types.OffsetMode(s.params.String("offset_mode")),
		VolumeMode:               s.volumeMode(),
		AlwaysMarketEntry:        s.params.Bool("always_market_entry"),
	})
}

// Grid returns the grid the strategy trades for direction d.
func (s *DCA) Grid(d types.Direction) (*grid.Grid, error) {
	return s.buildGrid(d)
}

func (s *DCA) useLimitOrders() bool {
	return s.params.Bool("use_limit_orders")
}

func (s *DCA) marketEntry() bool {
	return s.params.Bool("always_market_entry") || !s.useLimitOrders()
}

func (s *DCA) HandleLong(ctx context.Context, m MarketView) (optional.Option[*types.Position], error) {
	return s.open(ctx, m, types.DirectionLong)
}

func (s *DCA) HandleShort(ctx context.Context, m MarketView) (optional.Option[*types.Position], error) {
	return s.open(ctx, m, types.DirectionShort)
}

func (s *DCA) newPosition(m MarketView, d types.Direction, entry, volume decimal.Decimal, orderID string) *types.Position {
	return position.New(position.NewParams{
		Pair:                    m.Pair(),
		Ticker:                  m.Ticker(),
		Direction:               d,
		EntryPrice:              entry,
		Volume:                  volume,
		EntryOrderID:            orderID,
		ExpectedProfitPercent:   s.params.Float("take_profit_percent"),
		ExpectedStopLossPercent: s.params.Float("stop_loss_percent"),
	}, m.Runtime().Now())
}

func (s *DCA) open(ctx context.Context, m MarketView, d types.Direction) (optional.Option[*types.Position], error) {
	none := optional.None[*types.Position]()

	g, err := s.buildGrid(d)
	if err != nil {
		return none, err
	}

	tctx, err := exchange.TradingContext(ctx, m.Exchange(), m.Pair())
	if err != nil {
		return none, err
	}

	orders := g.BuildOrderMap(tctx)
	if len(orders) == 0 || !orders[0].Volume.IsPositive() {
		return none, errors.New(errors.ErrCodeInvalidVolume, "grid resolves to zero entry volume")
	}

	if s.marketEntry() {
		return s.openAtMarket(ctx, m, d, orders)
	}

	return s.openLimitGrid(ctx, m, d, orders)
}

func (s *DCA) openAtMarket(ctx context.Context, m MarketView, d types.Direction, orders []grid.Order) (optional.Option[*types.Position], error) {
	res, err := openMarket(ctx, m, d, orders[0].Volume)
	if err != nil {
		return optional.None[*types.Position](), err
	}

	pos := s.newPosition(m, d, res.Price, res.Qty, "")

	if s.useLimitOrders() {
		s.placeAveragingOrders(ctx, m, d, res.Price, orders[1:])
	}

	if _, err := applyProtection(ctx, m, pos, true); err != nil {
		m.Runtime().Log.Warn("Failed to set protection orders", zap.String("ticker", m.Ticker()), zap.Error(err))
	}

	return insertPosition(ctx, m, pos)
}

// openLimitGrid rests the entry and every averaging level as limit orders.
// The entry rests at the current price.
func (s *DCA) openLimitGrid(ctx context.Context, m MarketView, d types.Direction, orders []grid.Order) (optional.Option[*types.Position], error) {
	price := m.CurrentPrice()
	tp := optional.Some(s.params.Float("take_profit_percent"))

	entryID, err := m.Exchange().PlaceLimitOrder(ctx, m.Pair(), orders[0].Volume, price, d, tp)
	if err != nil {
		return optional.None[*types.Position](), err
	}

	s.placeAveragingOrders(ctx, m, d, price, orders[1:])

	volume := utils.QuoteToBase(orders[0].Volume, price, m.QtyStep())
	pos := s.newPosition(m, d, price, volume, entryID)

	return insertPosition(ctx, m, pos)
}

func (s *DCA) placeAveragingOrders(ctx context.Context, m MarketView, d types.Direction, entry decimal.Decimal, orders []grid.Order) {
	for _, o := range orders {
		price := utils.RoundToTick(o.Price(entry), m.TickSize())
		if !price.IsPositive() {
			m.Runtime().Log.Warn("Skipping grid level with non-positive price",
				zap.Int("level", o.Level),
				zap.Float64("offset_percent", o.OffsetPercent),
			)

			continue
		}

		if _, err := m.Exchange().PlaceLimitOrder(ctx, m.Pair(), o.Volume, price, d, optional.None[float64]()); err != nil {
			m.Runtime().Log.Warn("Failed to place grid level", zap.Int("level", o.Level), zap.Error(err))
		}
	}
}

// UpdatePosition re-issues the take-profit in limit-order mode. In
// market-order mode it also walks the grid and triggers at most one level.
func (s *DCA) UpdatePosition(ctx context.Context, m MarketView, pos *types.Position) error {
	if pos.Status != types.PositionStatusOpen {
		return nil
	}

	changed := false

	if !s.useLimitOrders() {
		triggered, err := s.triggerNextLevel(ctx, m, pos)
		if err != nil {
			return err
		}

		changed = triggered
	}

	protected, err := applyProtection(ctx, m, pos, true)
	if err != nil {
		return err
	}

	if changed || protected {
		pos.UpdatedAt = m.Runtime().Now()

		return m.Positions().Update(ctx, pos)
	}

	return nil
}

// triggerNextLevel fills the first untriggered level whose threshold the
// price has passed. Levels at or below FilledLevel are never triggered again.
func (s *DCA) triggerNextLevel(ctx context.Context, m MarketView, pos *types.Position) (bool, error) {
	g, err := s.buildGrid(pos.Direction)
	if err != nil {
		return false, err
	}

	tctx, err := exchange.TradingContext(ctx, m.Exchange(), m.Pair())
	if err != nil {
		return false, err
	}

	orders := g.BuildOrderMap(tctx)
	current := m.CurrentPrice()

	for i := pos.FilledLevel + 1; i < len(orders); i++ {
		o := orders[i]
		if math.Abs(o.OffsetPercent) < minTriggerOffsetPercent {
			continue
		}

		threshold := o.Price(pos.InitialEntryPrice)
		reached := current.LessThanOrEqual(threshold)

		if pos.Direction == types.DirectionShort {
			reached = current.GreaterThanOrEqual(threshold)
		}

		if !reached {
			return false, nil
		}

		res, err := addAtMarket(ctx, m, pos.Direction, o.Volume)
		if err != nil {
			return false, err
		}

		pos.ApplyFill(res.Qty, res.Price)
		pos.FilledLevel = i

		m.Runtime().Log.Info("DCA level filled",
			zap.String("id", pos.ID),
			zap.Int("level", i),
			zap.String("price", res.Price.String()),
			zap.String("average_entry", pos.AverageEntryPrice.String()),
		)

		return true, nil
	}

	return false, nil
}
