// Package market ties one configured pair to its candles, indicators,
// strategy and active position, and runs the per-cycle decision loop.
package market

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/indicator"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/strategy"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds everything needed to build a market.
type Config struct {
	Pair      types.Pair
	Exchange  exchange.Exchange
	Positions position.Repository
	Strategy  strategy.Strategy
	// Candles seeds the arena. When empty the market loads history from the exchange.
	Candles []types.Candle
	// HistoryLimit is the number of candles fetched on load and refresh.
	// Zero means twice the strategy warm-up.
	HistoryLimit int
}

// Market is the live state of one pair. It implements strategy.MarketView.
type Market struct {
	rt       *runtime.Context
	pair     types.Pair
	ticker   string
	ex       exchange.Exchange
	repo     position.Repository
	strat    strategy.Strategy
	sync     *position.Synchronizer
	candles  *types.CandleSeries
	registry indicator.IndicatorRegistry
	snapshot indicator.Snapshot
	price    decimal.Decimal
	tickSize decimal.Decimal
	qtyStep  decimal.Decimal
	limit    int
	log      *logger.Logger
	key      types.PositionKey
}

var _ strategy.MarketView = (*Market)(nil)

// New builds and activates a market. It fails with an InsufficientCandlesError
// when fewer candles than the strategy warm-up are available.
func New(ctx context.Context, rt *runtime.Context, cfg Config) (*Market, error) {
	ticker := cfg.Exchange.PairToTicker(cfg.Pair)

	registry, err := newRegistry(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	required := max(cfg.Strategy.RequiredCandles(), indicator.MaxRequiredCandles(registry))

	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = max(required*2, 100)
	}

	m := &Market{
		rt:       rt,
		pair:     cfg.Pair,
		ticker:   ticker,
		ex:       cfg.Exchange,
		repo:     cfg.Positions,
		strat:    cfg.Strategy,
		sync:     position.NewSynchronizer(rt, cfg.Exchange, cfg.Positions),
		registry: registry,
		limit:    limit,
		log:      rt.Log.WithFields(zap.String("ticker", ticker), zap.String("strategy", cfg.Strategy.Name())),
		key: types.PositionKey{
			ExchangeName: cfg.Pair.ExchangeName,
			Ticker:       ticker,
			MarketType:   cfg.Pair.MarketType,
		},
	}

	candles := cfg.Candles
	if len(candles) == 0 {
		fetched, err := cfg.Exchange.GetCandles(ctx, cfg.Pair, limit, optional.None[time.Time](), optional.None[time.Time]())
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeExchangeUnavailable, err, "load candles for %s", ticker)
		}

		candles = fetched
	}

	if len(candles) < required {
		return nil, errors.NewInsufficientCandlesError(required, len(candles), ticker)
	}

	m.candles = types.NewCandleSeries(candles)

	tick, err := cfg.Exchange.GetTickSize(ctx, cfg.Pair)
	if err != nil {
		return nil, err
	}

	step, err := cfg.Exchange.GetQtyStep(ctx, cfg.Pair)
	if err != nil {
		return nil, err
	}

	m.tickSize, m.qtyStep = tick, step

	if last, ok := m.candles.Last(); ok {
		m.price = decimal.NewFromFloat(last.Close)
	}

	m.UpdateIndicators()

	return m, nil
}

func newRegistry(s strategy.Strategy) (indicator.IndicatorRegistry, error) {
	registry := indicator.NewIndicatorRegistry()

	for _, ic := range s.Indicators() {
		ind, err := indicator.New(ic)
		if err != nil {
			return nil, err
		}

		if err := registry.RegisterIndicator(ind); err != nil && !errors.HasCode(err, errors.ErrCodeIndicatorAlreadyExists) {
			return nil, err
		}
	}

	return registry, nil
}

// Warmup returns how many candles a market running s needs before it activates.
func Warmup(s strategy.Strategy) (int, error) {
	registry, err := newRegistry(s)
	if err != nil {
		return 0, err
	}

	return max(s.RequiredCandles(), indicator.MaxRequiredCandles(registry)), nil
}

func (m *Market) Pair() types.Pair               { return m.pair }
func (m *Market) Ticker() string                 { return m.ticker }
func (m *Market) Candles() *types.CandleSeries   { return m.candles }
func (m *Market) Indicators() indicator.Snapshot { return m.snapshot }
func (m *Market) CurrentPrice() decimal.Decimal  { return m.price }
func (m *Market) TickSize() decimal.Decimal      { return m.tickSize }
func (m *Market) QtyStep() decimal.Decimal       { return m.qtyStep }
func (m *Market) Exchange() exchange.Exchange    { return m.ex }
func (m *Market) Positions() position.Repository { return m.repo }
func (m *Market) Runtime() *runtime.Context      { return m.rt }
func (m *Market) Strategy() strategy.Strategy    { return m.strat }
func (m *Market) PositionKey() types.PositionKey { return m.key }

// UpsertCandle adds or overwrites the newest candle.
func (m *Market) UpsertCandle(c types.Candle) {
	m.candles.Upsert(c)
}

// RefreshCandles pulls the latest candles from the exchange into the arena.
func (m *Market) RefreshCandles(ctx context.Context) error {
	candles, err := m.ex.GetCandles(ctx, m.pair, m.limit, optional.None[time.Time](), optional.None[time.Time]())
	if err != nil {
		return err
	}

	for _, c := range candles {
		m.candles.Upsert(c)
	}

	return nil
}

// UpdateIndicators recomputes the snapshot. Indicators that fail are logged
// and left out of the snapshot.
func (m *Market) UpdateIndicators() {
	m.snapshot = m.registry.Compute(m.candles)

	for _, failure := range m.snapshot.Failures {
		m.log.Debug("Indicator skipped", zap.String("indicator", failure.Key), zap.Error(failure.Err))
	}
}

// ActivePosition returns the active position of the market, if any.
func (m *Market) ActivePosition(ctx context.Context) (optional.Option[*types.Position], error) {
	return m.repo.FindActive(ctx, m.key)
}

// Cycle runs one decision pass: refresh the price, then either manage the
// active position or look for a new entry. Entries are only taken when
// trading is enabled for the pair.
func (m *Market) Cycle(ctx context.Context) error {
	price, err := m.ex.GetCurrentPrice(ctx, m.pair)
	if err != nil {
		return err
	}

	m.price = price.Amount

	active, err := m.repo.FindActive(ctx, m.key)
	if err != nil {
		return err
	}

	if active.IsSome() {
		return m.manage(ctx, active.Unwrap())
	}

	if !m.pair.TradingEnabled {
		return nil
	}

	return m.enter(ctx)
}

func (m *Market) manage(ctx context.Context, pos *types.Position) error {
	if err := m.sync.Sync(ctx, m.pair, pos); err != nil {
		return err
	}

	if !pos.IsActive() {
		if err := m.ex.RemoveLimitOrders(ctx, m.pair); err != nil {
			m.log.Warn("Failed to remove leftover orders", zap.Error(err))
		}

		return nil
	}

	if pos.Status != types.PositionStatusOpen {
		return nil
	}

	return m.strat.UpdatePosition(ctx, m, pos)
}

func (m *Market) enter(ctx context.Context) error {
	var (
		opened optional.Option[*types.Position]
		err    error
	)

	switch {
	case m.strat.ShouldLong(ctx, m):
		opened, err = m.strat.HandleLong(ctx, m)
	case m.strat.ShouldShort(ctx, m):
		opened, err = m.strat.HandleShort(ctx, m)
	default:
		return nil
	}

	if err != nil {
		return err
	}

	if opened.IsSome() {
		m.log.Debug("Entry taken", zap.String("id", opened.Unwrap().ID))
	}

	return nil
}
