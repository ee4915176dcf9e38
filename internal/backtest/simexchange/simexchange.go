// Package simexchange is an in-process venue used by backtests. It implements
// exchange.Exchange against a virtual balance so strategies run unchanged.
package simexchange

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/backtest/commission_fee"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultName = "simulation"

var (
	DefaultTickSize = decimal.RequireFromString("0.01")
	DefaultQtyStep  = decimal.RequireFromString("0.000001")
)

// Config configures a simulated exchange.
type Config struct {
	Name           string
	InitialBalance decimal.Decimal
	Currency       string
	// Leverage applies to futures pairs. Spot always trades at 1x.
	Leverage   int
	Commission commission_fee.CommissionFee
	TickSize   decimal.Decimal
	QtyStep    decimal.Decimal
	// Reference, when set, supplies tick size and qty step per pair.
	Reference exchange.Exchange
}

// holding is the open venue position of one ticker.
type holding struct {
	pair      types.Pair
	direction types.Direction
	qty       decimal.Decimal
	avgEntry  decimal.Decimal
	margin    decimal.Decimal
	tp        decimal.NullDecimal
	sl        decimal.NullDecimal
}

type orderKind int

const (
	orderOpen orderKind = iota
	orderReduce
)

type limitOrder struct {
	id        string
	kind      orderKind
	pair      types.Pair
	direction types.Direction
	// quote is the volume of open orders, qty the size of reduce orders.
	quote     decimal.Decimal
	qty       decimal.Decimal
	price     decimal.Decimal
	tpPercent optional.Option[float64]
	createdAt time.Time
}

// Exchange is the simulated venue. It is not safe for concurrent use; every
// backtest run owns its instance.
type Exchange struct {
	cfg     Config
	clock   runtime.Clock
	log     *logger.Logger
	balance decimal.Decimal
	prices  map[string]decimal.Decimal
	candles map[string][]types.Candle
	// holdings and orders are keyed by ticker.
	holdings map[string]*holding
	orders   map[string][]limitOrder
	ticks    map[string]decimal.Decimal
	steps    map[string]decimal.Decimal
	fees     decimal.Decimal
	seq      int
}

// New creates a simulated exchange. Missing settings fall back to defaults:
// zero commission, 1x leverage, USDT balance currency.
func New(cfg Config, clock runtime.Clock, log *logger.Logger) *Exchange {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}

	if cfg.Currency == "" {
		cfg.Currency = "USDT"
	}

	if cfg.Leverage < 1 {
		cfg.Leverage = 1
	}

	if cfg.Commission == nil {
		cfg.Commission = commission_fee.NewZeroCommissionFee()
	}

	if !cfg.TickSize.IsPositive() {
		cfg.TickSize = DefaultTickSize
	}

	if !cfg.QtyStep.IsPositive() {
		cfg.QtyStep = DefaultQtyStep
	}

	return &Exchange{
		cfg:      cfg,
		clock:    clock,
		log:      log,
		balance:  cfg.InitialBalance,
		prices:   make(map[string]decimal.Decimal),
		candles:  make(map[string][]types.Candle),
		holdings: make(map[string]*holding),
		orders:   make(map[string][]limitOrder),
		ticks:    make(map[string]decimal.Decimal),
		steps:    make(map[string]decimal.Decimal),
	}
}

var _ exchange.Exchange = (*Exchange)(nil)

func (e *Exchange) Name() string { return e.cfg.Name }

func (e *Exchange) Connect(context.Context) error { return nil }

func (e *Exchange) Disconnect(context.Context) error { return nil }

func (e *Exchange) PairToTicker(pair types.Pair) string {
	return pair.BaseCurrency + pair.QuoteCurrency
}

func (e *Exchange) leverage(pair types.Pair) int {
	if pair.MarketType.IsFutures() {
		return e.cfg.Leverage
	}

	return 1
}

// GetCandles returns the loaded candles opened at or before the clock, newest
// limit of them, ascending.
func (e *Exchange) GetCandles(_ context.Context, pair types.Pair, limit int, start, end optional.Option[time.Time]) ([]types.Candle, error) {
	now := e.clock.Now()

	var out []types.Candle

	for _, c := range e.candles[e.PairToTicker(pair)] {
		if c.OpenTime.After(now) {
			break
		}

		if start.IsSome() && c.OpenTime.Before(start.Unwrap()) {
			continue
		}

		if end.IsSome() && c.OpenTime.After(end.Unwrap()) {
			continue
		}

		out = append(out, c)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}

	return out, nil
}

func (e *Exchange) GetCurrentPrice(_ context.Context, pair types.Pair) (types.Money, error) {
	price, ok := e.prices[e.PairToTicker(pair)]
	if !ok {
		return types.Money{}, errors.Newf(errors.ErrCodeBacktestStateError, "no price for %s yet", pair.Symbol())
	}

	return types.NewMoney(price, pair.QuoteCurrency), nil
}

// GetBalance returns the free quote balance, or the held quantity when
// currency is the base currency of a pair with an open holding.
func (e *Exchange) GetBalance(_ context.Context, currency string) (types.Money, error) {
	if currency == e.cfg.Currency {
		return types.NewMoney(e.freeBalance(), currency), nil
	}

	qty := decimal.Zero

	for _, h := range e.holdings {
		if h.pair.BaseCurrency == currency {
			qty = qty.Add(h.qty)
		}
	}

	return types.NewMoney(qty, currency), nil
}

func (e *Exchange) GetCurrentFuturesPosition(_ context.Context, pair types.Pair) (optional.Option[exchange.ExchangePosition], error) {
	ticker := e.PairToTicker(pair)

	h, ok := e.holdings[ticker]
	if !ok {
		return optional.None[exchange.ExchangePosition](), nil
	}

	price := e.prices[ticker]

	return optional.Some(exchange.ExchangePosition{
		Direction:         h.direction,
		Volume:            h.qty,
		AverageEntryPrice: h.avgEntry,
		MarkPrice:         price,
		UnrealizedPnl:     unrealized(h, price),
		TakeProfitPrice:   h.tp,
		StopLossPrice:     h.sl,
		Leverage:          e.leverage(pair),
	}), nil
}

func (e *Exchange) GetTickSize(ctx context.Context, pair types.Pair) (decimal.Decimal, error) {
	ticker := e.PairToTicker(pair)
	if tick, ok := e.ticks[ticker]; ok {
		return tick, nil
	}

	tick := e.cfg.TickSize

	if e.cfg.Reference != nil {
		ref, err := e.cfg.Reference.GetTickSize(ctx, pair)
		if err != nil {
			e.log.Warn("Reference tick size unavailable, using default", zap.String("ticker", ticker), zap.Error(err))
		} else if ref.IsPositive() {
			tick = ref
		}
	}

	e.ticks[ticker] = tick

	return tick, nil
}

func (e *Exchange) GetQtyStep(ctx context.Context, pair types.Pair) (decimal.Decimal, error) {
	ticker := e.PairToTicker(pair)
	if step, ok := e.steps[ticker]; ok {
		return step, nil
	}

	step := e.cfg.QtyStep

	if e.cfg.Reference != nil {
		ref, err := e.cfg.Reference.GetQtyStep(ctx, pair)
		if err != nil {
			e.log.Warn("Reference qty step unavailable, using default", zap.String("ticker", ticker), zap.Error(err))
		} else if ref.IsPositive() {
			step = ref
		}
	}

	e.steps[ticker] = step

	return step, nil
}

func (e *Exchange) GetMarginMode(context.Context, types.Pair) (optional.Option[types.MarginMode], error) {
	return optional.Some(types.MarginModeIsolated), nil
}

func (e *Exchange) GetPositionMode(context.Context, types.Pair) (optional.Option[types.PositionMode], error) {
	return optional.Some(types.PositionModeOneWay), nil
}

func (e *Exchange) GetLeverage(_ context.Context, pair types.Pair) (optional.Option[int], error) {
	return optional.Some(e.leverage(pair)), nil
}

func (e *Exchange) SetTakeProfit(_ context.Context, pair types.Pair, price decimal.Decimal) error {
	h, ok := e.holdings[e.PairToTicker(pair)]
	if !ok {
		return errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", pair.Symbol())
	}

	h.tp = decimal.NewNullDecimal(price)

	return nil
}

func (e *Exchange) SetStopLoss(_ context.Context, pair types.Pair, price decimal.Decimal) error {
	h, ok := e.holdings[e.PairToTicker(pair)]
	if !ok {
		return errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", pair.Symbol())
	}

	h.sl = decimal.NewNullDecimal(price)

	return nil
}

func unrealized(h *holding, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}

	return price.Sub(h.avgEntry).Mul(h.qty).Mul(decimal.NewFromInt(int64(h.direction.Sign())))
}

func (e *Exchange) usedMargin() decimal.Decimal {
	used := decimal.Zero
	for _, h := range e.holdings {
		used = used.Add(h.margin)
	}

	return used
}

func (e *Exchange) freeBalance() decimal.Decimal {
	return e.balance.Sub(e.usedMargin())
}
