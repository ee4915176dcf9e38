// Package backtest replays historical candles through the same market,
// strategy and position code the live worker runs, against a simulated
// exchange, and reports deterministic trade statistics.
package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-dca/internal/backtest/commission_fee"
	"github.com/rxtech-lab/argo-dca/internal/backtest/simexchange"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/market"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/strategy"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config describes one backtest run.
type Config struct {
	Pair     types.Pair
	Strategy strategy.Strategy
	// Candles holds the warm-up history followed by the replay window, ascending.
	Candles []types.Candle
	// Start is the open time of the first replayed candle. Earlier candles
	// only seed history. Zero starts right after the strategy warm-up.
	Start          time.Time
	TicksPerCandle int
	InitialBalance decimal.Decimal
	Leverage       int
	Commission     commission_fee.Broker
	// Reference, when set, supplies real tick sizes and qty steps.
	Reference exchange.Exchange
	// Positions receives the run's position records. Defaults to memory.
	Positions position.Repository
	Sink      Sink
	RunID     string
	// OnProgress is called after every replayed candle.
	OnProgress func(current, total int)
}

// Engine runs a single backtest. It is not reusable.
type Engine struct {
	cfg Config
	log *logger.Logger

	rt      *runtime.Context
	clock   *runtime.SimClock
	sim     *simexchange.Exchange
	market  *market.Market
	history []types.Candle
	replay  []types.Candle

	last        *types.Position
	opened      map[string]bool
	peak        decimal.Decimal
	maxDrawdown float64
	liquidated  bool
}

// NewEngine validates cfg and prepares the replay window.
func NewEngine(cfg Config, log *logger.Logger) (*Engine, error) {
	if cfg.Strategy == nil {
		return nil, errors.New(errors.ErrCodeBacktestConfigError, "strategy is required")
	}

	if !cfg.InitialBalance.IsPositive() {
		return nil, errors.New(errors.ErrCodeBacktestConfigError, "initial balance must be positive")
	}

	if cfg.Pair.Timeframe.Duration() <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe %q", cfg.Pair.Timeframe)
	}

	if cfg.TicksPerCandle <= 0 {
		cfg.TicksPerCandle = DefaultTicksPerCandle
	}

	if cfg.Positions == nil {
		cfg.Positions = position.NewMemoryRepository()
	}

	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}

	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	if cfg.Commission == "" {
		cfg.Commission = commission_fee.BrokerZero
	}

	// replays always trade
	cfg.Pair.TradingEnabled = true

	warmup, err := market.Warmup(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	history, replay := splitWindow(cfg.Candles, cfg.Start, warmup)
	if len(history) < warmup {
		return nil, errors.NewInsufficientCandlesError(warmup, len(history), cfg.Pair.Symbol())
	}

	if len(replay) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoCandles, "no candles to replay for %s", cfg.Pair.Symbol())
	}

	return &Engine{
		cfg:     cfg,
		log:     log,
		history: history,
		replay:  replay,
		opened:  make(map[string]bool),
		peak:    cfg.InitialBalance,
	}, nil
}

// splitWindow separates warm-up history from the candles to replay.
func splitWindow(candles []types.Candle, start time.Time, warmup int) ([]types.Candle, []types.Candle) {
	if start.IsZero() {
		n := min(warmup, len(candles))

		return candles[:n], candles[n:]
	}

	for i, c := range candles {
		if !c.OpenTime.Before(start) {
			return candles[:i], candles[i:]
		}
	}

	return candles, nil
}

// RunID identifies the run in logs, events and stored results.
func (e *Engine) RunID() string {
	return e.cfg.RunID
}

// Run replays every candle and returns the result. A liquidation ends the
// run early and is reported in the result, not as an error.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.setup(ctx); err != nil {
		e.emitError(err)

		return nil, err
	}

	e.emit(Event{Type: EventInit, Init: e.initPayload()})

	total := len(e.replay)

	for i, candle := range e.replay {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, tick := range SynthesizeTicks(candle, e.cfg.Pair.Timeframe, e.cfg.TicksPerCandle) {
			if err := e.step(ctx, tick); err != nil {
				e.emitError(err)

				return nil, err
			}

			if e.liquidated {
				break
			}
		}

		e.emitCandle(candle)

		if e.cfg.OnProgress != nil {
			e.cfg.OnProgress(i+1, total)
		}

		e.emit(Event{Type: EventProgress, Progress: &ProgressPayload{Current: i + 1, Total: total}})

		if e.liquidated {
			e.rt.Log.Warn("Run liquidated", zap.Time("at", e.clock.Now()))

			break
		}
	}

	result, err := e.result(ctx)
	if err != nil {
		e.emitError(err)

		return nil, err
	}

	e.emit(Event{Type: EventResult, Result: result})
	e.emit(Event{Type: EventDone})

	return result, nil
}

func (e *Engine) setup(ctx context.Context) error {
	e.clock = runtime.NewSimClock(e.replay[0].OpenTime)
	e.rt = runtime.NewSimulationContext(e.log, e.clock, e.cfg.RunID)

	leverage := e.cfg.Leverage
	if !e.cfg.Pair.MarketType.IsFutures() {
		leverage = 1
	}

	e.sim = simexchange.New(simexchange.Config{
		Name:           e.cfg.Pair.ExchangeName,
		InitialBalance: e.cfg.InitialBalance,
		Currency:       e.cfg.Pair.QuoteCurrency,
		Leverage:       leverage,
		Commission:     commission_fee.GetCommissionFeeHandler(e.cfg.Commission),
		Reference:      e.cfg.Reference,
	}, e.clock, e.rt.Log)

	e.sim.LoadCandles(e.cfg.Pair, e.cfg.Candles)

	if len(e.history) > 0 {
		e.sim.SetPrice(e.cfg.Pair, decimal.NewFromFloat(e.history[len(e.history)-1].Close))
	} else {
		e.sim.SetPrice(e.cfg.Pair, decimal.NewFromFloat(e.replay[0].Open))
	}

	m, err := market.New(ctx, e.rt, market.Config{
		Pair:      e.cfg.Pair,
		Exchange:  e.sim,
		Positions: e.cfg.Positions,
		Strategy:  e.cfg.Strategy,
		Candles:   e.history,
	})
	if err != nil {
		return err
	}

	e.market = m

	return nil
}

// step evaluates one tick: clock and price, indicators on the partial
// candle, one market cycle, limit fills, protective orders, liquidation.
func (e *Engine) step(ctx context.Context, tick Tick) error {
	price := decimal.NewFromFloat(tick.Price)

	e.clock.Set(tick.Time)
	e.sim.SetPrice(e.cfg.Pair, price)

	e.market.UpsertCandle(tick.Partial)
	e.market.UpdateIndicators()

	if err := e.market.Cycle(ctx); err != nil {
		// transient: the next tick retries
		e.rt.Log.Warn("Cycle failed", zap.Error(err))
		e.emitError(err)
	}

	for _, fill := range e.sim.FillLimitOrders(ctx, e.cfg.Pair) {
		e.rt.Log.Debug("Limit order filled",
			zap.String("order_id", fill.OrderID),
			zap.String("price", fill.Price.String()),
			zap.Bool("reduce", fill.Reduce),
		)
	}

	if err := e.checkProtection(ctx, price); err != nil {
		return err
	}

	equity := e.sim.Equity()
	if !equity.IsPositive() {
		if err := e.liquidate(ctx, price); err != nil {
			return err
		}
	} else {
		e.trackDrawdown(equity)
	}

	return e.observe(ctx)
}

// checkProtection resolves a take-profit or stop-loss crossed by the tick at
// the order's own price.
func (e *Engine) checkProtection(ctx context.Context, price decimal.Decimal) error {
	prot, ok := e.sim.Protection(e.cfg.Pair)
	if !ok {
		return nil
	}

	long := prot.Direction == types.DirectionLong

	if prot.TakeProfit.Valid {
		tp := prot.TakeProfit.Decimal
		if (long && price.GreaterThanOrEqual(tp)) || (!long && price.LessThanOrEqual(tp)) {
			gain := tp.Sub(prot.AverageEntry).Mul(decimal.NewFromInt(int64(prot.Direction.Sign())))
			if gain.IsPositive() {
				return e.closeAt(ctx, types.FinishReasonTakeProfit, tp)
			}

			e.rt.Log.Debug("Take-profit would realize a loss, skipped",
				zap.String("take_profit", tp.String()),
				zap.String("average_entry", prot.AverageEntry.String()),
			)
		}
	}

	if prot.StopLoss.Valid {
		sl := prot.StopLoss.Decimal
		if (long && price.LessThanOrEqual(sl)) || (!long && price.GreaterThanOrEqual(sl)) {
			return e.closeAt(ctx, types.FinishReasonStopLoss, sl)
		}
	}

	return nil
}

func (e *Engine) closeAt(ctx context.Context, reason types.FinishReason, level decimal.Decimal) error {
	if _, err := e.sim.CloseAt(e.cfg.Pair, level); err != nil {
		return err
	}

	active, err := e.market.ActivePosition(ctx)
	if err != nil {
		return err
	}

	if active.IsNone() {
		return nil
	}

	pos := active.Unwrap()
	now := e.clock.Now()

	if pos.Status == types.PositionStatusPending {
		position.Transition(pos, types.PositionStatusOpen, now)
	}

	position.Finish(pos, reason, level, now)

	e.rt.Log.Info("Position closed by protective order",
		zap.String("id", pos.ID),
		zap.String("reason", string(reason)),
		zap.String("price", level.String()),
		zap.String("pnl", pos.RealizedPnl.String()),
	)

	return e.cfg.Positions.Update(ctx, pos)
}

// liquidate ends the run: the active position is finished at the tick price,
// the account is wiped and drawdown is sealed at its worst.
func (e *Engine) liquidate(ctx context.Context, price decimal.Decimal) error {
	active, err := e.market.ActivePosition(ctx)
	if err != nil {
		return err
	}

	now := e.clock.Now()

	if active.IsSome() {
		pos := active.Unwrap()

		_, held := e.sim.Protection(e.cfg.Pair)

		switch {
		case pos.Status == types.PositionStatusPending && !held:
			position.Cancel(pos, types.FinishReasonLiquidation, now)
		default:
			if pos.Status == types.PositionStatusPending {
				position.Transition(pos, types.PositionStatusOpen, now)
			}

			position.Finish(pos, types.FinishReasonLiquidation, price, now)
		}

		if err := e.cfg.Positions.Update(ctx, pos); err != nil {
			return err
		}
	}

	e.sim.Liquidate()
	e.liquidated = true
	e.maxDrawdown = 100

	return nil
}

func (e *Engine) trackDrawdown(equity decimal.Decimal) {
	if equity.GreaterThan(e.peak) {
		e.peak = equity

		return
	}

	drawdown := e.peak.Sub(equity).Div(e.peak).Mul(decimal.NewFromInt(100)).InexactFloat64()
	e.maxDrawdown = max(e.maxDrawdown, drawdown)
}

// observe diffs the tracked position against the repository and emits the
// lifecycle events that happened during the tick.
func (e *Engine) observe(ctx context.Context) error {
	active, err := e.market.ActivePosition(ctx)
	if err != nil {
		return err
	}

	var current *types.Position
	if active.IsSome() {
		current = active.Unwrap()
	}

	if e.last != nil && (current == nil || current.ID != e.last.ID) {
		final, err := e.find(ctx, e.last.ID)
		if err != nil {
			return err
		}

		if final != nil {
			e.announce(e.last, final)
		}

		e.last = nil
	}

	if current != nil {
		e.announce(e.last, current)
		e.last = current
	}

	return nil
}

func (e *Engine) find(ctx context.Context, id string) (*types.Position, error) {
	all, err := e.cfg.Positions.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range all {
		if p.ID == id {
			return p, nil
		}
	}

	return nil, nil
}

// announce emits the events between prev (the same position one tick ago,
// or nil) and cur.
func (e *Engine) announce(prev, cur *types.Position) {
	if prev != nil && prev.ID != cur.ID {
		prev = nil
	}

	reached := cur.Status == types.PositionStatusOpen || cur.Status == types.PositionStatusFinished
	if reached && !e.opened[cur.ID] {
		e.opened[cur.ID] = true
		e.emitPosition(EventPositionOpen, cur)
	}

	if prev != nil && prev.Status == types.PositionStatusOpen {
		if cur.FilledLevel > prev.FilledLevel || (cur.IsActive() && cur.Volume.GreaterThan(prev.Volume)) {
			e.emitPosition(EventDCAFill, cur)
		}

		tick := e.market.TickSize()
		if strategy.Locked(cur, tick) && !strategy.Locked(prev, tick) {
			e.emitPosition(EventBreakevenLock, cur)
		}
	}

	if !cur.IsActive() {
		e.emitPosition(EventPositionClose, cur)
		e.emitBalance()
	}
}

func (e *Engine) result(ctx context.Context) (*Result, error) {
	positions, err := e.cfg.Positions.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	first, last := e.replay[0], e.replay[len(e.replay)-1]
	end := last.OpenTime.Add(e.cfg.Pair.Timeframe.Duration())

	if e.liquidated {
		end = e.clock.Now()
	}

	final := e.sim.Equity()
	if e.liquidated || final.IsNegative() {
		final = decimal.Zero
	}

	stats := computeStats(statsInput{
		positions:   positions,
		start:       first.OpenTime,
		end:         end,
		unrealized:  e.sim.UnrealizedPnl(),
		fees:        e.sim.Fees(),
		maxDrawdown: e.maxDrawdown,
		firstPrice:  first.Open,
		lastPrice:   e.market.CurrentPrice().InexactFloat64(),
	})

	pnlPercent := final.Sub(e.cfg.InitialBalance).Div(e.cfg.InitialBalance).Mul(decimal.NewFromInt(100))

	return &Result{
		RunID:          e.cfg.RunID,
		ExchangeName:   e.cfg.Pair.ExchangeName,
		Ticker:         e.market.Ticker(),
		Symbol:         e.cfg.Pair.Symbol(),
		MarketType:     e.cfg.Pair.MarketType,
		Timeframe:      e.cfg.Pair.Timeframe,
		Strategy:       e.cfg.Strategy.Name(),
		Params:         e.cfg.Strategy.Params(),
		Start:          first.OpenTime,
		End:            end,
		InitialBalance: e.cfg.InitialBalance,
		FinalBalance:   final,
		PnlPercent:     pnlPercent.InexactFloat64(),
		Liquidated:     e.liquidated,
		Stats:          stats,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (e *Engine) initPayload() *InitPayload {
	return &InitPayload{
		Ticker:         e.market.Ticker(),
		Exchange:       e.cfg.Pair.ExchangeName,
		MarketType:     string(e.cfg.Pair.MarketType),
		Timeframe:      string(e.cfg.Pair.Timeframe),
		Strategy:       e.cfg.Strategy.Name(),
		Params:         e.cfg.Strategy.Params(),
		Start:          e.replay[0].OpenTime,
		End:            e.replay[len(e.replay)-1].OpenTime,
		InitialBalance: e.cfg.InitialBalance,
		TicksPerCandle: e.cfg.TicksPerCandle,
	}
}

func (e *Engine) emit(event Event) {
	event.RunID = e.cfg.RunID
	if event.Time.IsZero() && e.clock != nil {
		event.Time = e.clock.Now()
	}

	if err := e.cfg.Sink.Emit(event); err != nil {
		e.log.Warn("Failed to emit event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func (e *Engine) emitPosition(t EventType, p *types.Position) {
	snapshot := *p
	e.emit(Event{Type: t, Position: &snapshot})
}

func (e *Engine) emitCandle(c types.Candle) {
	values := make(map[string]float64, len(e.market.Indicators().Values))
	for k, v := range e.market.Indicators().Values {
		values[k] = v
	}

	e.emit(Event{Type: EventCandle, Candle: &c, Indicators: values})
	e.emitBalance()
}

func (e *Engine) emitBalance() {
	unrealized := e.sim.UnrealizedPnl()
	e.emit(Event{Type: EventBalance, Balance: &BalancePayload{
		Balance:       e.sim.Balance(),
		UnrealizedPnl: unrealized,
		Equity:        e.sim.Balance().Add(unrealized),
	}})
}

func (e *Engine) emitError(err error) {
	e.emit(Event{Type: EventError, Error: err.Error()})
}
