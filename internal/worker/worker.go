// Package worker runs the live decision loop of one exchange.
//
// Every poll the worker refreshes balances, builds markets for configured
// pairs that have enough history, then refreshes candles, recomputes
// indicators and runs one decision cycle per market. Markets are processed
// one after another on a single goroutine.
package worker

import (
	"context"
	"slices"
	"time"

	"github.com/moznion/go-optional"
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

// DefaultPollInterval is the pause between two ticks.
const DefaultPollInterval = 60 * time.Second

// persistTail is the number of newest candles written back after each refresh.
// The newest candle may still be forming, so the one before it is rewritten
// once it closes.
const persistTail = 2

// CandleStore persists the candles the worker sees.
type CandleStore interface {
	SaveCandles(ctx context.Context, pair types.Pair, candles []types.Candle) error
}

// Config configures a worker.
type Config struct {
	Exchange  exchange.Exchange
	Pairs     []types.Pair
	Positions position.Repository
	// Candles is optional. When set, every market's candles are persisted.
	Candles      CandleStore
	PollInterval time.Duration
	// HistoryLimit is passed to every market. Zero lets the market decide.
	HistoryLimit int
}

// Worker owns the markets of one exchange.
type Worker struct {
	rt       *runtime.Context
	ex       exchange.Exchange
	pairs    []types.Pair
	repo     position.Repository
	candles  CandleStore
	interval time.Duration
	limit    int
	log      *logger.Logger

	markets  map[string]*market.Market
	balances map[string]decimal.Decimal
}

// New creates a worker. Pairs with neither trading nor monitoring enabled are ignored.
func New(rt *runtime.Context, cfg Config) *Worker {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	pairs := slices.DeleteFunc(slices.Clone(cfg.Pairs), func(p types.Pair) bool {
		return !p.TradingEnabled && !p.MonitoringEnabled
	})

	return &Worker{
		rt:       rt,
		ex:       cfg.Exchange,
		pairs:    pairs,
		repo:     cfg.Positions,
		candles:  cfg.Candles,
		interval: interval,
		limit:    cfg.HistoryLimit,
		log:      rt.Log.WithFields(zap.String("exchange", cfg.Exchange.Name())),
		markets:  make(map[string]*market.Market),
		balances: make(map[string]decimal.Decimal),
	}
}

// Run connects the exchange and ticks every poll interval until ctx is done.
// A failed tick is logged and retried on the next interval.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.ex.Connect(ctx); err != nil {
		return errors.Wrapf(errors.ErrCodeExchangeUnavailable, err, "connect %s", w.ex.Name())
	}

	defer func() {
		if err := w.ex.Disconnect(context.WithoutCancel(ctx)); err != nil {
			w.log.Warn("Failed to disconnect", zap.Error(err))
		}
	}()

	w.log.Info("Worker started",
		zap.Int("pairs", len(w.pairs)),
		zap.Duration("poll_interval", w.interval),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.Tick(ctx); err != nil {
			w.log.Warn("Tick skipped", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			w.log.Info("Worker stopped")

			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one poll. It fails only when balances cannot be read; errors of
// a single market are logged and that market is skipped until the next tick.
func (w *Worker) Tick(ctx context.Context) error {
	if err := w.refreshBalances(ctx); err != nil {
		return err
	}

	w.syncMarkets(ctx)

	for _, pair := range w.pairs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m, ok := w.markets[pair.Key()]
		if !ok {
			continue
		}

		if err := w.cycle(ctx, m); err != nil {
			w.log.Warn("Market cycle failed", zap.String("ticker", m.Ticker()), zap.Error(err))
		}
	}

	return nil
}

// Balance returns the last balance read for currency.
func (w *Worker) Balance(currency string) optional.Option[decimal.Decimal] {
	balance, ok := w.balances[currency]
	if !ok {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(balance)
}

// Market returns the active market of pair.
func (w *Worker) Market(pair types.Pair) optional.Option[*market.Market] {
	m, ok := w.markets[pair.Key()]
	if !ok {
		return optional.None[*market.Market]()
	}

	return optional.Some(m)
}

func (w *Worker) refreshBalances(ctx context.Context) error {
	var currencies []string

	for _, pair := range w.pairs {
		if !slices.Contains(currencies, pair.QuoteCurrency) {
			currencies = append(currencies, pair.QuoteCurrency)
		}
	}

	for _, currency := range currencies {
		balance, err := w.ex.GetBalance(ctx, currency)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeExchangeUnavailable, err, "balance %s", currency)
		}

		w.balances[currency] = balance.Amount
		w.log.Debug("Balance", zap.String("currency", currency), zap.String("amount", balance.Amount.String()))
	}

	return nil
}

// syncMarkets builds the markets that are not active yet.
func (w *Worker) syncMarkets(ctx context.Context) {
	for _, pair := range w.pairs {
		if _, ok := w.markets[pair.Key()]; ok {
			continue
		}

		m, err := w.buildMarket(ctx, pair)
		if err != nil {
			if errors.IsInsufficientCandles(err) {
				w.log.Info("Waiting for history", zap.String("symbol", pair.Symbol()), zap.Error(err))
			} else {
				w.log.Warn("Failed to activate market", zap.String("symbol", pair.Symbol()), zap.Error(err))
			}

			continue
		}

		w.markets[pair.Key()] = m
		w.persist(ctx, m, m.Candles().All())

		w.log.Info("Market activated",
			zap.String("symbol", pair.Symbol()),
			zap.String("timeframe", string(pair.Timeframe)),
			zap.Bool("trading", m.Pair().TradingEnabled),
			zap.Int("candles", m.Candles().Len()),
		)
	}
}

func (w *Worker) buildMarket(ctx context.Context, pair types.Pair) (*market.Market, error) {
	strat, err := strategy.New(pair.StrategyName, pair.StrategyParams)
	if err != nil {
		return nil, err
	}

	if pair.TradingEnabled {
		pair.TradingEnabled = w.preflight(ctx, pair, strat)
	}

	return market.New(ctx, w.rt, market.Config{
		Pair:         pair,
		Exchange:     w.ex,
		Positions:    w.repo,
		Strategy:     strat,
		HistoryLimit: w.limit,
	})
}

// preflight checks the venue account against the strategy. A pair with
// errors is kept for monitoring but never trades.
func (w *Worker) preflight(ctx context.Context, pair types.Pair, strat strategy.Strategy) bool {
	report := strategy.ValidateExchangeSettings(ctx, w.ex, pair, strat)

	for _, warning := range report.Warnings {
		w.log.Warn("Exchange settings warning", zap.String("symbol", pair.Symbol()), zap.String("warning", warning))
	}

	if report.OK() {
		return true
	}

	w.log.Error("Exchange settings are unsafe, trading disabled",
		zap.String("symbol", pair.Symbol()),
		zap.Strings("errors", report.Errors),
	)

	return false
}

func (w *Worker) cycle(ctx context.Context, m *market.Market) error {
	if err := m.RefreshCandles(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeExchangeUnavailable, "refresh candles", err)
	}

	all := m.Candles().All()
	w.persist(ctx, m, all[max(0, len(all)-persistTail):])

	m.UpdateIndicators()

	return m.Cycle(ctx)
}

func (w *Worker) persist(ctx context.Context, m *market.Market, candles []types.Candle) {
	if w.candles == nil || len(candles) == 0 {
		return
	}

	if err := w.candles.SaveCandles(ctx, m.Pair(), candles); err != nil {
		w.log.Warn("Failed to persist candles", zap.String("ticker", m.Ticker()), zap.Error(err))
	}
}
