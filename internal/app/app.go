// Package app wires the configured collaborators shared by the commands:
// logger, storage, price cache, exchanges, backtest runner and optimizer.
package app

import (
	"context"

	"github.com/rxtech-lab/argo-dca/internal/backtest"
	_ "github.com/rxtech-lab/argo-dca/internal/backtest/simexchange" // registers the paper driver
	"github.com/rxtech-lab/argo-dca/internal/cache"
	"github.com/rxtech-lab/argo-dca/internal/cache/redis"
	"github.com/rxtech-lab/argo-dca/internal/config"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/optimizer"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/storage"
	"github.com/rxtech-lab/argo-dca/internal/worker"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// App holds the long-lived dependencies of one process.
type App struct {
	Config *config.Config
	Log    *logger.Logger
	Store  *storage.Store

	priceCache cache.PriceCache
	closers    []func() error
}

// New loads the config at path, then opens the logger, the database and the
// price cache. Close releases them.
func New(ctx context.Context, path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	return FromConfig(ctx, cfg)
}

// FromConfig is New for an already loaded config.
func FromConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := NewLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log}

	a.Store, err = storage.Open(ctx, cfg.Database.Path, log)
	if err != nil {
		return nil, err
	}

	a.closers = append(a.closers, a.Store.Close)

	if err := a.openPriceCache(ctx); err != nil {
		_ = a.Close()

		return nil, err
	}

	return a, nil
}

// NewLogger builds the process logger for a level name.
func NewLogger(level string) (*logger.Logger, error) {
	lvl := zapcore.InfoLevel

	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "log level %q", level)
		}

		lvl = parsed
	}

	return logger.NewLoggerWithLevel(lvl)
}

func (a *App) openPriceCache(ctx context.Context) error {
	if a.Config.Cache.Driver != config.CacheRedis {
		a.priceCache = cache.NewMemoryPriceCache()

		return nil
	}

	client, err := redis.New(ctx, a.Config.Cache.Redis)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "connect price cache", err)
	}

	a.priceCache = redis.NewPriceCache(client, a.Config.Cache.PriceTTL)
	a.closers = append(a.closers, client.Close)

	a.Log.Info("Using redis price cache", zap.String("addr", a.Config.Cache.Redis.Addr))

	return nil
}

// PriceCache returns the configured price cache.
func (a *App) PriceCache() cache.PriceCache {
	return a.priceCache
}

// Exchange creates the driver of the named exchange with its current price
// served through the price cache.
func (a *App) Exchange(name string) (exchange.Exchange, error) {
	exCfg, ok := a.Config.Exchange(name)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownExchange, "exchange %q is not configured", name)
	}

	ex, err := exchange.New(exCfg.DriverConfig, a.Log)
	if err != nil {
		return nil, err
	}

	return exchange.NewCachedPriceExchange(ex, a.priceCache, a.Config.Cache.PriceTTL, runtime.SystemClock{}, a.Log), nil
}

// Worker builds the worker of the named exchange. Positions and runtime
// candles are kept in the database.
func (a *App) Worker(name string) (*worker.Worker, error) {
	ex, err := a.Exchange(name)
	if err != nil {
		return nil, err
	}

	exCfg, _ := a.Config.Exchange(name)

	return worker.New(runtime.NewLiveContext(a.Log), worker.Config{
		Exchange:     ex,
		Pairs:        exCfg.TradingPairs(),
		Positions:    a.Store.Positions(),
		Candles:      a.Store.Candles(storage.PurposeRuntime),
		PollInterval: exCfg.PollInterval,
	}), nil
}

// RunWorkers runs one worker per named exchange, or per configured exchange
// when names is empty, until ctx is done or a worker fails to start.
func (a *App) RunWorkers(ctx context.Context, names []string) error {
	if len(names) == 0 {
		for _, ex := range a.Config.Exchanges {
			names = append(names, ex.Name)
		}
	}

	workers := make([]*worker.Worker, 0, len(names))

	for _, name := range names {
		w, err := a.Worker(name)
		if err != nil {
			return err
		}

		workers = append(workers, w)
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, w := range workers {
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	return g.Wait()
}

// Runner builds a backtest runner on the stored backtest candles. Results go
// to the database and, when configured, the results folder.
func (a *App) Runner(log *logger.Logger) *backtest.Runner {
	opts := []backtest.RunnerOption{
		backtest.WithRunPositions(a.Store),
		backtest.WithResultStore(a.Store),
	}

	if a.Config.Backtest.ResultsFolder != "" {
		opts = append(opts, backtest.WithResultsFolder(a.Config.Backtest.ResultsFolder))
	}

	return backtest.NewRunner(a.Store.Candles(storage.PurposeBacktest), log, opts...)
}

// Optimizer builds an optimizer over every configured pair. Its backtests log
// nothing.
func (a *App) Optimizer(seed uint64) *optimizer.Optimizer {
	bt := a.Config.Backtest
	opt := a.Config.Optimizer

	return optimizer.New(optimizer.Config{
		Pairs:          a.Config.Pairs(),
		Days:           bt.Days,
		InitialBalance: decimal.NewFromFloat(bt.InitialBalance),
		Leverage:       bt.Leverage,
		Commission:     bt.Broker,
		TicksPerCandle: bt.TicksPerCandle,
		Freshness:      opt.Freshness,
		MinDuration:    opt.MinDuration,
		Seed:           seed,
		Reference:      a.Exchange,
	}, a.Runner(logger.NewNopLogger()), a.Store, a.Store, runtime.SystemClock{}, a.Log)
}

// Close releases everything New opened, newest first.
func (a *App) Close() error {
	var first error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}

	a.closers = nil

	if err := a.Log.Sync(); err != nil {
		a.Log.Debug("Failed to sync logger", zap.Error(err))
	}

	return first
}
