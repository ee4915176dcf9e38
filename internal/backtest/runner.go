package backtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/backtest/commission_fee"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/market"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/strategy"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CandleSource supplies stored history for a pair.
type CandleSource interface {
	LoadCandles(ctx context.Context, pair types.Pair, start, end optional.Option[time.Time]) ([]types.Candle, error)
}

// RunPositionStore creates the disposable position table of one run. The
// returned drop function removes it.
type RunPositionStore interface {
	CreateRunPositions(ctx context.Context, runID string) (position.Repository, func(context.Context) error, error)
}

// ResultStore persists finished runs.
type ResultStore interface {
	SaveResult(ctx context.Context, result *Result) error
}

// Request is one backtest of a configured strategy over [Start, End).
type Request struct {
	Pair           types.Pair
	Strategy       strategy.Strategy
	Start          time.Time
	End            time.Time
	InitialBalance decimal.Decimal
	Leverage       int
	Commission     commission_fee.Broker
	TicksPerCandle int
	Reference      exchange.Exchange
	Sink           Sink
	OnProgress     func(current, total int)
}

// Runner loads history, runs the engine on an isolated position table and
// stores the outcome.
type Runner struct {
	candles   CandleSource
	positions RunPositionStore
	results   ResultStore
	folder    string
	log       *logger.Logger
}

// RunnerOption configures optional runner collaborators.
type RunnerOption func(*Runner)

// WithRunPositions keeps run positions in per-run tables instead of memory.
func WithRunPositions(store RunPositionStore) RunnerOption {
	return func(r *Runner) { r.positions = store }
}

// WithResultStore persists every result.
func WithResultStore(store ResultStore) RunnerOption {
	return func(r *Runner) { r.results = store }
}

// WithResultsFolder writes <folder>/<run id>/stats.yaml for every run.
func WithResultsFolder(folder string) RunnerOption {
	return func(r *Runner) { r.folder = folder }
}

// NewRunner creates a runner reading history from candles.
func NewRunner(candles CandleSource, log *logger.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{candles: candles, log: log}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes one backtest. The run's position table is dropped before Run
// returns, on success and on error.
func (r *Runner) Run(ctx context.Context, req Request) (result *Result, err error) {
	if !req.End.After(req.Start) {
		return nil, errors.New(errors.ErrCodeBacktestConfigError, "backtest end must be after start")
	}

	warmup, err := market.Warmup(req.Strategy)
	if err != nil {
		return nil, err
	}

	tf := req.Pair.Timeframe.Duration()
	if tf <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe %q", req.Pair.Timeframe)
	}

	from := req.Start.Add(-tf * time.Duration(warmup))
	// the last candle opens one interval before the end
	to := req.End.Add(-tf)

	candles, err := r.candles.LoadCandles(ctx, req.Pair, optional.Some(from), optional.Some(to))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "load candles for %s", req.Pair.Symbol())
	}

	runID := uuid.NewString()

	var repo position.Repository = position.NewMemoryRepository()

	if r.positions != nil {
		runRepo, drop, createErr := r.positions.CreateRunPositions(ctx, runID)
		if createErr != nil {
			return nil, createErr
		}

		defer func() {
			// the caller's context may already be canceled
			if dropErr := drop(context.WithoutCancel(ctx)); dropErr != nil {
				r.log.Error("Failed to drop run positions", zap.String("run_id", runID), zap.Error(dropErr))

				if err == nil {
					err = dropErr
				}
			}
		}()

		repo = runRepo
	}

	engine, err := NewEngine(Config{
		Pair:           req.Pair,
		Strategy:       req.Strategy,
		Candles:        candles,
		Start:          req.Start,
		TicksPerCandle: req.TicksPerCandle,
		InitialBalance: req.InitialBalance,
		Leverage:       req.Leverage,
		Commission:     req.Commission,
		Reference:      req.Reference,
		Positions:      repo,
		Sink:           req.Sink,
		RunID:          runID,
		OnProgress:     req.OnProgress,
	}, r.log)
	if err != nil {
		return nil, err
	}

	r.log.Debug("Running backtest",
		zap.String("run_id", runID),
		zap.String("symbol", req.Pair.Symbol()),
		zap.String("strategy", req.Strategy.Name()),
		zap.Time("start", req.Start),
		zap.Time("end", req.End),
		zap.Int("candles", len(candles)),
	)

	result, err = engine.Run(ctx)
	if err != nil {
		return nil, err
	}

	if r.results != nil {
		if err := r.results.SaveResult(ctx, result); err != nil {
			return nil, fmt.Errorf("failed to save result: %w", err)
		}
	}

	if r.folder != "" {
		dir := filepath.Join(r.folder, runID)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create results folder: %w", err)
		}

		if err := WriteTradeStats(filepath.Join(dir, "stats.yaml"), []Result{*result}); err != nil {
			return nil, err
		}
	}

	return result, nil
}
