// Package optimizer runs a single-parameter hill climb over backtests. Every
// iteration nudges one parameter of one pair and records a suggestion when
// the nudged run strictly beats the baseline. Nothing is ever applied live.
package optimizer

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/backtest"
	"github.com/rxtech-lab/argo-dca/internal/backtest/commission_fee"
	"github.com/rxtech-lab/argo-dca/internal/config"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/strategy"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BacktestRunner runs one backtest request.
type BacktestRunner interface {
	Run(ctx context.Context, req backtest.Request) (*backtest.Result, error)
}

// BaselineQuery selects a stored result that can stand in for a fresh baseline run.
type BaselineQuery struct {
	Pair     types.Pair
	Strategy string
	Params   map[string]any
	// CreatedAfter bounds the age of the stored result.
	CreatedAfter time.Time
	MinDuration  time.Duration
}

// BaselineStore looks up reusable baseline results.
type BaselineStore interface {
	FindBaseline(ctx context.Context, query BaselineQuery) (optional.Option[*backtest.Result], error)
}

// SuggestionStore persists suggestions.
type SuggestionStore interface {
	SaveSuggestion(ctx context.Context, s *Suggestion) error
}

// Suggestion records one parameter change that improved PnL%.
type Suggestion struct {
	ID               string    `yaml:"id" json:"id"`
	ExchangeName     string    `yaml:"exchange" json:"exchange"`
	Symbol           string    `yaml:"symbol" json:"symbol"`
	MarketType       string    `yaml:"market_type" json:"market_type"`
	Timeframe        string    `yaml:"timeframe" json:"timeframe"`
	Strategy         string    `yaml:"strategy" json:"strategy"`
	Parameter        string    `yaml:"parameter" json:"parameter"`
	BeforeValue      string    `yaml:"before_value" json:"before_value"`
	AfterValue       string    `yaml:"after_value" json:"after_value"`
	BeforePnlPercent float64   `yaml:"before_pnl_percent" json:"before_pnl_percent"`
	AfterPnlPercent  float64   `yaml:"after_pnl_percent" json:"after_pnl_percent"`
	BaselineRunID    string    `yaml:"baseline_run_id" json:"baseline_run_id"`
	CandidateRunID   string    `yaml:"candidate_run_id" json:"candidate_run_id"`
	Start            time.Time `yaml:"start" json:"start"`
	End              time.Time `yaml:"end" json:"end"`
	ConfigSnippet    string    `yaml:"config_snippet" json:"config_snippet"`
	CreatedAt        time.Time `yaml:"created_at" json:"created_at"`
}

// Improvement is the PnL% gained by the suggestion.
func (s *Suggestion) Improvement() float64 {
	return s.AfterPnlPercent - s.BeforePnlPercent
}

type Config struct {
	Pairs          []types.Pair
	Days           int
	InitialBalance decimal.Decimal
	Leverage       int
	Commission     commission_fee.Broker
	TicksPerCandle int
	// Freshness is the maximum age of a reusable baseline.
	Freshness   time.Duration
	MinDuration time.Duration
	Seed        uint64
	// Reference resolves the driver whose tick sizes and qty steps the
	// simulated venue copies. Nil, or an error, keeps the defaults.
	Reference func(exchangeName string) (exchange.Exchange, error)
}

// Optimizer searches parameter improvements one nudge at a time.
type Optimizer struct {
	cfg         Config
	runner      BacktestRunner
	baselines   BaselineStore
	suggestions SuggestionStore
	clock       runtime.Clock
	rng         *rand.Rand
	log         *logger.Logger
}

// New creates an optimizer. baselines may be nil, in which case every
// iteration runs its own baseline.
func New(cfg Config, runner BacktestRunner, baselines BaselineStore, suggestions SuggestionStore, clock runtime.Clock, log *logger.Logger) *Optimizer {
	if cfg.Days <= 0 {
		cfg.Days = config.DefaultBacktestDays
	}

	if cfg.Freshness <= 0 {
		cfg.Freshness = config.DefaultFreshness
	}

	if !cfg.InitialBalance.IsPositive() {
		cfg.InitialBalance = decimal.NewFromInt(config.DefaultInitialBalance)
	}

	return &Optimizer{
		cfg:         cfg,
		runner:      runner,
		baselines:   baselines,
		suggestions: suggestions,
		clock:       clock,
		rng:         rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		log:         log,
	}
}

// window is the simulated span shared by the baseline and the candidate.
type window struct {
	start, end time.Time
}

// Iterate runs one hill-climbing step. It returns the saved suggestion when
// the candidate strictly improved PnL%.
func (o *Optimizer) Iterate(ctx context.Context) (optional.Option[*Suggestion], error) {
	none := optional.None[*Suggestion]()

	pair, ok := o.pickPair()
	if !ok {
		return none, errors.New(errors.ErrCodeNoEligiblePair, "no pair has a tunable parameter")
	}

	current, err := strategy.New(pair.StrategyName, pair.StrategyParams)
	if err != nil {
		return none, err
	}

	params := current.Params()
	log := o.log.WithFields(zap.String("symbol", pair.Symbol()), zap.String("strategy", pair.StrategyName))

	baseline, w, err := o.baseline(ctx, pair, current)
	if err != nil {
		return none, err
	}

	spec, value, ok := o.pickMutation(pair.StrategyName, params)
	if !ok {
		return none, errors.Newf(errors.ErrCodeNoEligibleParameter, "no parameter of %s can be mutated", pair.StrategyName)
	}

	mutated := params.Clone()
	mutated[spec.Name] = value

	candidate, err := strategy.New(pair.StrategyName, mutated)
	if err != nil {
		return none, err
	}

	result, err := o.run(ctx, pair, candidate, w)
	if err != nil {
		return none, err
	}

	log.Info("Optimizer candidate finished",
		zap.String("parameter", spec.Name),
		zap.String("before", strategy.FormatValue(params[spec.Name])),
		zap.String("after", strategy.FormatValue(value)),
		zap.Float64("baseline_pnl_percent", baseline.PnlPercent),
		zap.Float64("candidate_pnl_percent", result.PnlPercent),
	)

	if result.PnlPercent <= baseline.PnlPercent {
		return none, nil
	}

	snippet, err := config.PairSnippet(pair, mutated)
	if err != nil {
		return none, err
	}

	suggestion := &Suggestion{
		ID:               uuid.NewString(),
		ExchangeName:     pair.ExchangeName,
		Symbol:           pair.Symbol(),
		MarketType:       string(pair.MarketType),
		Timeframe:        string(pair.Timeframe),
		Strategy:         pair.StrategyName,
		Parameter:        spec.Name,
		BeforeValue:      strategy.FormatValue(params[spec.Name]),
		AfterValue:       strategy.FormatValue(value),
		BeforePnlPercent: baseline.PnlPercent,
		AfterPnlPercent:  result.PnlPercent,
		BaselineRunID:    baseline.RunID,
		CandidateRunID:   result.RunID,
		Start:            w.start,
		End:              w.end,
		ConfigSnippet:    snippet,
		CreatedAt:        o.clock.Now(),
	}

	if o.suggestions != nil {
		if err := o.suggestions.SaveSuggestion(ctx, suggestion); err != nil {
			return none, err
		}
	}

	log.Info("Optimizer suggestion saved", zap.String("id", suggestion.ID), zap.Float64("improvement", suggestion.Improvement()))

	return optional.Some(suggestion), nil
}

// Run performs up to iterations steps and returns every suggestion found.
// Failed backtests are logged and the search continues; running out of
// eligible pairs or parameters ends it.
func (o *Optimizer) Run(ctx context.Context, iterations int) ([]*Suggestion, error) {
	var found []*Suggestion

	for i := range iterations {
		if err := ctx.Err(); err != nil {
			return found, err
		}

		s, err := o.Iterate(ctx)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeNoEligiblePair) || errors.HasCode(err, errors.ErrCodeNoEligibleParameter) {
				return found, err
			}

			o.log.Warn("Optimizer iteration failed", zap.Int("iteration", i), zap.Error(err))

			continue
		}

		if s.IsSome() {
			found = append(found, s.Unwrap())
		}
	}

	return found, nil
}

// pickPair chooses a random pair whose strategy has at least one tunable parameter.
func (o *Optimizer) pickPair() (types.Pair, bool) {
	var eligible []types.Pair

	for _, p := range o.cfg.Pairs {
		specs, err := strategy.Specs(p.StrategyName)
		if err != nil {
			continue
		}

		for _, s := range specs {
			if s.Tunable() {
				eligible = append(eligible, p)
				break
			}
		}
	}

	if len(eligible) == 0 {
		return types.Pair{}, false
	}

	return eligible[o.rng.IntN(len(eligible))], true
}

// pickMutation tries the tunable parameters in random order and returns the
// first one whose mutation changes its value.
func (o *Optimizer) pickMutation(name string, params strategy.Params) (strategy.ParamSpec, any, bool) {
	specs, err := strategy.Specs(name)
	if err != nil {
		return strategy.ParamSpec{}, nil, false
	}

	var tunable []strategy.ParamSpec

	for _, s := range specs {
		if s.Tunable() {
			tunable = append(tunable, s)
		}
	}

	o.rng.Shuffle(len(tunable), func(i, j int) { tunable[i], tunable[j] = tunable[j], tunable[i] })

	for _, s := range tunable {
		current := params[s.Name]

		next := s.MutateValue(current, o.rng)
		if strategy.FormatValue(next) != strategy.FormatValue(current) {
			return s, next, true
		}
	}

	return strategy.ParamSpec{}, nil, false
}

// baseline reuses a fresh stored result for the unchanged strategy or runs one.
// The returned window is the span the candidate must replay. A fresh run that
// was liquidated ends early, but it still stands for the whole requested window.
func (o *Optimizer) baseline(ctx context.Context, pair types.Pair, s strategy.Strategy) (*backtest.Result, window, error) {
	now := o.clock.Now()

	if o.baselines != nil {
		stored, err := o.baselines.FindBaseline(ctx, BaselineQuery{
			Pair:         pair,
			Strategy:     s.Name(),
			Params:       s.Params(),
			CreatedAfter: now.Add(-o.cfg.Freshness),
			MinDuration:  o.cfg.MinDuration,
		})
		if err != nil {
			return nil, window{}, err
		}

		// stored baselines are never liquidated, so their span is the full window
		if result, err := stored.Take(); err == nil {
			o.log.Debug("Reusing baseline", zap.String("run_id", result.RunID))

			return result, window{start: result.Start, end: result.End}, nil
		}
	}

	w := o.window(pair, now)

	result, err := o.run(ctx, pair, s, w)
	if err != nil {
		return nil, window{}, err
	}

	if result.Liquidated {
		o.log.Debug("Baseline was liquidated", zap.Time("at", result.End), zap.Float64("pnl_percent", result.PnlPercent))
	}

	return result, w, nil
}

// window ends at the last fully closed candle and spans the pair's backtest days.
func (o *Optimizer) window(pair types.Pair, now time.Time) window {
	days := o.cfg.Days
	if d, err := pair.BacktestDays.Take(); err == nil {
		days = d
	}

	end := pair.Timeframe.AlignDown(now)

	return window{start: end.Add(-time.Duration(days) * 24 * time.Hour), end: end}
}

func (o *Optimizer) run(ctx context.Context, pair types.Pair, s strategy.Strategy, w window) (*backtest.Result, error) {
	balance := o.cfg.InitialBalance
	if b, err := pair.BacktestInitialBalance.Take(); err == nil {
		balance = b
	}

	return o.runner.Run(ctx, backtest.Request{
		Pair:           pair,
		Strategy:       s,
		Start:          w.start,
		End:            w.end,
		InitialBalance: balance,
		Leverage:       o.cfg.Leverage,
		Commission:     o.cfg.Commission,
		TicksPerCandle: o.cfg.TicksPerCandle,
		Reference:      o.reference(pair),
	})
}

func (o *Optimizer) reference(pair types.Pair) exchange.Exchange {
	if o.cfg.Reference == nil {
		return nil
	}

	ex, err := o.cfg.Reference(pair.ExchangeName)
	if err != nil {
		o.log.Debug("No reference exchange, using default market rules", zap.String("exchange", pair.ExchangeName), zap.Error(err))
		return nil
	}

	return ex
}
