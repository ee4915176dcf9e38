package optimizer

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/backtest"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/strategy"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/mocks"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// fakeRunner answers with pnl[i] for the i-th call. A call listed in
// liquidated stops that long after its start.
type fakeRunner struct {
	pnl        []float64
	err        error
	liquidated map[int]time.Duration
	requests   []backtest.Request
}

func (f *fakeRunner) Run(_ context.Context, req backtest.Request) (*backtest.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}

	i := len(f.requests) - 1

	result := &backtest.Result{
		RunID:      fmt.Sprintf("run-%d", i),
		Strategy:   req.Strategy.Name(),
		Params:     req.Strategy.Params(),
		Start:      req.Start,
		End:        req.End,
		PnlPercent: f.pnl[i%len(f.pnl)],
	}

	if d, ok := f.liquidated[i]; ok {
		result.Liquidated = true
		result.End = req.Start.Add(d)
	}

	return result, nil
}

type fakeBaselines struct {
	result  optional.Option[*backtest.Result]
	queries []BaselineQuery
}

func (f *fakeBaselines) FindBaseline(_ context.Context, q BaselineQuery) (optional.Option[*backtest.Result], error) {
	f.queries = append(f.queries, q)
	return f.result, nil
}

type fakeSuggestions struct {
	saved []*Suggestion
}

func (f *fakeSuggestions) SaveSuggestion(_ context.Context, s *Suggestion) error {
	f.saved = append(f.saved, s)
	return nil
}

type OptimizerTestSuite struct {
	suite.Suite
	ctx   context.Context
	log   *logger.Logger
	clock *runtime.SimClock
	pair  types.Pair
}

func TestOptimizerSuite(t *testing.T) {
	suite.Run(t, new(OptimizerTestSuite))
}

func (suite *OptimizerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.log = logger.NewNopLogger()
	suite.clock = runtime.NewSimClock(time.Date(2024, 3, 10, 13, 37, 0, 0, time.UTC))
	suite.pair = types.Pair{
		BaseCurrency:           "BTC",
		QuoteCurrency:          "USDT",
		Timeframe:              types.Timeframe("1h"),
		ExchangeName:           "bybit",
		MarketType:             types.MarketTypeFutures,
		StrategyName:           strategy.NameDCA,
		StrategyParams:         map[string]any{"take_profit_percent": 1.5},
		BacktestDays:           optional.Some(2),
		BacktestInitialBalance: optional.None[decimal.Decimal](),
	}
}

func (suite *OptimizerTestSuite) optimizer(runner BacktestRunner, baselines BaselineStore, suggestions SuggestionStore) *Optimizer {
	return New(Config{
		Pairs:          []types.Pair{suite.pair},
		InitialBalance: decimal.NewFromInt(1000),
		Leverage:       3,
		Seed:           42,
	}, runner, baselines, suggestions, suite.clock, suite.log)
}

func (suite *OptimizerTestSuite) TestImprovementIsSaved() {
	runner := &fakeRunner{pnl: []float64{1.0, 2.5}}
	store := &fakeSuggestions{}

	got, err := suite.optimizer(runner, nil, store).Iterate(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().True(got.IsSome())

	s := got.Unwrap()
	suite.Require().Len(store.saved, 1)
	suite.Same(s, store.saved[0])

	suite.Equal(1.0, s.BeforePnlPercent)
	suite.Equal(2.5, s.AfterPnlPercent)
	suite.InDelta(1.5, s.Improvement(), 1e-9)
	suite.Equal("run-0", s.BaselineRunID)
	suite.Equal("run-1", s.CandidateRunID)
	suite.Equal("BTC/USDT", s.Symbol)
	suite.NotEmpty(s.Parameter)
	suite.NotEqual(s.BeforeValue, s.AfterValue)
	suite.Contains(s.ConfigSnippet, "symbol: BTC/USDT")
	suite.Contains(s.ConfigSnippet, s.Parameter)

	// the window ends at the last closed candle and spans the pair's backtest days
	end := time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)
	suite.Require().Len(runner.requests, 2)

	for _, req := range runner.requests {
		suite.Equal(end, req.End)
		suite.Equal(end.Add(-48*time.Hour), req.Start)
		suite.True(req.InitialBalance.Equal(decimal.NewFromInt(1000)))
		suite.Equal(3, req.Leverage)
	}

	// only the chosen parameter differs between the two runs
	before := runner.requests[0].Strategy.Params()
	after := runner.requests[1].Strategy.Params()

	for _, key := range before.Keys() {
		if key == s.Parameter {
			suite.NotEqual(strategy.FormatValue(before[key]), strategy.FormatValue(after[key]))
			continue
		}

		suite.Equal(before[key], after[key], key)
	}
}

func (suite *OptimizerTestSuite) TestEqualPnlIsDiscarded() {
	runner := &fakeRunner{pnl: []float64{1.0, 1.0}}
	store := &fakeSuggestions{}

	got, err := suite.optimizer(runner, nil, store).Iterate(suite.ctx)
	suite.Require().NoError(err)

	suite.True(got.IsNone())
	suite.Empty(store.saved)
}

func (suite *OptimizerTestSuite) TestLiquidatedBaselineKeepsFullWindow() {
	// the unchanged strategy is wiped out four hours into the window
	runner := &fakeRunner{
		pnl:        []float64{-100, -40},
		liquidated: map[int]time.Duration{0: 4*time.Hour + 15*time.Minute},
	}
	store := &fakeSuggestions{}

	got, err := suite.optimizer(runner, nil, store).Iterate(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().True(got.IsSome())

	end := time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)
	start := end.Add(-48 * time.Hour)

	suite.Require().Len(runner.requests, 2)
	suite.Equal(start, runner.requests[1].Start)
	suite.Equal(end, runner.requests[1].End)

	s := got.Unwrap()
	suite.Equal(start, s.Start)
	suite.Equal(end, s.End)
	suite.Equal(-100.0, s.BeforePnlPercent)
}

func (suite *OptimizerTestSuite) TestReferenceExchangeIsPassedToRuns() {
	ctrl := gomock.NewController(suite.T())
	ref := mocks.NewMockExchange(ctrl)

	var asked []string

	runner := &fakeRunner{pnl: []float64{1, 2}}
	opt := New(Config{
		Pairs: []types.Pair{suite.pair},
		Seed:  42,
		Reference: func(name string) (exchange.Exchange, error) {
			asked = append(asked, name)
			return ref, nil
		},
	}, runner, nil, nil, suite.clock, suite.log)

	_, err := opt.Iterate(suite.ctx)
	suite.Require().NoError(err)

	suite.Equal([]string{"bybit", "bybit"}, asked)

	for _, req := range runner.requests {
		suite.Same(ref, req.Reference)
	}

	unknown := &fakeRunner{pnl: []float64{1, 2}}
	opt = New(Config{
		Pairs: []types.Pair{suite.pair},
		Reference: func(name string) (exchange.Exchange, error) {
			return nil, errors.Newf(errors.ErrCodeUnknownExchange, "exchange %q is not configured", name)
		},
	}, unknown, nil, nil, suite.clock, suite.log)

	_, err = opt.Iterate(suite.ctx)
	suite.Require().NoError(err)

	for _, req := range unknown.requests {
		suite.Nil(req.Reference)
	}
}

func (suite *OptimizerTestSuite) TestReusesFreshBaseline() {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	stored := &backtest.Result{RunID: "stored", Start: start, End: start.Add(72 * time.Hour), PnlPercent: 4}

	runner := &fakeRunner{pnl: []float64{5}}
	baselines := &fakeBaselines{result: optional.Some(stored)}
	store := &fakeSuggestions{}

	opt := New(Config{
		Pairs:       []types.Pair{suite.pair},
		Freshness:   6 * time.Hour,
		MinDuration: 24 * time.Hour,
		Seed:        1,
	}, runner, baselines, store, suite.clock, suite.log)

	got, err := opt.Iterate(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().True(got.IsSome())

	suite.Require().Len(runner.requests, 1)
	suite.Equal(start, runner.requests[0].Start)
	suite.Equal(start.Add(72*time.Hour), runner.requests[0].End)
	suite.Equal("stored", got.Unwrap().BaselineRunID)

	suite.Require().Len(baselines.queries, 1)
	q := baselines.queries[0]
	suite.Equal(suite.clock.Now().Add(-6*time.Hour), q.CreatedAfter)
	suite.Equal(24*time.Hour, q.MinDuration)
	suite.Equal(1.5, q.Params["take_profit_percent"])
}

func (suite *OptimizerTestSuite) TestNoEligiblePair() {
	opt := New(Config{}, &fakeRunner{}, nil, nil, suite.clock, suite.log)

	_, err := opt.Iterate(suite.ctx)

	suite.True(errors.HasCode(err, errors.ErrCodeNoEligiblePair))
}

func (suite *OptimizerTestSuite) TestSameSeedSameChoice() {
	pick := func() string {
		runner := &fakeRunner{pnl: []float64{0, 1}}

		got, err := suite.optimizer(runner, nil, nil).Iterate(suite.ctx)
		suite.Require().NoError(err)
		suite.Require().True(got.IsSome())

		return got.Unwrap().Parameter + "=" + got.Unwrap().AfterValue
	}

	suite.Equal(pick(), pick())
}

func (suite *OptimizerTestSuite) TestRunCollectsAndSurvivesFailures() {
	runner := &fakeRunner{pnl: []float64{1, 2}}
	store := &fakeSuggestions{}

	found, err := suite.optimizer(runner, nil, store).Run(suite.ctx, 3)
	suite.Require().NoError(err)
	suite.Len(found, 3)
	suite.Len(store.saved, 3)

	failing := &fakeRunner{err: stderrors.New("no data")}

	found, err = suite.optimizer(failing, nil, store).Run(suite.ctx, 2)
	suite.NoError(err)
	suite.Empty(found)
	suite.Len(failing.requests, 2)
}

func (suite *OptimizerTestSuite) TestRunStopsOnCanceledContext() {
	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	_, err := suite.optimizer(&fakeRunner{pnl: []float64{1}}, nil, nil).Run(ctx, 5)

	suite.ErrorIs(err, context.Canceled)
}
