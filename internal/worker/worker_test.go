package worker_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/backtest/simexchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/strategy"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/internal/worker"
	"github.com/rxtech-lab/argo-dca/mocks"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type recordingStore struct {
	saved map[string][]types.Candle
}

func (r *recordingStore) SaveCandles(_ context.Context, pair types.Pair, candles []types.Candle) error {
	r.saved[pair.Key()] = append(r.saved[pair.Key()], candles...)
	return nil
}

type WorkerTestSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *runtime.SimClock
	rt      *runtime.Context
	ex      *simexchange.Exchange
	repo    *position.MemoryRepository
	store   *recordingStore
	pair    types.Pair
	candles []types.Candle
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerTestSuite))
}

func (suite *WorkerTestSuite) SetupTest() {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	suite.ctx = context.Background()
	suite.clock = runtime.NewSimClock(start)
	suite.rt = runtime.NewSimulationContext(logger.NewNopLogger(), suite.clock, "worker-test")
	suite.ex = simexchange.New(simexchange.Config{Name: "sim", InitialBalance: decimal.NewFromInt(1000)}, suite.clock, suite.rt.Log)
	suite.repo = position.NewMemoryRepository()
	suite.store = &recordingStore{saved: map[string][]types.Candle{}}
	suite.pair = types.Pair{
		BaseCurrency:   "SOL",
		QuoteCurrency:  "USDT",
		Timeframe:      types.Timeframe("1h"),
		ExchangeName:   "sim",
		MarketType:     types.MarketTypeSpot,
		TradingEnabled: true,
		StrategyName:   strategy.NameSingleEntry,
	}

	gen := mocks.NewCandleGenerator(7)
	cfg := mocks.DefaultConfig()
	cfg.StartTime = start.Add(-100 * time.Hour)
	cfg.Count = 100
	suite.candles = gen.Generate(cfg)
	suite.ex.LoadCandles(suite.pair, suite.candles)
	suite.ex.SetPrice(suite.pair, decimal.NewFromFloat(suite.candles[len(suite.candles)-1].Close))
}

func (suite *WorkerTestSuite) newWorker(pairs ...types.Pair) *worker.Worker {
	return worker.New(suite.rt, worker.Config{
		Exchange:  suite.ex,
		Pairs:     pairs,
		Positions: suite.repo,
		Candles:   suite.store,
	})
}

func (suite *WorkerTestSuite) TestTickActivatesMarketAndTrades() {
	w := suite.newWorker(suite.pair)

	suite.Require().NoError(w.Tick(suite.ctx))

	balance := w.Balance("USDT")
	suite.Require().True(balance.IsSome())
	suite.True(balance.Unwrap().Equal(decimal.NewFromInt(1000)))

	m := w.Market(suite.pair)
	suite.Require().True(m.IsSome())
	suite.Equal(100, m.Unwrap().Candles().Len())

	// full history on activation, then the tail after the refresh
	suite.Len(suite.store.saved[suite.pair.Key()], 102)

	active, err := suite.repo.FindActive(suite.ctx, m.Unwrap().PositionKey())
	suite.Require().NoError(err)
	suite.True(active.IsSome())
}

func (suite *WorkerTestSuite) TestMonitoringOnlyPairNeverTrades() {
	suite.pair.TradingEnabled = false
	suite.pair.MonitoringEnabled = true
	w := suite.newWorker(suite.pair)

	suite.Require().NoError(w.Tick(suite.ctx))
	suite.Require().NoError(w.Tick(suite.ctx))

	suite.True(w.Market(suite.pair).IsSome())

	all, err := suite.repo.ListAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(all)
}

func (suite *WorkerTestSuite) TestUnsafeSettingsDisableTrading() {
	// a spot account cannot hold the short side
	suite.pair.StrategyParams = map[string]any{"direction": "short"}
	w := suite.newWorker(suite.pair)

	suite.Require().NoError(w.Tick(suite.ctx))
	suite.Require().NoError(w.Tick(suite.ctx))

	m := w.Market(suite.pair)
	suite.Require().True(m.IsSome())
	suite.False(m.Unwrap().Pair().TradingEnabled)

	all, err := suite.repo.ListAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(all)
}

func (suite *WorkerTestSuite) TestDisabledPairIsIgnored() {
	suite.pair.TradingEnabled = false
	w := suite.newWorker(suite.pair)

	suite.Require().NoError(w.Tick(suite.ctx))

	suite.True(w.Market(suite.pair).IsNone())
	suite.True(w.Balance("USDT").IsNone())
}

func (suite *WorkerTestSuite) TestWaitsForHistory() {
	suite.pair.StrategyParams = map[string]any{"signal": "ema_cross", "ema_fast": 50, "ema_slow": 150}
	w := suite.newWorker(suite.pair)

	suite.Require().NoError(w.Tick(suite.ctx))
	suite.True(w.Market(suite.pair).IsNone())

	gen := mocks.NewCandleGenerator(8)
	cfg := mocks.DefaultConfig()
	cfg.StartTime = suite.candles[0].OpenTime.Add(-100 * time.Hour)
	cfg.Count = 100
	older := gen.Generate(cfg)
	suite.ex.LoadCandles(suite.pair, append(older, suite.candles...))

	suite.Require().NoError(w.Tick(suite.ctx))
	suite.True(w.Market(suite.pair).IsSome())
}

func (suite *WorkerTestSuite) TestBalanceFailureSkipsTick() {
	ctrl := gomock.NewController(suite.T())
	ex := mocks.NewMockExchange(ctrl)

	ex.EXPECT().Name().Return("mock").AnyTimes()
	ex.EXPECT().GetBalance(gomock.Any(), "USDT").Return(types.Money{}, stderrors.New("timeout"))

	w := worker.New(suite.rt, worker.Config{Exchange: ex, Pairs: []types.Pair{suite.pair}, Positions: suite.repo})

	err := w.Tick(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeExchangeUnavailable))
	suite.True(w.Market(suite.pair).IsNone())
}

func (suite *WorkerTestSuite) TestMarketFailureDoesNotStopOthers() {
	broken := suite.pair
	broken.BaseCurrency = "ETH"
	broken.StrategyName = "unknown"

	w := suite.newWorker(broken, suite.pair)

	suite.Require().NoError(w.Tick(suite.ctx))

	suite.True(w.Market(broken).IsNone())
	suite.True(w.Market(suite.pair).IsSome())
}

func (suite *WorkerTestSuite) TestRunStopsWhenCanceled() {
	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	w := suite.newWorker(suite.pair)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		suite.NoError(err)
	case <-time.After(5 * time.Second):
		suite.Fail("worker did not stop")
	}
}

func (suite *WorkerTestSuite) TestRunFailsWhenConnectFails() {
	ctrl := gomock.NewController(suite.T())
	ex := mocks.NewMockExchange(ctrl)

	ex.EXPECT().Name().Return("mock").AnyTimes()
	ex.EXPECT().Connect(gomock.Any()).Return(stderrors.New("refused"))

	w := worker.New(suite.rt, worker.Config{Exchange: ex, Pairs: []types.Pair{suite.pair}, Positions: suite.repo})

	err := w.Run(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeExchangeUnavailable))
}
