package strategy_test

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/backtest/simexchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/market"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/rxtech-lab/argo-dca/internal/strategy"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// harness wires a market to a simulated exchange and an in-memory repository.
type harness struct {
	t     *testing.T
	ctx   context.Context
	clock *runtime.SimClock
	rt    *runtime.Context
	ex    *simexchange.Exchange
	repo  *position.MemoryRepository
	pair  types.Pair
}

func newHarness(t *testing.T, marketType types.MarketType) *harness {
	clock := runtime.NewSimClock(start)
	rt := runtime.NewSimulationContext(logger.NewNopLogger(), clock, "strategy-test")

	return &harness{
		t:     t,
		ctx:   context.Background(),
		clock: clock,
		rt:    rt,
		ex: simexchange.New(simexchange.Config{
			InitialBalance: decimal.NewFromInt(10000),
			Leverage:       10,
		}, clock, rt.Log),
		repo: position.NewMemoryRepository(),
		pair: types.Pair{
			BaseCurrency:   "BTC",
			QuoteCurrency:  "USDT",
			Timeframe:      types.Timeframe("1h"),
			ExchangeName:   "sim",
			MarketType:     marketType,
			TradingEnabled: true,
		},
	}
}

func flatCandles(n int, price float64) []types.Candle {
	candles := make([]types.Candle, n)
	for i := range candles {
		candles[i] = types.Candle{
			OpenTime: start.Add(time.Duration(i-n) * time.Hour),
			Open:     price, High: price, Low: price, Close: price, Volume: 1,
		}
	}

	return candles
}

func closesToCandles(closes []float64) []types.Candle {
	candles := make([]types.Candle, len(closes))
	for i, c := range closes {
		candles[i] = types.Candle{
			OpenTime: start.Add(time.Duration(i-len(closes)) * time.Hour),
			Open:     c, High: c, Low: c, Close: c, Volume: 1,
		}
	}

	return candles
}

func (h *harness) market(strat strategy.Strategy, candles []types.Candle) *market.Market {
	if len(candles) == 0 {
		candles = flatCandles(5, 100)
	}

	last := candles[len(candles)-1]
	h.ex.SetPrice(h.pair, decimal.NewFromFloat(last.Close))

	m, err := market.New(h.ctx, h.rt, market.Config{
		Pair:      h.pair,
		Exchange:  h.ex,
		Positions: h.repo,
		Strategy:  strat,
		Candles:   candles,
	})
	require.NoError(h.t, err)

	return m
}

// cycle moves the price and the clock one minute forward and runs one market cycle.
func (h *harness) cycle(m *market.Market, price string) {
	h.clock.Set(h.clock.Now().Add(time.Minute))
	h.ex.SetPrice(h.pair, decimal.RequireFromString(price))
	require.NoError(h.t, m.Cycle(h.ctx))
}

func (h *harness) active(m *market.Market) *types.Position {
	pos, err := m.ActivePosition(h.ctx)
	require.NoError(h.t, err)
	require.True(h.t, pos.IsSome(), "expected an active position")

	return pos.Unwrap()
}

func (h *harness) all() []*types.Position {
	positions, err := h.repo.ListAll(h.ctx)
	require.NoError(h.t, err)

	return positions
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
