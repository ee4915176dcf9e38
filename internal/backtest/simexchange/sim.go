package simexchange

import (
	"context"
	"sort"

	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/internal/utils"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Fill is a resting limit order executed by FillLimitOrders.
type Fill struct {
	exchange.OrderResult
	Direction types.Direction
	Reduce    bool
}

// Protection is the take-profit and stop-loss attached to a holding.
type Protection struct {
	Direction    types.Direction
	TakeProfit   decimal.NullDecimal
	StopLoss     decimal.NullDecimal
	AverageEntry decimal.Decimal
}

// LoadCandles makes candles available to GetCandles as the clock passes them.
func (e *Exchange) LoadCandles(pair types.Pair, candles []types.Candle) {
	sorted := append([]types.Candle(nil), candles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OpenTime.Before(sorted[j].OpenTime) })
	e.candles[e.PairToTicker(pair)] = sorted
}

// SetPrice moves the price market orders of pair execute at.
func (e *Exchange) SetPrice(pair types.Pair, price decimal.Decimal) {
	e.prices[e.PairToTicker(pair)] = price
}

// FillLimitOrders executes every resting order of pair crossed by the current
// price, at its limit price, in placement order. Orders that cannot be filled
// are dropped.
func (e *Exchange) FillLimitOrders(ctx context.Context, pair types.Pair) []Fill {
	ticker := e.PairToTicker(pair)

	price, ok := e.prices[ticker]
	if !ok {
		return nil
	}

	var (
		fills     []Fill
		remaining []limitOrder
	)

	for _, o := range e.orders[ticker] {
		if !o.crossed(price) {
			remaining = append(remaining, o)

			continue
		}

		fill, err := e.fillLimit(ctx, o)
		if err != nil {
			e.log.Warn("Dropping unfillable limit order",
				zap.String("ticker", ticker),
				zap.String("order_id", o.id),
				zap.Error(err),
			)

			continue
		}

		fills = append(fills, fill)

		// a full reduce clears the book of the ticker
		if _, open := e.holdings[ticker]; !open && fill.Reduce {
			remaining = nil

			break
		}
	}

	if len(remaining) == 0 {
		delete(e.orders, ticker)
	} else {
		e.orders[ticker] = remaining
	}

	return fills
}

func (e *Exchange) fillLimit(ctx context.Context, o limitOrder) (Fill, error) {
	if o.kind == orderReduce {
		h, ok := e.holdings[e.PairToTicker(o.pair)]
		if !ok || h.direction != o.direction {
			return Fill{}, errors.Newf(errors.ErrCodePositionNotFound, "no %s position to reduce", o.direction)
		}

		res := e.fillReduce(o.pair, o.qty, o.price, o.id)

		return Fill{OrderResult: res, Direction: o.direction, Reduce: true}, nil
	}

	res, err := e.fillOpen(ctx, o.pair, o.direction, o.quote, o.price, o.id)
	if err != nil {
		return Fill{}, err
	}

	if o.tpPercent.IsSome() && o.tpPercent.Unwrap() > 0 {
		if err := e.attachTakeProfit(ctx, o.pair, o.tpPercent.Unwrap()); err != nil {
			return Fill{}, err
		}
	}

	return Fill{OrderResult: res, Direction: o.direction}, nil
}

func (e *Exchange) attachTakeProfit(ctx context.Context, pair types.Pair, percent float64) error {
	h := e.holdings[e.PairToTicker(pair)]

	tick, err := e.GetTickSize(ctx, pair)
	if err != nil {
		return err
	}

	entry := types.NewMoney(h.avgEntry, pair.QuoteCurrency)
	target := entry.ModifyByPercentWithDirection(percent, h.direction).Amount
	h.tp = decimal.NewNullDecimal(utils.RoundToTick(target, tick))

	return nil
}

// Protection returns the protective prices of the holding of pair.
func (e *Exchange) Protection(pair types.Pair) (Protection, bool) {
	h, ok := e.holdings[e.PairToTicker(pair)]
	if !ok {
		return Protection{}, false
	}

	return Protection{Direction: h.direction, TakeProfit: h.tp, StopLoss: h.sl, AverageEntry: h.avgEntry}, true
}

// CloseAt closes the whole holding of pair at price, the way a triggered
// protective order would.
func (e *Exchange) CloseAt(pair types.Pair, price decimal.Decimal) (exchange.OrderResult, error) {
	h, ok := e.holdings[e.PairToTicker(pair)]
	if !ok {
		return exchange.OrderResult{}, errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", pair.Symbol())
	}

	return e.fillReduce(pair, h.qty, price, e.nextID()), nil
}

// Balance is the wallet balance: deposits plus realized PnL minus fees.
func (e *Exchange) Balance() decimal.Decimal {
	return e.balance
}

// UnrealizedPnl sums the open PnL of every holding at the current prices.
func (e *Exchange) UnrealizedPnl() decimal.Decimal {
	total := decimal.Zero
	for ticker, h := range e.holdings {
		total = total.Add(unrealized(h, e.prices[ticker]))
	}

	return total
}

// Equity is the wallet balance plus unrealized PnL.
func (e *Exchange) Equity() decimal.Decimal {
	return e.balance.Add(e.UnrealizedPnl())
}

// Fees is the total commission charged so far.
func (e *Exchange) Fees() decimal.Decimal {
	return e.fees
}

// OpenOrders returns the number of resting orders of pair.
func (e *Exchange) OpenOrders(pair types.Pair) int {
	return len(e.orders[e.PairToTicker(pair)])
}

// Liquidate wipes the account: every holding and order is dropped and the
// balance set to zero.
func (e *Exchange) Liquidate() {
	e.holdings = make(map[string]*holding)
	e.orders = make(map[string][]limitOrder)
	e.balance = decimal.Zero
}
