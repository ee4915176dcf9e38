package simexchange

import (
	"context"
	"fmt"
	"slices"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/internal/utils"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (e *Exchange) OpenLong(ctx context.Context, pair types.Pair, quoteVolume decimal.Decimal) (exchange.OrderResult, error) {
	return e.marketOpen(ctx, pair, types.DirectionLong, quoteVolume)
}

func (e *Exchange) OpenShort(ctx context.Context, pair types.Pair, quoteVolume decimal.Decimal) (exchange.OrderResult, error) {
	return e.marketOpen(ctx, pair, types.DirectionShort, quoteVolume)
}

func (e *Exchange) BuyAdditional(ctx context.Context, pair types.Pair, quoteVolume decimal.Decimal) (exchange.OrderResult, error) {
	return e.marketOpen(ctx, pair, types.DirectionLong, quoteVolume)
}

func (e *Exchange) SellAdditional(ctx context.Context, pair types.Pair, quoteVolume decimal.Decimal) (exchange.OrderResult, error) {
	return e.marketOpen(ctx, pair, types.DirectionShort, quoteVolume)
}

func (e *Exchange) marketOpen(ctx context.Context, pair types.Pair, direction types.Direction, quoteVolume decimal.Decimal) (exchange.OrderResult, error) {
	price, err := e.GetCurrentPrice(ctx, pair)
	if err != nil {
		return exchange.OrderResult{}, err
	}

	return e.fillOpen(ctx, pair, direction, quoteVolume, price.Amount, e.nextID())
}

// fillOpen executes an opening fill at price. Shorts on spot and fills
// against an opposite holding are rejected.
func (e *Exchange) fillOpen(ctx context.Context, pair types.Pair, direction types.Direction, quoteVolume, price decimal.Decimal, orderID string) (exchange.OrderResult, error) {
	if direction == types.DirectionShort && !pair.MarketType.IsFutures() {
		return exchange.OrderResult{}, errors.Newf(errors.ErrCodeOrderFailed, "cannot short spot pair %s", pair.Symbol())
	}

	if !price.IsPositive() {
		return exchange.OrderResult{}, errors.Newf(errors.ErrCodeInvalidPrice, "invalid fill price %s", price)
	}

	step, err := e.GetQtyStep(ctx, pair)
	if err != nil {
		return exchange.OrderResult{}, err
	}

	qty := utils.QuoteToBase(quoteVolume, price, step)
	if !qty.IsPositive() {
		return exchange.OrderResult{}, errors.Newf(errors.ErrCodeInvalidVolume, "volume %s %s is below one qty step at %s", quoteVolume, pair.QuoteCurrency, price)
	}

	ticker := e.PairToTicker(pair)

	h, exists := e.holdings[ticker]
	if exists && h.direction != direction {
		return exchange.OrderResult{}, errors.Newf(errors.ErrCodeOrderFailed, "%s holds a %s position", pair.Symbol(), h.direction)
	}

	notional := qty.Mul(price)
	margin := notional.Div(decimal.NewFromInt(int64(e.leverage(pair))))
	fee := e.cfg.Commission.Calculate(notional)

	if margin.Add(fee).GreaterThan(e.freeBalance()) {
		return exchange.OrderResult{}, errors.Newf(errors.ErrCodeInsufficientBalance,
			"order needs %s %s margin, %s free", margin.Add(fee).StringFixed(2), e.cfg.Currency, e.freeBalance().StringFixed(2))
	}

	if !exists {
		h = &holding{pair: pair, direction: direction}
		e.holdings[ticker] = h
	}

	total := h.qty.Add(qty)
	h.avgEntry = h.avgEntry.Mul(h.qty).Add(price.Mul(qty)).Div(total)
	h.qty = total
	h.margin = h.margin.Add(margin)

	e.chargeFee(fee)

	e.log.Debug("Simulated fill",
		zap.String("ticker", ticker),
		zap.String("direction", string(direction)),
		zap.String("qty", qty.String()),
		zap.String("price", price.String()),
	)

	return exchange.OrderResult{OrderID: orderID, Price: price, Qty: qty, Fee: fee}, nil
}

func (e *Exchange) ClosePosition(ctx context.Context, pair types.Pair, direction types.Direction, qty optional.Option[decimal.Decimal]) (exchange.OrderResult, error) {
	price, err := e.GetCurrentPrice(ctx, pair)
	if err != nil {
		return exchange.OrderResult{}, err
	}

	h, ok := e.holdings[e.PairToTicker(pair)]
	if !ok || h.direction != direction {
		return exchange.OrderResult{}, errors.Newf(errors.ErrCodePositionNotFound, "no %s position for %s", direction, pair.Symbol())
	}

	size := h.qty
	if qty.IsSome() && qty.Unwrap().LessThan(h.qty) {
		size = qty.Unwrap()
	}

	return e.fillReduce(pair, size, price.Amount, e.nextID()), nil
}

// fillReduce reduces the holding by qty at price and books the PnL into the
// balance. Closing the whole holding removes its protective and resting orders.
func (e *Exchange) fillReduce(pair types.Pair, qty, price decimal.Decimal, orderID string) exchange.OrderResult {
	ticker := e.PairToTicker(pair)
	h := e.holdings[ticker]

	if qty.GreaterThan(h.qty) {
		qty = h.qty
	}

	pnl := price.Sub(h.avgEntry).Mul(qty).Mul(decimal.NewFromInt(int64(h.direction.Sign())))
	fee := e.cfg.Commission.Calculate(qty.Mul(price))
	released := h.margin.Mul(qty).Div(h.qty)

	e.balance = e.balance.Add(pnl)
	e.chargeFee(fee)

	h.qty = h.qty.Sub(qty)
	h.margin = h.margin.Sub(released)

	if !h.qty.IsPositive() {
		delete(e.holdings, ticker)
		delete(e.orders, ticker)
	}

	return exchange.OrderResult{OrderID: orderID, Price: price, Qty: qty, Fee: fee}
}

func (e *Exchange) chargeFee(fee decimal.Decimal) {
	e.balance = e.balance.Sub(fee)
	e.fees = e.fees.Add(fee)
}

func (e *Exchange) PlaceLimitOrder(ctx context.Context, pair types.Pair, quoteVolume, price decimal.Decimal, direction types.Direction, tpPercent optional.Option[float64]) (string, error) {
	if !price.IsPositive() {
		return "", errors.Newf(errors.ErrCodeInvalidPrice, "limit price must be positive, got %s", price)
	}

	if direction == types.DirectionShort && !pair.MarketType.IsFutures() {
		return "", errors.Newf(errors.ErrCodeOrderFailed, "cannot short spot pair %s", pair.Symbol())
	}

	id := e.nextID()
	ticker := e.PairToTicker(pair)
	e.orders[ticker] = append(e.orders[ticker], limitOrder{
		id:        id,
		kind:      orderOpen,
		pair:      pair,
		direction: direction,
		quote:     quoteVolume,
		price:     price,
		tpPercent: tpPercent,
		createdAt: e.clock.Now(),
	})

	return id, nil
}

func (e *Exchange) PlaceLimitClose(_ context.Context, pair types.Pair, qty, price decimal.Decimal, direction types.Direction) (string, error) {
	ticker := e.PairToTicker(pair)

	h, ok := e.holdings[ticker]
	if !ok || h.direction != direction {
		return "", errors.Newf(errors.ErrCodePositionNotFound, "no %s position for %s", direction, pair.Symbol())
	}

	id := e.nextID()
	e.orders[ticker] = append(e.orders[ticker], limitOrder{
		id:        id,
		kind:      orderReduce,
		pair:      pair,
		direction: direction,
		qty:       qty,
		price:     price,
		createdAt: e.clock.Now(),
	})

	return id, nil
}

func (e *Exchange) RemoveLimitOrders(_ context.Context, pair types.Pair) error {
	delete(e.orders, e.PairToTicker(pair))

	return nil
}

func (e *Exchange) HasActiveOrder(_ context.Context, pair types.Pair, orderID string) (bool, error) {
	return slices.ContainsFunc(e.orders[e.PairToTicker(pair)], func(o limitOrder) bool {
		return o.id == orderID
	}), nil
}

func (e *Exchange) nextID() string {
	e.seq++

	return fmt.Sprintf("sim-%d", e.seq)
}

// crossed reports whether price reached the limit of o.
func (o limitOrder) crossed(price decimal.Decimal) bool {
	buying := o.direction == types.DirectionLong
	if o.kind == orderReduce {
		buying = !buying
	}

	if buying {
		return price.LessThanOrEqual(o.price)
	}

	return price.GreaterThanOrEqual(o.price)
}
