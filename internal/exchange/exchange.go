// Package exchange defines the driver contract every venue adapter implements.
// Live drivers and the simulated exchange are interchangeable behind it.
package exchange

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/shopspring/decimal"
)

// ExchangePosition is a futures position as the venue reports it.
type ExchangePosition struct {
	Direction         types.Direction
	Volume            decimal.Decimal
	AverageEntryPrice decimal.Decimal
	MarkPrice         decimal.Decimal
	UnrealizedPnl     decimal.Decimal
	TakeProfitPrice   decimal.NullDecimal
	StopLossPrice     decimal.NullDecimal
	Leverage          int
}

// OrderResult describes an executed market order.
type OrderResult struct {
	OrderID string
	Price   decimal.Decimal
	// Qty is the filled base quantity.
	Qty decimal.Decimal
	Fee decimal.Decimal
}

// Exchange is the venue driver contract. Failures are returned as errors;
// callers log them and skip the market until the next cycle.
type Exchange interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	// PairToTicker formats the venue symbol, e.g. BTCUSDT or BTC_USDT.
	PairToTicker(pair types.Pair) string

	// GetCandles returns candles ascending by open time.
	GetCandles(ctx context.Context, pair types.Pair, limit int, start, end optional.Option[time.Time]) ([]types.Candle, error)
	GetCurrentPrice(ctx context.Context, pair types.Pair) (types.Money, error)
	GetBalance(ctx context.Context, currency string) (types.Money, error)
	// GetCurrentFuturesPosition returns None when the venue holds no position.
	GetCurrentFuturesPosition(ctx context.Context, pair types.Pair) (optional.Option[ExchangePosition], error)

	// OpenLong and the other market-order calls take a quote-currency volume.
	OpenLong(ctx context.Context, pair types.Pair, quoteVolume decimal.Decimal) (OrderResult, error)
	OpenShort(ctx context.Context, pair types.Pair, quoteVolume decimal.Decimal) (OrderResult, error)
	BuyAdditional(ctx context.Context, pair types.Pair, quoteVolume decimal.Decimal) (OrderResult, error)
	SellAdditional(ctx context.Context, pair types.Pair, quoteVolume decimal.Decimal) (OrderResult, error)
	// ClosePosition closes qty base units, or everything when qty is None.
	ClosePosition(ctx context.Context, pair types.Pair, direction types.Direction, qty optional.Option[decimal.Decimal]) (OrderResult, error)

	// PlaceLimitOrder opens or adds to a position with a quote volume and returns the order id.
	PlaceLimitOrder(ctx context.Context, pair types.Pair, quoteVolume, price decimal.Decimal, direction types.Direction, tpPercent optional.Option[float64]) (string, error)
	// PlaceLimitClose reduces a position by qty base units at price.
	PlaceLimitClose(ctx context.Context, pair types.Pair, qty, price decimal.Decimal, direction types.Direction) (string, error)
	RemoveLimitOrders(ctx context.Context, pair types.Pair) error
	SetTakeProfit(ctx context.Context, pair types.Pair, price decimal.Decimal) error
	SetStopLoss(ctx context.Context, pair types.Pair, price decimal.Decimal) error
	HasActiveOrder(ctx context.Context, pair types.Pair, orderID string) (bool, error)

	GetTickSize(ctx context.Context, pair types.Pair) (decimal.Decimal, error)
	GetQtyStep(ctx context.Context, pair types.Pair) (decimal.Decimal, error)
	GetMarginMode(ctx context.Context, pair types.Pair) (optional.Option[types.MarginMode], error)
	GetPositionMode(ctx context.Context, pair types.Pair) (optional.Option[types.PositionMode], error)
	GetLeverage(ctx context.Context, pair types.Pair) (optional.Option[int], error)
}

// TradingContext builds the snapshot grid levels resolve their volume against.
// Margin is balance times leverage on futures, balance on spot.
func TradingContext(ctx context.Context, ex Exchange, pair types.Pair) (types.TradingContext, error) {
	balance, err := ex.GetBalance(ctx, pair.QuoteCurrency)
	if err != nil {
		return types.TradingContext{}, err
	}

	price, err := ex.GetCurrentPrice(ctx, pair)
	if err != nil {
		return types.TradingContext{}, err
	}

	margin := balance

	if pair.MarketType.IsFutures() {
		leverage, err := ex.GetLeverage(ctx, pair)
		if err == nil && leverage.IsSome() && leverage.Unwrap() > 0 {
			margin = balance.Mul(decimal.NewFromInt(int64(leverage.Unwrap())))
		}
	}

	return types.TradingContext{Balance: balance, Margin: margin, CurrentPrice: price}, nil
}
