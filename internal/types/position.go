package types

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// PositionKey addresses the at-most-one active position slot of a market.
type PositionKey struct {
	ExchangeName string
	Ticker       string
	MarketType   MarketType
}

func (k PositionKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.ExchangeName, k.Ticker, k.MarketType)
}

// Position is the persistent record of one trade, live or simulated.
type Position struct {
	ID                      string                     `yaml:"id" json:"id"`
	ExchangeName            string                     `yaml:"exchange" json:"exchange"`
	Ticker                  string                     `yaml:"ticker" json:"ticker"`
	MarketType              MarketType                 `yaml:"market_type" json:"market_type"`
	Direction               Direction                  `yaml:"direction" json:"direction"`
	Status                  PositionStatus             `yaml:"status" json:"status"`
	InitialEntryPrice       decimal.Decimal            `yaml:"initial_entry_price" json:"initial_entry_price"`
	AverageEntryPrice       decimal.Decimal            `yaml:"average_entry_price" json:"average_entry_price"`
	CurrentPrice            decimal.Decimal            `yaml:"current_price" json:"current_price"`
	Volume                  decimal.Decimal            `yaml:"volume" json:"volume"`
	BaseCurrency            string                     `yaml:"base_currency" json:"base_currency"`
	QuoteCurrency           string                     `yaml:"quote_currency" json:"quote_currency"`
	EntryOrderID            string                     `yaml:"entry_order_id" json:"entry_order_id"`
	TakeProfitPrice         decimal.NullDecimal        `yaml:"take_profit_price" json:"take_profit_price"`
	ExpectedProfitPercent   float64                    `yaml:"expected_profit_percent" json:"expected_profit_percent"`
	StopLossPrice           decimal.NullDecimal        `yaml:"stop_loss_price" json:"stop_loss_price"`
	ExpectedStopLossPercent float64                    `yaml:"expected_stop_loss_percent" json:"expected_stop_loss_percent"`
	FinishReason            FinishReason               `yaml:"finish_reason,omitempty" json:"finish_reason,omitempty"`
	FilledLevel             int                        `yaml:"filled_level" json:"filled_level"`
	RealizedPnl             decimal.Decimal            `yaml:"realized_pnl" json:"realized_pnl"`
	ClosePrice              decimal.NullDecimal        `yaml:"close_price" json:"close_price"`
	CreatedAt               time.Time                  `yaml:"created_at" json:"created_at"`
	UpdatedAt               time.Time                  `yaml:"updated_at" json:"updated_at"`
	FinishedAt              optional.Option[time.Time] `yaml:"finished_at" json:"finished_at"`
	// ReduceOrderPrice is the price of a resting reduce-only limit order.
	ReduceOrderPrice decimal.NullDecimal        `yaml:"reduce_order_price" json:"reduce_order_price"`
	PartialClosedAt  optional.Option[time.Time] `yaml:"partial_closed_at" json:"partial_closed_at"`
}

// Key returns the market slot this position occupies.
func (p *Position) Key() PositionKey {
	return PositionKey{ExchangeName: p.ExchangeName, Ticker: p.Ticker, MarketType: p.MarketType}
}

// IsActive reports whether the position is PENDING or OPEN.
func (p *Position) IsActive() bool {
	return p.Status.IsActive()
}

// ApplyFill adds qty filled at price and recomputes the volume-weighted average entry.
func (p *Position) ApplyFill(qty, price decimal.Decimal) {
	if !qty.IsPositive() {
		return
	}

	total := p.Volume.Add(qty)
	p.AverageEntryPrice = p.Volume.Mul(p.AverageEntryPrice).Add(qty.Mul(price)).Div(total)
	p.Volume = total
}

// PnlAt returns the PnL of closing qty at exitPrice against the average entry.
func (p *Position) PnlAt(exitPrice, qty decimal.Decimal) decimal.Decimal {
	diff := exitPrice.Sub(p.AverageEntryPrice)
	if p.Direction == DirectionShort {
		diff = diff.Neg()
	}

	return diff.Mul(qty)
}

// UnrealizedPnl returns the PnL of closing the whole volume at price.
func (p *Position) UnrealizedPnl(price decimal.Decimal) decimal.Decimal {
	return p.PnlAt(price, p.Volume)
}

// ProgressToTakeProfit returns (current-entry)/(tp-entry)*100, measured from
// the initial entry. Zero when no take-profit is set.
func (p *Position) ProgressToTakeProfit(current decimal.Decimal) float64 {
	if !p.TakeProfitPrice.Valid {
		return 0
	}

	span := p.TakeProfitPrice.Decimal.Sub(p.InitialEntryPrice)
	if span.IsZero() {
		return 0
	}

	return current.Sub(p.InitialEntryPrice).Div(span).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Notional returns volume * average entry in quote currency.
func (p *Position) Notional() decimal.Decimal {
	return p.Volume.Mul(p.AverageEntryPrice)
}

// Duration returns how long the position has been or was held.
func (p *Position) Duration(now time.Time) time.Duration {
	end := now
	if p.FinishedAt.IsSome() {
		end = p.FinishedAt.Unwrap()
	}

	return end.Sub(p.CreatedAt)
}
