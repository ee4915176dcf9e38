package types

import (
	"fmt"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Pair is a configured trading pair on one exchange.
type Pair struct {
	BaseCurrency           string                           `yaml:"base_currency" json:"base_currency" validate:"required"`
	QuoteCurrency          string                           `yaml:"quote_currency" json:"quote_currency" validate:"required"`
	Timeframe              Timeframe                        `yaml:"timeframe" json:"timeframe" validate:"required"`
	ExchangeName           string                           `yaml:"exchange" json:"exchange" validate:"required"`
	MarketType             MarketType                       `yaml:"market_type" json:"market_type" validate:"required,oneof=SPOT FUTURES INVERSE_FUTURES"`
	TradingEnabled         bool                             `yaml:"trading_enabled" json:"trading_enabled"`
	MonitoringEnabled      bool                             `yaml:"monitoring_enabled" json:"monitoring_enabled"`
	StrategyName           string                           `yaml:"strategy" json:"strategy" validate:"required"`
	StrategyParams         map[string]any                   `yaml:"params" json:"params"`
	BacktestDays           optional.Option[int]             `yaml:"-" json:"-"`
	BacktestInitialBalance optional.Option[decimal.Decimal] `yaml:"-" json:"-"`
}

// Symbol returns BASE/QUOTE.
func (p Pair) Symbol() string {
	return strings.ToUpper(p.BaseCurrency) + "/" + strings.ToUpper(p.QuoteCurrency)
}

// Key identifies the pair across exchanges and market types.
func (p Pair) Key() string {
	return fmt.Sprintf("%s:%s:%s:%s", p.ExchangeName, p.Symbol(), p.MarketType, p.Timeframe)
}

// ParseSymbol splits "BTC/USDT" into base and quote. An invalid symbol is a
// configuration defect and panics.
func ParseSymbol(symbol string) (string, string) {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		panic(fmt.Sprintf("invalid ticker format %q, expected BASE/QUOTE", symbol))
	}

	return strings.ToUpper(parts[0]), strings.ToUpper(parts[1])
}
