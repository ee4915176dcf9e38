package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var dustThreshold = decimal.New(1, -4)

// Money is an amount tagged with its currency. Every operation returns a new value.
type Money struct {
	Amount   decimal.Decimal `yaml:"amount" json:"amount"`
	Currency string          `yaml:"currency" json:"currency"`
}

// NewMoney creates a Money value.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// MoneyFromFloat creates a Money value from a float amount.
func MoneyFromFloat(amount float64, currency string) Money {
	return Money{Amount: decimal.NewFromFloat(amount), Currency: currency}
}

// ZeroMoney returns zero in the given currency.
func ZeroMoney(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

func (m Money) mustMatch(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch %s vs %s", m.Currency, other.Currency))
	}
}

// Add returns m + other. Panics when currencies differ.
func (m Money) Add(other Money) Money {
	m.mustMatch(other)

	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}
}

// Sub returns m - other. Panics when currencies differ.
func (m Money) Sub(other Money) Money {
	m.mustMatch(other)

	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}
}

// Mul scales the amount.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// ModifyByPercent multiplies the amount by (1 + p/100).
func (m Money) ModifyByPercent(p float64) Money {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(p).Div(decimal.NewFromInt(100)))

	return m.Mul(factor)
}

// ModifyByPercentWithDirection applies p as a favourable move for direction:
// a SHORT inverts the sign of p before applying it.
func (m Money) ModifyByPercentWithDirection(p float64, direction Direction) Money {
	if direction == DirectionShort {
		p = -p
	}

	return m.ModifyByPercent(p)
}

// PercentDifference returns (other-m)/m*100. Zero when m is zero.
func (m Money) PercentDifference(other Money) float64 {
	m.mustMatch(other)

	if m.Amount.IsZero() {
		return 0
	}

	return other.Amount.Sub(m.Amount).Div(m.Amount).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// IsLessThan compares two amounts of the same currency.
func (m Money) IsLessThan(other Money) bool {
	m.mustMatch(other)

	return m.Amount.LessThan(other.Amount)
}

// IsZero treats dust (|amount| < 1e-4) as zero.
func (m Money) IsZero() bool {
	return m.Amount.Abs().LessThan(dustThreshold)
}

// Float64 returns the amount as a float.
func (m Money) Float64() float64 {
	return m.Amount.InexactFloat64()
}

// String formats the amount with 8 fractional digits.
func (m Money) String() string {
	return m.Amount.StringFixed(8) + " " + m.Currency
}
