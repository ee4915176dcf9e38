package commission_fee

import "github.com/shopspring/decimal"

// PercentCommissionFee charges a flat taker rate on the traded notional.
type PercentCommissionFee struct {
	rate decimal.Decimal
}

// NewPercentCommissionFee creates a fee model charging percent of notional.
func NewPercentCommissionFee(percent float64) CommissionFee {
	return &PercentCommissionFee{
		rate: decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100)),
	}
}

func (c *PercentCommissionFee) Calculate(notional decimal.Decimal) decimal.Decimal {
	if !notional.IsPositive() {
		return decimal.Zero
	}

	return notional.Mul(c.rate)
}
