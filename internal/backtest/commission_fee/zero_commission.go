package commission_fee

import "github.com/shopspring/decimal"

type ZeroCommissionFee struct {
}

func NewZeroCommissionFee() CommissionFee {
	return &ZeroCommissionFee{}
}

func (c *ZeroCommissionFee) Calculate(_ decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}
