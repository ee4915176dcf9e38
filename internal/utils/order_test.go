package utils

import (
	"testing"

	"github.com/rxtech-lab/argo-dca/internal/backtest/commission_fee"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsTestSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (suite *UtilsTestSuite) TestCalculateMaxQuantity() {
	tests := []struct {
		name          string
		balance       string
		price         string
		commissionFee commission_fee.CommissionFee
		maxCost       string
	}{
		{
			name:          "Simple case with no commission",
			balance:       "1000",
			price:         "100",
			commissionFee: commission_fee.NewZeroCommissionFee(),
			maxCost:       "1000",
		},
		{
			name:          "Case with commission",
			balance:       "1000",
			price:         "100",
			commissionFee: commission_fee.NewPercentCommissionFee(1),
			maxCost:       "1000",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			qty := CalculateMaxQuantity(d(tc.balance), d(tc.price), tc.commissionFee)
			notional := qty.Mul(d(tc.price))
			cost := notional.Add(tc.commissionFee.Calculate(notional))
			suite.True(cost.Sub(d(tc.maxCost)).LessThan(d("0.000001")), cost.String())
			suite.True(qty.GreaterThan(d("9.8")), qty.String())
		})
	}

	suite.True(CalculateMaxQuantity(decimal.Zero, d("100"), commission_fee.NewZeroCommissionFee()).IsZero())
	suite.True(CalculateMaxQuantity(d("1000"), decimal.Zero, commission_fee.NewZeroCommissionFee()).IsZero())
}

func (suite *UtilsTestSuite) TestRoundDownToStep() {
	tests := []struct {
		name     string
		quantity string
		step     string
		expected string
	}{
		{"floors to step", "1.23456", "0.001", "1.234"},
		{"exact multiple", "2.5", "0.5", "2.5"},
		{"integer step", "7.9", "1", "7"},
		{"zero step untouched", "1.23456", "0", "1.23456"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.True(RoundDownToStep(d(tc.quantity), d(tc.step)).Equal(d(tc.expected)))
		})
	}
}

func (suite *UtilsTestSuite) TestRoundToTick() {
	suite.True(RoundToTick(d("100.126"), d("0.01")).Equal(d("100.13")))
	suite.True(RoundToTick(d("100.124"), d("0.01")).Equal(d("100.12")))
	suite.True(RoundToTick(d("99.5"), d("0")).Equal(d("99.5")))
}

func (suite *UtilsTestSuite) TestQuoteToBase() {
	suite.True(QuoteToBase(d("100"), d("100"), d("0.001")).Equal(d("1")))
	suite.True(QuoteToBase(d("100"), d("3"), d("0.01")).Equal(d("33.33")))
	suite.True(QuoteToBase(d("100"), decimal.Zero, d("0.01")).IsZero())
}
