package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MoneyTestSuite struct {
	suite.Suite
}

func TestMoneySuite(t *testing.T) {
	suite.Run(t, new(MoneyTestSuite))
}

func (suite *MoneyTestSuite) TestAddSub() {
	a := MoneyFromFloat(10.5, "USDT")
	b := MoneyFromFloat(0.25, "USDT")

	suite.True(a.Add(b).Amount.Equal(decimal.RequireFromString("10.75")))
	suite.True(a.Sub(b).Amount.Equal(decimal.RequireFromString("10.25")))
	suite.True(a.Amount.Equal(decimal.RequireFromString("10.5")), "operands must not change")
}

func (suite *MoneyTestSuite) TestCurrencyMismatchPanics() {
	suite.Panics(func() {
		MoneyFromFloat(1, "USDT").Add(MoneyFromFloat(1, "BTC"))
	})
	suite.Panics(func() {
		MoneyFromFloat(1, "USDT").IsLessThan(MoneyFromFloat(1, "BTC"))
	})
}

func (suite *MoneyTestSuite) TestModifyByPercent() {
	tests := []struct {
		name      string
		percent   float64
		direction Direction
		expected  string
	}{
		{name: "long up", percent: 10, direction: DirectionLong, expected: "110"},
		{name: "long down", percent: -5, direction: DirectionLong, expected: "95"},
		{name: "short inverts", percent: 10, direction: DirectionShort, expected: "90"},
		{name: "short negative", percent: -5, direction: DirectionShort, expected: "105"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			m := MoneyFromFloat(100, "USDT")
			got := m.ModifyByPercentWithDirection(tc.percent, tc.direction)
			suite.True(got.Amount.Equal(decimal.RequireFromString(tc.expected)), got.String())
		})
	}
}

func (suite *MoneyTestSuite) TestPercentDifference() {
	suite.InDelta(10.0, MoneyFromFloat(100, "USDT").PercentDifference(MoneyFromFloat(110, "USDT")), 1e-9)
	suite.InDelta(-20.0, MoneyFromFloat(50, "USDT").PercentDifference(MoneyFromFloat(40, "USDT")), 1e-9)
	suite.Equal(0.0, ZeroMoney("USDT").PercentDifference(MoneyFromFloat(40, "USDT")))
}

func (suite *MoneyTestSuite) TestIsZeroTreatsDustAsZero() {
	suite.True(MoneyFromFloat(0.00009, "BTC").IsZero())
	suite.True(MoneyFromFloat(-0.00009, "BTC").IsZero())
	suite.False(MoneyFromFloat(0.0001, "BTC").IsZero())
}

func (suite *MoneyTestSuite) TestStringKeepsEightDigits() {
	suite.Equal("0.12345678 BTC", NewMoney(decimal.RequireFromString("0.123456784"), "BTC").String())
}
