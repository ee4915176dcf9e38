package utils

import (
	"github.com/rxtech-lab/argo-dca/internal/backtest/commission_fee"
	"github.com/shopspring/decimal"
)

// CalculateMaxQuantity calculates the maximum base quantity that can be bought with the given quote balance, fees included.
func CalculateMaxQuantity(balance, price decimal.Decimal, commissionFee commission_fee.CommissionFee) decimal.Decimal {
	if !price.IsPositive() || !balance.IsPositive() {
		return decimal.Zero
	}

	maxQty := balance.Div(price)

	// Usually converges quickly, limit iterations
	for i := 0; i < 10; i++ {
		notional := maxQty.Mul(price)
		totalCost := notional.Add(commissionFee.Calculate(notional))
		if totalCost.LessThanOrEqual(balance) {
			break
		}

		maxQty = maxQty.Mul(balance.Div(totalCost))
	}

	return maxQty
}

// RoundDownToStep floors quantity to a multiple of step. A non-positive step leaves the quantity untouched.
func RoundDownToStep(quantity, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return quantity
	}

	return quantity.Div(step).Floor().Mul(step)
}

// RoundToTick rounds price to the nearest multiple of tick.
func RoundToTick(price, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return price
	}

	return price.Div(tick).Round(0).Mul(tick)
}

// QuoteToBase converts a quote-currency amount into a base quantity at price, floored to step.
func QuoteToBase(quote, price, step decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}

	return RoundDownToStep(quote.Div(price), step)
}
