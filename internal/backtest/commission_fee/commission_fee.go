package commission_fee

import "github.com/shopspring/decimal"

type CommissionFee interface {
	// Calculate the commission fee for a fill with the given quote notional and returns the fee in quote currency
	Calculate(notional decimal.Decimal) decimal.Decimal
}

type Broker string

const (
	BrokerBybit  Broker = "bybit"
	BrokerGate   Broker = "gate"
	BrokerKucoin Broker = "kucoin"
	BrokerZero   Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerBybit,
	BrokerGate,
	BrokerKucoin,
	BrokerZero,
}

func GetCommissionFeeHandler(broker Broker) CommissionFee {
	switch broker {
	case BrokerBybit:
		return NewPercentCommissionFee(0.055)
	case BrokerGate:
		return NewPercentCommissionFee(0.05)
	case BrokerKucoin:
		return NewPercentCommissionFee(0.06)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
