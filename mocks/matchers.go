package mocks

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"
)

type decimalMatcher struct {
	want decimal.Decimal
}

// DecimalEq matches a decimal.Decimal argument by value, ignoring its exponent.
func DecimalEq(want string) gomock.Matcher {
	return decimalMatcher{want: decimal.RequireFromString(want)}
}

func (m decimalMatcher) Matches(x any) bool {
	switch v := x.(type) {
	case decimal.Decimal:
		return v.Equal(m.want)
	case *decimal.Decimal:
		return v != nil && v.Equal(m.want)
	default:
		return false
	}
}

func (m decimalMatcher) String() string {
	return fmt.Sprintf("is decimal %s", m.want.String())
}
