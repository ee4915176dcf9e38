// Package grid turns DCA strategy parameters into an ordered list of
// limit orders, each with a quote volume and a signed price offset.
package grid

import (
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Level is one planned order of the grid. OffsetPercent is an unsigned
// magnitude whose meaning depends on the grid's OffsetMode.
type Level struct {
	RawVolume     decimal.Decimal  `yaml:"raw_volume" json:"raw_volume"`
	VolumeMode    types.VolumeMode `yaml:"volume_mode" json:"volume_mode"`
	OffsetPercent float64          `yaml:"offset_percent" json:"offset_percent"`
}

// ResolveVolume converts the raw volume into a quote-currency amount.
func (l Level) ResolveVolume(ctx types.TradingContext) decimal.Decimal {
	switch l.VolumeMode {
	case types.VolumeModeAbsoluteBase:
		return l.RawVolume.Mul(ctx.CurrentPrice.Amount)
	case types.VolumeModePercentBalance:
		return ctx.Balance.Amount.Mul(l.RawVolume).Div(hundred)
	case types.VolumeModePercentMargin:
		return ctx.Margin.Amount.Mul(l.RawVolume).Div(hundred)
	default:
		return l.RawVolume
	}
}
