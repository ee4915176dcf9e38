package grid

import (
	"math"

	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
)

// Parameters are the inputs of FromParameters.
type Parameters struct {
	NumberOfLevels           int
	EntryVolume              decimal.Decimal
	VolumeMultiplier         float64
	PriceDeviation           float64
	PriceDeviationMultiplier float64
	Direction                types.Direction
	ExpectedProfit           float64
	OffsetMode               types.OffsetMode
	VolumeMode               types.VolumeMode
	AlwaysMarketEntry        bool
}

// Grid is an ordered set of levels. Level 0 is the entry order and always has offset 0.
type Grid struct {
	Levels                []Level
	Direction             types.Direction
	OffsetMode            types.OffsetMode
	ExpectedProfitPercent float64
	AlwaysMarketEntry     bool
}

// Order is a resolved grid level.
type Order struct {
	Level int
	// Volume in quote currency.
	Volume decimal.Decimal
	// OffsetPercent is the signed distance from the entry price: negative for
	// LONG averaging, positive for SHORT.
	OffsetPercent float64
}

// Price returns the limit price of the order for the given entry price.
// The result is not clamped; callers reject non-positive prices.
func (o Order) Price(entry decimal.Decimal) decimal.Decimal {
	return entry.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(o.OffsetPercent).Div(hundred)))
}

// FromParameters builds the grid level by level.
func FromParameters(p Parameters) (*Grid, error) {
	if p.NumberOfLevels < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidGrid, "number of levels must be at least 1, got %d", p.NumberOfLevels)
	}

	if !p.EntryVolume.IsPositive() {
		return nil, errors.New(errors.ErrCodeInvalidVolume, "entry volume must be positive")
	}

	if p.VolumeMultiplier <= 0 || p.PriceDeviationMultiplier <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidGrid, "multipliers must be positive")
	}

	if p.NumberOfLevels > 1 && p.PriceDeviation <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidGrid, "price deviation must be positive")
	}

	direction := p.Direction
	if direction == "" {
		direction = types.DirectionLong
	}

	offsetMode := p.OffsetMode
	if offsetMode == "" {
		offsetMode = types.OffsetModeFromEntry
	}

	volumeMode := p.VolumeMode
	if volumeMode == "" {
		volumeMode = types.VolumeModeAbsoluteQuote
	}

	levels := make([]Level, 0, p.NumberOfLevels)
	levels = append(levels, Level{RawVolume: p.EntryVolume, VolumeMode: volumeMode, OffsetPercent: 0})

	volume := p.EntryVolume
	volumeMultiplier := decimal.NewFromFloat(p.VolumeMultiplier)
	accumulated := 0.0

	for i := 1; i < p.NumberOfLevels; i++ {
		volume = volume.Mul(volumeMultiplier)
		step := p.PriceDeviation * math.Pow(p.PriceDeviationMultiplier, float64(i-1))

		offset := step
		if offsetMode == types.OffsetModeFromEntry {
			accumulated += step
			offset = accumulated
		}

		levels = append(levels, Level{RawVolume: volume, VolumeMode: volumeMode, OffsetPercent: offset})
	}

	return &Grid{
		Levels:                levels,
		Direction:             direction,
		OffsetMode:            offsetMode,
		ExpectedProfitPercent: p.ExpectedProfit,
		AlwaysMarketEntry:     p.AlwaysMarketEntry,
	}, nil
}

// BuildOrderMap resolves every level against ctx into ordered orders.
func (g *Grid) BuildOrderMap(ctx types.TradingContext) []Order {
	orders := make([]Order, 0, len(g.Levels))
	sign := float64(-g.Direction.Sign())
	ratio := 1.0

	for i, level := range g.Levels {
		magnitude := level.OffsetPercent

		if i > 0 && g.OffsetMode == types.OffsetModeFromPrevious {
			if g.Direction == types.DirectionShort {
				ratio *= 1 + level.OffsetPercent/100
				magnitude = (ratio - 1) * 100
			} else {
				ratio *= 1 - level.OffsetPercent/100
				magnitude = (1 - ratio) * 100
			}
		}

		offset := 0.0
		if i > 0 {
			offset = sign * magnitude
		}

		orders = append(orders, Order{
			Level:         i,
			Volume:        level.ResolveVolume(ctx),
			OffsetPercent: offset,
		})
	}

	return orders
}

// TotalVolume is the quote volume of all levels. An empty grid resolves to zero.
func (g *Grid) TotalVolume(ctx types.TradingContext) decimal.Decimal {
	total := decimal.Zero
	for _, o := range g.BuildOrderMap(ctx) {
		total = total.Add(o.Volume)
	}

	return total
}

// EntryVolume is the quote volume of level 0, or zero for an empty grid.
func (g *Grid) EntryVolume(ctx types.TradingContext) decimal.Decimal {
	if len(g.Levels) == 0 {
		return decimal.Zero
	}

	return g.Levels[0].ResolveVolume(ctx)
}

// MaxOffsetPercent returns the signed offset of the deepest level.
func (g *Grid) MaxOffsetPercent() float64 {
	orders := g.BuildOrderMap(types.TradingContext{})
	if len(orders) == 0 {
		return 0
	}

	return orders[len(orders)-1].OffsetPercent
}
