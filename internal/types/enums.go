package types

// Direction is the side of a position.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Sign returns 1 for LONG and -1 for SHORT.
func (d Direction) Sign() int {
	if d == DirectionShort {
		return -1
	}

	return 1
}

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == DirectionShort {
		return DirectionLong
	}

	return DirectionShort
}

// MarketType is the kind of venue market a pair trades on.
type MarketType string

const (
	MarketTypeSpot           MarketType = "SPOT"
	MarketTypeFutures        MarketType = "FUTURES"
	MarketTypeInverseFutures MarketType = "INVERSE_FUTURES"
)

// IsFutures reports whether the market has real venue-side positions.
func (m MarketType) IsFutures() bool {
	return m == MarketTypeFutures || m == MarketTypeInverseFutures
}

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionStatusPending  PositionStatus = "PENDING"
	PositionStatusOpen     PositionStatus = "OPEN"
	PositionStatusFinished PositionStatus = "FINISHED"
	PositionStatusCanceled PositionStatus = "CANCELED"
	PositionStatusError    PositionStatus = "ERROR"
)

// IsActive reports whether the status still occupies the market slot.
func (s PositionStatus) IsActive() bool {
	return s == PositionStatusPending || s == PositionStatusOpen
}

// FinishReason explains why a position left the active states.
type FinishReason string

const (
	FinishReasonTakeProfit  FinishReason = "TAKE_PROFIT"
	FinishReasonStopLoss    FinishReason = "STOP_LOSS"
	FinishReasonExternal    FinishReason = "EXTERNAL"
	FinishReasonEntryDrift  FinishReason = "ENTRY_PRICE_DRIFT"
	FinishReasonLiquidation FinishReason = "LIQUIDATION"
	FinishReasonManual      FinishReason = "MANUAL"
)

// VolumeMode selects how a raw grid volume is converted into quote currency.
type VolumeMode string

const (
	VolumeModeAbsoluteQuote  VolumeMode = "ABSOLUTE_QUOTE"
	VolumeModeAbsoluteBase   VolumeMode = "ABSOLUTE_BASE"
	VolumeModePercentBalance VolumeMode = "PERCENT_BALANCE"
	VolumeModePercentMargin  VolumeMode = "PERCENT_MARGIN"
)

// OffsetMode selects how grid offsets accumulate.
type OffsetMode string

const (
	// OffsetModeFromEntry measures each level's offset from the original entry price.
	OffsetModeFromEntry OffsetMode = "FROM_ENTRY"
	// OffsetModeFromPrevious measures each level's offset from the previous level's price.
	OffsetModeFromPrevious OffsetMode = "FROM_PREVIOUS"
)

// MarginMode as reported by a futures venue.
type MarginMode string

const (
	MarginModeIsolated MarginMode = "ISOLATED"
	MarginModeCross    MarginMode = "CROSS"
)

// PositionMode as reported by a futures venue.
type PositionMode string

const (
	PositionModeOneWay PositionMode = "ONE_WAY"
	PositionModeHedge  PositionMode = "HEDGE"
)
