package types

// TradingContext is the snapshot a grid level resolves its volume against.
// It is built fresh for every resolution and never persisted.
type TradingContext struct {
	Balance      Money
	Margin       Money
	CurrentPrice Money
}
