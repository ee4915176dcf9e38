package backtest

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/types"
)

// DefaultTicksPerCandle is the number of synthetic evaluation points per candle.
const DefaultTicksPerCandle = 4

// Tick is one synthetic evaluation point inside a candle.
type Tick struct {
	Time  time.Time
	Price float64
	// Partial is the candle as it looked at Time: open fixed, high and low
	// limited to the path walked so far, close at the tick price.
	Partial types.Candle
}

// pricePath returns the anchor prices of the intra-candle path.
// Bullish candles dip first, bearish candles spike first.
func pricePath(c types.Candle) [4]float64 {
	if c.IsBullish() {
		return [4]float64{c.Open, c.Low, c.High, c.Close}
	}

	return [4]float64{c.Open, c.High, c.Low, c.Close}
}

// SynthesizeTicks splits a candle into n ticks along its price path. With
// n = 4 the ticks sit exactly on the anchors; other counts interpolate
// linearly between them. The last tick always carries the final candle.
func SynthesizeTicks(c types.Candle, tf types.Timeframe, n int) []Tick {
	if n <= 1 {
		return []Tick{{Time: c.OpenTime, Price: c.Close, Partial: c}}
	}

	path := pricePath(c)
	step := tf.Duration() / time.Duration(n)
	segments := float64(len(path) - 1)

	ticks := make([]Tick, 0, n)
	high, low := c.Open, c.Open

	for k := range n {
		pos := float64(k) * segments / float64(n-1)
		anchor := int(math.Floor(pos))

		// anchors passed on the way count toward the extremes
		for i := 0; i <= anchor && i < len(path); i++ {
			high = math.Max(high, path[i])
			low = math.Min(low, path[i])
		}

		price := path[len(path)-1]
		if anchor < len(path)-1 {
			frac := pos - float64(anchor)
			price = path[anchor] + (path[anchor+1]-path[anchor])*frac
		}

		high = math.Max(high, price)
		low = math.Min(low, price)

		ticks = append(ticks, Tick{
			Time:  c.OpenTime.Add(step * time.Duration(k)),
			Price: price,
			Partial: types.Candle{
				OpenTime: c.OpenTime,
				Open:     c.Open,
				High:     high,
				Low:      low,
				Close:    price,
				Volume:   c.Volume * volumeFraction(k, n),
			},
		})
	}

	ticks[n-1].Partial = c

	return ticks
}

// volumeFraction apportions candle volume: nothing at the open, everything
// at the close and evenly spaced midpoints in between.
func volumeFraction(k, n int) float64 {
	switch {
	case k == 0:
		return 0
	case k == n-1:
		return 1
	default:
		return (float64(k) - 0.5) / float64(n-2)
	}
}
