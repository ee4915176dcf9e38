package types

import "time"

// Candle is one OHLCV bar. Neighbours are addressed by index in a CandleSeries.
type Candle struct {
	OpenTime time.Time `yaml:"open_time" json:"open_time" csv:"open_time"`
	Open     float64   `yaml:"open" json:"open" csv:"open"`
	High     float64   `yaml:"high" json:"high" csv:"high"`
	Low      float64   `yaml:"low" json:"low" csv:"low"`
	Close    float64   `yaml:"close" json:"close" csv:"close"`
	Volume   float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// IsBullish reports close >= open.
func (c Candle) IsBullish() bool {
	return c.Close >= c.Open
}

// CandleSeries is an append-only, index-addressable candle arena.
type CandleSeries struct {
	candles []Candle
}

// NewCandleSeries copies candles into a new series.
func NewCandleSeries(candles []Candle) *CandleSeries {
	s := &CandleSeries{candles: make([]Candle, 0, len(candles))}
	for _, c := range candles {
		s.Upsert(c)
	}

	return s
}

// Len returns the number of candles.
func (s *CandleSeries) Len() int {
	return len(s.candles)
}

// At returns the candle at index i.
func (s *CandleSeries) At(i int) Candle {
	return s.candles[i]
}

// Last returns the newest candle.
func (s *CandleSeries) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}

	return s.candles[len(s.candles)-1], true
}

// All returns a read-only view of the series.
func (s *CandleSeries) All() []Candle {
	return s.candles
}

// Upsert appends c, or overwrites the last slot when c has the same open time.
// Candles older than the last slot are ignored.
func (s *CandleSeries) Upsert(c Candle) {
	n := len(s.candles)
	if n > 0 {
		last := s.candles[n-1]
		if c.OpenTime.Equal(last.OpenTime) {
			s.candles[n-1] = c

			return
		}

		if c.OpenTime.Before(last.OpenTime) {
			return
		}
	}

	s.candles = append(s.candles, c)
}

// Closes returns the close prices in order.
func (s *CandleSeries) Closes() []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = c.Close
	}

	return out
}

// Aggregate merges every factor consecutive candles into one, aligned to
// multiples of the higher timeframe. The newest bucket may be partial.
func (s *CandleSeries) Aggregate(higher time.Duration) []Candle {
	if higher <= 0 {
		return append([]Candle(nil), s.candles...)
	}

	var out []Candle

	for _, c := range s.candles {
		bucket := c.OpenTime.Truncate(higher)
		if n := len(out); n > 0 && out[n-1].OpenTime.Equal(bucket) {
			agg := &out[n-1]
			agg.High = max(agg.High, c.High)
			agg.Low = min(agg.Low, c.Low)
			agg.Close = c.Close
			agg.Volume += c.Volume

			continue
		}

		out = append(out, Candle{
			OpenTime: bucket,
			Open:     c.Open,
			High:     c.High,
			Low:      c.Low,
			Close:    c.Close,
			Volume:   c.Volume,
		})
	}

	return out
}
