package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/types"
)

// CandleGenerator generates synthetic candles for tests and benchmarks.
type CandleGenerator struct {
	rng *rand.Rand
}

// NewCandleGenerator creates a generator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewCandleGenerator(seed int64) *CandleGenerator {
	return &CandleGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how candles are generated.
type GeneratorConfig struct {
	StartTime time.Time
	// Interval is the candle timeframe
	Interval     time.Duration
	Count        int
	InitialPrice float64
	// Volatility controls price movement per candle (0.01 = 1%)
	Volatility float64
	// Trend is the total drift over the series (-0.2 to 0.2 for bearish to bullish)
	Trend          float64
	VolumeBase     float64
	VolumeVariance float64
}

// DefaultConfig returns hourly candles around 100.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       time.Hour,
		Count:          500,
		InitialPrice:   100.0,
		Volatility:     0.01,
		Trend:          0.0,
		VolumeBase:     1000,
		VolumeVariance: 0.3,
	}
}

// Generate follows a geometric Brownian motion so consecutive candles connect.
func (g *CandleGenerator) Generate(config GeneratorConfig) []types.Candle {
	candles := make([]types.Candle, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normal sample
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		close := open * (1 + config.Volatility*z + drift)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		candles[i] = types.Candle{
			OpenTime: currentTime,
			Open:     roundToDecimals(open, 4),
			High:     roundToDecimals(high, 4),
			Low:      roundToDecimals(low, 4),
			Close:    roundToDecimals(close, 4),
			Volume:   roundToDecimals(volume, 2),
		}

		currentPrice = candles[i].Close
		currentTime = currentTime.Add(config.Interval)
	}

	return candles
}

// FlatThenBullish returns flat candles at price followed by one bullish candle
// whose high and close reach price*(1+risePercent/100).
func FlatThenBullish(start time.Time, interval time.Duration, flat int, price, risePercent float64) []types.Candle {
	candles := make([]types.Candle, 0, flat+1)

	for i := 0; i < flat; i++ {
		candles = append(candles, types.Candle{
			OpenTime: start.Add(time.Duration(i) * interval),
			Open:     price,
			High:     price,
			Low:      price,
			Close:    price,
			Volume:   1,
		})
	}

	top := price * (1 + risePercent/100)
	candles = append(candles, types.Candle{
		OpenTime: start.Add(time.Duration(flat) * interval),
		Open:     price,
		High:     top,
		Low:      price,
		Close:    top,
		Volume:   1,
	})

	return candles
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
