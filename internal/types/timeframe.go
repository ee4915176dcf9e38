package types

import (
	"strings"
	"time"

	"github.com/rxtech-lab/argo-dca/pkg/errors"
)

// Timeframe is a candle interval such as "1m" or "4h".
type Timeframe string

var timeframeDurations = map[Timeframe]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ParseTimeframe normalizes and validates a timeframe string.
func ParseTimeframe(input string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(input)))
	if _, ok := timeframeDurations[tf]; !ok {
		return "", errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe %q", input)
	}

	return tf, nil
}

// Duration returns the candle span; zero for unknown timeframes.
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// AlignDown truncates t to the start of its candle.
func (tf Timeframe) AlignDown(t time.Time) time.Time {
	d := tf.Duration()
	if d <= 0 {
		return t
	}

	return t.Truncate(d)
}
