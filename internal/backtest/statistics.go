package backtest

import (
	"fmt"
	"math"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type PositionCounts struct {
	Finished int `yaml:"finished" json:"finished"`
	Open     int `yaml:"open" json:"open"`
	Pending  int `yaml:"pending" json:"pending"`
	Canceled int `yaml:"canceled" json:"canceled"`
}

type DirectionResult struct {
	Wins   int `yaml:"wins" json:"wins"`
	Losses int `yaml:"losses" json:"losses"`
}

type TradeResult struct {
	// Count of finished trades.
	NumberOfTrades int `yaml:"number_of_trades" json:"number_of_trades"`
	// Count of winning trades that has positive pnl.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades" json:"number_of_winning_trades"`
	// Count of losing trades that has negative pnl.
	NumberOfLosingTrades int             `yaml:"number_of_losing_trades" json:"number_of_losing_trades"`
	Long                 DirectionResult `yaml:"long" json:"long"`
	Short                DirectionResult `yaml:"short" json:"short"`
	WinRate              float64         `yaml:"win_rate" json:"win_rate"`
	// Maximum drawdown of equity in percent.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
}

type TradeHoldingTime struct {
	// Minimum holding time of a trade in seconds
	Min int `yaml:"min" json:"min"`
	// Maximum holding time of a trade in seconds
	Max int `yaml:"max" json:"max"`
	// Average holding time of a trade in seconds
	Avg int `yaml:"avg" json:"avg"`
	// Median holding time of a trade in seconds
	Median int `yaml:"median" json:"median"`
}

type TradePnl struct {
	// Realized PnL of every position, including partial closes.
	RealizedPnL float64 `yaml:"realized_pnl" json:"realized_pnl"`
	// Unrealized PnL of the positions still open at the end of the run.
	UnrealizedPnL float64 `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	TotalPnL      float64 `yaml:"total_pnl" json:"total_pnl"`
	// Worst realized PnL of a single finished trade.
	MaximumLoss float64 `yaml:"maximum_loss" json:"maximum_loss"`
	// Best realized PnL of a single finished trade.
	MaximumProfit float64 `yaml:"maximum_profit" json:"maximum_profit"`
}

type RiskRatios struct {
	Sharpe  float64 `yaml:"sharpe" json:"sharpe"`
	Sortino float64 `yaml:"sortino" json:"sortino"`
}

type TradeStats struct {
	Positions        PositionCounts   `yaml:"positions" json:"positions"`
	TradeResult      TradeResult      `yaml:"trade_result" json:"trade_result"`
	TradeHoldingTime TradeHoldingTime `yaml:"trade_holding_time" json:"trade_holding_time"`
	TradePnl         TradePnl         `yaml:"trade_pnl" json:"trade_pnl"`
	Risk             RiskRatios       `yaml:"risk" json:"risk"`
	// Seconds of the simulated span without any position held.
	IdleTime    int     `yaml:"idle_time" json:"idle_time"`
	IdlePercent float64 `yaml:"idle_percent" json:"idle_percent"`
	TotalFees   float64 `yaml:"total_fees" json:"total_fees"`
	// Buy and hold PnL in percent over the same window.
	BuyAndHoldPnl float64 `yaml:"buy_and_hold_pnl" json:"buy_and_hold_pnl"`
}

// Result is the outcome of one backtest run.
type Result struct {
	RunID          string           `yaml:"id" json:"id"`
	ExchangeName   string           `yaml:"exchange" json:"exchange"`
	Ticker         string           `yaml:"ticker" json:"ticker"`
	Symbol         string           `yaml:"symbol" json:"symbol"`
	MarketType     types.MarketType `yaml:"market_type" json:"market_type"`
	Timeframe      types.Timeframe  `yaml:"timeframe" json:"timeframe"`
	Strategy       string           `yaml:"strategy" json:"strategy"`
	Params         map[string]any   `yaml:"params" json:"params"`
	Start          time.Time        `yaml:"start" json:"start"`
	End            time.Time        `yaml:"end" json:"end"`
	InitialBalance decimal.Decimal  `yaml:"initial_balance" json:"initial_balance"`
	FinalBalance   decimal.Decimal  `yaml:"final_balance" json:"final_balance"`
	PnlPercent     float64          `yaml:"pnl_percent" json:"pnl_percent"`
	Liquidated     bool             `yaml:"liquidated" json:"liquidated"`
	Stats          TradeStats       `yaml:"stats" json:"stats"`
	CreatedAt      time.Time        `yaml:"created_at" json:"created_at"`
}

// Duration is the simulated span of the run.
func (r *Result) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

type statsInput struct {
	positions   []*types.Position
	start, end  time.Time
	unrealized  decimal.Decimal
	fees        decimal.Decimal
	maxDrawdown float64
	firstPrice  float64
	lastPrice   float64
}

func computeStats(in statsInput) TradeStats {
	var (
		stats     TradeStats
		realized  = decimal.Zero
		pnls      []float64
		durations []time.Duration
		intervals []interval
	)

	stats.TradePnl.MaximumLoss = math.Inf(1)
	stats.TradePnl.MaximumProfit = math.Inf(-1)

	for _, p := range in.positions {
		realized = realized.Add(p.RealizedPnl)

		switch p.Status {
		case types.PositionStatusPending:
			stats.Positions.Pending++

			continue
		case types.PositionStatusCanceled, types.PositionStatusError:
			stats.Positions.Canceled++

			continue
		case types.PositionStatusOpen:
			stats.Positions.Open++
			intervals = append(intervals, interval{p.CreatedAt, in.end})

			continue
		}

		stats.Positions.Finished++

		pnl := p.RealizedPnl.InexactFloat64()
		pnls = append(pnls, pnl)
		durations = append(durations, p.Duration(in.end))
		intervals = append(intervals, interval{p.CreatedAt, p.CreatedAt.Add(p.Duration(in.end))})

		stats.TradePnl.MaximumLoss = math.Min(stats.TradePnl.MaximumLoss, pnl)
		stats.TradePnl.MaximumProfit = math.Max(stats.TradePnl.MaximumProfit, pnl)

		side := &stats.TradeResult.Long
		if p.Direction == types.DirectionShort {
			side = &stats.TradeResult.Short
		}

		switch {
		case pnl > 0:
			stats.TradeResult.NumberOfWinningTrades++
			side.Wins++
		case pnl < 0:
			stats.TradeResult.NumberOfLosingTrades++
			side.Losses++
		}
	}

	if len(pnls) == 0 {
		stats.TradePnl.MaximumLoss = 0
		stats.TradePnl.MaximumProfit = 0
	}

	stats.TradeResult.NumberOfTrades = stats.Positions.Finished
	if stats.Positions.Finished > 0 {
		stats.TradeResult.WinRate = float64(stats.TradeResult.NumberOfWinningTrades) / float64(stats.Positions.Finished)
	}

	stats.TradeResult.MaxDrawdown = in.maxDrawdown
	stats.TradeHoldingTime = holdingTime(durations)

	stats.TradePnl.RealizedPnL = realized.InexactFloat64()
	stats.TradePnl.UnrealizedPnL = in.unrealized.InexactFloat64()
	stats.TradePnl.TotalPnL = realized.Add(in.unrealized).InexactFloat64()

	stats.Risk = RiskRatios{Sharpe: sharpe(pnls), Sortino: sortino(pnls)}

	span := in.end.Sub(in.start)
	idle := span - covered(intervals, in.start, in.end)
	stats.IdleTime = int(idle.Seconds())

	if span > 0 {
		stats.IdlePercent = float64(idle) / float64(span) * 100
	}

	stats.TotalFees = in.fees.InexactFloat64()

	if in.firstPrice > 0 {
		stats.BuyAndHoldPnl = (in.lastPrice - in.firstPrice) / in.firstPrice * 100
	}

	return stats
}

func holdingTime(durations []time.Duration) TradeHoldingTime {
	if len(durations) == 0 {
		return TradeHoldingTime{}
	}

	sorted := slices.Clone(durations)
	slices.Sort(sorted)

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	n := len(sorted)

	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return TradeHoldingTime{
		Min:    int(sorted[0].Seconds()),
		Max:    int(sorted[n-1].Seconds()),
		Avg:    int((total / time.Duration(n)).Seconds()),
		Median: int(median.Seconds()),
	}
}

type interval struct {
	from, to time.Time
}

// covered merges overlapping intervals clipped to [start, end] and returns
// the total time they cover.
func covered(intervals []interval, start, end time.Time) time.Duration {
	clipped := make([]interval, 0, len(intervals))

	for _, iv := range intervals {
		if iv.from.Before(start) {
			iv.from = start
		}

		if iv.to.After(end) {
			iv.to = end
		}

		if iv.to.After(iv.from) {
			clipped = append(clipped, iv)
		}
	}

	sort.Slice(clipped, func(i, j int) bool { return clipped[i].from.Before(clipped[j].from) })

	var (
		total   time.Duration
		current interval
		open    bool
	)

	for _, iv := range clipped {
		if open && !iv.from.After(current.to) {
			if iv.to.After(current.to) {
				current.to = iv.to
			}

			continue
		}

		if open {
			total += current.to.Sub(current.from)
		}

		current, open = iv, true
	}

	if open {
		total += current.to.Sub(current.from)
	}

	return total
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// sharpe is the mean per-trade PnL over its sample standard deviation.
func sharpe(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}

	m := mean(pnls)

	var variance float64
	for _, v := range pnls {
		variance += (v - m) * (v - m)
	}

	std := math.Sqrt(variance / float64(len(pnls)-1))
	if std == 0 {
		return 0
	}

	return m / std
}

// sortino is the mean per-trade PnL over the downside deviation.
func sortino(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}

	var downside float64
	for _, v := range pnls {
		if v < 0 {
			downside += v * v
		}
	}

	dd := math.Sqrt(downside / float64(len(pnls)))
	if dd == 0 {
		return 0
	}

	return mean(pnls) / dd
}

// WriteTradeStats writes the run results as YAML.
func WriteTradeStats(path string, results []Result) error {
	data, err := yaml.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal trade stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write trade stats to file: %w", err)
	}

	return nil
}
