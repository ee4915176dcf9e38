package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/shopspring/decimal"
)

// Report collects the findings of ValidateExchangeSettings. Errors make a
// pair unsafe to trade; warnings are informational.
type Report struct {
	Warnings []string
	Errors   []string
}

// OK reports whether no errors were found.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ValidateExchangeSettings checks the venue account settings and the strategy
// parameters of a pair against each other.
func ValidateExchangeSettings(ctx context.Context, ex exchange.Exchange, pair types.Pair, s Strategy) Report {
	var report Report

	params := s.Params()

	if params.Float("take_profit_percent") <= 0 {
		report.errorf("take_profit_percent must be positive")
	}

	if params.String("direction") != DirectionParamLong && !pair.MarketType.IsFutures() {
		report.errorf("direction %s needs a futures market, %s is %s", params.String("direction"), pair.Symbol(), pair.MarketType)
	}

	if pair.MarketType.IsFutures() {
		validateFutures(ctx, ex, pair, s, &report)
	}

	validateBalance(ctx, ex, pair, params, &report)

	return report
}

func validateFutures(ctx context.Context, ex exchange.Exchange, pair types.Pair, s Strategy, report *Report) {
	leverage, err := ex.GetLeverage(ctx, pair)
	if err != nil || leverage.IsNone() {
		report.warnf("leverage: could not verify via API")
	} else if lev := leverage.Unwrap(); lev > 0 {
		liquidation := 100 / float64(lev)

		stopLoss := s.Params().Float("stop_loss_percent")
		if stopLoss > 0 && stopLoss >= liquidation {
			report.errorf("stop_loss_percent %.2f is beyond the liquidation distance %.2f%% at %dx leverage", stopLoss, liquidation, lev)
		}

		if dca, ok := s.(*DCA); ok {
			g, err := dca.Grid(types.DirectionLong)
			if err == nil && math.Abs(g.MaxOffsetPercent()) >= liquidation {
				report.errorf("deepest grid level %.2f%% is beyond the liquidation distance %.2f%% at %dx leverage", math.Abs(g.MaxOffsetPercent()), liquidation, lev)
			}
		}
	}

	positionMode, err := ex.GetPositionMode(ctx, pair)

	switch {
	case err != nil || positionMode.IsNone():
		report.warnf("position mode: could not verify via API")
	case positionMode.Unwrap() == types.PositionModeHedge:
		report.errorf("position mode must be %s, got %s", types.PositionModeOneWay, types.PositionModeHedge)
	}

	marginMode, err := ex.GetMarginMode(ctx, pair)

	switch {
	case err != nil || marginMode.IsNone():
		report.warnf("margin mode: could not verify via API")
	case marginMode.Unwrap() != types.MarginModeIsolated:
		report.warnf("margin mode is %s, %s limits losses to the position", marginMode.Unwrap(), types.MarginModeIsolated)
	}
}

func validateBalance(ctx context.Context, ex exchange.Exchange, pair types.Pair, params Params, report *Report) {
	if types.VolumeMode(params.String("volume_mode")) != types.VolumeModeAbsoluteQuote {
		return
	}

	balance, err := ex.GetBalance(ctx, pair.QuoteCurrency)
	if err != nil {
		report.warnf("balance: could not verify via API")

		return
	}

	volume := decimal.NewFromFloat(params.Float("entry_volume"))
	if volume.GreaterThan(balance.Amount) {
		report.warnf("entry_volume %s exceeds %s balance %s", volume, pair.QuoteCurrency, balance.Amount.StringFixed(2))
	}
}
