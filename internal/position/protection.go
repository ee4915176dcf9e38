package position

import (
	"context"

	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/internal/utils"
	"github.com/shopspring/decimal"
)

// ReissueThresholdPercent is the minimum change of a take-profit or stop-loss
// price that causes the venue order to be replaced.
const ReissueThresholdPercent = 0.1

// TakeProfitTarget is the take-profit price implied by the average entry.
func TakeProfitTarget(pos *types.Position, tick decimal.Decimal) decimal.Decimal {
	target := types.NewMoney(pos.AverageEntryPrice, pos.QuoteCurrency).
		ModifyByPercentWithDirection(pos.ExpectedProfitPercent, pos.Direction)

	return utils.RoundToTick(target.Amount, tick)
}

// StopLossTarget is the stop-loss price implied by the average entry.
func StopLossTarget(pos *types.Position, tick decimal.Decimal) decimal.Decimal {
	target := types.NewMoney(pos.AverageEntryPrice, pos.QuoteCurrency).
		ModifyByPercentWithDirection(-pos.ExpectedStopLossPercent, pos.Direction)

	return utils.RoundToTick(target.Amount, tick)
}

func needsReissue(current decimal.NullDecimal, target decimal.Decimal) bool {
	if !current.Valid || current.Decimal.IsZero() {
		return true
	}

	diff := types.NewMoney(current.Decimal, "").PercentDifference(types.NewMoney(target, ""))
	if diff < 0 {
		diff = -diff
	}

	return diff >= ReissueThresholdPercent
}

// UpdateTakeProfit recomputes the take-profit from the average entry and
// re-issues it only when it moved by at least ReissueThresholdPercent.
func UpdateTakeProfit(ctx context.Context, ex exchange.Exchange, pair types.Pair, pos *types.Position, tick decimal.Decimal) (bool, error) {
	if pos.ExpectedProfitPercent <= 0 {
		return false, nil
	}

	target := TakeProfitTarget(pos, tick)
	if !needsReissue(pos.TakeProfitPrice, target) {
		return false, nil
	}

	if err := ex.SetTakeProfit(ctx, pair, target); err != nil {
		return false, err
	}

	pos.TakeProfitPrice = decimal.NewNullDecimal(target)

	return true, nil
}

// UpdateStopLoss is the stop-loss counterpart of UpdateTakeProfit.
func UpdateStopLoss(ctx context.Context, ex exchange.Exchange, pair types.Pair, pos *types.Position, tick decimal.Decimal) (bool, error) {
	if pos.ExpectedStopLossPercent <= 0 {
		return false, nil
	}

	target := StopLossTarget(pos, tick)
	if !needsReissue(pos.StopLossPrice, target) {
		return false, nil
	}

	if err := ex.SetStopLoss(ctx, pair, target); err != nil {
		return false, err
	}

	pos.StopLossPrice = decimal.NewNullDecimal(target)

	return true, nil
}
