package simexchange

import (
	"fmt"

	"github.com/rxtech-lab/argo-dca/internal/backtest/commission_fee"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/runtime"
	"github.com/shopspring/decimal"
)

// DriverName registers the simulated venue for paper trading on the wall clock.
const DriverName = "paper"

func init() {
	exchange.Register(DriverName, newPaperDriver)
}

// newPaperDriver reads the options initial_balance, currency, leverage and
// commission (a broker name).
func newPaperDriver(cfg exchange.DriverConfig, log *logger.Logger) (exchange.Exchange, error) {
	simCfg := Config{
		Name:           cfg.Name,
		InitialBalance: decimal.NewFromInt(10000),
	}

	if v, ok := cfg.Options["initial_balance"]; ok {
		balance, err := decimal.NewFromString(fmt.Sprint(v))
		if err != nil {
			return nil, fmt.Errorf("initial_balance: %w", err)
		}

		simCfg.InitialBalance = balance
	}

	if v, ok := cfg.Options["currency"].(string); ok {
		simCfg.Currency = v
	}

	if v, ok := cfg.Options["leverage"].(int); ok {
		simCfg.Leverage = v
	}

	if v, ok := cfg.Options["commission"].(string); ok {
		simCfg.Commission = commission_fee.GetCommissionFeeHandler(commission_fee.Broker(v))
	}

	return New(simCfg, runtime.SystemClock{}, log), nil
}
