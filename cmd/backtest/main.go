package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/app"
	"github.com/rxtech-lab/argo-dca/internal/backtest"
	"github.com/rxtech-lab/argo-dca/internal/config"
	"github.com/rxtech-lab/argo-dca/internal/marketdata"
	"github.com/rxtech-lab/argo-dca/internal/storage"
	"github.com/rxtech-lab/argo-dca/internal/strategy"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/internal/version"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func pairFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "exchange",
			Aliases:  []string{"e"},
			Usage:    "Exchange name as configured",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "symbol",
			Aliases:  []string{"s"},
			Usage:    "Pair symbol, e.g. BTC/USDT",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "timeframe",
			Usage: "Timeframe of the pair when the symbol is configured more than once",
		},
	}
}

// withApp opens the configured app for the duration of fn.
func withApp(ctx context.Context, cmd *cli.Command, fn func(a *app.App) error) error {
	a, err := app.New(ctx, cmd.String("config"))
	if err != nil {
		return err
	}

	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Failed to close: %v", err)
		}
	}()

	return fn(a)
}

func lookupPair(a *app.App, cmd *cli.Command) (types.Pair, error) {
	pair, ok := a.Config.FindPair(cmd.String("exchange"), cmd.String("symbol"), types.Timeframe(cmd.String("timeframe")))
	if !ok {
		return types.Pair{}, errors.Newf(errors.ErrCodeDataNotFound, "pair %s on %s is not configured", cmd.String("symbol"), cmd.String("exchange"))
	}

	return pair, nil
}

func importAction(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, func(a *app.App) error {
		pair, err := lookupPair(a, cmd)
		if err != nil {
			return err
		}

		imported, err := a.Store.Candles(storage.PurposeBacktest).ImportFile(ctx, pair, cmd.String("file"))
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d candles for %s %s\n", imported, pair.Symbol(), pair.Timeframe)

		return nil
	})
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, func(a *app.App) error {
		pair, err := lookupPair(a, cmd)
		if err != nil {
			return err
		}

		end := pair.Timeframe.AlignDown(time.Now().UTC())
		if cmd.IsSet("end") {
			end = cmd.Timestamp("end").UTC()
		}

		start := end.Add(-time.Duration(a.Config.Backtest.Days) * 24 * time.Hour)
		if cmd.IsSet("start") {
			start = cmd.Timestamp("start").UTC()
		}

		var bar *progressbar.ProgressBar

		onProgress := func(current, total int64) {
			if bar == nil {
				bar = progressbar.NewOptions64(total,
					progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", pair.Symbol())),
				)
			}

			_ = bar.Set64(current)
		}

		downloader := marketdata.NewBinanceDownloader(a.Log)

		n, err := downloader.Download(ctx, pair, start, end, a.Store.Candles(storage.PurposeBacktest), onProgress)
		if bar != nil {
			_ = bar.Finish()
		}

		if err != nil {
			return err
		}

		fmt.Printf("\nDownloaded %d candles for %s %s\n", n, pair.Symbol(), pair.Timeframe)

		return nil
	})
}

func windowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.TimestampFlag{
			Name:  "start",
			Usage: "Start date in `YYYY-MM-DD` format",
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02", time.RFC3339},
			},
		},
		&cli.TimestampFlag{
			Name:  "end",
			Usage: "End date in `YYYY-MM-DD` format",
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02", time.RFC3339},
			},
		},
	}
}

func exportAction(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, func(a *app.App) error {
		pair, err := lookupPair(a, cmd)
		if err != nil {
			return err
		}

		return a.Store.Candles(storage.PurposeBacktest).ExportParquet(ctx, pair, cmd.String("out"))
	})
}

// preflightAction checks the account settings of the pair's exchange against
// its strategy and fails when the pair would be unsafe to trade.
func preflightAction(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, func(a *app.App) error {
		pair, err := lookupPair(a, cmd)
		if err != nil {
			return err
		}

		strat, err := strategy.New(pair.StrategyName, pair.StrategyParams)
		if err != nil {
			return err
		}

		ex, err := a.Exchange(pair.ExchangeName)
		if err != nil {
			return err
		}

		report := strategy.ValidateExchangeSettings(ctx, ex, pair, strat)
		out := cmd.Root().Writer

		fmt.Fprintf(out, "Preflight %s %s on %s\n", pair.Symbol(), pair.Timeframe, pair.ExchangeName)

		for _, w := range report.Warnings {
			fmt.Fprintf(out, "  warning: %s\n", w)
		}

		for _, e := range report.Errors {
			fmt.Fprintf(out, "  error:   %s\n", e)
		}

		if !report.OK() {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "%s is unsafe to trade: %d error(s)", pair.Symbol(), len(report.Errors))
		}

		fmt.Fprintln(out, "  ok")

		return nil
	})
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, func(a *app.App) error {
		pair, err := lookupPair(a, cmd)
		if err != nil {
			return err
		}

		req, err := buildRequest(a.Config, pair, cmd, time.Now())
		if err != nil {
			return err
		}

		// the venue's tick sizes and qty steps, when its driver can be built
		if ref, err := a.Exchange(pair.ExchangeName); err == nil {
			req.Reference = ref
		} else {
			a.Log.Debug("No reference exchange, using default market rules", zap.String("exchange", pair.ExchangeName), zap.Error(err))
		}

		if path := cmd.String("events"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create events file: %w", err)
			}
			defer f.Close()

			req.Sink = backtest.NewJSONLinesSink(f)
		}

		var bar *progressbar.ProgressBar

		req.OnProgress = func(current, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription(fmt.Sprintf("Backtesting %s", pair.Symbol())),
					progressbar.OptionShowCount(),
				)
			}

			_ = bar.Set(current)
		}

		result, err := a.Runner(a.Log.WithFields(zap.String("symbol", pair.Symbol()))).Run(ctx, req)
		if bar != nil {
			_ = bar.Finish()
		}

		if err != nil {
			return err
		}

		printResult(result)

		return nil
	})
}

// buildRequest resolves the window and balance of a run from flags, then the
// pair's backtest overrides, then the backtest section of the config.
func buildRequest(cfg *config.Config, pair types.Pair, cmd *cli.Command, now time.Time) (backtest.Request, error) {
	strat, err := strategy.New(pair.StrategyName, pair.StrategyParams)
	if err != nil {
		return backtest.Request{}, err
	}

	days := cfg.Backtest.Days
	if pairDays, err := pair.BacktestDays.Take(); err == nil {
		days = pairDays
	}

	if cmd.IsSet("days") {
		days = int(cmd.Int("days"))
	}

	end := pair.Timeframe.AlignDown(now)
	if cmd.IsSet("end") {
		end = cmd.Timestamp("end").UTC()
	}

	start := end.Add(-time.Duration(days) * 24 * time.Hour)
	if cmd.IsSet("start") {
		start = cmd.Timestamp("start").UTC()
	}

	balance := decimal.NewFromFloat(cfg.Backtest.InitialBalance)
	if pairBalance, err := pair.BacktestInitialBalance.Take(); err == nil {
		balance = pairBalance
	}

	if cmd.IsSet("balance") {
		balance = decimal.NewFromFloat(cmd.Float("balance"))
	}

	return backtest.Request{
		Pair:           pair,
		Strategy:       strat,
		Start:          start,
		End:            end,
		InitialBalance: balance,
		Leverage:       cfg.Backtest.Leverage,
		Commission:     cfg.Backtest.Broker,
		TicksPerCandle: cfg.Backtest.TicksPerCandle,
	}, nil
}

func printResult(r *backtest.Result) {
	fmt.Printf("\nRun %s\n", r.RunID)
	fmt.Printf("  %s %s %s %s\n", r.ExchangeName, r.Symbol, r.MarketType, r.Timeframe)
	fmt.Printf("  window       %s .. %s\n", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	fmt.Printf("  balance      %s -> %s (%.2f%%)\n", r.InitialBalance.StringFixed(2), r.FinalBalance.StringFixed(2), r.PnlPercent)
	fmt.Printf("  trades       %d (win rate %.1f%%)\n", r.Stats.TradeResult.NumberOfTrades, r.Stats.TradeResult.WinRate*100)
	fmt.Printf("  max drawdown %.2f%%\n", r.Stats.TradeResult.MaxDrawdown)
	fmt.Printf("  buy and hold %.2f%%\n", r.Stats.BuyAndHoldPnl)

	if r.Liquidated {
		fmt.Println("  LIQUIDATED")
	}
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := (&config.Config{}).GenerateSchemaJSON()
	if err != nil {
		return err
	}

	if out := cmd.String("out"); out != "" {
		return os.WriteFile(out, []byte(schema), 0644)
	}

	fmt.Println(schema)

	return nil
}

func paramsAction(_ context.Context, _ *cli.Command) error {
	docs := config.StrategyDocs()

	for _, name := range strategy.Names() {
		fmt.Printf("%s\n", name)

		for _, doc := range docs[name] {
			tunable := ""
			if doc.Tunable {
				tunable = " (tunable)"
			}

			fmt.Printf("  %-28s %-8s default %v%s\n", doc.Name, doc.Kind, doc.Default, tunable)
		}
	}

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "backtest",
		Usage:   "Replay configured strategies over stored candles",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				Value:   "config.yaml",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import a CSV or Parquet file of candles",
				Flags: append(pairFlags(), &cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"f"},
					Usage:    "File with the columns time, open, high, low, close, volume",
					Required: true,
				}),
				Action: importAction,
			},
			{
				Name:   "download",
				Usage:  "Download candles from the public Binance API",
				Flags:  append(pairFlags(), windowFlags()...),
				Action: downloadAction,
			},
			{
				Name:  "export",
				Usage: "Export stored candles to Parquet",
				Flags: append(pairFlags(), &cli.StringFlag{
					Name:     "out",
					Aliases:  []string{"o"},
					Usage:    "Output Parquet file",
					Required: true,
				}),
				Action: exportAction,
			},
			{
				Name:  "run",
				Usage: "Backtest one configured pair",
				Flags: append(pairFlags(),
					&cli.IntFlag{
						Name:  "days",
						Usage: "Days to replay, ending at the last closed candle",
					},
					&cli.TimestampFlag{
						Name:  "start",
						Usage: "Start date in `YYYY-MM-DD` format",
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02", time.RFC3339},
						},
					},
					&cli.TimestampFlag{
						Name:  "end",
						Usage: "End date in `YYYY-MM-DD` format",
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02", time.RFC3339},
						},
					},
					&cli.FloatFlag{
						Name:  "balance",
						Usage: "Initial quote balance",
					},
					&cli.StringFlag{
						Name:  "events",
						Usage: "Write replay events as JSON lines to this file",
					},
				),
				Action: runAction,
			},
			{
				Name:   "preflight",
				Usage:  "Check the exchange account settings of a pair before trading it",
				Flags:  pairFlags(),
				Action: preflightAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Write the schema to a file instead of stdout",
					},
				},
				Action: schemaAction,
			},
			{
				Name:   "params",
				Usage:  "List strategy parameters and their defaults",
				Action: paramsAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
