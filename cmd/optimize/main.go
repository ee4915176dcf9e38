package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-dca/internal/app"
	"github.com/rxtech-lab/argo-dca/internal/optimizer"
	"github.com/rxtech-lab/argo-dca/internal/version"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

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

func runAction(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, func(a *app.App) error {
		iterations := a.Config.Optimizer.Iterations
		if cmd.IsSet("iterations") {
			iterations = int(cmd.Int("iterations"))
		}

		seed := a.Config.Optimizer.Seed
		if cmd.IsSet("seed") {
			seed = uint64(cmd.Uint("seed"))
		}

		a.Log.Info("Optimizer started", zap.Int("iterations", iterations), zap.Uint64("seed", seed))

		found, err := a.Optimizer(seed).Run(ctx, iterations)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.HasCode(err, errors.ErrCodeNoEligibleParameter):
			a.Log.Warn("Optimizer stopped early", zap.Error(err))
		default:
			return err
		}

		if len(found) == 0 {
			fmt.Println("No improvement found")

			return nil
		}

		for _, s := range found {
			printSuggestion(s)
		}

		return nil
	})
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, func(a *app.App) error {
		suggestions, err := a.Store.ListSuggestions(ctx, uint64(cmd.Uint("limit")))
		if err != nil {
			return err
		}

		for _, s := range suggestions {
			printSuggestion(s)
		}

		return nil
	})
}

func printSuggestion(s *optimizer.Suggestion) {
	fmt.Printf("\n%s %s %s on %s\n", s.ExchangeName, s.Symbol, s.Timeframe, s.Strategy)
	fmt.Printf("  %s: %s -> %s\n", s.Parameter, s.BeforeValue, s.AfterValue)
	fmt.Printf("  pnl %.2f%% -> %.2f%% (+%.2f)\n", s.BeforePnlPercent, s.AfterPnlPercent, s.Improvement())
	fmt.Printf("  runs %s / %s\n", s.BaselineRunID, s.CandidateRunID)
	fmt.Println(s.ConfigSnippet)
}

func main() {
	cmd := &cli.Command{
		Name:    "optimize",
		Usage:   "Search parameter improvements by nudging one parameter per backtest",
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
				Name:  "run",
				Usage: "Run optimizer iterations and print improvements",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "iterations",
						Aliases: []string{"n"},
						Usage:   "Number of iterations",
					},
					&cli.UintFlag{
						Name:  "seed",
						Usage: "Random seed; the same seed picks the same pairs and parameters",
					},
				},
				Action: runAction,
			},
			{
				Name:  "list",
				Usage: "List stored suggestions, best first",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  "limit",
						Usage: "Maximum number of suggestions",
						Value: 20,
					},
				},
				Action: listAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
