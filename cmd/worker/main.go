package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-dca/internal/app"
	"github.com/rxtech-lab/argo-dca/internal/version"
	"github.com/urfave/cli/v3"
)

func workerAction(ctx context.Context, cmd *cli.Command) error {
	a, err := app.New(ctx, cmd.String("config"))
	if err != nil {
		return err
	}

	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Failed to close: %v", err)
		}
	}()

	return a.RunWorkers(ctx, cmd.StringSlice("exchange"))
}

func main() {
	cmd := &cli.Command{
		Name:    "worker",
		Usage:   "Trade the configured pairs until interrupted",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				Value:   "config.yaml",
			},
			&cli.StringSliceFlag{
				Name:    "exchange",
				Aliases: []string{"e"},
				Usage:   "Exchange to run; repeat for several. Defaults to every configured exchange",
			},
		},
		Action: workerAction,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
