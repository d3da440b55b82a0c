package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/riskibarqy/match-predictor/internal/ml"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		reportError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// reportError prints err and, for an embedding failure, which input text
// the provider rejected.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, "error:", err)
	if index, ok := ml.EmbeddingIndex(err); ok {
		fmt.Fprintf(w, "failed input: text %d of the embedding batch\n", index)
	}
}

func newRootCommand() *cli.Command {
	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "dotenv file to load before reading the environment",
		Value: ".env",
	}

	return &cli.Command{
		Name:  "predictor",
		Usage: "ingest Valorant match data, train the outcome model and score upcoming matches",
		Flags: []cli.Flag{envFlag},
		Commands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "fetch matches, rankings, player stats and news and store the derived feature rows",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "region",
						Usage: "ranking and stats regions (defaults to INGEST_REGIONS)",
					},
					&cli.IntFlag{
						Name:  "timespan",
						Usage: "player stats window in days (defaults to INGEST_STATS_TIMESPAN)",
					},
				},
				Action: ingestAction,
			},
			{
				Name:  "train",
				Usage: "fit a new model on completed matches and save it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "training YAML file (defaults to TRAIN_CONFIG)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "maximum completed matches to train on",
					},
				},
				Action: trainAction,
			},
			{
				Name:  "predict",
				Usage: "score upcoming matches with the latest model",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "match",
						Usage: "match ids to score (defaults to every upcoming match)",
					},
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "probability at or above which team1 is predicted to win (defaults to PREDICT_THRESHOLD)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "maximum upcoming matches to score",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "print predictions without storing them",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "saved model id to score with (defaults to the latest model)",
					},
				},
				Action: predictAction,
			},
			{
				Name:  "pipeline",
				Usage: "ingest, train and predict in one process",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "training YAML file (defaults to TRAIN_CONFIG)",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "print predictions without storing them",
					},
				},
				Action: pipelineAction,
			},
			{
				Name:      "show",
				Usage:     "print the latest stored prediction for a match, or every prediction of a run",
				ArgsUsage: "<match-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "run",
						Usage: "prediction run id to print instead of a single match",
					},
				},
				Action: showAction,
			},
		},
	}
}
