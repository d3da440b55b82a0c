package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/match-predictor/internal/app"
	"github.com/riskibarqy/match-predictor/internal/config"
	"github.com/riskibarqy/match-predictor/internal/observability"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
	"github.com/riskibarqy/match-predictor/internal/usecase"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// session is one command run: the wired app plus the observability hooks
// that must be flushed before exit.
type session struct {
	app     *app.App
	logger  *logging.Logger
	closers []func(context.Context) error
}

func startSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	if err := config.LoadDotEnv(cmd.String("env")); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.NewJSON(cfg.LogLevel).With("command", cmd.Name)
	logging.SetDefault(logger)
	s := &session{logger: logger}

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, shutdownTracing)

	stopProfiler, err := observability.InitPyroscope(cfg, cmd.Name, logger)
	if err != nil {
		s.close()
		return nil, err
	}
	s.closers = append(s.closers, func(context.Context) error { return stopProfiler() })

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		s.close()
		return nil, err
	}
	s.app = a
	return s, nil
}

// close writes metrics and releases resources in reverse start order.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.app != nil {
		if err := s.app.WriteMetrics(); err != nil {
			s.logger.Warn("write metrics textfile failed", "error", err)
		}
		if err := s.app.Close(); err != nil {
			s.logger.Warn("close app failed", "error", err)
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.logger.Warn("shutdown hook failed", "error", err)
		}
	}
	_ = s.logger.Sync()
}

func ingestAction(ctx context.Context, cmd *cli.Command) error {
	s, err := startSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	result, err := s.ingest(ctx, cmd)
	if err != nil {
		return err
	}
	return writeJSON(cmd.Root().Writer, result)
}

func trainAction(ctx context.Context, cmd *cli.Command) error {
	s, err := startSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	result, err := s.train(ctx, cmd)
	if err != nil {
		return err
	}
	return writeJSON(cmd.Root().Writer, result)
}

func predictAction(ctx context.Context, cmd *cli.Command) error {
	s, err := startSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	result, err := s.predict(ctx, cmd)
	if err != nil {
		return err
	}
	return writeJSON(cmd.Root().Writer, result)
}

type pipelineResult struct {
	Ingestion  usecase.IngestionResult `json:"ingestion"`
	Training   usecase.TrainResult     `json:"training"`
	Prediction usecase.PredictResult   `json:"prediction"`
}

func pipelineAction(ctx context.Context, cmd *cli.Command) error {
	s, err := startSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	var out pipelineResult
	if out.Ingestion, err = s.ingest(ctx, cmd); err != nil {
		return err
	}
	if out.Training, err = s.train(ctx, cmd); err != nil {
		return err
	}
	if out.Prediction, err = s.predict(ctx, cmd); err != nil {
		return err
	}
	return writeJSON(cmd.Root().Writer, out)
}

func showAction(ctx context.Context, cmd *cli.Command) error {
	runID := strings.TrimSpace(cmd.String("run"))
	matchID := strings.TrimSpace(cmd.Args().First())
	if runID == "" && matchID == "" {
		return errors.New("show requires a match id or --run")
	}
	s, err := startSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if runID != "" {
		items, err := s.app.Prediction.ListRun(ctx, runID)
		if err != nil {
			return err
		}
		return writeJSON(cmd.Root().Writer, items)
	}
	item, err := s.app.Prediction.Latest(ctx, matchID)
	if err != nil {
		return err
	}
	return writeJSON(cmd.Root().Writer, item)
}

func (s *session) ingest(ctx context.Context, cmd *cli.Command) (usecase.IngestionResult, error) {
	cfg := s.app.IngestionConfig()
	if regions := cmd.StringSlice("region"); len(regions) > 0 {
		cfg.Regions = regions
	}
	if timespan := cmd.Int("timespan"); timespan > 0 {
		cfg.StatsTimespan = int(timespan)
	}

	result, err := s.app.Ingestion.Run(ctx, cfg)
	if err != nil {
		return usecase.IngestionResult{}, fmt.Errorf("ingest: %w", err)
	}
	if failed := result.FailedSources(); failed > 0 {
		s.logger.WarnContext(ctx, "ingestion finished with failed sources", "failed", failed)
	}
	return result, nil
}

func (s *session) train(ctx context.Context, cmd *cli.Command) (usecase.TrainResult, error) {
	path := cmd.String("config")
	if path == "" {
		path = s.app.Config.TrainConfigPath
	}
	training, err := config.LoadTraining(path)
	if err != nil {
		return usecase.TrainResult{}, err
	}
	if cmd.IsSet("limit") && cmd.Int("limit") > 0 {
		training.Limit = int(cmd.Int("limit"))
	}

	result, err := s.app.Training.Train(ctx, usecase.TrainRequest{
		Fit:   training.Fit,
		Limit: training.Limit,
	})
	if err != nil {
		return usecase.TrainResult{}, fmt.Errorf("train: %w", err)
	}
	return result, nil
}

func (s *session) predict(ctx context.Context, cmd *cli.Command) (usecase.PredictResult, error) {
	threshold := s.app.Config.PredictThreshold
	if cmd.IsSet("threshold") {
		threshold = cmd.Float("threshold")
	}
	req := usecase.PredictRequest{
		Threshold: threshold,
		DryRun:    cmd.Bool("dry-run"),
		ModelID:   cmd.String("model"),
	}
	if cmd.IsSet("match") {
		req.MatchIDs = cmd.StringSlice("match")
	}
	if cmd.IsSet("limit") {
		req.Limit = int(cmd.Int("limit"))
	}

	result, err := s.app.Prediction.Predict(ctx, req)
	if err != nil {
		return usecase.PredictResult{}, fmt.Errorf("predict: %w", err)
	}
	return result, nil
}

func writeJSON(w io.Writer, v any) error {
	raw, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	raw = append(raw, '\n')
	_, err = w.Write(raw)
	return err
}
