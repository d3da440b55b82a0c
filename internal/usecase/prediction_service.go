package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
	"github.com/riskibarqy/match-predictor/internal/domain/prediction"
	"github.com/riskibarqy/match-predictor/internal/ml/predictor"
	"github.com/riskibarqy/match-predictor/internal/platform/id"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
)

const defaultPredictLimit = 200

type PredictRequest struct {
	// MatchIDs selects specific matches. Empty means every upcoming match.
	MatchIDs []string
	// Threshold turns probabilities into labels. Zero means 0.5.
	Threshold float64
	Limit     int
	// DryRun skips persisting the predictions.
	DryRun bool
	// ModelID pins a saved model. Empty means the in-memory or latest one.
	ModelID string
}

type PredictResult struct {
	RunID       string                  `json:"run_id"`
	ModelID     string                  `json:"model_id"`
	Threshold   float64                 `json:"threshold"`
	Predictions []prediction.Prediction `json:"predictions"`
	// Skipped lists matches with no row in some feature table.
	Skipped []string `json:"skipped"`
	// Missing lists requested match ids that are not stored.
	Missing []string `json:"missing,omitempty"`
}

type PredictionService struct {
	matchRepo      match.Repository
	predictionRepo prediction.Repository
	dataset        DatasetSource
	features       FeatureEngineer
	predictor      *predictor.Predictor
	models         ModelStore
	ids            id.Generator
	recorder       RunRecorder
	logger         *logging.Logger
	now            func() time.Time
}

func NewPredictionService(
	matchRepo match.Repository,
	predictionRepo prediction.Repository,
	dataset DatasetSource,
	features FeatureEngineer,
	model *predictor.Predictor,
	models ModelStore,
	ids id.Generator,
	recorder RunRecorder,
	logger *logging.Logger,
) *PredictionService {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PredictionService{
		matchRepo:      matchRepo,
		predictionRepo: predictionRepo,
		dataset:        dataset,
		features:       features,
		predictor:      model,
		models:         models,
		ids:            ids,
		recorder:       recorder,
		logger:         logger,
		now:            time.Now,
	}
}

// Predict scores the requested matches with the current model, loading the
// latest saved model first when none is in memory.
func (s *PredictionService) Predict(ctx context.Context, req PredictRequest) (result PredictResult, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.Predict")
	defer span.End()

	start := time.Now()
	defer func() {
		s.recorder.ObservePrediction(result, time.Since(start), err)
	}()

	threshold := req.Threshold
	if threshold == 0 {
		threshold = predictor.DefaultThreshold
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return PredictResult{}, fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidInput, threshold)
	}

	model, err := s.ensureModel(ctx, strings.TrimSpace(req.ModelID))
	if err != nil {
		return PredictResult{}, err
	}

	matches, missing, err := s.targets(ctx, req)
	if err != nil {
		return PredictResult{}, err
	}

	runID, err := s.ids.NewID()
	if err != nil {
		return PredictResult{}, fmt.Errorf("generate run id: %w", err)
	}
	result = PredictResult{
		RunID:       runID,
		ModelID:     model.ID,
		Threshold:   threshold,
		Predictions: []prediction.Prediction{},
		Skipped:     []string{},
		Missing:     missing,
	}
	if len(matches) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(matches))
	byID := make(map[string]match.Match, len(matches))
	for _, m := range matches {
		if _, dup := byID[m.ID]; dup {
			continue
		}
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	ds, err := s.dataset.Load(ctx, ids)
	if err != nil {
		return PredictResult{}, err
	}
	X, err := s.features.PrepareFeatures(ctx, ds.TeamStats, ds.Rankings, ds.PlayerStats, ds.Headlines)
	if err != nil {
		return PredictResult{}, fmt.Errorf("prepare features: %w", err)
	}
	probs, err := s.predictor.PredictProba(X)
	if err != nil {
		return PredictResult{}, fmt.Errorf("predict: %w", err)
	}
	labels := predictor.Labels(probs, threshold)

	predictedAt := s.now().UTC()
	scored := make(map[string]struct{}, len(X.Keys))
	for i, key := range X.Keys {
		m := byID[key]
		scored[key] = struct{}{}
		result.Predictions = append(result.Predictions, prediction.Prediction{
			MatchID:         key,
			ModelID:         model.ID,
			RunID:           runID,
			Team1:           m.Team1,
			Team2:           m.Team2,
			Probability:     probs[i],
			Label:           labels[i],
			Threshold:       threshold,
			PredictedWinner: prediction.Winner(m.Team1, m.Team2, labels[i]),
			PredictedAt:     predictedAt,
		})
	}
	for _, matchID := range ids {
		if _, ok := scored[matchID]; !ok {
			result.Skipped = append(result.Skipped, matchID)
		}
	}

	if !req.DryRun && len(result.Predictions) > 0 {
		if err := s.predictionRepo.Upsert(ctx, result.Predictions); err != nil {
			return PredictResult{}, fmt.Errorf("store predictions: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "prediction run finished",
		"run_id", runID,
		"model_id", model.ID,
		"predicted", len(result.Predictions),
		"skipped", len(result.Skipped),
		"dry_run", req.DryRun,
	)
	return result, nil
}

// ListRun returns every prediction stored by one run.
func (s *PredictionService) ListRun(ctx context.Context, runID string) ([]prediction.Prediction, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	items, err := s.predictionRepo.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run predictions: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no predictions for run %s", ErrNotFound, runID)
	}
	return items, nil
}

// Latest returns the most recent stored prediction for a match.
func (s *PredictionService) Latest(ctx context.Context, matchID string) (prediction.Prediction, error) {
	if matchID == "" {
		return prediction.Prediction{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	item, ok, err := s.predictionRepo.LatestByMatch(ctx, matchID)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("load prediction: %w", err)
	}
	if !ok {
		return prediction.Prediction{}, fmt.Errorf("%w: no prediction for match %s", ErrNotFound, matchID)
	}
	return item, nil
}

func (s *PredictionService) ensureModel(ctx context.Context, modelID string) (*predictor.Model, error) {
	if model, ok := s.predictor.Model(); ok && (modelID == "" || model.ID == modelID) {
		return model, nil
	}
	if s.models == nil {
		return nil, ErrNoModel
	}
	var (
		model *predictor.Model
		err   error
	)
	if modelID != "" {
		model, err = s.models.Get(ctx, modelID)
	} else {
		model, err = s.models.Latest(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrNoModel) {
			return nil, err
		}
		return nil, fmt.Errorf("load model: %w", err)
	}
	if err := s.predictor.Restore(model); err != nil {
		return nil, fmt.Errorf("restore model %s: %w", model.ID, err)
	}
	s.logger.InfoContext(ctx, "restored saved model", "model_id", model.ID, "trained_at", model.TrainedAt)
	return model, nil
}

func (s *PredictionService) targets(ctx context.Context, req PredictRequest) ([]match.Match, []string, error) {
	if len(req.MatchIDs) == 0 {
		limit := req.Limit
		if limit <= 0 {
			limit = defaultPredictLimit
		}
		matches, err := s.matchRepo.ListByStatus(ctx, match.StatusUpcoming, limit)
		if err != nil {
			return nil, nil, fmt.Errorf("list upcoming matches: %w", err)
		}
		return matches, nil, nil
	}

	matches := make([]match.Match, 0, len(req.MatchIDs))
	var missing []string
	for _, matchID := range req.MatchIDs {
		m, ok, err := s.matchRepo.GetByID(ctx, matchID)
		if err != nil {
			return nil, nil, fmt.Errorf("get match %s: %w", matchID, err)
		}
		if !ok {
			missing = append(missing, matchID)
			continue
		}
		matches = append(matches, m)
	}
	return matches, missing, nil
}
