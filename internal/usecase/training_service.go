package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
	"github.com/riskibarqy/match-predictor/internal/ml/predictor"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
)

const defaultTrainingLimit = 5000

type TrainRequest struct {
	Fit predictor.FitConfig
	// Limit caps the most recent completed matches used for training.
	Limit int
	// Before excludes matches scheduled at or after it. Zero means now.
	Before time.Time
}

type TrainResult struct {
	ModelID       string    `json:"model_id"`
	ValidationAUC float64   `json:"validation_auc"`
	BestIteration int       `json:"best_iteration"`
	StoppedEarly  bool      `json:"stopped_early"`
	Rows          int       `json:"rows"`
	TrainRows     int       `json:"train_rows"`
	ValidRows     int       `json:"valid_rows"`
	Features      int       `json:"features"`
	Trees         int       `json:"trees"`
	Leaves        int       `json:"leaves"`
	Unlabelled    int       `json:"unlabelled"`
	Dropped       int       `json:"dropped"`
	TrainedAt     time.Time `json:"trained_at"`
}

type TrainingService struct {
	matchRepo match.Repository
	dataset   DatasetSource
	features  FeatureEngineer
	predictor *predictor.Predictor
	models    ModelStore
	recorder  RunRecorder
	logger    *logging.Logger
	now       func() time.Time

	mu sync.Mutex
}

func NewTrainingService(
	matchRepo match.Repository,
	dataset DatasetSource,
	features FeatureEngineer,
	model *predictor.Predictor,
	models ModelStore,
	recorder RunRecorder,
	logger *logging.Logger,
) *TrainingService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TrainingService{
		matchRepo: matchRepo,
		dataset:   dataset,
		features:  features,
		predictor: model,
		models:    models,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Train fits a new model on completed matches and persists it. Runs are
// serialized; a failed run leaves the previous model in place.
func (s *TrainingService) Train(ctx context.Context, req TrainRequest) (result TrainResult, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrainingService.Train")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() {
		s.recorder.ObserveTraining(result, time.Since(start), err)
	}()

	limit := req.Limit
	if limit <= 0 {
		limit = defaultTrainingLimit
	}
	before := req.Before
	if before.IsZero() {
		before = s.now()
	}

	completed, err := s.matchRepo.ListCompletedBefore(ctx, before, limit)
	if err != nil {
		return TrainResult{}, fmt.Errorf("list completed matches: %w", err)
	}

	// oldest first, so the matrix reads chronologically
	labels := make(map[string]int, len(completed))
	ids := make([]string, 0, len(completed))
	unlabelled := 0
	for i := len(completed) - 1; i >= 0; i-- {
		m := completed[i]
		label, ok := m.Team1Won()
		if !ok {
			unlabelled++
			continue
		}
		if _, dup := labels[m.ID]; dup {
			continue
		}
		labels[m.ID] = label
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		return TrainResult{}, fmt.Errorf("%w: %d completed matches, none labelled", ErrNoTrainingData, len(completed))
	}

	ds, err := s.dataset.Load(ctx, ids)
	if err != nil {
		return TrainResult{}, err
	}
	X, err := s.features.PrepareFeatures(ctx, ds.TeamStats, ds.Rankings, ds.PlayerStats, ds.Headlines)
	if err != nil {
		return TrainResult{}, fmt.Errorf("prepare features: %w", err)
	}
	if X.Len() == 0 {
		return TrainResult{}, fmt.Errorf("%w: no match has rows in every feature table", ErrNoTrainingData)
	}

	y := make([]int, len(X.Keys))
	for i, key := range X.Keys {
		y[i] = labels[key]
	}

	fit, err := s.predictor.Fit(ctx, X, y, req.Fit)
	if err != nil {
		return TrainResult{}, fmt.Errorf("fit predictor: %w", err)
	}
	model, _ := s.predictor.Model()
	if s.models != nil {
		if err := s.models.Save(ctx, model); err != nil {
			return TrainResult{}, fmt.Errorf("save model: %w", err)
		}
	}

	result = TrainResult{
		ModelID:       fit.ModelID,
		ValidationAUC: fit.ValidationAUC,
		BestIteration: fit.BestIteration,
		StoppedEarly:  fit.StoppedEarly,
		Rows:          X.Len(),
		TrainRows:     fit.TrainRows,
		ValidRows:     fit.ValidRows,
		Features:      len(X.Columns),
		Trees:         fit.Trees,
		Leaves:        fit.Leaves,
		Unlabelled:    unlabelled,
		Dropped:       len(ids) - X.Len(),
		TrainedAt:     model.TrainedAt,
	}
	s.logger.InfoContext(ctx, "training finished",
		"model_id", result.ModelID,
		"validation_auc", result.ValidationAUC,
		"rows", result.Rows,
		"features", result.Features,
		"dropped", result.Dropped,
	)
	return result, nil
}
