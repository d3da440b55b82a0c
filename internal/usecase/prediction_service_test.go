package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
	"github.com/riskibarqy/match-predictor/internal/domain/prediction"
	"github.com/riskibarqy/match-predictor/internal/ml/frame"
	"github.com/riskibarqy/match-predictor/internal/ml/predictor"
	"github.com/riskibarqy/match-predictor/internal/platform/id"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
	matchmock "github.com/riskibarqy/match-predictor/internal/mocks/domain/match"
	predictionmock "github.com/riskibarqy/match-predictor/internal/mocks/domain/prediction"
	"github.com/stretchr/testify/mock"
)

func trainedPredictor(t *testing.T, modelID string) *predictor.Predictor {
	t.Helper()

	matches := completedMatches(120)
	labels := labelsOf(matches)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	X := signalMatrix(ids, func(matchID string) int { return labels[matchID] })
	y := make([]int, len(X.Keys))
	for i, key := range X.Keys {
		y[i] = labels[key]
	}

	p := predictor.New(predictor.WithIDGenerator(id.Static(modelID)), predictor.WithLogger(logging.NewNop()))
	if _, err := p.Fit(context.Background(), X, y, predictor.DefaultFitConfig()); err != nil {
		t.Fatalf("fit fixture predictor: %v", err)
	}
	return p
}

func upcomingMatches(n int) []match.Match {
	out := make([]match.Match, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, match.Match{
			ID:          fmt.Sprintf("u%02d", i),
			Team1:       fmt.Sprintf("Home %d", i),
			Team2:       fmt.Sprintf("Away %d", i),
			Status:      match.StatusUpcoming,
			ScheduledAt: fixtureStart.Add(time.Duration(i) * time.Hour),
		})
	}
	return out
}

// favouriteEven makes team1 the favourite in even-numbered upcoming matches.
func favouriteEven(ids []string) frame.Matrix {
	kept := ids
	if len(ids) > 1 {
		kept = ids[:len(ids)-1]
	}
	return signalMatrix(kept, func(matchID string) int {
		var n int
		_, _ = fmt.Sscanf(matchID, "u%d", &n)
		if n%2 == 0 {
			return 1
		}
		return 0
	})
}

func TestPredictionService_Predict_ScoresUpcomingAndStores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	upcoming := upcomingMatches(6)
	matchRepo := matchmock.NewRepository(t)
	predictionRepo := predictionmock.NewRepository(t)
	matchRepo.
		On("ListByStatus", mock.Anything, match.StatusUpcoming, defaultPredictLimit).
		Return(upcoming, nil).
		Once()
	predictionRepo.
		On("Upsert", mock.Anything, mock.MatchedBy(func(items []prediction.Prediction) bool {
			return len(items) == 5 && items[0].RunID == "run-1" && items[0].ModelID == "model-1"
		})).
		Return(nil).
		Once()

	data := &stubDataset{}
	recorder := &spyRecorder{}
	service := NewPredictionService(
		matchRepo, predictionRepo, data,
		stubFeatures{data: data, build: favouriteEven},
		trainedPredictor(t, "model-1"), nil, id.Static("run-1"), recorder, logging.NewNop(),
	)

	got, err := service.Predict(ctx, PredictRequest{})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if got.RunID != "run-1" || got.ModelID != "model-1" || got.Threshold != predictor.DefaultThreshold {
		t.Fatalf("unexpected run metadata: %+v", got)
	}
	if len(got.Predictions) != 5 {
		t.Fatalf("expected 5 predictions, got %d", len(got.Predictions))
	}
	if len(got.Skipped) != 1 || got.Skipped[0] != "u05" {
		t.Fatalf("expected u05 to be skipped, got %v", got.Skipped)
	}
	for _, item := range got.Predictions {
		wantLabel := 0
		if item.Probability >= predictor.DefaultThreshold {
			wantLabel = 1
		}
		if item.Label != wantLabel {
			t.Fatalf("%s: label %d does not match probability %v", item.MatchID, item.Label, item.Probability)
		}
		if item.PredictedWinner != prediction.Winner(item.Team1, item.Team2, item.Label) {
			t.Fatalf("%s: unexpected winner %q", item.MatchID, item.PredictedWinner)
		}
	}
	if got.Predictions[0].Label != 1 || got.Predictions[1].Label != 0 {
		t.Fatalf("expected the model to follow the signal, got %+v", got.Predictions[:2])
	}
	if len(recorder.predictions) != 1 || recorder.predictions[0] != nil {
		t.Fatalf("expected one successful prediction observation")
	}
}

func TestPredictionService_Predict_RestoresLatestModel(t *testing.T) {
	t.Parallel()

	saved, _ := trainedPredictor(t, "model-saved").Model()
	store := &stubModelStore{latest: saved}

	matchRepo := matchmock.NewRepository(t)
	predictionRepo := predictionmock.NewRepository(t)
	matchRepo.
		On("GetByID", mock.Anything, "u00").
		Return(upcomingMatches(1)[0], true, nil).
		Once()
	matchRepo.
		On("GetByID", mock.Anything, "gone").
		Return(match.Match{}, false, nil).
		Once()

	data := &stubDataset{}
	model := predictor.New()
	service := NewPredictionService(
		matchRepo, predictionRepo, data,
		stubFeatures{data: data, build: favouriteEven},
		model, store, id.Static("run-2"), nil, logging.NewNop(),
	)

	got, err := service.Predict(context.Background(), PredictRequest{MatchIDs: []string{"u00", "gone"}, DryRun: true})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if model.State() != predictor.StateTrained || got.ModelID != "model-saved" {
		t.Fatalf("expected saved model to be restored, got %+v", got)
	}
	if len(got.Predictions) != 1 || len(got.Missing) != 1 || got.Missing[0] != "gone" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestPredictionService_Predict_NoModel(t *testing.T) {
	t.Parallel()

	matchRepo := matchmock.NewRepository(t)
	predictionRepo := predictionmock.NewRepository(t)
	data := &stubDataset{}
	service := NewPredictionService(
		matchRepo, predictionRepo, data, stubFeatures{data: data},
		predictor.New(), &stubModelStore{}, id.Static("run-3"), nil, logging.NewNop(),
	)

	if _, err := service.Predict(context.Background(), PredictRequest{}); !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel, got %v", err)
	}
}

func TestPredictionService_Predict_RejectsThreshold(t *testing.T) {
	t.Parallel()

	data := &stubDataset{}
	service := NewPredictionService(
		matchmock.NewRepository(t), predictionmock.NewRepository(t), data, stubFeatures{data: data},
		predictor.New(), nil, nil, nil, logging.NewNop(),
	)
	if _, err := service.Predict(context.Background(), PredictRequest{Threshold: 1.5}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPredictionService_Predict_NoUpcomingMatches(t *testing.T) {
	t.Parallel()

	matchRepo := matchmock.NewRepository(t)
	matchRepo.
		On("ListByStatus", mock.Anything, match.StatusUpcoming, 10).
		Return([]match.Match{}, nil).
		Once()

	data := &stubDataset{}
	service := NewPredictionService(
		matchRepo, predictionmock.NewRepository(t), data, stubFeatures{data: data},
		trainedPredictor(t, "model-1"), nil, id.Static("run-4"), nil, logging.NewNop(),
	)
	got, err := service.Predict(context.Background(), PredictRequest{Limit: 10})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(got.Predictions) != 0 || data.gotIDs != nil {
		t.Fatalf("expected an empty run without loading features, got %+v", got)
	}
}

func TestPredictionService_Latest(t *testing.T) {
	t.Parallel()

	predictionRepo := predictionmock.NewRepository(t)
	predictionRepo.
		On("LatestByMatch", mock.Anything, "u00").
		Return(prediction.Prediction{MatchID: "u00", RunID: "run-9"}, true, nil).
		Once()
	predictionRepo.
		On("LatestByMatch", mock.Anything, "u01").
		Return(prediction.Prediction{}, false, nil).
		Once()

	service := NewPredictionService(matchmock.NewRepository(t), predictionRepo, nil, nil, predictor.New(), nil, nil, nil, logging.NewNop())
	got, err := service.Latest(context.Background(), "u00")
	if err != nil || got.RunID != "run-9" {
		t.Fatalf("unexpected latest prediction: %+v, %v", got, err)
	}
	if _, err := service.Latest(context.Background(), "u01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := service.Latest(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPredictionService_Predict_PinsModelID(t *testing.T) {
	t.Parallel()

	older, _ := trainedPredictor(t, "model-old").Model()
	store := &stubModelStore{saved: []*predictor.Model{older}}

	matchRepo := matchmock.NewRepository(t)
	matchRepo.
		On("GetByID", mock.Anything, "u00").
		Return(upcomingMatches(1)[0], true, nil).
		Once()

	data := &stubDataset{}
	service := NewPredictionService(
		matchRepo, predictionmock.NewRepository(t), data,
		stubFeatures{data: data, build: favouriteEven},
		trainedPredictor(t, "model-live"), store, id.Static("run-5"), nil, logging.NewNop(),
	)

	got, err := service.Predict(context.Background(), PredictRequest{MatchIDs: []string{"u00"}, ModelID: "model-old", DryRun: true})
	if err != nil {
		t.Fatalf("predict with pinned model: %v", err)
	}
	if got.ModelID != "model-old" || len(got.Predictions) != 1 || got.Predictions[0].ModelID != "model-old" {
		t.Fatalf("expected predictions from the pinned model, got %+v", got)
	}

	if _, err := service.Predict(context.Background(), PredictRequest{ModelID: "model-unknown"}); !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel for an unknown model id, got %v", err)
	}
}

func TestPredictionService_ListRun(t *testing.T) {
	t.Parallel()

	predictionRepo := predictionmock.NewRepository(t)
	predictionRepo.
		On("ListByRun", mock.Anything, "run-7").
		Return([]prediction.Prediction{{MatchID: "u00", RunID: "run-7"}, {MatchID: "u01", RunID: "run-7"}}, nil).
		Once()
	predictionRepo.
		On("ListByRun", mock.Anything, "run-8").
		Return([]prediction.Prediction{}, nil).
		Once()

	service := NewPredictionService(matchmock.NewRepository(t), predictionRepo, nil, nil, predictor.New(), nil, nil, nil, logging.NewNop())
	got, err := service.ListRun(context.Background(), " run-7 ")
	if err != nil || len(got) != 2 {
		t.Fatalf("unexpected run predictions: %+v, %v", got, err)
	}
	if _, err := service.ListRun(context.Background(), "run-8"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := service.ListRun(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
