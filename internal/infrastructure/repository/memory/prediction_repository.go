package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/match-predictor/internal/domain/prediction"
)

type PredictionRepository struct {
	mu    sync.RWMutex
	items map[string]prediction.Prediction
}

func NewPredictionRepository() *PredictionRepository {
	return &PredictionRepository{items: make(map[string]prediction.Prediction)}
}

func (r *PredictionRepository) Upsert(_ context.Context, items []prediction.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		r.items[item.RunID+"|"+item.MatchID] = item
	}
	return nil
}

func (r *PredictionRepository) ListByRun(_ context.Context, runID string) ([]prediction.Prediction, error) {
	r.mu.RLock()
	out := make([]prediction.Prediction, 0)
	for _, item := range r.items {
		if item.RunID == runID {
			out = append(out, item)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out, nil
}

func (r *PredictionRepository) LatestByMatch(_ context.Context, matchID string) (prediction.Prediction, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best  prediction.Prediction
		found bool
	)
	for _, item := range r.items {
		if item.MatchID != matchID {
			continue
		}
		if !found || item.PredictedAt.After(best.PredictedAt) ||
			(item.PredictedAt.Equal(best.PredictedAt) && item.RunID > best.RunID) {
			best, found = item, true
		}
	}
	return best, found, nil
}
