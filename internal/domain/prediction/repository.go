package prediction

import "context"

type Repository interface {
	Upsert(ctx context.Context, items []Prediction) error
	ListByRun(ctx context.Context, runID string) ([]Prediction, error)
	LatestByMatch(ctx context.Context, matchID string) (Prediction, bool, error)
}
