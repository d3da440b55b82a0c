package match

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (Match, bool, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]Match, error)
	// ListCompletedBefore returns completed matches scheduled before t, newest first.
	ListCompletedBefore(ctx context.Context, t time.Time, limit int) ([]Match, error)
	Upsert(ctx context.Context, matches []Match) error
}
