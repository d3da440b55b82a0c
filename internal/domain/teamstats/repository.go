package teamstats

import "context"

type Repository interface {
	ListByMatchIDs(ctx context.Context, matchIDs []string) ([]MatchStats, error)
	Upsert(ctx context.Context, stats []MatchStats) error
}
