package ranking

import "context"

type Repository interface {
	ListTeamRankings(ctx context.Context) ([]TeamRanking, error)
	UpsertTeamRankings(ctx context.Context, rows []TeamRanking) error
	ListByMatchIDs(ctx context.Context, matchIDs []string) ([]MatchRanking, error)
	UpsertMatchRankings(ctx context.Context, rows []MatchRanking) error
}
