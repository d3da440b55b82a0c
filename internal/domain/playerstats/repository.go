package playerstats

import "context"

type Repository interface {
	ListPlayers(ctx context.Context) ([]PlayerStats, error)
	UpsertPlayers(ctx context.Context, rows []PlayerStats) error
	ListByMatchIDs(ctx context.Context, matchIDs []string) ([]MatchStats, error)
	UpsertMatchStats(ctx context.Context, rows []MatchStats) error
}
