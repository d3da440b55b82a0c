package cache

import (
	"context"
	"time"

	"github.com/riskibarqy/match-predictor/internal/domain/playerstats"
	"github.com/riskibarqy/match-predictor/internal/domain/ranking"
	basecache "github.com/riskibarqy/match-predictor/internal/platform/cache"
)

const (
	keyTeamRankings = "ranking:teams"
	keyPlayers      = "playerstats:players"
)

// RankingRepository caches the full team ranking table, which ingestion and
// every training run read whole. Writes drop the cached copy.
type RankingRepository struct {
	ranking.Repository
	cache *basecache.Store[[]ranking.TeamRanking]
}

func NewRankingRepository(next ranking.Repository, ttl time.Duration) *RankingRepository {
	return &RankingRepository{
		Repository: next,
		cache:      basecache.NewStore[[]ranking.TeamRanking](ttl, 4),
	}
}

func (r *RankingRepository) ListTeamRankings(ctx context.Context) ([]ranking.TeamRanking, error) {
	items, err := r.cache.GetOrLoad(ctx, keyTeamRankings, func(ctx context.Context) ([]ranking.TeamRanking, error) {
		items, err := r.Repository.ListTeamRankings(ctx)
		if err != nil {
			return nil, err
		}
		return append([]ranking.TeamRanking(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]ranking.TeamRanking(nil), items...), nil
}

func (r *RankingRepository) UpsertTeamRankings(ctx context.Context, rows []ranking.TeamRanking) error {
	defer r.cache.Delete(ctx, keyTeamRankings)
	return r.Repository.UpsertTeamRankings(ctx, rows)
}

// PlayerStatsRepository caches the player table the same way.
type PlayerStatsRepository struct {
	playerstats.Repository
	cache *basecache.Store[[]playerstats.PlayerStats]
}

func NewPlayerStatsRepository(next playerstats.Repository, ttl time.Duration) *PlayerStatsRepository {
	return &PlayerStatsRepository{
		Repository: next,
		cache:      basecache.NewStore[[]playerstats.PlayerStats](ttl, 4),
	}
}

func (r *PlayerStatsRepository) ListPlayers(ctx context.Context) ([]playerstats.PlayerStats, error) {
	items, err := r.cache.GetOrLoad(ctx, keyPlayers, func(ctx context.Context) ([]playerstats.PlayerStats, error) {
		items, err := r.Repository.ListPlayers(ctx)
		if err != nil {
			return nil, err
		}
		return append([]playerstats.PlayerStats(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]playerstats.PlayerStats(nil), items...), nil
}

func (r *PlayerStatsRepository) UpsertPlayers(ctx context.Context, rows []playerstats.PlayerStats) error {
	defer r.cache.Delete(ctx, keyPlayers)
	return r.Repository.UpsertPlayers(ctx, rows)
}
