package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/match-predictor/internal/domain/playerstats"
	"github.com/riskibarqy/match-predictor/internal/domain/ranking"
	"github.com/riskibarqy/match-predictor/internal/domain/teamstats"
)

type TeamStatsRepository struct {
	table *keyedTable[teamstats.MatchStats]
}

func NewTeamStatsRepository() *TeamStatsRepository {
	return &TeamStatsRepository{
		table: newKeyedTable(func(s teamstats.MatchStats) string { return s.MatchID }),
	}
}

func (r *TeamStatsRepository) ListByMatchIDs(_ context.Context, matchIDs []string) ([]teamstats.MatchStats, error) {
	return r.table.list(matchIDs), nil
}

func (r *TeamStatsRepository) Upsert(_ context.Context, stats []teamstats.MatchStats) error {
	r.table.upsert(stats)
	return nil
}

type RankingRepository struct {
	teams   *keyedTable[ranking.TeamRanking]
	matches *keyedTable[ranking.MatchRanking]
}

func NewRankingRepository() *RankingRepository {
	return &RankingRepository{
		teams:   newKeyedTable(func(t ranking.TeamRanking) string { return t.Region + "|" + t.Team }),
		matches: newKeyedTable(func(m ranking.MatchRanking) string { return m.MatchID }),
	}
}

func (r *RankingRepository) ListTeamRankings(_ context.Context) ([]ranking.TeamRanking, error) {
	out := r.teams.all()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Rank < out[j].Rank
	})
	return out, nil
}

func (r *RankingRepository) UpsertTeamRankings(_ context.Context, rows []ranking.TeamRanking) error {
	r.teams.upsert(rows)
	return nil
}

func (r *RankingRepository) ListByMatchIDs(_ context.Context, matchIDs []string) ([]ranking.MatchRanking, error) {
	return r.matches.list(matchIDs), nil
}

func (r *RankingRepository) UpsertMatchRankings(_ context.Context, rows []ranking.MatchRanking) error {
	r.matches.upsert(rows)
	return nil
}

type PlayerStatsRepository struct {
	players *keyedTable[playerstats.PlayerStats]
	matches *keyedTable[playerstats.MatchStats]
}

func NewPlayerStatsRepository() *PlayerStatsRepository {
	return &PlayerStatsRepository{
		players: newKeyedTable(func(p playerstats.PlayerStats) string { return p.Region + "|" + p.Player }),
		matches: newKeyedTable(func(s playerstats.MatchStats) string { return s.MatchID }),
	}
}

func (r *PlayerStatsRepository) ListPlayers(_ context.Context) ([]playerstats.PlayerStats, error) {
	out := r.players.all()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		if out[i].Org != out[j].Org {
			return out[i].Org < out[j].Org
		}
		return out[i].Player < out[j].Player
	})
	return out, nil
}

func (r *PlayerStatsRepository) UpsertPlayers(_ context.Context, rows []playerstats.PlayerStats) error {
	r.players.upsert(rows)
	return nil
}

func (r *PlayerStatsRepository) ListByMatchIDs(_ context.Context, matchIDs []string) ([]playerstats.MatchStats, error) {
	return r.matches.list(matchIDs), nil
}

func (r *PlayerStatsRepository) UpsertMatchStats(_ context.Context, rows []playerstats.MatchStats) error {
	r.matches.upsert(rows)
	return nil
}
