package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/match-predictor/internal/domain/playerstats"
	qb "github.com/riskibarqy/match-predictor/internal/platform/querybuilder"
)

type PlayerStatsRepository struct {
	db *sqlx.DB
}

func NewPlayerStatsRepository(db *sqlx.DB) *PlayerStatsRepository {
	return &PlayerStatsRepository{db: db}
}

func (r *PlayerStatsRepository) ListPlayers(ctx context.Context) ([]playerstats.PlayerStats, error) {
	cols, err := qb.ModelColumns(playerStatsModel{})
	if err != nil {
		return nil, err
	}
	query, args, err := qb.Select(cols...).
		From("player_stats").
		OrderBy("region", "org", "player").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list player stats query: %w", err)
	}

	var rows []playerStatsModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list player stats: %w", err)
	}

	out := make([]playerstats.PlayerStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerstats.PlayerStats{
			Player:    row.Player,
			Org:       row.Org,
			Region:    row.Region,
			Rating:    row.Rating,
			ACS:       row.ACS,
			KD:        row.KD,
			ADR:       row.ADR,
			KPR:       row.KPR,
			HSPct:     row.HSPct,
			ClutchPct: row.ClutchPct,
			UpdatedAt: row.UpdatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *PlayerStatsRepository) UpsertPlayers(ctx context.Context, players []playerstats.PlayerStats) error {
	return chunked(dedupeLast(players, func(p playerstats.PlayerStats) string { return p.Region + "|" + p.Player }), upsertChunkSize, func(part []playerstats.PlayerStats) error {
		rows := make([]playerStatsModel, 0, len(part))
		for _, p := range part {
			rows = append(rows, playerStatsModel{
				Player:    p.Player,
				Org:       p.Org,
				Region:    p.Region,
				Rating:    p.Rating,
				ACS:       p.ACS,
				KD:        p.KD,
				ADR:       p.ADR,
				KPR:       p.KPR,
				HSPct:     p.HSPct,
				ClutchPct: p.ClutchPct,
				UpdatedAt: p.UpdatedAt.UTC(),
			})
		}
		query, args, err := qb.InsertModels("player_stats", rows,
			qb.OnConflictUpdate([]string{"region", "player"}, upsertColumns(rows[0], "region", "player")...))
		if err != nil {
			return fmt.Errorf("build upsert player stats query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player stats: %w", err)
		}
		return nil
	})
}

func (r *PlayerStatsRepository) ListByMatchIDs(ctx context.Context, matchIDs []string) ([]playerstats.MatchStats, error) {
	cols, err := qb.ModelColumns(matchPlayerStatsModel{})
	if err != nil {
		return nil, err
	}
	query, args, err := qb.Select(cols...).
		From("match_player_stats").
		Where(qb.InStrings("match_public_id", matchIDs)).
		OrderBy("match_public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list match player stats query: %w", err)
	}

	var rows []matchPlayerStatsModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list match player stats: %w", err)
	}

	out := make([]playerstats.MatchStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerstats.MatchStats{
			MatchID:     row.MatchID,
			Team1Rating: floatOrNaN(row.Team1Rating),
			Team2Rating: floatOrNaN(row.Team2Rating),
			Team1ACS:    floatOrNaN(row.Team1ACS),
			Team2ACS:    floatOrNaN(row.Team2ACS),
			Team1KD:     floatOrNaN(row.Team1KD),
			Team2KD:     floatOrNaN(row.Team2KD),
			Team1HSPct:  floatOrNaN(row.Team1HSPct),
			Team2HSPct:  floatOrNaN(row.Team2HSPct),
		})
	}
	return out, nil
}

func (r *PlayerStatsRepository) UpsertMatchStats(ctx context.Context, stats []playerstats.MatchStats) error {
	return chunked(dedupeLast(stats, func(s playerstats.MatchStats) string { return s.MatchID }), upsertChunkSize, func(part []playerstats.MatchStats) error {
		rows := make([]matchPlayerStatsModel, 0, len(part))
		for _, s := range part {
			rows = append(rows, matchPlayerStatsModel{
				MatchID:     s.MatchID,
				Team1Rating: nullFloat(s.Team1Rating),
				Team2Rating: nullFloat(s.Team2Rating),
				Team1ACS:    nullFloat(s.Team1ACS),
				Team2ACS:    nullFloat(s.Team2ACS),
				Team1KD:     nullFloat(s.Team1KD),
				Team2KD:     nullFloat(s.Team2KD),
				Team1HSPct:  nullFloat(s.Team1HSPct),
				Team2HSPct:  nullFloat(s.Team2HSPct),
			})
		}
		query, args, err := qb.InsertModels("match_player_stats", rows,
			qb.OnConflictUpdate([]string{"match_public_id"}, upsertColumns(rows[0], "match_public_id")...))
		if err != nil {
			return fmt.Errorf("build upsert match player stats query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert match player stats: %w", err)
		}
		return nil
	})
}
