package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/match-predictor/internal/domain/teamstats"
	qb "github.com/riskibarqy/match-predictor/internal/platform/querybuilder"
)

type TeamStatsRepository struct {
	db *sqlx.DB
}

func NewTeamStatsRepository(db *sqlx.DB) *TeamStatsRepository {
	return &TeamStatsRepository{db: db}
}

func (r *TeamStatsRepository) ListByMatchIDs(ctx context.Context, matchIDs []string) ([]teamstats.MatchStats, error) {
	cols, err := qb.ModelColumns(matchTeamStatsModel{})
	if err != nil {
		return nil, err
	}
	query, args, err := qb.Select(cols...).
		From("match_team_stats").
		Where(qb.InStrings("match_public_id", matchIDs)).
		OrderBy("match_public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list match team stats query: %w", err)
	}

	var rows []matchTeamStatsModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list match team stats: %w", err)
	}

	out := make([]teamstats.MatchStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamstats.MatchStats{
			MatchID:         row.MatchID,
			Team1WinRate:    floatOrNaN(row.Team1WinRate),
			Team2WinRate:    floatOrNaN(row.Team2WinRate),
			Team1RecentForm: floatOrNaN(row.Team1RecentForm),
			Team2RecentForm: floatOrNaN(row.Team2RecentForm),
			Team1MapDiff:    floatOrNaN(row.Team1MapDiff),
			Team2MapDiff:    floatOrNaN(row.Team2MapDiff),
			HeadToHead:      floatOrNaN(row.HeadToHead),
			Team1Played:     floatOrNaN(row.Team1Played),
			Team2Played:     floatOrNaN(row.Team2Played),
		})
	}
	return out, nil
}

func (r *TeamStatsRepository) Upsert(ctx context.Context, stats []teamstats.MatchStats) error {
	return chunked(dedupeLast(stats, func(s teamstats.MatchStats) string { return s.MatchID }), upsertChunkSize, func(part []teamstats.MatchStats) error {
		rows := make([]matchTeamStatsModel, 0, len(part))
		for _, s := range part {
			rows = append(rows, matchTeamStatsModel{
				MatchID:         s.MatchID,
				Team1WinRate:    nullFloat(s.Team1WinRate),
				Team2WinRate:    nullFloat(s.Team2WinRate),
				Team1RecentForm: nullFloat(s.Team1RecentForm),
				Team2RecentForm: nullFloat(s.Team2RecentForm),
				Team1MapDiff:    nullFloat(s.Team1MapDiff),
				Team2MapDiff:    nullFloat(s.Team2MapDiff),
				HeadToHead:      nullFloat(s.HeadToHead),
				Team1Played:     nullFloat(s.Team1Played),
				Team2Played:     nullFloat(s.Team2Played),
			})
		}

		query, args, err := qb.InsertModels("match_team_stats", rows,
			qb.OnConflictUpdate([]string{"match_public_id"}, upsertColumns(rows[0], "match_public_id")...))
		if err != nil {
			return fmt.Errorf("build upsert match team stats query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert match team stats: %w", err)
		}
		return nil
	})
}
