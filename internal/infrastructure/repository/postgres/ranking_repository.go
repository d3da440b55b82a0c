package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/match-predictor/internal/domain/ranking"
	qb "github.com/riskibarqy/match-predictor/internal/platform/querybuilder"
)

type RankingRepository struct {
	db *sqlx.DB
}

func NewRankingRepository(db *sqlx.DB) *RankingRepository {
	return &RankingRepository{db: db}
}

func (r *RankingRepository) ListTeamRankings(ctx context.Context) ([]ranking.TeamRanking, error) {
	cols, err := qb.ModelColumns(teamRankingModel{})
	if err != nil {
		return nil, err
	}
	query, args, err := qb.Select(cols...).
		From("team_rankings").
		OrderBy("region", "rank").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list team rankings query: %w", err)
	}

	var rows []teamRankingModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list team rankings: %w", err)
	}

	out := make([]ranking.TeamRanking, 0, len(rows))
	for _, row := range rows {
		out = append(out, ranking.TeamRanking{
			Team:      row.Team,
			Region:    row.Region,
			Country:   row.Country,
			Rank:      row.Rank,
			Wins:      row.Wins,
			Losses:    row.Losses,
			Earnings:  row.Earnings,
			UpdatedAt: row.UpdatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *RankingRepository) UpsertTeamRankings(ctx context.Context, rankings []ranking.TeamRanking) error {
	return chunked(dedupeLast(rankings, func(t ranking.TeamRanking) string { return t.Region + "|" + t.Team }), upsertChunkSize, func(part []ranking.TeamRanking) error {
		rows := make([]teamRankingModel, 0, len(part))
		for _, t := range part {
			rows = append(rows, teamRankingModel{
				Team:      t.Team,
				Region:    t.Region,
				Country:   t.Country,
				Rank:      t.Rank,
				Wins:      t.Wins,
				Losses:    t.Losses,
				Earnings:  t.Earnings,
				UpdatedAt: t.UpdatedAt.UTC(),
			})
		}
		query, args, err := qb.InsertModels("team_rankings", rows,
			qb.OnConflictUpdate([]string{"region", "team"}, upsertColumns(rows[0], "region", "team")...))
		if err != nil {
			return fmt.Errorf("build upsert team rankings query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert team rankings: %w", err)
		}
		return nil
	})
}

func (r *RankingRepository) ListByMatchIDs(ctx context.Context, matchIDs []string) ([]ranking.MatchRanking, error) {
	cols, err := qb.ModelColumns(matchRankingModel{})
	if err != nil {
		return nil, err
	}
	query, args, err := qb.Select(cols...).
		From("match_rankings").
		Where(qb.InStrings("match_public_id", matchIDs)).
		OrderBy("match_public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list match rankings query: %w", err)
	}

	var rows []matchRankingModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list match rankings: %w", err)
	}

	out := make([]ranking.MatchRanking, 0, len(rows))
	for _, row := range rows {
		out = append(out, ranking.MatchRanking{
			MatchID:        row.MatchID,
			Team1Rank:      floatOrNaN(row.Team1Rank),
			Team2Rank:      floatOrNaN(row.Team2Rank),
			RankDiff:       floatOrNaN(row.RankDiff),
			Team1RecordPct: floatOrNaN(row.Team1RecordPct),
			Team2RecordPct: floatOrNaN(row.Team2RecordPct),
			Team1Earnings:  floatOrNaN(row.Team1Earnings),
			Team2Earnings:  floatOrNaN(row.Team2Earnings),
		})
	}
	return out, nil
}

func (r *RankingRepository) UpsertMatchRankings(ctx context.Context, rankings []ranking.MatchRanking) error {
	return chunked(dedupeLast(rankings, func(m ranking.MatchRanking) string { return m.MatchID }), upsertChunkSize, func(part []ranking.MatchRanking) error {
		rows := make([]matchRankingModel, 0, len(part))
		for _, m := range part {
			rows = append(rows, matchRankingModel{
				MatchID:        m.MatchID,
				Team1Rank:      nullFloat(m.Team1Rank),
				Team2Rank:      nullFloat(m.Team2Rank),
				RankDiff:       nullFloat(m.RankDiff),
				Team1RecordPct: nullFloat(m.Team1RecordPct),
				Team2RecordPct: nullFloat(m.Team2RecordPct),
				Team1Earnings:  nullFloat(m.Team1Earnings),
				Team2Earnings:  nullFloat(m.Team2Earnings),
			})
		}
		query, args, err := qb.InsertModels("match_rankings", rows,
			qb.OnConflictUpdate([]string{"match_public_id"}, upsertColumns(rows[0], "match_public_id")...))
		if err != nil {
			return fmt.Errorf("build upsert match rankings query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert match rankings: %w", err)
		}
		return nil
	})
}
