package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/match-predictor/internal/domain/match"
	qb "github.com/riskibarqy/match-predictor/internal/platform/querybuilder"
)

var matchColumns = []string{
	"public_id",
	"event",
	"series",
	"team1",
	"team2",
	"score1",
	"score2",
	"status",
	"scheduled_at",
	"page_url",
	"updated_at",
}

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByID(ctx context.Context, id string) (match.Match, bool, error) {
	query, args, err := qb.Select(matchColumns...).
		From("matches").
		Where(qb.Eq("public_id", id)).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build get match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match id=%s: %w", id, err)
	}
	return matchFromRow(row), true, nil
}

func (r *MatchRepository) ListByStatus(ctx context.Context, status string, limit int) ([]match.Match, error) {
	query, args, err := qb.Select(matchColumns...).
		From("matches").
		Where(qb.Eq("status", status)).
		OrderBy("scheduled_at", "public_id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches by status query: %w", err)
	}
	return r.list(ctx, query, args)
}

func (r *MatchRepository) ListCompletedBefore(ctx context.Context, t time.Time, limit int) ([]match.Match, error) {
	query, args, err := qb.Select(matchColumns...).
		From("matches").
		Where(
			qb.Eq("status", match.StatusCompleted),
			qb.Lt("scheduled_at", t),
			qb.IsNotNull("score1"),
			qb.IsNotNull("score2"),
		).
		OrderBy("scheduled_at DESC", "public_id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list completed matches query: %w", err)
	}
	return r.list(ctx, query, args)
}

func (r *MatchRepository) Upsert(ctx context.Context, matches []match.Match) error {
	return chunked(dedupeLast(matches, func(m match.Match) string { return m.ID }), upsertChunkSize, func(part []match.Match) error {
		rows := make([]matchTableModel, 0, len(part))
		for _, m := range part {
			rows = append(rows, matchTableModel{
				PublicID:    m.ID,
				Event:       m.Event,
				Series:      m.Series,
				Team1:       m.Team1,
				Team2:       m.Team2,
				Score1:      nullInt(m.Score1),
				Score2:      nullInt(m.Score2),
				Status:      m.Status,
				ScheduledAt: m.ScheduledAt.UTC(),
				PageURL:     m.PageURL,
				UpdatedAt:   m.UpdatedAt.UTC(),
			})
		}

		query, args, err := qb.InsertModels("matches", rows, qb.OnConflictUpdate([]string{"public_id"}, matchColumns[1:]...))
		if err != nil {
			return fmt.Errorf("build upsert matches query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert matches: %w", err)
		}
		return nil
	})
}

func (r *MatchRepository) list(ctx context.Context, query string, args []any) ([]match.Match, error) {
	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchFromRow(row))
	}
	return out, nil
}

func matchFromRow(row matchTableModel) match.Match {
	return match.Match{
		ID:          row.PublicID,
		Event:       row.Event,
		Series:      row.Series,
		Team1:       row.Team1,
		Team2:       row.Team2,
		Score1:      intPtr(row.Score1),
		Score2:      intPtr(row.Score2),
		Status:      row.Status,
		ScheduledAt: row.ScheduledAt.UTC(),
		PageURL:     row.PageURL,
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}
