package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/match-predictor/internal/domain/news"
	qb "github.com/riskibarqy/match-predictor/internal/platform/querybuilder"
)

type NewsRepository struct {
	db *sqlx.DB
}

func NewNewsRepository(db *sqlx.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

func (r *NewsRepository) ListByMatchIDs(ctx context.Context, matchIDs []string) ([]news.Headline, error) {
	cols, err := qb.ModelColumns(headlineModel{})
	if err != nil {
		return nil, err
	}
	query, args, err := qb.Select(cols...).
		From("match_news").
		Where(qb.InStrings("match_public_id", matchIDs)).
		OrderBy("match_public_id", "published_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list match news query: %w", err)
	}

	var rows []headlineModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list match news: %w", err)
	}

	out := make([]news.Headline, 0, len(rows))
	for _, row := range rows {
		out = append(out, news.Headline{
			ID:          row.PublicID,
			MatchID:     row.MatchID,
			Title:       row.Title,
			Description: row.Description,
			Author:      row.Author,
			URL:         row.URL,
			PublishedAt: row.PublishedAt.UTC(),
		})
	}
	return out, nil
}

func (r *NewsRepository) Upsert(ctx context.Context, items []news.Headline) error {
	return chunked(dedupeLast(items, func(h news.Headline) string { return h.ID }), upsertChunkSize, func(part []news.Headline) error {
		rows := make([]headlineModel, 0, len(part))
		for _, h := range part {
			rows = append(rows, headlineModel{
				PublicID:    h.ID,
				MatchID:     h.MatchID,
				Title:       h.Title,
				Description: h.Description,
				Author:      h.Author,
				URL:         h.URL,
				PublishedAt: h.PublishedAt.UTC(),
			})
		}
		query, args, err := qb.InsertModels("match_news", rows,
			qb.OnConflictUpdate([]string{"public_id"}, upsertColumns(rows[0], "public_id")...))
		if err != nil {
			return fmt.Errorf("build upsert match news query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert match news: %w", err)
		}
		return nil
	})
}
