package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/match-predictor/internal/domain/prediction"
	qb "github.com/riskibarqy/match-predictor/internal/platform/querybuilder"
)

type PredictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Upsert(ctx context.Context, items []prediction.Prediction) error {
	key := func(p prediction.Prediction) string { return p.RunID + "|" + p.MatchID }
	return chunked(dedupeLast(items, key), upsertChunkSize, func(part []prediction.Prediction) error {
		rows := make([]predictionModel, 0, len(part))
		for _, p := range part {
			rows = append(rows, predictionModel{
				RunID:           p.RunID,
				MatchID:         p.MatchID,
				ModelID:         p.ModelID,
				Team1:           p.Team1,
				Team2:           p.Team2,
				Probability:     p.Probability,
				Label:           p.Label,
				Threshold:       p.Threshold,
				PredictedWinner: p.PredictedWinner,
				PredictedAt:     p.PredictedAt.UTC(),
			})
		}
		query, args, err := qb.InsertModels("predictions", rows,
			qb.OnConflictUpdate([]string{"run_id", "match_public_id"}, upsertColumns(rows[0], "run_id", "match_public_id")...))
		if err != nil {
			return fmt.Errorf("build upsert predictions query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert predictions: %w", err)
		}
		return nil
	})
}

func (r *PredictionRepository) ListByRun(ctx context.Context, runID string) ([]prediction.Prediction, error) {
	cols, err := qb.ModelColumns(predictionModel{})
	if err != nil {
		return nil, err
	}
	query, args, err := qb.Select(cols...).
		From("predictions").
		Where(qb.Eq("run_id", runID)).
		OrderBy("match_public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list predictions query: %w", err)
	}

	var rows []predictionModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list predictions run_id=%s: %w", runID, err)
	}
	out := make([]prediction.Prediction, 0, len(rows))
	for _, row := range rows {
		out = append(out, predictionFromRow(row))
	}
	return out, nil
}

func (r *PredictionRepository) LatestByMatch(ctx context.Context, matchID string) (prediction.Prediction, bool, error) {
	cols, err := qb.ModelColumns(predictionModel{})
	if err != nil {
		return prediction.Prediction{}, false, err
	}
	query, args, err := qb.Select(cols...).
		From("predictions").
		Where(qb.Eq("match_public_id", matchID)).
		OrderBy("predicted_at DESC", "run_id DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return prediction.Prediction{}, false, fmt.Errorf("build latest prediction query: %w", err)
	}

	var row predictionModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return prediction.Prediction{}, false, nil
		}
		return prediction.Prediction{}, false, fmt.Errorf("latest prediction match_id=%s: %w", matchID, err)
	}
	return predictionFromRow(row), true, nil
}

func predictionFromRow(row predictionModel) prediction.Prediction {
	return prediction.Prediction{
		MatchID:         row.MatchID,
		ModelID:         row.ModelID,
		RunID:           row.RunID,
		Team1:           row.Team1,
		Team2:           row.Team2,
		Probability:     row.Probability,
		Label:           row.Label,
		Threshold:       row.Threshold,
		PredictedWinner: row.PredictedWinner,
		PredictedAt:     row.PredictedAt.UTC(),
	}
}
