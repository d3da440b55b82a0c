package postgres

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
	qb "github.com/riskibarqy/match-predictor/internal/platform/querybuilder"
)

// EmbeddingCacheRepository persists headline vectors in a pgvector column,
// keyed by provider and text hash. It satisfies embedding.Cache.
type EmbeddingCacheRepository struct {
	db *sqlx.DB
}

func NewEmbeddingCacheRepository(db *sqlx.DB) *EmbeddingCacheRepository {
	return &EmbeddingCacheRepository{db: db}
}

func (r *EmbeddingCacheRepository) Lookup(ctx context.Context, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	err := chunked(keys, upsertChunkSize, func(part []string) error {
		query, args, err := qb.Select("cache_key", "dimension", "embedding").
			From("embedding_cache").
			Where(qb.InStrings("cache_key", part)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build lookup embeddings query: %w", err)
		}

		var rows []embeddingCacheModel
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return fmt.Errorf("lookup embeddings: %w", err)
		}
		for _, row := range rows {
			vec := row.Embedding.Slice()
			if len(vec) != row.Dimension {
				continue
			}
			out[row.CacheKey] = vec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *EmbeddingCacheRepository) Store(ctx context.Context, vectors map[string][]float32) error {
	keys := slices.Sorted(maps.Keys(vectors))
	return chunked(keys, upsertChunkSize, func(part []string) error {
		rows := make([]embeddingCacheModel, 0, len(part))
		for _, key := range part {
			vec := vectors[key]
			if len(vec) == 0 {
				continue
			}
			rows = append(rows, embeddingCacheModel{
				CacheKey:  key,
				Dimension: len(vec),
				Embedding: pgvector.NewVector(vec),
			})
		}
		if len(rows) == 0 {
			return nil
		}

		query, args, err := qb.InsertModels("embedding_cache", rows, qb.OnConflictUpdate([]string{"cache_key"}))
		if err != nil {
			return fmt.Errorf("build store embeddings query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("store embeddings: %w", err)
		}
		return nil
	})
}
