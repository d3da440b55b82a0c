package postgres

import (
	"database/sql"
	"errors"
	"math"
	"slices"

	qb "github.com/riskibarqy/match-predictor/internal/platform/querybuilder"
)

// upsertChunkSize keeps multi-row inserts well under the 65535 bind
// parameter limit.
const upsertChunkSize = 500

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// nullFloat stores NaN as NULL.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// floatOrNaN reads NULL back as NaN.
func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	out := int(v.Int64)
	return &out
}

func chunked[T any](items []T, size int, fn func([]T) error) error {
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		if err := fn(items[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// upsertColumns lists model columns minus the conflict keys.
func upsertColumns(model any, keys ...string) []string {
	cols, err := qb.ModelColumns(model)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		if !slices.Contains(keys, col) {
			out = append(out, col)
		}
	}
	return out
}

// dedupeLast keeps the last item per key, preserving first-seen order. A
// multi-row upsert cannot touch the same row twice.
func dedupeLast[T any](items []T, key func(T) string) []T {
	pos := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if i, ok := pos[k]; ok {
			out[i] = item
			continue
		}
		pos[k] = len(out)
		out = append(out, item)
	}
	return out
}
