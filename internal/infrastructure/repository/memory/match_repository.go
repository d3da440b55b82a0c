package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
)

type MatchRepository struct {
	mu   sync.RWMutex
	byID map[string]match.Match
}

func NewMatchRepository(seed []match.Match) *MatchRepository {
	r := &MatchRepository{byID: make(map[string]match.Match, len(seed))}
	for _, item := range seed {
		r.byID[item.ID] = item
	}
	return r
}

func (r *MatchRepository) GetByID(_ context.Context, id string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byID[id]
	return item, ok, nil
}

func (r *MatchRepository) ListByStatus(_ context.Context, status string, limit int) ([]match.Match, error) {
	r.mu.RLock()
	out := make([]match.Match, 0, len(r.byID))
	for _, item := range r.byID {
		if item.Status == status {
			out = append(out, item)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return truncate(out, limit), nil
}

func (r *MatchRepository) ListCompletedBefore(_ context.Context, t time.Time, limit int) ([]match.Match, error) {
	r.mu.RLock()
	out := make([]match.Match, 0, len(r.byID))
	for _, item := range r.byID {
		if item.IsCompleted() && item.ScheduledAt.Before(t) {
			out = append(out, item)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limit), nil
}

func (r *MatchRepository) Upsert(_ context.Context, matches []match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range matches {
		if strings.TrimSpace(item.ID) == "" {
			continue
		}
		r.byID[item.ID] = item
	}
	return nil
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
