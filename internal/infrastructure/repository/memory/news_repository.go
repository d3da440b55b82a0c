package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/match-predictor/internal/domain/news"
)

type NewsRepository struct {
	mu   sync.RWMutex
	byID map[string]news.Headline
}

func NewNewsRepository() *NewsRepository {
	return &NewsRepository{byID: make(map[string]news.Headline)}
}

func (r *NewsRepository) ListByMatchIDs(_ context.Context, matchIDs []string) ([]news.Headline, error) {
	wanted := make(map[string]struct{}, len(matchIDs))
	for _, id := range matchIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	out := make([]news.Headline, 0)
	for _, item := range r.byID {
		if _, ok := wanted[item.MatchID]; ok {
			out = append(out, item)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.Before(out[j].PublishedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *NewsRepository) Upsert(_ context.Context, items []news.Headline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			continue
		}
		r.byID[item.ID] = item
	}
	return nil
}
