package news

import "context"

type Repository interface {
	ListByMatchIDs(ctx context.Context, matchIDs []string) ([]Headline, error)
	Upsert(ctx context.Context, items []Headline) error
}
