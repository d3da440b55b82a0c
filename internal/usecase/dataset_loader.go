package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/match-predictor/internal/domain/news"
	"github.com/riskibarqy/match-predictor/internal/domain/playerstats"
	"github.com/riskibarqy/match-predictor/internal/domain/ranking"
	"github.com/riskibarqy/match-predictor/internal/domain/teamstats"
	"github.com/riskibarqy/match-predictor/internal/ml/frame"
	"github.com/sourcegraph/conc/pool"
)

// Dataset is the raw input of one feature preparation: the three numeric
// tables and the headlines of the requested matches.
type Dataset struct {
	TeamStats   frame.Table
	Rankings    frame.Table
	PlayerStats frame.Table
	Headlines   []news.Headline
}

type DatasetLoader struct {
	teamStats   teamstats.Repository
	rankings    ranking.Repository
	playerStats playerstats.Repository
	news        news.Repository
}

func NewDatasetLoader(
	teamStatsRepo teamstats.Repository,
	rankingRepo ranking.Repository,
	playerStatsRepo playerstats.Repository,
	newsRepo news.Repository,
) *DatasetLoader {
	return &DatasetLoader{
		teamStats:   teamStatsRepo,
		rankings:    rankingRepo,
		playerStats: playerStatsRepo,
		news:        newsRepo,
	}
}

// Load reads the four sources concurrently. Rows of the team stats table
// follow matchIDs order, which fixes the row order of the feature matrix.
func (l *DatasetLoader) Load(ctx context.Context, matchIDs []string) (Dataset, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DatasetLoader.Load")
	defer span.End()

	var (
		teamRows    []teamstats.MatchStats
		rankingRows []ranking.MatchRanking
		playerRows  []playerstats.MatchStats
		headlines   []news.Headline
	)

	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		rows, err := l.teamStats.ListByMatchIDs(ctx, matchIDs)
		if err != nil {
			return fmt.Errorf("load team stats: %w", err)
		}
		teamRows = rows
		return nil
	})
	p.Go(func(ctx context.Context) error {
		rows, err := l.rankings.ListByMatchIDs(ctx, matchIDs)
		if err != nil {
			return fmt.Errorf("load rankings: %w", err)
		}
		rankingRows = rows
		return nil
	})
	p.Go(func(ctx context.Context) error {
		rows, err := l.playerStats.ListByMatchIDs(ctx, matchIDs)
		if err != nil {
			return fmt.Errorf("load player stats: %w", err)
		}
		playerRows = rows
		return nil
	})
	p.Go(func(ctx context.Context) error {
		rows, err := l.news.ListByMatchIDs(ctx, matchIDs)
		if err != nil {
			return fmt.Errorf("load headlines: %w", err)
		}
		headlines = rows
		return nil
	})
	if err := p.Wait(); err != nil {
		return Dataset{}, err
	}

	return Dataset{
		TeamStats:   teamStatsTable(orderByIDs(teamRows, matchIDs, func(s teamstats.MatchStats) string { return s.MatchID })),
		Rankings:    rankingTable(rankingRows),
		PlayerStats: playerStatsTable(playerRows),
		Headlines:   headlines,
	}, nil
}

func teamStatsTable(rows []teamstats.MatchStats) frame.Table {
	t := frame.NewTable("team_stats", teamstats.Columns...)
	for _, row := range rows {
		t.Append(row.MatchID, row.Values()...)
	}
	return t
}

func rankingTable(rows []ranking.MatchRanking) frame.Table {
	t := frame.NewTable("rankings", ranking.Columns...)
	for _, row := range rows {
		t.Append(row.MatchID, row.Values()...)
	}
	return t
}

func playerStatsTable(rows []playerstats.MatchStats) frame.Table {
	t := frame.NewTable("player_stats", playerstats.Columns...)
	for _, row := range rows {
		t.Append(row.MatchID, row.Values()...)
	}
	return t
}

// orderByIDs returns rows in ids order, dropping ids with no row.
func orderByIDs[T any](rows []T, ids []string, key func(T) string) []T {
	byID := make(map[string]T, len(rows))
	for _, row := range rows {
		byID[key(row)] = row
	}
	out := make([]T, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
			delete(byID, id)
		}
	}
	return out
}
