package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
	"github.com/riskibarqy/match-predictor/internal/domain/news"
	"github.com/riskibarqy/match-predictor/internal/domain/playerstats"
	"github.com/riskibarqy/match-predictor/internal/domain/ranking"
	"github.com/riskibarqy/match-predictor/internal/ml/frame"
	"github.com/riskibarqy/match-predictor/internal/ml/predictor"
)

// MatchFeed is the upstream esports data source.
type MatchFeed interface {
	FetchUpcomingMatches(ctx context.Context) ([]match.Match, error)
	FetchLiveMatches(ctx context.Context) ([]match.Match, error)
	FetchResults(ctx context.Context) ([]match.Match, error)
	FetchNews(ctx context.Context) ([]news.Headline, error)
	FetchRankings(ctx context.Context, region string) ([]ranking.TeamRanking, error)
	FetchPlayerStats(ctx context.Context, region string, timespan int) ([]playerstats.PlayerStats, error)
}

// DatasetSource loads the raw feature inputs for a set of matches.
type DatasetSource interface {
	Load(ctx context.Context, matchIDs []string) (Dataset, error)
}

type FeatureEngineer interface {
	PrepareFeatures(ctx context.Context, teamStats, rankings, playerStats frame.Table, headlines []news.Headline) (frame.Matrix, error)
}

type ModelStore interface {
	Save(ctx context.Context, model *predictor.Model) error
	Latest(ctx context.Context) (*predictor.Model, error)
	Get(ctx context.Context, id string) (*predictor.Model, error)
}

// RunRecorder receives run outcomes for metrics. Implementations must be
// safe for concurrent use.
type RunRecorder interface {
	ObserveIngestion(source string, records int, err error)
	ObserveTraining(result TrainResult, elapsed time.Duration, err error)
	ObservePrediction(result PredictResult, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveIngestion(string, int, error)                  {}
func (nopRecorder) ObserveTraining(TrainResult, time.Duration, error)     {}
func (nopRecorder) ObservePrediction(PredictResult, time.Duration, error) {}
