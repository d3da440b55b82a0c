package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
	"github.com/riskibarqy/match-predictor/internal/domain/news"
	"github.com/riskibarqy/match-predictor/internal/domain/playerstats"
	"github.com/riskibarqy/match-predictor/internal/domain/ranking"
	"github.com/riskibarqy/match-predictor/internal/ml/frame"
	"github.com/riskibarqy/match-predictor/internal/ml/predictor"
)

var fixtureStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

// completedMatches builds n finished series; team1 wins two out of three.
func completedMatches(n int) []match.Match {
	out := make([]match.Match, 0, n)
	for i := 0; i < n; i++ {
		s1, s2 := 2, 1
		if i%3 == 0 {
			s1, s2 = 0, 2
		}
		out = append(out, match.Match{
			ID:          fmt.Sprintf("m%03d", i),
			Team1:       fmt.Sprintf("Team %d", i%7),
			Team2:       fmt.Sprintf("Team %d", (i+3)%7),
			Score1:      intPtr(s1),
			Score2:      intPtr(s2),
			Status:      match.StatusCompleted,
			ScheduledAt: fixtureStart.Add(time.Duration(i) * time.Hour),
		})
	}
	return out
}

// newestFirst mirrors the ordering of ListCompletedBefore.
func newestFirst(matches []match.Match) []match.Match {
	out := make([]match.Match, len(matches))
	for i, m := range matches {
		out[len(matches)-1-i] = m
	}
	return out
}

// signalMatrix returns one row per id with a column that separates the
// classes given by labelOf.
func signalMatrix(ids []string, labelOf func(string) int) frame.Matrix {
	X := frame.Matrix{Columns: []string{"signal", "noise"}}
	for i, matchID := range ids {
		signal := float64(labelOf(matchID))*2 - 1 + float64(i%7)*0.01
		X.Keys = append(X.Keys, matchID)
		X.Rows = append(X.Rows, []float64{signal, float64(i % 5)})
	}
	return X
}

type stubDataset struct {
	mu     sync.Mutex
	gotIDs []string
	err    error
}

func (s *stubDataset) Load(_ context.Context, matchIDs []string) (Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotIDs = append([]string(nil), matchIDs...)
	if s.err != nil {
		return Dataset{}, s.err
	}
	return Dataset{}, nil
}

type stubFeatures struct {
	build func(ids []string) frame.Matrix
	data  *stubDataset
	err   error
}

func (s stubFeatures) PrepareFeatures(context.Context, frame.Table, frame.Table, frame.Table, []news.Headline) (frame.Matrix, error) {
	if s.err != nil {
		return frame.Matrix{}, s.err
	}
	s.data.mu.Lock()
	ids := append([]string(nil), s.data.gotIDs...)
	s.data.mu.Unlock()
	return s.build(ids), nil
}

type stubModelStore struct {
	mu     sync.Mutex
	saved  []*predictor.Model
	latest *predictor.Model
	err    error
}

func (s *stubModelStore) Save(_ context.Context, model *predictor.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, model)
	return nil
}

func (s *stubModelStore) Get(_ context.Context, id string) (*predictor.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, model := range s.saved {
		if model.ID == id {
			return model, nil
		}
	}
	if s.latest != nil && s.latest.ID == id {
		return s.latest, nil
	}
	return nil, ErrNoModel
}

func (s *stubModelStore) Latest(context.Context) (*predictor.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.latest == nil {
		return nil, ErrNoModel
	}
	return s.latest, nil
}

type stubFeed struct {
	results   []match.Match
	upcoming  []match.Match
	live      []match.Match
	headlines []news.Headline
	rankings  map[string][]ranking.TeamRanking
	players   map[string][]playerstats.PlayerStats
	failures  map[string]error
}

func (f stubFeed) FetchUpcomingMatches(context.Context) ([]match.Match, error) {
	if err := f.failures["upcoming"]; err != nil {
		return nil, err
	}
	return f.upcoming, nil
}

func (f stubFeed) FetchLiveMatches(context.Context) ([]match.Match, error) {
	if err := f.failures["live"]; err != nil {
		return nil, err
	}
	return f.live, nil
}

func (f stubFeed) FetchResults(context.Context) ([]match.Match, error) {
	if err := f.failures["results"]; err != nil {
		return nil, err
	}
	return f.results, nil
}

func (f stubFeed) FetchNews(context.Context) ([]news.Headline, error) {
	if err := f.failures["news"]; err != nil {
		return nil, err
	}
	return f.headlines, nil
}

func (f stubFeed) FetchRankings(_ context.Context, region string) ([]ranking.TeamRanking, error) {
	if err := f.failures["rankings:"+region]; err != nil {
		return nil, err
	}
	return f.rankings[region], nil
}

func (f stubFeed) FetchPlayerStats(_ context.Context, region string, _ int) ([]playerstats.PlayerStats, error) {
	if err := f.failures["player_stats:"+region]; err != nil {
		return nil, err
	}
	return f.players[region], nil
}

type recordedRun struct {
	source  string
	records int
	err     error
}

type spyRecorder struct {
	mu          sync.Mutex
	ingestions  []recordedRun
	trainings   []error
	predictions []error
}

func (r *spyRecorder) ObserveIngestion(source string, records int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingestions = append(r.ingestions, recordedRun{source: source, records: records, err: err})
}

func (r *spyRecorder) ObserveTraining(_ TrainResult, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trainings = append(r.trainings, err)
}

func (r *spyRecorder) ObservePrediction(_ PredictResult, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions = append(r.predictions, err)
}
