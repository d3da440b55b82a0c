package memory

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
	"github.com/riskibarqy/match-predictor/internal/domain/news"
	"github.com/riskibarqy/match-predictor/internal/domain/prediction"
	"github.com/riskibarqy/match-predictor/internal/domain/ranking"
)

func TestMatchRepository_ListCompletedBefore(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	two, zero := 2, 0
	repo := NewMatchRepository([]match.Match{
		{ID: "a", Status: match.StatusCompleted, Score1: &two, Score2: &zero, ScheduledAt: base},
		{ID: "b", Status: match.StatusCompleted, Score1: &zero, Score2: &two, ScheduledAt: base.Add(time.Hour)},
		{ID: "c", Status: match.StatusCompleted, ScheduledAt: base.Add(2 * time.Hour)},
		{ID: "d", Status: match.StatusUpcoming, ScheduledAt: base.Add(3 * time.Hour)},
	})

	got, err := repo.ListCompletedBefore(context.Background(), base.Add(24*time.Hour), 0)
	if err != nil {
		t.Fatalf("ListCompletedBefore error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("expected [b a] newest first, got %+v", got)
	}

	limited, _ := repo.ListCompletedBefore(context.Background(), base.Add(24*time.Hour), 1)
	if len(limited) != 1 || limited[0].ID != "b" {
		t.Fatalf("expected limit to keep newest match, got %+v", limited)
	}

	upcoming, _ := repo.ListByStatus(context.Background(), match.StatusUpcoming, 10)
	if len(upcoming) != 1 || upcoming[0].ID != "d" {
		t.Fatalf("unexpected upcoming list %+v", upcoming)
	}
}

func TestRankingRepository_ListByMatchIDsKeepsRequestOrder(t *testing.T) {
	t.Parallel()

	repo := NewRankingRepository()
	_ = repo.UpsertMatchRankings(context.Background(), []ranking.MatchRanking{
		{MatchID: "m1", Team1Rank: 1},
		{MatchID: "m2", Team1Rank: math.NaN()},
	})

	got, err := repo.ListByMatchIDs(context.Background(), []string{"m2", "missing", "m1", "m2"})
	if err != nil {
		t.Fatalf("ListByMatchIDs error: %v", err)
	}
	if len(got) != 2 || got[0].MatchID != "m2" || got[1].MatchID != "m1" {
		t.Fatalf("unexpected rows %+v", got)
	}
}

func TestNewsRepository_FiltersByMatch(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := NewNewsRepository()
	_ = repo.Upsert(context.Background(), []news.Headline{
		{ID: "n2", MatchID: "m1", Title: "later", PublishedAt: at.Add(time.Hour)},
		{ID: "n1", MatchID: "m1", Title: "earlier", PublishedAt: at},
		{ID: "n3", MatchID: "m9", Title: "other", PublishedAt: at},
		{ID: "", MatchID: "m1", Title: "no id"},
	})

	got, _ := repo.ListByMatchIDs(context.Background(), []string{"m1"})
	if len(got) != 2 || got[0].ID != "n1" || got[1].ID != "n2" {
		t.Fatalf("unexpected headlines %+v", got)
	}
}

func TestPredictionRepository_LatestByMatch(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := NewPredictionRepository()
	_ = repo.Upsert(context.Background(), []prediction.Prediction{
		{RunID: "r1", MatchID: "m1", Probability: 0.3, PredictedAt: at},
		{RunID: "r2", MatchID: "m1", Probability: 0.7, PredictedAt: at.Add(time.Hour)},
		{RunID: "r2", MatchID: "m2", Probability: 0.5, PredictedAt: at.Add(time.Hour)},
	})

	latest, ok, _ := repo.LatestByMatch(context.Background(), "m1")
	if !ok || latest.RunID != "r2" {
		t.Fatalf("expected run r2, got %+v ok=%v", latest, ok)
	}
	if _, ok, _ := repo.LatestByMatch(context.Background(), "none"); ok {
		t.Fatalf("expected no prediction for unknown match")
	}
	run, _ := repo.ListByRun(context.Background(), "r2")
	if len(run) != 2 || run[0].MatchID != "m1" {
		t.Fatalf("unexpected run listing %+v", run)
	}
}
