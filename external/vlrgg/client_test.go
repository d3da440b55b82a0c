package vlrgg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
	"github.com/riskibarqy/match-predictor/internal/platform/resilience"
	"github.com/riskibarqy/match-predictor/internal/usecase"
)

var fixedNow = time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{
		BaseURL:        srv.URL,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		Logger:         logging.NewNop(),
		CircuitBreaker: breaker,
	})
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestFetchResults_MapsScoresAndIDs(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/match" || r.URL.Query().Get("q") != "results" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"data":{"status":200,"segments":[
			{"team1":"Sentinels","team2":"LOUD","score1":"2","score2":1,"time_completed":"2h 30m ago",
			 "match_series":"Upper Final","match_event":"Champions Tour","match_page":"/314624/sentinels-vs-loud"},
			{"team1":"","team2":"","score1":"","score2":"","match_page":"/1/broken"},
			{"teams":["Fnatic","NaVi"],"score1":"0","score2":"2","match_page":"no-id-here"}
		]}}`))
	}, resilience.CircuitBreakerConfig{})

	got, err := c.FetchResults(context.Background())
	if err != nil {
		t.Fatalf("FetchResults error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one valid result, got=%d", len(got))
	}

	m := got[0]
	if m.ID != "314624" || m.Team1 != "Sentinels" || m.Team2 != "LOUD" {
		t.Fatalf("unexpected match identity: %+v", m)
	}
	if m.Status != match.StatusCompleted {
		t.Fatalf("expected completed status, got=%s", m.Status)
	}
	if m.Score1 == nil || *m.Score1 != 2 || m.Score2 == nil || *m.Score2 != 1 {
		t.Fatalf("unexpected scores: %v %v", m.Score1, m.Score2)
	}
	if want := fixedNow.Add(-150 * time.Minute); !m.ScheduledAt.Equal(want) {
		t.Fatalf("expected scheduled_at=%s, got=%s", want, m.ScheduledAt)
	}
	if m.PageURL != "https://www.vlr.gg/314624/sentinels-vs-loud" {
		t.Fatalf("unexpected page url: %s", m.PageURL)
	}
	if label, ok := m.Team1Won(); !ok || label != 1 {
		t.Fatalf("expected team1 win label, got=%d ok=%v", label, ok)
	}
}

func TestFetchUpcomingMatches_DropsScores(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"status":200,"segments":[
			{"teams":["Paper Rex","DRX"],"score1":"","score2":"","time_until_match":"1d 3h from now",
			 "match_page":"https://www.vlr.gg/400001/prx-vs-drx","unix_timestamp":"2026-04-03 15:00:00"}
		]}}`))
	}, resilience.CircuitBreakerConfig{})

	got, err := c.FetchUpcomingMatches(context.Background())
	if err != nil {
		t.Fatalf("FetchUpcomingMatches error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one match, got=%d", len(got))
	}
	if got[0].Score1 != nil || got[0].Score2 != nil {
		t.Fatalf("upcoming match must not carry scores")
	}
	if want := time.Date(2026, 4, 3, 15, 0, 0, 0, time.UTC); !got[0].ScheduledAt.Equal(want) {
		t.Fatalf("expected scheduled_at=%s, got=%s", want, got[0].ScheduledAt)
	}
}

func TestFetchRankingsAndStats(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rankings":
			if r.URL.Query().Get("region") != "eu" {
				t.Errorf("expected region eu, got %s", r.URL.Query().Get("region"))
			}
			_, _ = w.Write([]byte(`{"status":200,"data":[
				{"rank":"1","team":"Fnatic","country":"Europe","record":"12-3","earnings":"$1,250,000"},
				{"rank":"x","team":"Broken"}
			]}`))
		case "/stats":
			if r.URL.Query().Get("timespan") != "30" {
				t.Errorf("expected default timespan, got %s", r.URL.Query().Get("timespan"))
			}
			_, _ = w.Write([]byte(`{"data":{"status":200,"segments":[
				{"player":"Derke","org":"FNC","rating":"1.21","average_combat_score":"245.3","kill_deaths":"1.32","headshot_percentage":"27%"}
			]}}`))
		default:
			http.NotFound(w, r)
		}
	}, resilience.CircuitBreakerConfig{})

	rankings, err := c.FetchRankings(context.Background(), " EU ")
	if err != nil {
		t.Fatalf("FetchRankings error: %v", err)
	}
	if len(rankings) != 1 {
		t.Fatalf("expected one ranking row, got=%d", len(rankings))
	}
	if r := rankings[0]; r.Rank != 1 || r.Wins != 12 || r.Losses != 3 || r.Earnings != 1250000 || r.Region != "eu" {
		t.Fatalf("unexpected ranking row: %+v", r)
	}

	stats, err := c.FetchPlayerStats(context.Background(), "eu", 0)
	if err != nil {
		t.Fatalf("FetchPlayerStats error: %v", err)
	}
	if len(stats) != 1 || stats[0].Rating != 1.21 || stats[0].HSPct != 27 || stats[0].Org != "FNC" {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestFetchNews_ParsesDates(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"status":200,"segments":[
			{"title":"Sentinels sign new IGL","description":"roster move","date":"April 1, 2026","author":"vlr","url_path":"https://www.vlr.gg/500123/sentinels-sign"},
			{"title":"undated","date":"yesterday","url_path":"/news/slug"}
		]}}`))
	}, resilience.CircuitBreakerConfig{})

	got, err := c.FetchNews(context.Background())
	if err != nil {
		t.Fatalf("FetchNews error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two headlines, got=%d", len(got))
	}
	if got[0].ID != "500123" || !got[0].PublishedAt.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first headline: %+v", got[0])
	}
	if got[1].ID != "https://www.vlr.gg/news/slug" || !got[1].PublishedAt.Equal(fixedNow) {
		t.Fatalf("unexpected second headline: %+v", got[1])
	}
	if got[0].MatchID != "" {
		t.Fatalf("feed headlines must not be attached to matches")
	}
}

func TestDoJSON_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"status":200,"segments":[]}}`))
	}, resilience.CircuitBreakerConfig{})

	if _, err := c.FetchNews(context.Background()); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got=%d", calls.Load())
	}
}

func TestDoJSON_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}, resilience.CircuitBreakerConfig{})

	if _, err := c.FetchRankings(context.Background(), "na"); err == nil {
		t.Fatalf("expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got=%d", calls.Load())
	}
}

func TestDoJSON_OpenBreakerRejects(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      time.Hour,
		HalfOpenMaxReq:   1,
	})

	if _, err := c.FetchNews(context.Background()); err == nil {
		t.Fatalf("expected first call to fail")
	}
	_, err := c.FetchNews(context.Background())
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
}

func TestParseRelative(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"51m from now", fixedNow.Add(51 * time.Minute), true},
		{"1w 2d ago", fixedNow.Add(-9 * 24 * time.Hour), true},
		{"LIVE", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := parseRelative(tc.in, fixedNow)
		if ok != tc.ok || !got.Equal(tc.want) {
			t.Fatalf("parseRelative(%q)=%s,%v want %s,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
