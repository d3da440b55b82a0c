package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
	"github.com/riskibarqy/match-predictor/internal/domain/news"
	"github.com/riskibarqy/match-predictor/internal/domain/playerstats"
	"github.com/riskibarqy/match-predictor/internal/domain/ranking"
	"github.com/riskibarqy/match-predictor/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
)

type ingestionRepos struct {
	matches     *memory.MatchRepository
	teamStats   *memory.TeamStatsRepository
	rankings    *memory.RankingRepository
	playerStats *memory.PlayerStatsRepository
	news        *memory.NewsRepository
}

func newIngestionRepos() ingestionRepos {
	return ingestionRepos{
		matches:     memory.NewMatchRepository(nil),
		teamStats:   memory.NewTeamStatsRepository(),
		rankings:    memory.NewRankingRepository(),
		playerStats: memory.NewPlayerStatsRepository(),
		news:        memory.NewNewsRepository(),
	}
}

func ingestionFeed() stubFeed {
	past := []match.Match{
		{ID: "r1", Team1: "Sentinels", Team2: "G2 Esports", Score1: intPtr(2), Score2: intPtr(0), Status: match.StatusCompleted, ScheduledAt: fixtureStart},
		{ID: "r2", Team1: "G2 Esports", Team2: "Sentinels", Score1: intPtr(2), Score2: intPtr(1), Status: match.StatusCompleted, ScheduledAt: fixtureStart.Add(24 * time.Hour)},
	}
	upcoming := []match.Match{
		{ID: "u1", Team1: "Sentinels", Team2: "G2 Esports", Status: match.StatusUpcoming, ScheduledAt: fixtureStart.Add(72 * time.Hour)},
		{ID: "u2", Team1: "Fnatic", Team2: "Team Liquid", Status: match.StatusUpcoming, ScheduledAt: fixtureStart.Add(96 * time.Hour)},
	}
	return stubFeed{
		results:  past,
		upcoming: upcoming,
		headlines: []news.Headline{
			{ID: "n1", Title: "Sentinels look sharp ahead of G2 Esports rematch", PublishedAt: fixtureStart.Add(50 * time.Hour)},
			{ID: "n2", Title: "Fnatic confirm roster", PublishedAt: fixtureStart.Add(90 * time.Hour)},
			{ID: "n3", Title: "Patch notes 9.04", PublishedAt: fixtureStart},
		},
		rankings: map[string][]ranking.TeamRanking{
			"na": {{Team: "Sentinels", Region: "na", Rank: 3, Wins: 10, Losses: 4, Earnings: 250000}},
			"eu": {{Team: "Fnatic", Region: "eu", Rank: 1, Wins: 12, Losses: 2, Earnings: 900000}},
		},
		players: map[string][]playerstats.PlayerStats{
			"na": {
				{Player: "TenZ", Org: "SEN", Region: "na", Rating: 1.2, ACS: 250, KD: 1.3, HSPct: 0.28},
				{Player: "zekken", Org: "SEN", Region: "na", Rating: 1.1, ACS: 230, KD: 1.1, HSPct: 0.24},
			},
		},
		failures: map[string]error{},
	}
}

func TestIngestionService_Run_StoresFeedAndDerivedRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := newIngestionRepos()
	recorder := &spyRecorder{}
	service := NewIngestionService(ingestionFeed(), repos.matches, repos.teamStats, repos.rankings, repos.playerStats, repos.news, recorder, logging.NewNop())
	service.now = func() time.Time { return fixtureStart.Add(60 * time.Hour) }

	got, err := service.Run(ctx, IngestionConfig{Regions: []string{"NA", "eu", "na", " "}, MaxWorkers: 2})
	if err != nil {
		t.Fatalf("run ingestion: %v", err)
	}
	if got.Matches != 4 || got.TeamRankings != 2 || got.Players != 2 {
		t.Fatalf("unexpected raw counts: %+v", got)
	}
	if got.TeamStatsRows != 4 || got.RankingRows != 4 || got.PlayerStatsRows != 3 {
		t.Fatalf("unexpected derived counts: %+v", got)
	}
	if got.Headlines != 2 || got.UnattachedHeadlines != 1 {
		t.Fatalf("unexpected headline counts: %+v", got)
	}
	// 4 fixed sources plus rankings and stats for two regions
	if len(got.Sources) != 8 || got.FailedSources() != 0 {
		t.Fatalf("unexpected sources: %+v", got.Sources)
	}
	if len(recorder.ingestions) != 8 {
		t.Fatalf("expected every source to be observed, got %d", len(recorder.ingestions))
	}

	stats, err := repos.teamStats.ListByMatchIDs(ctx, []string{"u1"})
	if err != nil || len(stats) != 1 {
		t.Fatalf("expected team stats for u1: %v %v", stats, err)
	}
	if stats[0].Team1WinRate != 0.5 || stats[0].HeadToHead != 0.5 || stats[0].Team1Played != 2 {
		t.Fatalf("unexpected team form for u1: %+v", stats[0])
	}

	rankRows, err := repos.rankings.ListByMatchIDs(ctx, []string{"u1"})
	if err != nil || len(rankRows) != 1 {
		t.Fatalf("expected ranking row for u1: %v %v", rankRows, err)
	}
	if rankRows[0].Team1Rank != 3 || !math.IsNaN(rankRows[0].Team2Rank) {
		t.Fatalf("unexpected ranking row: %+v", rankRows[0])
	}

	headlines, err := repos.news.ListByMatchIDs(ctx, []string{"u1", "u2"})
	if err != nil {
		t.Fatalf("list headlines: %v", err)
	}
	attached := map[string]string{}
	for _, h := range headlines {
		attached[h.ID] = h.MatchID
	}
	if attached["n1"] != "u1" || attached["n2"] != "u2" {
		t.Fatalf("unexpected headline attachment: %v", attached)
	}
}

func TestIngestionService_Run_KeepsPreMatchRowsOfCompletedMatches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := newIngestionRepos()
	service := NewIngestionService(ingestionFeed(), repos.matches, repos.teamStats, repos.rankings, repos.playerStats, repos.news, nil, logging.NewNop())
	service.now = func() time.Time { return fixtureStart.Add(60 * time.Hour) }
	if _, err := service.Run(ctx, IngestionConfig{Regions: []string{"na", "eu"}}); err != nil {
		t.Fatalf("first ingestion: %v", err)
	}
	beforeRank, err := repos.rankings.ListByMatchIDs(ctx, []string{"u1"})
	if err != nil || len(beforeRank) != 1 {
		t.Fatalf("expected pre-match ranking row for u1: %v %v", beforeRank, err)
	}
	beforeRoster, err := repos.playerStats.ListByMatchIDs(ctx, []string{"u1"})
	if err != nil || len(beforeRoster) != 1 {
		t.Fatalf("expected pre-match roster row for u1: %v %v", beforeRoster, err)
	}

	// u1 is played and won by Sentinels, whose standings and ratings move
	feed := ingestionFeed()
	played := feed.upcoming[0]
	played.Status = match.StatusCompleted
	played.Score1, played.Score2 = intPtr(2), intPtr(0)
	feed.results = append(feed.results, played)
	feed.upcoming = feed.upcoming[1:]
	feed.rankings["na"] = []ranking.TeamRanking{{Team: "Sentinels", Region: "na", Rank: 1, Wins: 11, Losses: 4, Earnings: 400000}}
	feed.players["na"] = []playerstats.PlayerStats{
		{Player: "TenZ", Org: "SEN", Region: "na", Rating: 2.0, ACS: 320, KD: 2.1, HSPct: 0.35},
		{Player: "zekken", Org: "SEN", Region: "na", Rating: 1.8, ACS: 300, KD: 1.9, HSPct: 0.31},
	}

	service = NewIngestionService(feed, repos.matches, repos.teamStats, repos.rankings, repos.playerStats, repos.news, nil, logging.NewNop())
	service.now = func() time.Time { return fixtureStart.Add(80 * time.Hour) }
	got, err := service.Run(ctx, IngestionConfig{Regions: []string{"na", "eu"}})
	if err != nil {
		t.Fatalf("second ingestion: %v", err)
	}
	// r1, r2 and u1 keep both their ranking and roster rows
	if got.FrozenRows != 6 || got.RankingRows != 1 || got.PlayerStatsRows != 0 {
		t.Fatalf("unexpected derived counts on re-ingest: %+v", got)
	}

	afterRank, err := repos.rankings.ListByMatchIDs(ctx, []string{"u1"})
	if err != nil || len(afterRank) != 1 {
		t.Fatalf("expected ranking row for u1: %v %v", afterRank, err)
	}
	if afterRank[0].Team1Rank != beforeRank[0].Team1Rank || afterRank[0].Team1RecordPct != beforeRank[0].Team1RecordPct {
		t.Fatalf("completed match ranking row changed: before %+v after %+v", beforeRank[0], afterRank[0])
	}
	afterRoster, err := repos.playerStats.ListByMatchIDs(ctx, []string{"u1"})
	if err != nil || len(afterRoster) != 1 {
		t.Fatalf("expected roster row for u1: %v %v", afterRoster, err)
	}
	if afterRoster[0].Team1Rating != beforeRoster[0].Team1Rating {
		t.Fatalf("completed match roster row changed: before %+v after %+v", beforeRoster[0], afterRoster[0])
	}
}

func TestIngestionService_Run_ReportsFailedSource(t *testing.T) {
	t.Parallel()

	feed := ingestionFeed()
	feed.failures["rankings:eu"] = errors.New("upstream 503")
	feed.failures["news"] = errors.New("timeout")

	repos := newIngestionRepos()
	service := NewIngestionService(feed, repos.matches, repos.teamStats, repos.rankings, repos.playerStats, repos.news, nil, logging.NewNop())
	got, err := service.Run(context.Background(), IngestionConfig{Regions: []string{"na", "eu"}})
	if err != nil {
		t.Fatalf("a failing source must not fail the run: %v", err)
	}
	if got.FailedSources() != 2 {
		t.Fatalf("expected two failed sources, got %+v", got.Sources)
	}
	if got.TeamRankings != 1 || got.Headlines != 0 {
		t.Fatalf("unexpected counts with failed sources: %+v", got)
	}
	for _, source := range got.Sources {
		if source.Source == "rankings:eu" && (source.Status != ingestStatusFailed || source.Message != "upstream 503") {
			t.Fatalf("unexpected rankings:eu source row: %+v", source)
		}
	}
}

func TestAttachHeadlines(t *testing.T) {
	t.Parallel()

	matches := []match.Match{
		{ID: "a", Team1: "Paper Rex", Team2: "DRX", ScheduledAt: fixtureStart},
		{ID: "b", Team1: "Paper Rex", Team2: "T1", ScheduledAt: fixtureStart.Add(48 * time.Hour)},
		{ID: "c", Team1: "Paper Rex", Team2: "Gen.G", ScheduledAt: fixtureStart.Add(96 * time.Hour)},
	}
	headlines := []news.Headline{
		{ID: "both", Title: "Paper Rex vs Gen.G preview", PublishedAt: fixtureStart},
		{ID: "nearest", Title: "Paper Rex bootcamp update", PublishedAt: fixtureStart.Add(50 * time.Hour)},
		{ID: "preset", MatchID: "a", Title: "already linked"},
		{ID: "short", Title: "T1 news", PublishedAt: fixtureStart},
	}

	got, unattached := AttachHeadlines(headlines, matches)
	if unattached != 1 {
		t.Fatalf("expected one unattached headline, got %d", unattached)
	}
	want := map[string]string{"both": "c", "nearest": "b", "preset": "a"}
	if len(got) != len(want) {
		t.Fatalf("expected %d attached headlines, got %d", len(want), len(got))
	}
	for _, h := range got {
		if want[h.ID] != h.MatchID {
			t.Fatalf("%s attached to %q, want %q", h.ID, h.MatchID, want[h.ID])
		}
	}
}

func TestMergeMatches_LaterGroupsWin(t *testing.T) {
	t.Parallel()

	upcoming := []match.Match{{ID: "x", Status: match.StatusUpcoming}, {ID: "y", Status: match.StatusUpcoming}}
	results := []match.Match{{ID: "x", Status: match.StatusCompleted}, {ID: ""}}

	got := mergeMatches(upcoming, results)
	if len(got) != 2 || got[0].ID != "x" || got[0].Status != match.StatusCompleted {
		t.Fatalf("unexpected merge: %+v", got)
	}
}
