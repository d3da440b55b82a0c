package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/match-predictor/internal/domain/match"
	"github.com/riskibarqy/match-predictor/internal/domain/news"
	"github.com/riskibarqy/match-predictor/internal/domain/playerstats"
	"github.com/riskibarqy/match-predictor/internal/domain/ranking"
	"github.com/riskibarqy/match-predictor/internal/domain/teamstats"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
)

const (
	ingestStatusSuccess = "success"
	ingestStatusFailed  = "failed"

	defaultIngestHistoryLimit = 2000
	defaultStatsTimespan      = 30
)

type IngestionConfig struct {
	Regions       []string
	StatsTimespan int
	// HistoryLimit caps the completed matches used to compute team form.
	HistoryLimit int
	MaxWorkers   int
}

type IngestionResult struct {
	Matches             int                  `json:"matches"`
	TeamRankings        int                  `json:"team_rankings"`
	Players             int                  `json:"players"`
	Headlines           int                  `json:"headlines"`
	UnattachedHeadlines int                  `json:"unattached_headlines"`
	TeamStatsRows       int                  `json:"team_stats_rows"`
	RankingRows         int                  `json:"ranking_rows"`
	PlayerStatsRows     int                  `json:"player_stats_rows"`
	// FrozenRows counts stored ranking and roster rows of completed matches
	// that were kept instead of being rebuilt from current standings.
	FrozenRows          int                  `json:"frozen_rows"`
	Sources             []IngestSourceResult `json:"sources"`
}

type IngestSourceResult struct {
	Source     string `json:"source"`
	Status     string `json:"status"`
	Records    int    `json:"records"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

func (r IngestionResult) FailedSources() int {
	n := 0
	for _, s := range r.Sources {
		if s.Status == ingestStatusFailed {
			n++
		}
	}
	return n
}

type IngestionService struct {
	feed            MatchFeed
	matchRepo       match.Repository
	teamStatsRepo   teamstats.Repository
	rankingRepo     ranking.Repository
	playerStatsRepo playerstats.Repository
	newsRepo        news.Repository
	recorder        RunRecorder
	logger          *logging.Logger
	now             func() time.Time
}

func NewIngestionService(
	feed MatchFeed,
	matchRepo match.Repository,
	teamStatsRepo teamstats.Repository,
	rankingRepo ranking.Repository,
	playerStatsRepo playerstats.Repository,
	newsRepo news.Repository,
	recorder RunRecorder,
	logger *logging.Logger,
) *IngestionService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		feed:            feed,
		matchRepo:       matchRepo,
		teamStatsRepo:   teamStatsRepo,
		rankingRepo:     rankingRepo,
		playerStatsRepo: playerStatsRepo,
		newsRepo:        newsRepo,
		recorder:        recorder,
		logger:          logger,
		now:             time.Now,
	}
}

// fetched collects feed output across workers.
type fetched struct {
	mu        sync.Mutex
	results   []match.Match
	upcoming  []match.Match
	live      []match.Match
	headlines []news.Headline
	rankings  []ranking.TeamRanking
	players   []playerstats.PlayerStats
}

type ingestTask struct {
	source string
	run    func(ctx context.Context, into *fetched) (int, error)
}

// Run pulls every feed source, stores the raw rows and recomputes the
// per-match feature rows of the fetched matches. A failing source is
// reported in the result and does not stop the others.
func (s *IngestionService) Run(ctx context.Context, cfg IngestionConfig) (IngestionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Run")
	defer span.End()

	cfg = normalizeIngestionConfig(cfg)
	tasks := s.tasks(cfg)

	workerCount := cfg.MaxWorkers
	if workerCount > len(tasks) {
		workerCount = len(tasks)
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return IngestionResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		data    fetched
		workers sync.WaitGroup
		rows    = make(chan IngestSourceResult, len(tasks))
	)
	for _, task := range tasks {
		task := task
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			records, err := task.run(ctx, &data)
			row := IngestSourceResult{
				Source:     task.source,
				Status:     ingestStatusSuccess,
				Records:    records,
				DurationMs: time.Since(start).Milliseconds(),
			}
			if err != nil {
				row.Status = ingestStatusFailed
				row.Message = err.Error()
				s.logger.WarnContext(ctx, "ingest source failed", "source", task.source, "error", err)
			}
			s.recorder.ObserveIngestion(task.source, records, err)
			rows <- row
		}); err != nil {
			workers.Done()
			return IngestionResult{}, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}
	workers.Wait()
	close(rows)

	var result IngestionResult
	for row := range rows {
		result.Sources = append(result.Sources, row)
	}
	sort.SliceStable(result.Sources, func(i, j int) bool {
		return result.Sources[i].Source < result.Sources[j].Source
	})
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if err := s.persist(ctx, cfg, &data, &result); err != nil {
		return result, err
	}

	s.logger.InfoContext(ctx, "ingestion finished",
		"matches", result.Matches,
		"team_rankings", result.TeamRankings,
		"players", result.Players,
		"headlines", result.Headlines,
		"unattached_headlines", result.UnattachedHeadlines,
		"failed_sources", result.FailedSources(),
	)
	return result, nil
}

func normalizeIngestionConfig(cfg IngestionConfig) IngestionConfig {
	regions := make([]string, 0, len(cfg.Regions))
	seen := make(map[string]struct{}, len(cfg.Regions))
	for _, region := range cfg.Regions {
		region = strings.ToLower(strings.TrimSpace(region))
		if region == "" {
			continue
		}
		if _, ok := seen[region]; ok {
			continue
		}
		seen[region] = struct{}{}
		regions = append(regions, region)
	}
	cfg.Regions = regions
	if cfg.StatsTimespan <= 0 {
		cfg.StatsTimespan = defaultStatsTimespan
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultIngestHistoryLimit
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	return cfg
}

func (s *IngestionService) tasks(cfg IngestionConfig) []ingestTask {
	tasks := []ingestTask{
		{source: "results", run: func(ctx context.Context, into *fetched) (int, error) {
			rows, err := s.feed.FetchResults(ctx)
			if err != nil {
				return 0, err
			}
			into.mu.Lock()
			into.results = rows
			into.mu.Unlock()
			return len(rows), nil
		}},
		{source: "upcoming", run: func(ctx context.Context, into *fetched) (int, error) {
			rows, err := s.feed.FetchUpcomingMatches(ctx)
			if err != nil {
				return 0, err
			}
			into.mu.Lock()
			into.upcoming = rows
			into.mu.Unlock()
			return len(rows), nil
		}},
		{source: "live", run: func(ctx context.Context, into *fetched) (int, error) {
			rows, err := s.feed.FetchLiveMatches(ctx)
			if err != nil {
				return 0, err
			}
			into.mu.Lock()
			into.live = rows
			into.mu.Unlock()
			return len(rows), nil
		}},
		{source: "news", run: func(ctx context.Context, into *fetched) (int, error) {
			rows, err := s.feed.FetchNews(ctx)
			if err != nil {
				return 0, err
			}
			into.mu.Lock()
			into.headlines = rows
			into.mu.Unlock()
			return len(rows), nil
		}},
	}
	for _, region := range cfg.Regions {
		region := region
		tasks = append(tasks,
			ingestTask{source: "rankings:" + region, run: func(ctx context.Context, into *fetched) (int, error) {
				rows, err := s.feed.FetchRankings(ctx, region)
				if err != nil {
					return 0, err
				}
				into.mu.Lock()
				into.rankings = append(into.rankings, rows...)
				into.mu.Unlock()
				return len(rows), nil
			}},
			ingestTask{source: "player_stats:" + region, run: func(ctx context.Context, into *fetched) (int, error) {
				rows, err := s.feed.FetchPlayerStats(ctx, region, cfg.StatsTimespan)
				if err != nil {
					return 0, err
				}
				into.mu.Lock()
				into.players = append(into.players, rows...)
				into.mu.Unlock()
				return len(rows), nil
			}},
		)
	}
	return tasks
}

func (s *IngestionService) persist(ctx context.Context, cfg IngestionConfig, data *fetched, result *IngestionResult) error {
	matches := mergeMatches(data.upcoming, data.live, data.results)
	if err := s.matchRepo.Upsert(ctx, matches); err != nil {
		return fmt.Errorf("upsert matches: %w", err)
	}
	result.Matches = len(matches)

	if err := s.rankingRepo.UpsertTeamRankings(ctx, data.rankings); err != nil {
		return fmt.Errorf("upsert team rankings: %w", err)
	}
	result.TeamRankings = len(data.rankings)

	if err := s.playerStatsRepo.UpsertPlayers(ctx, data.players); err != nil {
		return fmt.Errorf("upsert players: %w", err)
	}
	result.Players = len(data.players)

	if err := s.deriveFeatureRows(ctx, matches, cfg.HistoryLimit, result); err != nil {
		return err
	}

	attached, unattached := AttachHeadlines(data.headlines, matches)
	if err := s.newsRepo.Upsert(ctx, attached); err != nil {
		return fmt.Errorf("upsert headlines: %w", err)
	}
	result.Headlines = len(attached)
	result.UnattachedHeadlines = unattached
	return nil
}

// deriveFeatureRows recomputes team form, ranking and roster rows for the
// fetched matches from everything stored so far. Rankings and player stats
// only describe the present, so a completed match keeps the ranking and
// roster rows stored before its result was known.
func (s *IngestionService) deriveFeatureRows(ctx context.Context, matches []match.Match, historyLimit int, result *IngestionResult) error {
	if len(matches) == 0 {
		return nil
	}

	latest := s.now()
	for _, m := range matches {
		if m.ScheduledAt.After(latest) {
			latest = m.ScheduledAt
		}
	}
	history, err := s.matchRepo.ListCompletedBefore(ctx, latest.Add(time.Second), historyLimit)
	if err != nil {
		return fmt.Errorf("load match history: %w", err)
	}
	rankingRows, err := s.rankingRepo.ListTeamRankings(ctx)
	if err != nil {
		return fmt.Errorf("load team rankings: %w", err)
	}
	players, err := s.playerStatsRepo.ListPlayers(ctx)
	if err != nil {
		return fmt.Errorf("load players: %w", err)
	}

	frozenRankings, frozenRosters, err := s.frozenRows(ctx, matches)
	if err != nil {
		return err
	}

	index := ranking.NewIndex(rankingRows)
	teamRows := make([]teamstats.MatchStats, 0, len(matches))
	matchRankings := make([]ranking.MatchRanking, 0, len(matches))
	rosterRows := make([]playerstats.MatchStats, 0, len(matches))
	for _, m := range matches {
		teamRows = append(teamRows, teamstats.Compute(m, history))
		if _, ok := frozenRankings[m.ID]; ok {
			result.FrozenRows++
		} else if row, ok := index.ForMatch(m); ok {
			matchRankings = append(matchRankings, row)
		}
		if _, ok := frozenRosters[m.ID]; ok {
			result.FrozenRows++
		} else if row, ok := playerstats.ForMatch(m, players); ok {
			rosterRows = append(rosterRows, row)
		}
	}

	if err := s.teamStatsRepo.Upsert(ctx, teamRows); err != nil {
		return fmt.Errorf("upsert team stats: %w", err)
	}
	if err := s.rankingRepo.UpsertMatchRankings(ctx, matchRankings); err != nil {
		return fmt.Errorf("upsert match rankings: %w", err)
	}
	if err := s.playerStatsRepo.UpsertMatchStats(ctx, rosterRows); err != nil {
		return fmt.Errorf("upsert match player stats: %w", err)
	}
	result.TeamStatsRows = len(teamRows)
	result.RankingRows = len(matchRankings)
	result.PlayerStatsRows = len(rosterRows)
	return nil
}

// frozenRows returns the ids of completed matches that already have a stored
// ranking row and roster row respectively.
func (s *IngestionService) frozenRows(ctx context.Context, matches []match.Match) (map[string]struct{}, map[string]struct{}, error) {
	var completed []string
	for _, m := range matches {
		if m.Status == match.StatusCompleted {
			completed = append(completed, m.ID)
		}
	}
	rankings := make(map[string]struct{})
	rosters := make(map[string]struct{})
	if len(completed) == 0 {
		return rankings, rosters, nil
	}

	storedRankings, err := s.rankingRepo.ListByMatchIDs(ctx, completed)
	if err != nil {
		return nil, nil, fmt.Errorf("load stored match rankings: %w", err)
	}
	for _, row := range storedRankings {
		rankings[row.MatchID] = struct{}{}
	}
	storedRosters, err := s.playerStatsRepo.ListByMatchIDs(ctx, completed)
	if err != nil {
		return nil, nil, fmt.Errorf("load stored match player stats: %w", err)
	}
	for _, row := range storedRosters {
		rosters[row.MatchID] = struct{}{}
	}
	return rankings, rosters, nil
}

// mergeMatches dedupes by id; later groups win, so pass groups from least to
// most settled.
func mergeMatches(groups ...[]match.Match) []match.Match {
	byID := make(map[string]int)
	var out []match.Match
	for _, group := range groups {
		for _, m := range group {
			if m.ID == "" {
				continue
			}
			if i, ok := byID[m.ID]; ok {
				out[i] = m
				continue
			}
			byID[m.ID] = len(out)
			out = append(out, m)
		}
	}
	return out
}

// AttachHeadlines assigns every headline to the match whose teams it
// mentions. Both teams mentioned beats one; ties go to the match scheduled
// closest to the publish time. Headlines that mention no team are dropped
// and counted.
func AttachHeadlines(headlines []news.Headline, matches []match.Match) ([]news.Headline, int) {
	out := make([]news.Headline, 0, len(headlines))
	unattached := 0
	for _, h := range headlines {
		if h.MatchID != "" {
			out = append(out, h)
			continue
		}
		text := match.TeamKey(h.Title + " " + h.Description)
		best, bestScore := -1, 0
		var bestGap time.Duration
		for i, m := range matches {
			score := mentions(text, m.Team1) + mentions(text, m.Team2)
			if score == 0 {
				continue
			}
			gap := absDuration(m.ScheduledAt.Sub(h.PublishedAt))
			if score > bestScore || (score == bestScore && gap < bestGap) {
				best, bestScore, bestGap = i, score, gap
			}
		}
		if best < 0 {
			unattached++
			continue
		}
		h.MatchID = matches[best].ID
		out = append(out, h)
	}
	return out, unattached
}

func mentions(text, team string) int {
	key := match.TeamKey(team)
	if len(key) < 3 || !strings.Contains(text, key) {
		return 0
	}
	return 1
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
