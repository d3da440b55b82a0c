package vlrgg

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/match-predictor/internal/domain/match"
	"github.com/riskibarqy/match-predictor/internal/domain/news"
	"github.com/riskibarqy/match-predictor/internal/domain/playerstats"
	"github.com/riskibarqy/match-predictor/internal/domain/ranking"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
	"github.com/riskibarqy/match-predictor/internal/platform/resilience"
	"github.com/riskibarqy/match-predictor/internal/usecase"
)

const (
	defaultBaseURL  = "https://vlrggapi.vercel.app"
	defaultRegion   = "na"
	defaultTimespan = 30
	maxBodyBytes    = 4 << 20
)

var (
	digitsRegex       = regexp.MustCompile(`\d+`)
	relativePartRegex = regexp.MustCompile(`(\d+)\s*([wdhms])`)
	errVLRTransient   = crerr.New("vlrgg transient failure")
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads the unofficial vlr.gg API. Every fetch goes through the
// circuit breaker and identical concurrent requests share one round trip.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	retryDelay     time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight[[]byte]
	validate       *validator.Validate
	now            func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("vlrgg")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	breaker := resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker, func(from, to resilience.CircuitState) {
		logger.Warn("vlrgg circuit breaker state changed", "from", from, "to", to)
	})

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     max(cfg.MaxRetries, 0),
		retryDelay:     cfg.RetryDelay,
		logger:         logger,
		breaker:        breaker,
		circuitEnabled: cfg.CircuitBreaker.Enabled,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		now:            time.Now,
	}
}

func (c *Client) FetchUpcomingMatches(ctx context.Context) ([]match.Match, error) {
	return c.fetchMatches(ctx, "upcoming", match.StatusUpcoming)
}

func (c *Client) FetchLiveMatches(ctx context.Context) ([]match.Match, error) {
	return c.fetchMatches(ctx, "live_score", match.StatusLive)
}

// FetchResults returns recently completed matches with their series scores.
func (c *Client) FetchResults(ctx context.Context) ([]match.Match, error) {
	return c.fetchMatches(ctx, "results", match.StatusCompleted)
}

func (c *Client) fetchMatches(ctx context.Context, query, status string) ([]match.Match, error) {
	var envelope segmentsEnvelope[matchPayload]
	if err := c.doJSON(ctx, "/match", map[string]string{"q": query}, &envelope); err != nil {
		return nil, fmt.Errorf("fetch matches q=%s: %w", query, err)
	}

	now := c.now().UTC()
	out := make([]match.Match, 0, len(envelope.Data.Segments))
	skipped := 0
	for _, item := range envelope.Data.Segments {
		item.normalize()
		if err := c.validate.Struct(item); err != nil {
			skipped++
			continue
		}
		id := extractID(item.MatchPage)
		if id == "" {
			skipped++
			continue
		}

		m := match.Match{
			ID:          id,
			Event:       strings.TrimSpace(item.Event),
			Series:      strings.TrimSpace(item.Series),
			Team1:       item.Teams[0],
			Team2:       item.Teams[1],
			Status:      status,
			ScheduledAt: scheduledAt(item, now),
			PageURL:     absoluteURL(item.MatchPage),
			UpdatedAt:   now,
		}
		if status != match.StatusUpcoming {
			m.Score1 = item.Score1.Ptr()
			m.Score2 = item.Score2.Ptr()
		}
		out = append(out, m)
	}
	if skipped > 0 {
		c.logger.DebugContext(ctx, "skipped invalid match rows", "query", query, "skipped", skipped)
	}
	return out, nil
}

// FetchNews returns the latest headlines. They are not attached to matches
// yet; ingestion does that.
func (c *Client) FetchNews(ctx context.Context) ([]news.Headline, error) {
	var envelope segmentsEnvelope[newsPayload]
	if err := c.doJSON(ctx, "/news", nil, &envelope); err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}

	now := c.now().UTC()
	out := make([]news.Headline, 0, len(envelope.Data.Segments))
	for _, item := range envelope.Data.Segments {
		if err := c.validate.Struct(item); err != nil {
			continue
		}
		link := absoluteURL(item.URLPath)
		id := extractID(item.URLPath)
		if id == "" {
			id = link
		}
		published, ok := parseNewsDate(item.Date)
		if !ok {
			published = now
		}
		out = append(out, news.Headline{
			ID:          id,
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
			Author:      strings.TrimSpace(item.Author),
			URL:         link,
			PublishedAt: published,
		})
	}
	return out, nil
}

func (c *Client) FetchRankings(ctx context.Context, region string) ([]ranking.TeamRanking, error) {
	region = normalizeRegion(region)
	var envelope rankingsEnvelope
	if err := c.doJSON(ctx, "/rankings", map[string]string{"region": region}, &envelope); err != nil {
		return nil, fmt.Errorf("fetch rankings region=%s: %w", region, err)
	}

	now := c.now().UTC()
	out := make([]ranking.TeamRanking, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		if err := c.validate.Struct(item); err != nil {
			continue
		}
		rank, err := strconv.Atoi(strings.TrimSpace(item.Rank))
		if err != nil || rank <= 0 {
			continue
		}
		wins, losses, _ := ranking.ParseRecord(item.Record)
		out = append(out, ranking.TeamRanking{
			Team:      strings.TrimSpace(item.Team),
			Region:    region,
			Country:   strings.TrimSpace(item.Country),
			Rank:      rank,
			Wins:      wins,
			Losses:    losses,
			Earnings:  ranking.ParseEarnings(item.Earnings),
			UpdatedAt: now,
		})
	}
	return out, nil
}

// FetchPlayerStats returns per-player aggregates over the last timespan days.
func (c *Client) FetchPlayerStats(ctx context.Context, region string, timespan int) ([]playerstats.PlayerStats, error) {
	region = normalizeRegion(region)
	if timespan <= 0 {
		timespan = defaultTimespan
	}
	var envelope segmentsEnvelope[statPayload]
	query := map[string]string{"region": region, "timespan": strconv.Itoa(timespan)}
	if err := c.doJSON(ctx, "/stats", query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch stats region=%s: %w", region, err)
	}

	now := c.now().UTC()
	out := make([]playerstats.PlayerStats, 0, len(envelope.Data.Segments))
	for _, item := range envelope.Data.Segments {
		if err := c.validate.Struct(item); err != nil {
			continue
		}
		out = append(out, playerstats.PlayerStats{
			Player:    strings.TrimSpace(item.Player),
			Org:       strings.TrimSpace(item.Org),
			Region:    region,
			Rating:    parseStat(item.Rating),
			ACS:       parseStat(item.ACS),
			KD:        parseStat(item.KD),
			ADR:       parseStat(item.ADR),
			KPR:       parseStat(item.KPR),
			HSPct:     parseStat(item.HSPct),
			ClutchPct: parseStat(item.ClutchPct),
			UpdatedAt: now,
		})
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "vlrgg circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: esports feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, err, shared := c.flight.Do(fullURL, func() ([]byte, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errVLRTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}
	if shared {
		c.logger.DebugContext(ctx, "vlrgg response shared with a concurrent caller", "path", path)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode feed payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var body []byte
	err := resilience.Retry(ctx, resilience.RetryPolicy{
		MaxRetries: c.maxRetries,
		BaseDelay:  c.retryDelay,
		Retryable:  func(err error) bool { return stderrors.Is(err, errVLRTransient) },
	}, func(int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: send request: %v", errVLRTransient, err)
		}
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("%w: read response body: %v", errVLRTransient, readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body = raw
			return nil
		}
		if isRetryableStatus(resp.StatusCode) {
			return fmt.Errorf("%w: feed status=%d body=%s", errVLRTransient, resp.StatusCode, abbreviateBody(raw))
		}
		return fmt.Errorf("feed status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	})
	if err != nil {
		c.logger.WarnContext(ctx, "vlrgg request failed", "url", fullURL, "error", err)
		return nil, err
	}
	return body, nil
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

// extractID returns the first run of digits in a vlr.gg page path, which is
// the numeric match or article id.
func extractID(page string) string {
	return digitsRegex.FindString(page)
}

func absoluteURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return "https://www.vlr.gg/" + strings.TrimLeft(path, "/")
}

func normalizeRegion(region string) string {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" {
		return defaultRegion
	}
	return region
}

func scheduledAt(item matchPayload, now time.Time) time.Time {
	if ts := strings.TrimSpace(string(item.UnixTimestamp)); ts != "" {
		if secs, err := strconv.ParseInt(ts, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0).UTC()
		}
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", ts, time.UTC); err == nil {
			return t
		}
	}
	if at, ok := parseRelative(item.TimeUntilMatch, now); ok {
		return at
	}
	if at, ok := parseRelative(item.TimeCompleted, now); ok {
		return at
	}
	return now
}

// parseRelative reads "1d 3h from now" or "2h 50m ago" against now.
func parseRelative(value string, now time.Time) (time.Time, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return time.Time{}, false
	}
	parts := relativePartRegex.FindAllStringSubmatch(value, -1)
	if len(parts) == 0 {
		return time.Time{}, false
	}

	var offset time.Duration
	for _, part := range parts {
		n, err := strconv.Atoi(part[1])
		if err != nil {
			return time.Time{}, false
		}
		switch part[2] {
		case "w":
			offset += time.Duration(n) * 7 * 24 * time.Hour
		case "d":
			offset += time.Duration(n) * 24 * time.Hour
		case "h":
			offset += time.Duration(n) * time.Hour
		case "m":
			offset += time.Duration(n) * time.Minute
		case "s":
			offset += time.Duration(n) * time.Second
		}
	}
	if strings.Contains(value, "ago") {
		return now.Add(-offset), true
	}
	return now.Add(offset), true
}

var newsDateLayouts = []string{"January 2, 2006", "Jan 2, 2006", "2006-01-02"}

func parseNewsDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range newsDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
