package postgres

import (
	"database/sql"
	"time"

	"github.com/pgvector/pgvector-go"
)

type matchTableModel struct {
	PublicID    string        `db:"public_id"`
	Event       string        `db:"event"`
	Series      string        `db:"series"`
	Team1       string        `db:"team1"`
	Team2       string        `db:"team2"`
	Score1      sql.NullInt64 `db:"score1"`
	Score2      sql.NullInt64 `db:"score2"`
	Status      string        `db:"status"`
	ScheduledAt time.Time     `db:"scheduled_at"`
	PageURL     string        `db:"page_url"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

type matchTeamStatsModel struct {
	MatchID         string          `db:"match_public_id"`
	Team1WinRate    sql.NullFloat64 `db:"team1_win_rate"`
	Team2WinRate    sql.NullFloat64 `db:"team2_win_rate"`
	Team1RecentForm sql.NullFloat64 `db:"team1_recent_form"`
	Team2RecentForm sql.NullFloat64 `db:"team2_recent_form"`
	Team1MapDiff    sql.NullFloat64 `db:"team1_map_diff"`
	Team2MapDiff    sql.NullFloat64 `db:"team2_map_diff"`
	HeadToHead      sql.NullFloat64 `db:"head_to_head"`
	Team1Played     sql.NullFloat64 `db:"team1_played"`
	Team2Played     sql.NullFloat64 `db:"team2_played"`
}

type teamRankingModel struct {
	Team      string    `db:"team"`
	Region    string    `db:"region"`
	Country   string    `db:"country"`
	Rank      int       `db:"rank"`
	Wins      int       `db:"wins"`
	Losses    int       `db:"losses"`
	Earnings  float64   `db:"earnings"`
	UpdatedAt time.Time `db:"updated_at"`
}

type matchRankingModel struct {
	MatchID        string          `db:"match_public_id"`
	Team1Rank      sql.NullFloat64 `db:"team1_rank"`
	Team2Rank      sql.NullFloat64 `db:"team2_rank"`
	RankDiff       sql.NullFloat64 `db:"rank_diff"`
	Team1RecordPct sql.NullFloat64 `db:"team1_record_pct"`
	Team2RecordPct sql.NullFloat64 `db:"team2_record_pct"`
	Team1Earnings  sql.NullFloat64 `db:"team1_log_earnings"`
	Team2Earnings  sql.NullFloat64 `db:"team2_log_earnings"`
}

type playerStatsModel struct {
	Player    string    `db:"player"`
	Org       string    `db:"org"`
	Region    string    `db:"region"`
	Rating    float64   `db:"rating"`
	ACS       float64   `db:"acs"`
	KD        float64   `db:"kd"`
	ADR       float64   `db:"adr"`
	KPR       float64   `db:"kpr"`
	HSPct     float64   `db:"hs_pct"`
	ClutchPct float64   `db:"clutch_pct"`
	UpdatedAt time.Time `db:"updated_at"`
}

type matchPlayerStatsModel struct {
	MatchID     string          `db:"match_public_id"`
	Team1Rating sql.NullFloat64 `db:"team1_rating"`
	Team2Rating sql.NullFloat64 `db:"team2_rating"`
	Team1ACS    sql.NullFloat64 `db:"team1_acs"`
	Team2ACS    sql.NullFloat64 `db:"team2_acs"`
	Team1KD     sql.NullFloat64 `db:"team1_kd"`
	Team2KD     sql.NullFloat64 `db:"team2_kd"`
	Team1HSPct  sql.NullFloat64 `db:"team1_hs_pct"`
	Team2HSPct  sql.NullFloat64 `db:"team2_hs_pct"`
}

type headlineModel struct {
	PublicID    string    `db:"public_id"`
	MatchID     string    `db:"match_public_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Author      string    `db:"author"`
	URL         string    `db:"url"`
	PublishedAt time.Time `db:"published_at"`
}

type predictionModel struct {
	RunID           string    `db:"run_id"`
	MatchID         string    `db:"match_public_id"`
	ModelID         string    `db:"model_id"`
	Team1           string    `db:"team1"`
	Team2           string    `db:"team2"`
	Probability     float64   `db:"probability"`
	Label           int       `db:"label"`
	Threshold       float64   `db:"threshold"`
	PredictedWinner string    `db:"predicted_winner"`
	PredictedAt     time.Time `db:"predicted_at"`
}

type embeddingCacheModel struct {
	CacheKey  string          `db:"cache_key"`
	Dimension int             `db:"dimension"`
	Embedding pgvector.Vector `db:"embedding"`
}
