package ranking

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TeamRanking is one row of a regional ranking table.
type TeamRanking struct {
	Team      string
	Region    string
	Country   string
	Rank      int
	Wins      int
	Losses    int
	Earnings  float64
	UpdatedAt time.Time
}

// MatchRanking is the ranking profile of both sides going into a match.
// Unranked teams carry NaN.
type MatchRanking struct {
	MatchID        string
	Team1Rank      float64
	Team2Rank      float64
	RankDiff       float64
	Team1RecordPct float64
	Team2RecordPct float64
	Team1Earnings  float64
	Team2Earnings  float64
}

var Columns = []string{
	"team1_rank",
	"team2_rank",
	"rank_diff",
	"team1_record_pct",
	"team2_record_pct",
	"team1_log_earnings",
	"team2_log_earnings",
}

func (r MatchRanking) Values() []float64 {
	return []float64{
		r.Team1Rank,
		r.Team2Rank,
		r.RankDiff,
		r.Team1RecordPct,
		r.Team2RecordPct,
		r.Team1Earnings,
		r.Team2Earnings,
	}
}

func (t TeamRanking) RecordPct() float64 {
	total := t.Wins + t.Losses
	if total == 0 {
		return math.NaN()
	}
	return float64(t.Wins) / float64(total)
}

// ParseRecord reads a "wins-losses" record such as "12-3".
func ParseRecord(value string) (wins, losses int, ok bool) {
	left, right, found := strings.Cut(strings.TrimSpace(value), "-")
	if !found {
		return 0, 0, false
	}
	w, errW := strconv.Atoi(strings.TrimSpace(left))
	l, errL := strconv.Atoi(strings.TrimSpace(right))
	if errW != nil || errL != nil || w < 0 || l < 0 {
		return 0, 0, false
	}
	return w, l, true
}

// ParseEarnings reads amounts like "$1,234,500".
func ParseEarnings(value string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, value)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
