package teamstats

import (
	"math"
	"sort"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
)

const recentFormWindow = 5

// Compute builds the stats for target from completed matches played strictly
// before it, so a match never sees its own result.
func Compute(target match.Match, history []match.Match) MatchStats {
	past := make([]match.Match, 0, len(history))
	for _, m := range history {
		if m.ID == target.ID || !m.IsCompleted() {
			continue
		}
		if !target.ScheduledAt.IsZero() && !m.ScheduledAt.Before(target.ScheduledAt) {
			continue
		}
		past = append(past, m)
	}
	sort.SliceStable(past, func(i, j int) bool {
		return past[i].ScheduledAt.After(past[j].ScheduledAt)
	})

	t1 := teamRecord(target.Team1, past)
	t2 := teamRecord(target.Team2, past)

	return MatchStats{
		MatchID:         target.ID,
		Team1WinRate:    t1.winRate(),
		Team2WinRate:    t2.winRate(),
		Team1RecentForm: t1.recentForm(),
		Team2RecentForm: t2.recentForm(),
		Team1MapDiff:    t1.mapDiff(),
		Team2MapDiff:    t2.mapDiff(),
		HeadToHead:      headToHead(target.Team1, target.Team2, past),
		Team1Played:     float64(len(t1.results)),
		Team2Played:     float64(len(t2.results)),
	}
}

type record struct {
	// results newest first: true for a win
	results []bool
	mapsFor int
	mapsAg  int
}

func teamRecord(team string, past []match.Match) record {
	key := match.TeamKey(team)
	var r record
	for _, m := range past {
		var own, opp int
		switch key {
		case match.TeamKey(m.Team1):
			own, opp = *m.Score1, *m.Score2
		case match.TeamKey(m.Team2):
			own, opp = *m.Score2, *m.Score1
		default:
			continue
		}
		if own == opp {
			continue
		}
		r.results = append(r.results, own > opp)
		r.mapsFor += own
		r.mapsAg += opp
	}
	return r
}

func (r record) winRate() float64 {
	return rate(r.results)
}

func (r record) recentForm() float64 {
	return rate(r.results[:min(len(r.results), recentFormWindow)])
}

func (r record) mapDiff() float64 {
	if len(r.results) == 0 {
		return math.NaN()
	}
	return float64(r.mapsFor-r.mapsAg) / float64(len(r.results))
}

func rate(results []bool) float64 {
	if len(results) == 0 {
		return math.NaN()
	}
	wins := 0
	for _, won := range results {
		if won {
			wins++
		}
	}
	return float64(wins) / float64(len(results))
}

func headToHead(team1, team2 string, past []match.Match) float64 {
	k1, k2 := match.TeamKey(team1), match.TeamKey(team2)
	var results []bool
	for _, m := range past {
		a, b := match.TeamKey(m.Team1), match.TeamKey(m.Team2)
		switch {
		case a == k1 && b == k2 && *m.Score1 != *m.Score2:
			results = append(results, *m.Score1 > *m.Score2)
		case a == k2 && b == k1 && *m.Score1 != *m.Score2:
			results = append(results, *m.Score2 > *m.Score1)
		}
	}
	return rate(results)
}
