package ranking

import (
	"math"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
)

// Index maps normalized team names to their best ranking row.
type Index map[string]TeamRanking

func NewIndex(rows []TeamRanking) Index {
	idx := make(Index, len(rows))
	for _, row := range rows {
		key := match.TeamKey(row.Team)
		if key == "" || row.Rank <= 0 {
			continue
		}
		if prev, ok := idx[key]; ok && prev.Rank <= row.Rank {
			continue
		}
		idx[key] = row
	}
	return idx
}

func (idx Index) Lookup(team string) (TeamRanking, bool) {
	row, ok := idx[match.TeamKey(team)]
	return row, ok
}

// ForMatch builds the ranking features of m. Ok is false when neither team is
// ranked, in which case no row should be stored.
func (idx Index) ForMatch(m match.Match) (MatchRanking, bool) {
	r1, ok1 := idx.Lookup(m.Team1)
	r2, ok2 := idx.Lookup(m.Team2)
	if !ok1 && !ok2 {
		return MatchRanking{}, false
	}

	out := MatchRanking{
		MatchID:        m.ID,
		Team1Rank:      math.NaN(),
		Team2Rank:      math.NaN(),
		RankDiff:       math.NaN(),
		Team1RecordPct: math.NaN(),
		Team2RecordPct: math.NaN(),
		Team1Earnings:  math.NaN(),
		Team2Earnings:  math.NaN(),
	}
	if ok1 {
		out.Team1Rank = float64(r1.Rank)
		out.Team1RecordPct = r1.RecordPct()
		out.Team1Earnings = math.Log1p(r1.Earnings)
	}
	if ok2 {
		out.Team2Rank = float64(r2.Rank)
		out.Team2RecordPct = r2.RecordPct()
		out.Team2Earnings = math.Log1p(r2.Earnings)
	}
	if ok1 && ok2 {
		out.RankDiff = out.Team2Rank - out.Team1Rank
	}
	return out, true
}
