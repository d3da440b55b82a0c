package teamstats

// MatchStats is the team form profile of both sides going into a match.
// Values are NaN when there is no history to compute them from.
type MatchStats struct {
	MatchID         string
	Team1WinRate    float64
	Team2WinRate    float64
	Team1RecentForm float64
	Team2RecentForm float64
	Team1MapDiff    float64
	Team2MapDiff    float64
	HeadToHead      float64
	Team1Played     float64
	Team2Played     float64
}

// Columns lists feature names in Values order.
var Columns = []string{
	"team1_win_rate",
	"team2_win_rate",
	"team1_recent_form",
	"team2_recent_form",
	"team1_map_diff",
	"team2_map_diff",
	"head_to_head",
	"team1_played",
	"team2_played",
}

func (s MatchStats) Values() []float64 {
	return []float64{
		s.Team1WinRate,
		s.Team2WinRate,
		s.Team1RecentForm,
		s.Team2RecentForm,
		s.Team1MapDiff,
		s.Team2MapDiff,
		s.HeadToHead,
		s.Team1Played,
		s.Team2Played,
	}
}
