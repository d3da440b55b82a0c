package playerstats

import "time"

// PlayerStats is one player's aggregate line from the stats feed.
type PlayerStats struct {
	Player    string
	Org       string
	Region    string
	Rating    float64
	ACS       float64
	KD        float64
	ADR       float64
	KPR       float64
	HSPct     float64
	ClutchPct float64
	UpdatedAt time.Time
}

// MatchStats is the roster strength of both sides going into a match,
// averaged over each team's listed players. NaN when no player matched.
type MatchStats struct {
	MatchID     string
	Team1Rating float64
	Team2Rating float64
	Team1ACS    float64
	Team2ACS    float64
	Team1KD     float64
	Team2KD     float64
	Team1HSPct  float64
	Team2HSPct  float64
}

var Columns = []string{
	"team1_avg_rating",
	"team2_avg_rating",
	"team1_avg_acs",
	"team2_avg_acs",
	"team1_avg_kd",
	"team2_avg_kd",
	"team1_avg_hs_pct",
	"team2_avg_hs_pct",
}

func (s MatchStats) Values() []float64 {
	return []float64{
		s.Team1Rating,
		s.Team2Rating,
		s.Team1ACS,
		s.Team2ACS,
		s.Team1KD,
		s.Team2KD,
		s.Team1HSPct,
		s.Team2HSPct,
	}
}
