package playerstats

import (
	"math"
	"strings"
	"unicode"

	"github.com/riskibarqy/match-predictor/internal/domain/match"
)

// OrgMatchesTeam reports whether a stats org tag (e.g. "SEN") belongs to a
// team name (e.g. "Sentinels"): equal keys, the tag prefixing the name, or
// the tag spelling the name's initials.
func OrgMatchesTeam(org, team string) bool {
	orgKey, teamKey := match.TeamKey(org), match.TeamKey(team)
	if orgKey == "" || teamKey == "" {
		return false
	}
	if orgKey == teamKey {
		return true
	}
	if len(orgKey) >= 2 && strings.HasPrefix(teamKey, orgKey) {
		return true
	}
	return len(orgKey) >= 2 && initials(team) == orgKey
}

func initials(name string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(name, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		b.WriteRune(unicode.ToLower([]rune(word)[0]))
	}
	return b.String()
}

// ForMatch averages the players of each side. Ok is false when neither side
// has a matching player.
func ForMatch(m match.Match, players []PlayerStats) (MatchStats, bool) {
	var side1, side2 []PlayerStats
	for _, p := range players {
		switch {
		case OrgMatchesTeam(p.Org, m.Team1):
			side1 = append(side1, p)
		case OrgMatchesTeam(p.Org, m.Team2):
			side2 = append(side2, p)
		}
	}
	if len(side1) == 0 && len(side2) == 0 {
		return MatchStats{}, false
	}

	return MatchStats{
		MatchID:     m.ID,
		Team1Rating: mean(side1, func(p PlayerStats) float64 { return p.Rating }),
		Team2Rating: mean(side2, func(p PlayerStats) float64 { return p.Rating }),
		Team1ACS:    mean(side1, func(p PlayerStats) float64 { return p.ACS }),
		Team2ACS:    mean(side2, func(p PlayerStats) float64 { return p.ACS }),
		Team1KD:     mean(side1, func(p PlayerStats) float64 { return p.KD }),
		Team2KD:     mean(side2, func(p PlayerStats) float64 { return p.KD }),
		Team1HSPct:  mean(side1, func(p PlayerStats) float64 { return p.HSPct }),
		Team2HSPct:  mean(side2, func(p PlayerStats) float64 { return p.HSPct }),
	}, true
}

func mean(rows []PlayerStats, field func(PlayerStats) float64) float64 {
	if len(rows) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, r := range rows {
		sum += field(r)
	}
	return sum / float64(len(rows))
}
