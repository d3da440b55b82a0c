package match

import (
	"strings"
	"time"
)

const (
	StatusUpcoming  = "UPCOMING"
	StatusLive      = "LIVE"
	StatusCompleted = "COMPLETED"
)

// Match is one series between two teams.
type Match struct {
	ID          string
	Event       string
	Series      string
	Team1       string
	Team2       string
	Score1      *int
	Score2      *int
	Status      string
	ScheduledAt time.Time
	PageURL     string
	UpdatedAt   time.Time
}

func NormalizeStatus(value string) string {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "LIVE", "ONGOING":
		return StatusLive
	case "COMPLETED", "RESULT", "RESULTS", "FINISHED":
		return StatusCompleted
	default:
		return StatusUpcoming
	}
}

func (m Match) IsCompleted() bool {
	return m.Status == StatusCompleted && m.Score1 != nil && m.Score2 != nil
}

// Team1Won returns the training label. ok is false for unfinished or drawn
// matches, which carry no label.
func (m Match) Team1Won() (label int, ok bool) {
	if !m.IsCompleted() || *m.Score1 == *m.Score2 {
		return 0, false
	}
	if *m.Score1 > *m.Score2 {
		return 1, true
	}
	return 0, true
}

// Involves reports whether team plays in this match, comparing normalized names.
func (m Match) Involves(team string) bool {
	key := TeamKey(team)
	return key != "" && (TeamKey(m.Team1) == key || TeamKey(m.Team2) == key)
}

// TeamKey normalizes a team name for comparisons: lower case, letters and
// digits only.
func TeamKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
