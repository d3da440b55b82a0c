package vlrgg

import (
	"bytes"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
)

// segmentsEnvelope is the {"data":{"status":200,"segments":[...]}} shape of
// the match, news and stats endpoints.
type segmentsEnvelope[T any] struct {
	Data struct {
		Status   int `json:"status"`
		Segments []T `json:"segments"`
	} `json:"data"`
}

// rankingsEnvelope is the flat {"status":200,"data":[...]} shape of /rankings.
type rankingsEnvelope struct {
	Status int              `json:"status"`
	Data   []rankingPayload `json:"data"`
}

type matchPayload struct {
	Event          string    `json:"match_event"`
	Series         string    `json:"match_series"`
	Teams          []string  `json:"teams" validate:"len=2,dive,required"`
	Team1          string    `json:"team1"`
	Team2          string    `json:"team2"`
	Score1         flexInt   `json:"score1"`
	Score2         flexInt   `json:"score2"`
	MatchPage      string    `json:"match_page" validate:"required"`
	TimeUntilMatch string    `json:"time_until_match"`
	TimeCompleted  string    `json:"time_completed"`
	UnixTimestamp  flexValue `json:"unix_timestamp"`
}

// normalize fills Teams from team1/team2 when the array is absent and trims
// the names.
func (p *matchPayload) normalize() {
	if len(p.Teams) == 0 && (p.Team1 != "" || p.Team2 != "") {
		p.Teams = []string{p.Team1, p.Team2}
	}
	for i := range p.Teams {
		p.Teams[i] = strings.TrimSpace(p.Teams[i])
	}
}

type newsPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Author      string `json:"author"`
	URLPath     string `json:"url_path" validate:"required"`
}

type rankingPayload struct {
	Rank     string `json:"rank" validate:"required"`
	Team     string `json:"team" validate:"required"`
	Country  string `json:"country"`
	Record   string `json:"record"`
	Earnings string `json:"earnings"`
}

type statPayload struct {
	Player    string `json:"player" validate:"required"`
	Org       string `json:"org"`
	Rating    string `json:"rating"`
	ACS       string `json:"average_combat_score"`
	KD        string `json:"kill_deaths"`
	ADR       string `json:"average_damage_per_round"`
	KPR       string `json:"kills_per_round"`
	HSPct     string `json:"headshot_percentage"`
	ClutchPct string `json:"clutch_success_percentage"`
}

// flexInt accepts 2, "2" and "" (absent).
type flexInt struct {
	Value int
	Valid bool
}

func (f *flexInt) UnmarshalJSON(raw []byte) error {
	text := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	if text == "" || text == "null" || text == "-" {
		*f = flexInt{}
		return nil
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		*f = flexInt{}
		return nil
	}
	*f = flexInt{Value: v, Valid: true}
	return nil
}

func (f flexInt) Ptr() *int {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// flexValue keeps a scalar as text whether the feed sent a string or a number.
type flexValue string

func (f *flexValue) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := sonic.Unmarshal(raw, &s); err != nil {
			return err
		}
		*f = flexValue(strings.TrimSpace(s))
		return nil
	}
	if string(raw) == "null" {
		*f = ""
		return nil
	}
	*f = flexValue(raw)
	return nil
}

// parseStat reads "1.12", "25%" or "" as a float, returning 0 for blanks.
func parseStat(value string) float64 {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
