package prediction

import "time"

// Prediction is the model's call on one upcoming match.
type Prediction struct {
	MatchID         string
	ModelID         string
	RunID           string
	Team1           string
	Team2           string
	Probability     float64
	Label           int
	Threshold       float64
	PredictedWinner string
	PredictedAt     time.Time
}

// Winner names the side the label points to.
func Winner(team1, team2 string, label int) string {
	if label == 1 {
		return team1
	}
	return team2
}
