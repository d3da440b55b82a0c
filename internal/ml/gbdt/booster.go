package gbdt

import (
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/match-predictor/internal/ml"
)

// Booster is a trained additive tree ensemble over log-odds.
type Booster struct {
	InitScore     float64 `json:"init_score"`
	Trees         []Tree  `json:"trees"`
	NumFeatures   int     `json:"num_features"`
	BestIteration int     `json:"best_iteration"`
	Params        Params  `json:"params"`
}

func (b *Booster) PredictRaw(x []float64) float64 {
	score := b.InitScore
	for _, t := range b.Trees {
		score += t.Predict(x)
	}
	return score
}

// PredictProba returns the positive-class probability of every row.
func (b *Booster) PredictProba(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != b.NumFeatures {
			return nil, crerr.Wrapf(ml.ErrShapeMismatch, "row %d has %d features, model expects %d", i, len(row), b.NumFeatures)
		}
		out[i] = sigmoid(b.PredictRaw(row))
	}
	return out, nil
}

func (b *Booster) NumTrees() int {
	return len(b.Trees)
}

func (b *Booster) NumLeaves() int {
	n := 0
	for _, t := range b.Trees {
		n += t.NumLeaves()
	}
	return n
}

// Validate checks a deserialized booster for structural consistency.
func (b *Booster) Validate() error {
	if b.NumFeatures <= 0 {
		return crerr.New("booster has no features")
	}
	for ti, t := range b.Trees {
		for ni, n := range t.Nodes {
			if n.IsLeaf() {
				continue
			}
			if n.Feature >= b.NumFeatures {
				return crerr.Newf("tree %d node %d splits on feature %d of %d", ti, ni, n.Feature, b.NumFeatures)
			}
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return crerr.Newf("tree %d node %d has invalid children", ti, ni)
			}
		}
	}
	return nil
}
