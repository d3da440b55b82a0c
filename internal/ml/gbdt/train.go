package gbdt

import (
	"context"
	"math"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/match-predictor/internal/ml"
)

// Dataset is a dense design matrix with binary labels.
type Dataset struct {
	X [][]float64
	Y []float64
}

// Evaluation is the validation metric after one boosting round.
type Evaluation struct {
	Round  int
	Metric string
	Value  float64
}

type TrainConfig struct {
	Params Params
	// EarlyStoppingRounds stops training when the validation metric has not
	// improved for this many rounds. 0 disables early stopping.
	EarlyStoppingRounds int
	// LogEvery invokes OnEvaluation every LogEvery rounds. 0 disables it.
	LogEvery     int
	OnEvaluation func(Evaluation)
}

type Result struct {
	BestIteration int
	BestScore     float64
	RoundsRun     int
	StoppedEarly  bool
	// SingleClassValidation is set when the validation labels hold one class
	// only; AUC is then reported as 1.
	SingleClassValidation bool
}

// Train fits a binary logistic booster on train, scoring valid every round.
// The returned booster keeps only the trees up to the best round.
func Train(ctx context.Context, cfg TrainConfig, train, valid Dataset) (*Booster, Result, error) {
	params := cfg.Params
	if err := params.Validate(); err != nil {
		return nil, Result{}, err
	}
	features, err := checkDataset(train, -1, "train")
	if err != nil {
		return nil, Result{}, err
	}
	if _, err := checkDataset(valid, features, "valid"); err != nil && len(valid.X) > 0 {
		return nil, Result{}, err
	}

	n := len(train.X)
	initScore := baseScore(train.Y)
	mapper := newBinMapper(train.X, features, params.MaxBins)
	grower := newTreeGrower(params, mapper, mapper.binned(train.X))

	booster := &Booster{
		InitScore:   initScore,
		NumFeatures: features,
		Params:      params,
	}

	trainScore := filled(n, initScore)
	validScore := filled(len(valid.X), initScore)
	grad := make([]float64, n)
	hess := make([]float64, n)
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}

	res := Result{}
	bestRound := 0
	bestScore := math.NaN()
	hasValid := len(valid.X) > 0

	for round := 1; round <= params.NumRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, Result{}, crerr.Wrapf(err, "training interrupted at round %d", round)
		}

		for i := range rows {
			p := sigmoid(trainScore[i])
			grad[i] = p - train.Y[i]
			hess[i] = math.Max(p*(1-p), 1e-16)
		}

		tree := grower.grow(rows, grad, hess)
		booster.Trees = append(booster.Trees, tree)
		for i, x := range train.X {
			trainScore[i] += tree.Predict(x)
		}
		res.RoundsRun = round

		if !hasValid {
			bestRound = round
			continue
		}

		for i, x := range valid.X {
			validScore[i] += tree.Predict(x)
		}
		value, singleClass := evaluate(params.Metric, valid.Y, validScore)
		res.SingleClassValidation = singleClass

		if bestRound == 0 || improved(params, value, bestScore) {
			bestRound, bestScore = round, value
		}
		if cfg.LogEvery > 0 && round%cfg.LogEvery == 0 && cfg.OnEvaluation != nil {
			cfg.OnEvaluation(Evaluation{Round: round, Metric: params.Metric, Value: value})
		}
		if cfg.EarlyStoppingRounds > 0 && round-bestRound >= cfg.EarlyStoppingRounds {
			res.StoppedEarly = true
			break
		}
	}

	booster.Trees = booster.Trees[:bestRound]
	booster.BestIteration = bestRound
	res.BestIteration = bestRound
	res.BestScore = bestScore
	return booster, res, nil
}

func checkDataset(ds Dataset, features int, name string) (int, error) {
	if len(ds.X) == 0 {
		return 0, crerr.Wrapf(ml.ErrInsufficientData, "%s set is empty", name)
	}
	if len(ds.X) != len(ds.Y) {
		return 0, crerr.Wrapf(ml.ErrShapeMismatch, "%s set has %d rows and %d labels", name, len(ds.X), len(ds.Y))
	}
	if features < 0 {
		features = len(ds.X[0])
	}
	for i, row := range ds.X {
		if len(row) != features {
			return 0, crerr.Wrapf(ml.ErrShapeMismatch, "%s row %d has %d features, expected %d", name, i, len(row), features)
		}
	}
	for i, y := range ds.Y {
		if y != 0 && y != 1 {
			return 0, crerr.Wrapf(ml.ErrInvalidLabel, "%s label %d is %v", name, i, y)
		}
	}
	return features, nil
}

func evaluate(metric string, labels, rawScores []float64) (float64, bool) {
	if metric == MetricLogLoss {
		probs := make([]float64, len(rawScores))
		for i, s := range rawScores {
			probs[i] = sigmoid(s)
		}
		return LogLoss(labels, probs), false
	}
	auc, ok := AUC(labels, rawScores)
	return auc, !ok
}

func improved(params Params, value, best float64) bool {
	if params.higherIsBetter() {
		return value > best
	}
	return value < best
}

// baseScore is the log-odds of the positive rate.
func baseScore(labels []float64) float64 {
	var sum float64
	for _, y := range labels {
		sum += y
	}
	p := sum / float64(len(labels))
	p = math.Min(math.Max(p, 1e-15), 1-1e-15)
	return math.Log(p / (1 - p))
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
