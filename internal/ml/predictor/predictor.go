package predictor

import (
	"context"
	"math"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/match-predictor/internal/ml"
	"github.com/riskibarqy/match-predictor/internal/ml/frame"
	"github.com/riskibarqy/match-predictor/internal/ml/gbdt"
	"github.com/riskibarqy/match-predictor/internal/platform/id"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
)

type State string

const (
	StateUntrained State = "untrained"
	StateTrained   State = "trained"
)

// Model is the trained artifact. It is immutable once published.
type Model struct {
	ID            string        `json:"id"`
	Columns       []string      `json:"columns"`
	Booster       *gbdt.Booster `json:"booster"`
	ValidationAUC float64       `json:"validation_auc"`
	TrainRows     int           `json:"train_rows"`
	ValidRows     int           `json:"valid_rows"`
	Config        FitConfig     `json:"config"`
	TrainedAt     time.Time     `json:"trained_at"`
}

type FitResult struct {
	ModelID               string
	ValidationAUC         float64
	BestIteration         int
	RoundsRun             int
	StoppedEarly          bool
	SingleClassValidation bool
	TrainRows             int
	ValidRows             int
	Trees                 int
	Leaves                int
}

type Option func(*Predictor)

func WithLogger(l *logging.Logger) Option {
	return func(p *Predictor) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithIDGenerator(g id.Generator) Option {
	return func(p *Predictor) {
		if g != nil {
			p.ids = g
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Predictor) {
		if now != nil {
			p.now = now
		}
	}
}

// Predictor is a binary match outcome classifier. It starts untrained; Fit
// publishes a new model wholesale and Reset drops it. Predictions read the
// current model atomically.
type Predictor struct {
	model  atomic.Pointer[Model]
	logger *logging.Logger
	ids    id.Generator
	now    func() time.Time
}

func New(opts ...Option) *Predictor {
	p := &Predictor{
		logger: logging.Default(),
		ids:    id.NewUUIDGenerator(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Predictor) State() State {
	if p.model.Load() == nil {
		return StateUntrained
	}
	return StateTrained
}

// Fit trains on X and y with a seeded train/validation split and early
// stopping, publishes the best-round model and returns its validation AUC.
func (p *Predictor) Fit(ctx context.Context, X frame.Matrix, y []int, cfg FitConfig) (FitResult, error) {
	if err := cfg.Validate(); err != nil {
		return FitResult{}, err
	}
	n := len(X.Rows)
	if n != len(y) {
		return FitResult{}, crerr.Wrapf(ml.ErrShapeMismatch, "X has %d rows, y has %d labels", n, len(y))
	}
	if n == 0 {
		return FitResult{}, crerr.Wrap(ml.ErrInsufficientData, "no training rows")
	}
	width, err := matrixWidth(X)
	if err != nil {
		return FitResult{}, err
	}
	labels := make([]float64, n)
	for i, v := range y {
		if v != 0 && v != 1 {
			return FitResult{}, crerr.Wrapf(ml.ErrInvalidLabel, "label %d is %d", i, v)
		}
		labels[i] = float64(v)
	}

	validRows := int(math.Floor(float64(n) * cfg.ValidationFraction))
	trainRows := n - validRows
	if validRows == 0 || trainRows == 0 {
		return FitResult{}, crerr.Wrapf(ml.ErrInsufficientData,
			"%d rows leave %d for training and %d for validation", n, trainRows, validRows)
	}

	validIdx, trainIdx := split(n, validRows, cfg.Seed)
	train := subset(X.Rows, labels, trainIdx)
	valid := subset(X.Rows, labels, validIdx)

	booster, res, err := gbdt.Train(ctx, gbdt.TrainConfig{
		Params:              cfg.Booster,
		EarlyStoppingRounds: cfg.EarlyStoppingRounds,
		LogEvery:            cfg.LogEvery,
		OnEvaluation: func(e gbdt.Evaluation) {
			p.logger.InfoContext(ctx, "training progress",
				"round", e.Round,
				"valid_"+e.Metric, e.Value,
			)
		},
	}, train, valid)
	if err != nil {
		return FitResult{}, crerr.Wrap(err, "train booster")
	}

	validProbs, err := booster.PredictProba(valid.X)
	if err != nil {
		return FitResult{}, crerr.Wrap(err, "score validation set")
	}
	auc, twoClasses := gbdt.AUC(valid.Y, validProbs)
	if !twoClasses {
		p.logger.WarnContext(ctx, "validation split holds a single class, auc is not informative",
			"valid_rows", validRows,
		)
	}

	modelID, err := p.ids.NewID()
	if err != nil {
		return FitResult{}, crerr.Wrap(err, "generate model id")
	}

	model := &Model{
		ID:            modelID,
		Columns:       columnsFor(X, width),
		Booster:       booster,
		ValidationAUC: auc,
		TrainRows:     trainRows,
		ValidRows:     validRows,
		Config:        cfg,
		TrainedAt:     p.now().UTC(),
	}
	p.model.Store(model)

	p.logger.InfoContext(ctx, "validation auc",
		"model_id", modelID,
		"auc", auc,
		"best_iteration", res.BestIteration,
		"rounds_run", res.RoundsRun,
		"stopped_early", res.StoppedEarly,
		"train_rows", trainRows,
		"valid_rows", validRows,
		"trees", booster.NumTrees(),
		"leaves", booster.NumLeaves(),
	)

	return FitResult{
		ModelID:               modelID,
		ValidationAUC:         auc,
		BestIteration:         res.BestIteration,
		RoundsRun:             res.RoundsRun,
		StoppedEarly:          res.StoppedEarly,
		SingleClassValidation: !twoClasses,
		TrainRows:             trainRows,
		ValidRows:             validRows,
		Trees:                 booster.NumTrees(),
		Leaves:                booster.NumLeaves(),
	}, nil
}

// PredictProba returns P(team1 wins) for every row, in row order.
func (p *Predictor) PredictProba(X frame.Matrix) ([]float64, error) {
	model := p.model.Load()
	if model == nil {
		return nil, ml.ErrNotFitted
	}
	if len(X.Columns) > 0 && !frame.SameColumns(X.Columns, model.Columns) {
		return nil, crerr.Wrapf(ml.ErrShapeMismatch, "columns %v differ from fitted columns %v", X.Columns, model.Columns)
	}
	if len(X.Rows) == 0 {
		return []float64{}, nil
	}
	return model.Booster.PredictProba(X.Rows)
}

// Predict labels a row 1 when its probability is >= threshold.
func (p *Predictor) Predict(X frame.Matrix, threshold float64) ([]int, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, crerr.Wrapf(ml.ErrInvalidConfig, "threshold %v outside [0,1]", threshold)
	}
	probs, err := p.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return Labels(probs, threshold), nil
}

func Labels(probs []float64, threshold float64) []int {
	out := make([]int, len(probs))
	for i, prob := range probs {
		if prob >= threshold {
			out[i] = 1
		}
	}
	return out
}

// Reset returns the predictor to the untrained state.
func (p *Predictor) Reset() {
	p.model.Store(nil)
}

// Model returns the current trained artifact.
func (p *Predictor) Model() (*Model, bool) {
	m := p.model.Load()
	return m, m != nil
}

// Restore publishes a previously saved model.
func (p *Predictor) Restore(m *Model) error {
	if m == nil || m.Booster == nil {
		return crerr.New("model artifact is empty")
	}
	if len(m.Columns) != m.Booster.NumFeatures {
		return crerr.Wrapf(ml.ErrShapeMismatch, "model has %d columns for %d booster features", len(m.Columns), m.Booster.NumFeatures)
	}
	if err := m.Booster.Validate(); err != nil {
		return crerr.Wrap(err, "validate booster")
	}
	p.model.Store(m)
	return nil
}

func matrixWidth(X frame.Matrix) (int, error) {
	width := len(X.Columns)
	if width == 0 && len(X.Rows) > 0 {
		width = len(X.Rows[0])
	}
	if width == 0 {
		return 0, crerr.Wrap(ml.ErrInsufficientData, "matrix has no feature columns")
	}
	for i, row := range X.Rows {
		if len(row) != width {
			return 0, crerr.Wrapf(ml.ErrShapeMismatch, "row %d has %d values, expected %d", i, len(row), width)
		}
	}
	return width, nil
}

func columnsFor(X frame.Matrix, width int) []string {
	if len(X.Columns) == width {
		return append([]string(nil), X.Columns...)
	}
	cols := make([]string, width)
	for i := range cols {
		cols[i] = "f" + strconv.Itoa(i)
	}
	return cols
}

// split shuffles row positions with a seeded PCG and takes the first
// validRows as the validation set.
func split(n, validRows int, seed uint64) (valid, train []int) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(n)
	return perm[:validRows], perm[validRows:]
}

func subset(rows [][]float64, labels []float64, idx []int) gbdt.Dataset {
	ds := gbdt.Dataset{
		X: make([][]float64, len(idx)),
		Y: make([]float64, len(idx)),
	}
	for i, j := range idx {
		ds.X[i] = rows[j]
		ds.Y[i] = labels[j]
	}
	return ds
}
