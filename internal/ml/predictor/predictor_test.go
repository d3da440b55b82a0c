package predictor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/riskibarqy/match-predictor/internal/ml"
	"github.com/riskibarqy/match-predictor/internal/ml/frame"
	"github.com/riskibarqy/match-predictor/internal/platform/id"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
)

func syntheticMatrix(n int) (frame.Matrix, []int) {
	m := frame.Matrix{Columns: []string{"rank_diff", "form_diff", "noise"}}
	y := make([]int, 0, n)
	for i := 0; i < n; i++ {
		rankDiff := float64((i*53)%41) - 20
		form := float64((i*7)%11) - 5
		m.Keys = append(m.Keys, fmt.Sprintf("m%03d", i))
		m.Rows = append(m.Rows, []float64{rankDiff, form, float64(i % 5)})
		if rankDiff+0.5*form > 0 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	return m, y
}

func TestFit_TrainsAndPredicts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := New(WithLogger(logging.New(logging.LevelInfo, &buf)), WithIDGenerator(id.Static("model-1")))
	if p.State() != StateUntrained {
		t.Fatalf("expected untrained predictor")
	}

	X, y := syntheticMatrix(300)
	res, err := p.Fit(context.Background(), X, y, DefaultFitConfig())
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	if p.State() != StateTrained {
		t.Fatalf("expected trained predictor")
	}
	if res.ModelID != "model-1" || res.TrainRows != 240 || res.ValidRows != 60 {
		t.Fatalf("unexpected fit result: %+v", res)
	}
	if res.ValidationAUC < 0.8 || res.ValidationAUC > 1 {
		t.Fatalf("unexpected validation auc: %v", res.ValidationAUC)
	}
	if !strings.Contains(buf.String(), `"msg":"validation auc"`) {
		t.Fatalf("expected validation auc to be logged, got %s", buf.String())
	}

	probs, err := p.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba error: %v", err)
	}
	if len(probs) != X.Len() {
		t.Fatalf("expected %d probabilities, got %d", X.Len(), len(probs))
	}
	for _, prob := range probs {
		if prob < 0 || prob > 1 {
			t.Fatalf("probability out of range: %v", prob)
		}
	}

	labels, err := p.Predict(X, DefaultThreshold)
	if err != nil {
		t.Fatalf("Predict error: %v", err)
	}
	for i := range labels {
		want := 0
		if probs[i] >= DefaultThreshold {
			want = 1
		}
		if labels[i] != want {
			t.Fatalf("row %d: label %d does not match probability %v", i, labels[i], probs[i])
		}
	}
}

func TestFit_IsDeterministic(t *testing.T) {
	t.Parallel()

	X, y := syntheticMatrix(150)
	a, b := New(), New()
	resA, err := a.Fit(context.Background(), X, y, DefaultFitConfig())
	if err != nil {
		t.Fatalf("first fit: %v", err)
	}
	resB, err := b.Fit(context.Background(), X, y, DefaultFitConfig())
	if err != nil {
		t.Fatalf("second fit: %v", err)
	}
	if resA.ValidationAUC != resB.ValidationAUC || resA.BestIteration != resB.BestIteration || resA.Leaves != resB.Leaves {
		t.Fatalf("expected identical fits, got %+v vs %+v", resA, resB)
	}
	if resA.Trees != resA.BestIteration || resA.Leaves < resA.Trees {
		t.Fatalf("expected the kept trees to match the best iteration: %+v", resA)
	}
}

func TestFit_ShapeMismatch(t *testing.T) {
	t.Parallel()

	X, y := syntheticMatrix(10)
	_, err := New().Fit(context.Background(), X, y[:9], DefaultFitConfig())
	if !errors.Is(err, ml.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestFit_InsufficientData(t *testing.T) {
	t.Parallel()

	X, y := syntheticMatrix(3)
	p := New()
	if _, err := p.Fit(context.Background(), X, y, DefaultFitConfig()); !errors.Is(err, ml.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := p.Fit(context.Background(), frame.Matrix{}, nil, DefaultFitConfig()); !errors.Is(err, ml.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for empty input, got %v", err)
	}
	if p.State() != StateUntrained {
		t.Fatalf("failed fit must leave predictor untrained")
	}
}

func TestFit_RejectsInvalidLabelsAndConfig(t *testing.T) {
	t.Parallel()

	X, y := syntheticMatrix(20)
	y[4] = 2
	if _, err := New().Fit(context.Background(), X, y, DefaultFitConfig()); !errors.Is(err, ml.ErrInvalidLabel) {
		t.Fatalf("expected ErrInvalidLabel, got %v", err)
	}

	cfg := DefaultFitConfig()
	cfg.ValidationFraction = 1.5
	X, y = syntheticMatrix(20)
	if _, err := New().Fit(context.Background(), X, y, cfg); !errors.Is(err, ml.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestPredict_NotFitted(t *testing.T) {
	t.Parallel()

	X, _ := syntheticMatrix(5)
	p := New()
	if _, err := p.PredictProba(X); !errors.Is(err, ml.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
	if _, err := p.Predict(X, 0.5); !errors.Is(err, ml.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}

func TestPredict_ColumnMismatch(t *testing.T) {
	t.Parallel()

	X, y := syntheticMatrix(100)
	p := New()
	if _, err := p.Fit(context.Background(), X, y, DefaultFitConfig()); err != nil {
		t.Fatalf("Fit error: %v", err)
	}

	other := frame.Matrix{Columns: []string{"rank_diff", "noise", "form_diff"}, Rows: [][]float64{{1, 2, 3}}}
	if _, err := p.PredictProba(other); !errors.Is(err, ml.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for reordered columns, got %v", err)
	}

	narrow := frame.Matrix{Rows: [][]float64{{1, 2}}}
	if _, err := p.PredictProba(narrow); !errors.Is(err, ml.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for narrow rows, got %v", err)
	}
}

func TestPredict_ThresholdBoundary(t *testing.T) {
	t.Parallel()

	got := Labels([]float64{0.5, 0.4999, 1, 0}, 0.5)
	want := []int{1, 0, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Labels()[%d]=%d, want %d", i, got[i], want[i])
		}
	}

	if _, err := New().Predict(frame.Matrix{}, 1.5); !errors.Is(err, ml.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for out of range threshold, got %v", err)
	}
}

func TestResetAndRestore(t *testing.T) {
	t.Parallel()

	X, y := syntheticMatrix(100)
	p := New()
	if _, err := p.Fit(context.Background(), X, y, DefaultFitConfig()); err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	model, ok := p.Model()
	if !ok {
		t.Fatalf("expected trained model")
	}
	before, _ := p.PredictProba(X)

	p.Reset()
	if p.State() != StateUntrained {
		t.Fatalf("expected untrained after reset")
	}

	restored := New()
	if err := restored.Restore(model); err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	after, err := restored.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba after restore: %v", err)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("row %d: %v != %v", i, before[i], after[i])
		}
	}
}

func TestPredictProba_ConcurrentReads(t *testing.T) {
	t.Parallel()

	X, y := syntheticMatrix(120)
	p := New()
	if _, err := p.Fit(context.Background(), X, y, DefaultFitConfig()); err != nil {
		t.Fatalf("Fit error: %v", err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.PredictProba(X); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent PredictProba error: %v", err)
	}
}
