package ml

import (
	"errors"
	"testing"

	crerr "github.com/cockroachdb/errors"
)

func TestEmbeddingErrorMatchesSentinel(t *testing.T) {
	t.Parallel()

	cause := errors.New("rate limited")
	err := crerr.Wrap(NewEmbeddingError(3, cause), "embed headlines")

	if !errors.Is(err, ErrEmbeddingFailure) {
		t.Fatalf("expected ErrEmbeddingFailure, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable, got %v", err)
	}
	idx, ok := EmbeddingIndex(err)
	if !ok || idx != 3 {
		t.Fatalf("unexpected index: idx=%d ok=%v", idx, ok)
	}
}

func TestEmbeddingIndexWithoutPosition(t *testing.T) {
	t.Parallel()

	if _, ok := EmbeddingIndex(NewEmbeddingError(-1, nil)); ok {
		t.Fatalf("expected no index for batch-level failure")
	}
	if _, ok := EmbeddingIndex(ErrNotFitted); ok {
		t.Fatalf("expected no index for unrelated error")
	}
}

func TestSentinelsStayDistinct(t *testing.T) {
	t.Parallel()

	err := crerr.Wrapf(ErrShapeMismatch, "x has %d rows, y has %d labels", 10, 9)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch")
	}
	if errors.Is(err, ErrInsufficientData) {
		t.Fatalf("shape mismatch must not match insufficient data")
	}
}
