package ml

import (
	"fmt"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrMissingJoinKey   = crerr.New("missing join key")
	ErrDuplicateJoinKey = crerr.New("duplicate join key")
	ErrShapeMismatch    = crerr.New("shape mismatch")
	ErrInsufficientData = crerr.New("insufficient data")
	ErrNotFitted        = crerr.New("model not fitted")
	ErrEmbeddingFailure = crerr.New("embedding failure")
	ErrInvalidLabel     = crerr.New("invalid label")
	ErrInvalidConfig    = crerr.New("invalid config")
)

// EmbeddingError reports the input that a text embedding provider rejected.
// Index is the position in the batch handed to the embedder; -1 when the
// provider failed without pointing at a single input.
type EmbeddingError struct {
	Index int
	Err   error
}

func (e *EmbeddingError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("embedding failure: %v", e.Err)
	}
	return fmt.Sprintf("embedding failure at input %d: %v", e.Index, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func (e *EmbeddingError) Is(target error) bool {
	return target == ErrEmbeddingFailure
}

func NewEmbeddingError(index int, err error) error {
	if err == nil {
		err = crerr.New("provider returned no vector")
	}
	return &EmbeddingError{Index: index, Err: err}
}

// EmbeddingIndex extracts the offending input index from an embedding failure.
func EmbeddingIndex(err error) (int, bool) {
	var embErr *EmbeddingError
	if !crerr.As(err, &embErr) {
		return 0, false
	}
	return embErr.Index, embErr.Index >= 0
}
