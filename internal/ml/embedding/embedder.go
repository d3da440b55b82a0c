package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/match-predictor/internal/ml"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
)

const (
	defaultBatchSize = 64
	defaultWorkers   = 4
)

// Provider turns a batch of texts into vectors. Implementations return one
// vector per input in input order. A failure tied to a single input should be
// reported as *ml.EmbeddingError with the batch-local index.
type Provider interface {
	Name() string
	// Dimension returns the vector width, or 0 when it is only known after a call.
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Cache stores vectors by content key. Lookup returns only the keys it has.
type Cache interface {
	Lookup(ctx context.Context, keys []string) (map[string][]float32, error)
	Store(ctx context.Context, vectors map[string][]float32) error
}

type Option func(*TextEmbedder)

func WithTruncator(t Truncator) Option {
	return func(e *TextEmbedder) {
		if t != nil {
			e.truncator = t
		}
	}
}

func WithCache(c Cache) Option {
	return func(e *TextEmbedder) {
		e.cache = c
	}
}

func WithBatchSize(n int) Option {
	return func(e *TextEmbedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

func WithWorkers(n int) Option {
	return func(e *TextEmbedder) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(e *TextEmbedder) {
		if l != nil {
			e.logger = l
		}
	}
}

// TextEmbedder wraps a Provider with truncation, caching and batching, and
// guarantees a single vector width for its whole lifetime.
type TextEmbedder struct {
	provider  Provider
	truncator Truncator
	cache     Cache
	batchSize int
	workers   int
	logger    *logging.Logger

	width atomic.Int64
}

func NewTextEmbedder(provider Provider, opts ...Option) (*TextEmbedder, error) {
	if provider == nil {
		return nil, crerr.New("embedding provider is required")
	}

	e := &TextEmbedder{
		provider:  provider,
		truncator: NewWordTruncator(DefaultMaxTokens),
		batchSize: defaultBatchSize,
		workers:   defaultWorkers,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if dim := provider.Dimension(); dim > 0 {
		e.width.Store(int64(dim))
	}
	return e, nil
}

// Width returns the fixed vector width, or 0 before it is known.
func (e *TextEmbedder) Width() int {
	return int(e.width.Load())
}

func (e *TextEmbedder) ProviderName() string {
	return e.provider.Name()
}

// Embed returns one vector per input, in input order. Empty strings are valid.
func (e *TextEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	prepared := make([]string, len(texts))
	keys := make([]string, len(texts))
	for i, text := range texts {
		prepared[i] = e.truncator.Truncate(text)
		keys[i] = e.cacheKey(prepared[i])
	}

	found := map[string][]float32{}
	if e.cache != nil {
		cached, err := e.cache.Lookup(ctx, uniqueStrings(keys))
		if err != nil {
			e.logger.WarnContext(ctx, "embedding cache lookup failed", "provider", e.provider.Name(), "error", err)
		} else {
			for key, vec := range cached {
				if e.fixWidth(len(vec)) == nil {
					found[key] = vec
				}
			}
		}
	}

	// first original index per distinct missing text
	var pending []int
	seen := make(map[string]struct{}, len(keys))
	for i, key := range keys {
		if _, ok := found[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		computed, err := e.embedPending(ctx, prepared, pending)
		if err != nil {
			return nil, err
		}
		fresh := make(map[string][]float32, len(pending))
		for j, idx := range pending {
			found[keys[idx]] = computed[j]
			fresh[keys[idx]] = computed[j]
		}
		if e.cache != nil {
			if err := e.cache.Store(ctx, fresh); err != nil {
				e.logger.WarnContext(ctx, "embedding cache store failed", "provider", e.provider.Name(), "error", err)
			}
		}
	}

	out := make([][]float32, len(texts))
	for i, key := range keys {
		vec := found[key]
		out[i] = append([]float32(nil), vec...)
	}
	return out, nil
}

type batchFailure struct {
	index int
	err   error
}

func (e *TextEmbedder) embedPending(ctx context.Context, prepared []string, pending []int) ([][]float32, error) {
	results := make([][]float32, len(pending))
	batches := splitBatches(len(pending), e.batchSize)

	workerCount := min(e.workers, len(batches))
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create embedding worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		failures []batchFailure
		workers  sync.WaitGroup
	)
	fail := func(index int, err error) {
		mu.Lock()
		failures = append(failures, batchFailure{index: index, err: err})
		mu.Unlock()
	}

	for _, b := range batches {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			batch := make([]string, 0, b.end-b.start)
			for _, idx := range pending[b.start:b.end] {
				batch = append(batch, prepared[idx])
			}

			vectors, err := e.provider.Embed(ctx, batch)
			if err != nil {
				local := 0
				var embErr *ml.EmbeddingError
				if crerr.As(err, &embErr) && embErr.Index >= 0 && embErr.Index < len(batch) {
					local = embErr.Index
				}
				fail(pending[b.start+local], err)
				return
			}
			if len(vectors) != len(batch) {
				fail(pending[b.start+min(len(vectors), len(batch)-1)],
					crerr.Newf("provider %s returned %d vectors for %d inputs", e.provider.Name(), len(vectors), len(batch)))
				return
			}
			for j, vec := range vectors {
				if err := e.fixWidth(len(vec)); err != nil {
					fail(pending[b.start+j], err)
					return
				}
				results[b.start+j] = vec
			}
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit embedding batch to worker pool: %w", err)
		}
	}

	workers.Wait()

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].index < failures[j].index })
		first := failures[0]
		e.logger.WarnContext(ctx, "embedding failed",
			"provider", e.provider.Name(),
			"index", first.index,
			"failed_batches", len(failures),
			"error", first.err,
		)
		var embErr *ml.EmbeddingError
		if crerr.As(first.err, &embErr) {
			return nil, ml.NewEmbeddingError(first.index, embErr.Err)
		}
		return nil, ml.NewEmbeddingError(first.index, first.err)
	}
	return results, nil
}

// fixWidth records the width on first success and rejects any other width.
func (e *TextEmbedder) fixWidth(n int) error {
	if n <= 0 {
		return crerr.Newf("provider %s returned an empty vector", e.provider.Name())
	}
	if e.width.CompareAndSwap(0, int64(n)) {
		return nil
	}
	if w := e.width.Load(); int64(n) != w {
		return crerr.Newf("provider %s returned width %d, expected %d", e.provider.Name(), n, w)
	}
	return nil
}

func (e *TextEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.provider.Name() + ":" + hex.EncodeToString(sum[:])
}

type batchRange struct {
	start, end int
}

func splitBatches(n, size int) []batchRange {
	out := make([]batchRange, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		out = append(out, batchRange{start: start, end: min(start+size, n)})
	}
	return out
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
