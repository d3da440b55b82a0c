package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/riskibarqy/match-predictor/internal/ml"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	mu        sync.Mutex
	dimension int
	width     int
	failOn    string
	batchErr  error
	calls     int
	seen      []string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Dimension() int { return p.dimension }

func (p *stubProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.calls++
	p.seen = append(p.seen, texts...)
	p.mu.Unlock()

	if p.batchErr != nil {
		return nil, p.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if p.failOn != "" && text == p.failOn {
			return nil, ml.NewEmbeddingError(i, errors.New("rejected input"))
		}
		vec := make([]float32, p.width)
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func TestTextEmbedder_PreservesOrderAndCount(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{dimension: 3, width: 3}
	embedder, err := NewTextEmbedder(provider, WithBatchSize(2))
	require.NoError(t, err)

	texts := []string{"a", "bbb", "", "cc", "dddd"}
	vectors, err := embedder.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		require.Len(t, vectors[i], 3)
		require.Equal(t, float32(len(text)), vectors[i][0], "row %d", i)
	}
	require.Equal(t, 3, embedder.Width())
}

func TestTextEmbedder_EmptyBatch(t *testing.T) {
	t.Parallel()

	embedder, err := NewTextEmbedder(&stubProvider{dimension: 2, width: 2})
	require.NoError(t, err)

	vectors, err := embedder.Embed(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, vectors)
}

func TestTextEmbedder_FixesWidthOnFirstCall(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{width: 4}
	embedder, err := NewTextEmbedder(provider)
	require.NoError(t, err)
	require.Equal(t, 0, embedder.Width())

	_, err = embedder.Embed(context.Background(), []string{"first"})
	require.NoError(t, err)
	require.Equal(t, 4, embedder.Width())

	provider.width = 5
	_, err = embedder.Embed(context.Background(), []string{"second call"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ml.ErrEmbeddingFailure))
	require.Equal(t, 4, embedder.Width())
}

func TestTextEmbedder_ReportsOffendingIndex(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{dimension: 2, width: 2, failOn: "poison"}
	embedder, err := NewTextEmbedder(provider, WithBatchSize(2))
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), []string{"ok", "fine", "also ok", "poison", "tail"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ml.ErrEmbeddingFailure))

	idx, ok := ml.EmbeddingIndex(err)
	require.True(t, ok)
	require.Equal(t, 3, idx)
}

func TestTextEmbedder_BatchFailureWithoutIndex(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{dimension: 2, width: 2, batchErr: errors.New("provider down")}
	embedder, err := NewTextEmbedder(provider)
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), []string{"x", "y"})
	require.True(t, errors.Is(err, ml.ErrEmbeddingFailure))
	idx, ok := ml.EmbeddingIndex(err)
	require.True(t, ok)
	require.Equal(t, 0, idx)
}

func TestTextEmbedder_UsesCacheAndDedupes(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{dimension: 2, width: 2}
	embedder, err := NewTextEmbedder(provider, WithCache(NewMemoryCache(0, 0)))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = embedder.Embed(ctx, []string{"same", "same", "other"})
	require.NoError(t, err)
	require.Equal(t, []string{"same", "other"}, provider.seen)

	_, err = embedder.Embed(ctx, []string{"other", "same"})
	require.NoError(t, err)
	require.Equal(t, 1, provider.calls)
}

func TestTextEmbedder_TruncatesBeforeProvider(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{dimension: 1, width: 1}
	embedder, err := NewTextEmbedder(provider, WithTruncator(NewWordTruncator(3)))
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), []string{"one two three four five"})
	require.NoError(t, err)
	require.Equal(t, []string{"one two three"}, provider.seen)
}

func TestWordTruncator_KeepsPrefix(t *testing.T) {
	t.Parallel()

	tr := NewWordTruncator(2)
	require.Equal(t, "Sentinels beat", tr.Truncate("Sentinels beat Fnatic in overtime"))
	require.Equal(t, "short", tr.Truncate("  short "))
	require.Equal(t, "", tr.Truncate(""))
}

func TestHashingProvider_Deterministic(t *testing.T) {
	t.Parallel()

	p := NewHashingProvider(16)
	ctx := context.Background()
	a, err := p.Embed(ctx, []string{"Team Liquid roster change", ""})
	require.NoError(t, err)
	b, err := p.Embed(ctx, []string{"Team Liquid roster change"})
	require.NoError(t, err)

	require.Equal(t, a[0], b[0])
	require.Len(t, a[1], 16)
	for _, v := range a[1] {
		require.Zero(t, v)
	}

	var norm float32
	for _, v := range a[0] {
		norm += v * v
	}
	require.InDelta(t, 1.0, norm, 1e-5)
}

func TestLayeredCache_BackfillsFasterLayer(t *testing.T) {
	t.Parallel()

	fast := NewMemoryCache(0, 0)
	slow := NewMemoryCache(0, 0)
	ctx := context.Background()
	require.NoError(t, slow.Store(ctx, map[string][]float32{"k": {1, 2}}))

	layered := Layered{fast, slow}
	hits, err := layered.Lookup(ctx, []string{"k", "missing"})
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, hits["k"])
	require.Equal(t, 1, fast.Len())
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAIProvider(OpenAIConfig{})
	require.ErrorIs(t, err, ErrAPIKeyNotSet)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	require.Equal(t, 1536, p.Dimension())
	require.True(t, strings.HasPrefix(p.Name(), "openai:"))
}
