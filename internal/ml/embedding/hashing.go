package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

const DefaultHashingDimension = 32

// HashingProvider is a local, dependency-free provider: signed feature
// hashing of word unigrams and bigrams, L2 normalised. The empty text maps to
// the zero vector.
type HashingProvider struct {
	dimension int
}

func NewHashingProvider(dimension int) *HashingProvider {
	if dimension <= 0 {
		dimension = DefaultHashingDimension
	}
	return &HashingProvider{dimension: dimension}
}

func (p *HashingProvider) Name() string { return "hashing" }

func (p *HashingProvider) Dimension() int { return p.dimension }

func (p *HashingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(text)
	}
	return out, nil
}

func (p *HashingProvider) vector(text string) []float32 {
	vec := make([]float64, p.dimension)
	tokens := tokenize(text)
	for i, tok := range tokens {
		p.add(vec, tok)
		if i > 0 {
			p.add(vec, tokens[i-1]+" "+tok)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, p.dimension)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (p *HashingProvider) add(vec []float64, feature string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(p.dimension))
	if sum>>63 == 1 {
		vec[bucket]--
		return
	}
	vec[bucket]++
}
