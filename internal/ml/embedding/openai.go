package embedding

import (
	"context"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/riskibarqy/match-predictor/internal/ml"
)

const (
	DefaultOpenAIModel  = "text-embedding-3-small"
	openAIMaxBatchInput = 100
)

var ErrAPIKeyNotSet = crerr.New("openai api key is not set")

var knownModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimension  int
	MaxRetries int
}

// OpenAIProvider calls the OpenAI embeddings endpoint. The endpoint rejects
// empty input, so empty texts are answered locally with a zero vector.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	dimension int
}

func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrAPIKeyNotSet
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = knownModelDimensions[model]
	}
	if dimension <= 0 {
		return nil, crerr.Newf("embedding dimension is required for model %q", model)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &OpenAIProvider{
		client:    openai.NewClient(opts...),
		model:     model,
		dimension: dimension,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai:" + p.model }

func (p *OpenAIProvider) Dimension() int { return p.dimension }

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var (
		inputs  []string
		targets []int
	)
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make([]float32, p.dimension)
			continue
		}
		inputs = append(inputs, text)
		targets = append(targets, i)
	}

	for start := 0; start < len(inputs); start += openAIMaxBatchInput {
		end := min(start+openAIMaxBatchInput, len(inputs))
		if err := p.embedChunk(ctx, inputs[start:end], targets[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *OpenAIProvider) embedChunk(ctx context.Context, inputs []string, targets []int, out [][]float32) error {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
	}
	if len(inputs) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(inputs[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: inputs,
		}
	}
	// ada-002 rejects the dimensions parameter
	if p.model != "text-embedding-ada-002" {
		params.Dimensions = openai.Int(int64(p.dimension))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return ml.NewEmbeddingError(targets[0], crerr.Wrap(err, "openai embeddings request"))
	}
	if len(resp.Data) != len(inputs) {
		return ml.NewEmbeddingError(targets[0], crerr.Newf("openai returned %d embeddings for %d inputs", len(resp.Data), len(inputs)))
	}

	for _, data := range resp.Data {
		pos := int(data.Index)
		if pos < 0 || pos >= len(inputs) {
			return ml.NewEmbeddingError(targets[0], crerr.Newf("openai returned out of range index %d", pos))
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		out[targets[pos]] = vector
	}
	return nil
}
