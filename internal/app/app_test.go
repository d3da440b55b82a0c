package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/riskibarqy/match-predictor/internal/config"
	"github.com/riskibarqy/match-predictor/internal/ml/embedding"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
	"github.com/riskibarqy/match-predictor/internal/usecase"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		AppEnv:              config.EnvDev,
		ServiceName:         "match-predictor",
		CacheEnabled:        true,
		CacheTTL:            time.Minute,
		VLRBaseURL:          "http://127.0.0.1:0",
		VLRTimeout:          time.Second,
		IngestRegions:       []string{"na"},
		IngestStatsTimespan: 30,
		IngestMaxWorkers:    2,
		EmbeddingProvider:   config.EmbeddingProviderHashing,
		EmbeddingDimension:  16,
		EmbeddingBatchSize:  8,
		EmbeddingWorkers:    2,
		EmbeddingMaxTokens:  64,
		EmbeddingCacheTTL:   time.Hour,
		EmbeddingCacheSize:  100,
		NewsAggregation:     "mean",
		ModelDir:            filepath.Join(dir, "models"),
		MetricsTextfilePath: filepath.Join(dir, "metrics", "predictor.prom"),
	}
}

func TestNew_InMemory(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), memoryConfig(t), logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	if a.Ingestion == nil || a.Training == nil || a.Prediction == nil {
		t.Fatalf("expected every service to be wired")
	}
	if got := a.IngestionConfig(); len(got.Regions) != 1 || got.MaxWorkers != 2 {
		t.Fatalf("unexpected ingestion config: %+v", got)
	}

	_, err = a.Training.Train(context.Background(), usecase.TrainRequest{})
	if !errors.Is(err, usecase.ErrNoTrainingData) {
		t.Fatalf("expected ErrNoTrainingData on an empty store, got %v", err)
	}
	_, err = a.Prediction.Predict(context.Background(), usecase.PredictRequest{})
	if !errors.Is(err, usecase.ErrNoModel) {
		t.Fatalf("expected ErrNoModel before training, got %v", err)
	}
	if err := a.WriteMetrics(); err != nil {
		t.Fatalf("write metrics: %v", err)
	}
}

func TestNew_RejectsUnknownAggregation(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.NewsAggregation = "median"
	if _, err := New(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected aggregation error")
	}
}

func TestNewTextEmbedder(t *testing.T) {
	t.Parallel()

	cache := embedding.NewMemoryCache(time.Hour, 10)

	t.Run("hashing", func(t *testing.T) {
		cfg := memoryConfig(t)
		e, err := newTextEmbedder(cfg, cache, logging.NewNop())
		if err != nil {
			t.Fatalf("new embedder: %v", err)
		}
		if e.Width() != 16 {
			t.Fatalf("expected width 16, got %d", e.Width())
		}
	})

	t.Run("openai without key", func(t *testing.T) {
		cfg := memoryConfig(t)
		cfg.EmbeddingProvider = config.EmbeddingProviderOpenAI
		_, err := newTextEmbedder(cfg, cache, logging.NewNop())
		if !errors.Is(err, embedding.ErrAPIKeyNotSet) {
			t.Fatalf("expected ErrAPIKeyNotSet, got %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := memoryConfig(t)
		cfg.EmbeddingProvider = "word2vec"
		if _, err := newTextEmbedder(cfg, cache, logging.NewNop()); err == nil {
			t.Fatalf("expected provider error")
		}
	})
}
