package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/match-predictor/external/vlrgg"
	"github.com/riskibarqy/match-predictor/internal/config"
	"github.com/riskibarqy/match-predictor/internal/domain/match"
	"github.com/riskibarqy/match-predictor/internal/domain/news"
	"github.com/riskibarqy/match-predictor/internal/domain/playerstats"
	"github.com/riskibarqy/match-predictor/internal/domain/prediction"
	"github.com/riskibarqy/match-predictor/internal/domain/ranking"
	"github.com/riskibarqy/match-predictor/internal/domain/teamstats"
	"github.com/riskibarqy/match-predictor/internal/infrastructure/modelstore"
	"github.com/riskibarqy/match-predictor/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/match-predictor/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/match-predictor/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/match-predictor/internal/ml/embedding"
	"github.com/riskibarqy/match-predictor/internal/ml/feature"
	"github.com/riskibarqy/match-predictor/internal/ml/predictor"
	"github.com/riskibarqy/match-predictor/internal/platform/id"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
	"github.com/riskibarqy/match-predictor/internal/platform/metrics"
	"github.com/riskibarqy/match-predictor/internal/platform/resilience"
	"github.com/riskibarqy/match-predictor/internal/usecase"
)

// App holds the services every command runs against.
type App struct {
	Config     config.Config
	Logger     *logging.Logger
	Metrics    *metrics.Recorder
	Ingestion  *usecase.IngestionService
	Training   *usecase.TrainingService
	Prediction *usecase.PredictionService

	db *sqlx.DB
}

type repositories struct {
	matches     match.Repository
	teamStats   teamstats.Repository
	rankings    ranking.Repository
	playerStats playerstats.Repository
	news        news.Repository
	predictions prediction.Repository
	embeddings  embedding.Cache
}

// New wires repositories, the feed client and the model stack. An empty
// DB_URL keeps everything in process memory.
func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	a := &App{Config: cfg, Logger: logger, Metrics: metrics.NewRecorder()}

	repos, err := a.buildRepositories(ctx)
	if err != nil {
		return nil, err
	}

	embedder, err := newTextEmbedder(cfg, repos.embeddings, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	aggregation, err := feature.ParseAggregation(cfg.NewsAggregation)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	engineer, err := feature.NewEngineer(embedder,
		feature.WithAggregation(aggregation),
		feature.WithLogger(logger.Named("feature")),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	models, err := modelstore.NewFileStore(cfg.ModelDir)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	ids := id.NewUUIDGenerator()
	model := predictor.New(
		predictor.WithLogger(logger.Named("predictor")),
		predictor.WithIDGenerator(ids),
	)
	dataset := usecase.NewDatasetLoader(repos.teamStats, repos.rankings, repos.playerStats, repos.news)

	feed := vlrgg.NewClient(vlrgg.ClientConfig{
		BaseURL:    cfg.VLRBaseURL,
		Timeout:    cfg.VLRTimeout,
		MaxRetries: cfg.VLRMaxRetries,
		RetryDelay: cfg.VLRRetryDelay,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.VLRCircuitEnabled,
			FailureThreshold: cfg.VLRCircuitFailureCount,
			OpenTimeout:      cfg.VLRCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.VLRCircuitHalfOpenMaxReq,
		},
	})

	a.Ingestion = usecase.NewIngestionService(
		feed,
		repos.matches,
		repos.teamStats,
		repos.rankings,
		repos.playerStats,
		repos.news,
		a.Metrics,
		logger.Named("ingestion"),
	)
	a.Training = usecase.NewTrainingService(
		repos.matches,
		dataset,
		engineer,
		model,
		models,
		a.Metrics,
		logger.Named("training"),
	)
	a.Prediction = usecase.NewPredictionService(
		repos.matches,
		repos.predictions,
		dataset,
		engineer,
		model,
		models,
		ids,
		a.Metrics,
		logger.Named("prediction"),
	)
	return a, nil
}

// IngestionConfig maps runtime config onto an ingestion run.
func (a *App) IngestionConfig() usecase.IngestionConfig {
	return usecase.IngestionConfig{
		Regions:       a.Config.IngestRegions,
		StatsTimespan: a.Config.IngestStatsTimespan,
		MaxWorkers:    a.Config.IngestMaxWorkers,
	}
}

// WriteMetrics flushes the run metrics to the configured textfile, if any.
func (a *App) WriteMetrics() error {
	return a.Metrics.WriteTextfile(a.Config.MetricsTextfilePath)
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *App) buildRepositories(ctx context.Context) (repositories, error) {
	cfg := a.Config
	var repos repositories
	memoryCache := embedding.NewMemoryCache(cfg.EmbeddingCacheTTL, cfg.EmbeddingCacheSize)

	if cfg.DBURL == "" {
		a.Logger.Warn("DB_URL empty, using in-memory repositories")
		repos = repositories{
			matches:     memory.NewMatchRepository(nil),
			teamStats:   memory.NewTeamStatsRepository(),
			rankings:    memory.NewRankingRepository(),
			playerStats: memory.NewPlayerStatsRepository(),
			news:        memory.NewNewsRepository(),
			predictions: memory.NewPredictionRepository(),
			embeddings:  memoryCache,
		}
	} else {
		db, err := openDB(ctx, cfg)
		if err != nil {
			return repositories{}, err
		}
		a.db = db
		repos = repositories{
			matches:     postgres.NewMatchRepository(db),
			teamStats:   postgres.NewTeamStatsRepository(db),
			rankings:    postgres.NewRankingRepository(db),
			playerStats: postgres.NewPlayerStatsRepository(db),
			news:        postgres.NewNewsRepository(db),
			predictions: postgres.NewPredictionRepository(db),
			embeddings:  embedding.Layered{memoryCache, postgres.NewEmbeddingCacheRepository(db)},
		}
	}

	if cfg.CacheEnabled {
		repos.rankings = cache.NewRankingRepository(repos.rankings, cfg.CacheTTL)
		repos.playerStats = cache.NewPlayerStatsRepository(repos.playerStats, cfg.CacheTTL)
	}
	return repos, nil
}

func newTextEmbedder(cfg config.Config, embeddingCache embedding.Cache, logger *logging.Logger) (*embedding.TextEmbedder, error) {
	var (
		provider  embedding.Provider
		truncator embedding.Truncator
	)
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderOpenAI:
		openAI, err := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			Dimension:  cfg.EmbeddingDimension,
			MaxRetries: cfg.OpenAIMaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("build openai embedding provider: %w", err)
		}
		tokens, err := embedding.NewTokenTruncator(cfg.TokenizerEncoding, cfg.EmbeddingMaxTokens)
		if err != nil {
			return nil, err
		}
		provider, truncator = openAI, tokens
	case config.EmbeddingProviderHashing, "":
		provider = embedding.NewHashingProvider(cfg.EmbeddingDimension)
		truncator = embedding.NewWordTruncator(cfg.EmbeddingMaxTokens)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}

	return embedding.NewTextEmbedder(provider,
		embedding.WithTruncator(truncator),
		embedding.WithCache(embeddingCache),
		embedding.WithBatchSize(cfg.EmbeddingBatchSize),
		embedding.WithWorkers(cfg.EmbeddingWorkers),
		embedding.WithLogger(logger.Named("embedding")),
	)
}
