package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/match-predictor/internal/platform/logging"
)

// Config stores runtime configuration for the predictor commands.
type Config struct {
	AppEnv                  string
	ServiceName             string
	ServiceVersion          string
	LogLevel                logging.Level
	DBURL                   string
	DBDisablePreparedBinary bool
	CacheEnabled            bool
	CacheTTL                time.Duration

	VLRBaseURL               string
	VLRTimeout               time.Duration
	VLRMaxRetries            int
	VLRRetryDelay            time.Duration
	VLRCircuitEnabled        bool
	VLRCircuitFailureCount   int
	VLRCircuitOpenTimeout    time.Duration
	VLRCircuitHalfOpenMaxReq int
	IngestRegions            []string
	IngestStatsTimespan      int
	IngestMaxWorkers         int

	EmbeddingProvider  string
	EmbeddingDimension int
	EmbeddingBatchSize int
	EmbeddingWorkers   int
	EmbeddingMaxTokens int
	EmbeddingCacheTTL  time.Duration
	EmbeddingCacheSize int
	TokenizerEncoding  string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAIMaxRetries   int
	NewsAggregation    string

	ModelDir            string
	TrainConfigPath     string
	PredictThreshold    float64
	MetricsTextfilePath string

	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	UptraceLogsMinLevel        logging.Level
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

const (
	EmbeddingProviderHashing = "hashing"
	EmbeddingProviderOpenAI  = "openai"
)

// LoadDotEnv reads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:              appEnv,
		ServiceName:         getEnv("APP_SERVICE_NAME", "match-predictor"),
		ServiceVersion:      getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:            parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		DBURL:               strings.TrimSpace(getEnv("DB_URL", "")),
		VLRBaseURL:          strings.TrimSpace(getEnv("VLR_BASE_URL", "https://vlrggapi.vercel.app")),
		IngestRegions:       splitCSV(strings.ToLower(getEnv("INGEST_REGIONS", "na,eu,ap"))),
		EmbeddingProvider:   strings.ToLower(strings.TrimSpace(getEnv("EMBEDDING_PROVIDER", EmbeddingProviderHashing))),
		TokenizerEncoding:   strings.TrimSpace(getEnv("TOKENIZER_ENCODING", "cl100k_base")),
		OpenAIAPIKey:        strings.TrimSpace(getEnv("OPENAI_API_KEY", "")),
		OpenAIBaseURL:       strings.TrimSpace(getEnv("OPENAI_BASE_URL", "")),
		OpenAIModel:         strings.TrimSpace(getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small")),
		NewsAggregation:     strings.ToLower(strings.TrimSpace(getEnv("NEWS_AGGREGATION", "mean"))),
		ModelDir:            strings.TrimSpace(getEnv("MODEL_DIR", "var/models")),
		TrainConfigPath:     strings.TrimSpace(getEnv("TRAIN_CONFIG", "")),
		MetricsTextfilePath: strings.TrimSpace(getEnv("METRICS_TEXTFILE", "")),
		UptraceDSN:          strings.TrimSpace(getEnv("UPTRACE_DSN", "")),
	}

	if cfg.DBDisablePreparedBinary, err = strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true")); err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	if cfg.CacheEnabled, err = strconv.ParseBool(getEnv("CACHE_ENABLED", "true")); err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	if cfg.CacheTTL, err = positiveDuration("CACHE_TTL", "10m"); err != nil {
		return Config{}, err
	}

	if cfg.VLRTimeout, err = positiveDuration("VLR_TIMEOUT", "20s"); err != nil {
		return Config{}, err
	}
	if cfg.VLRRetryDelay, err = positiveDuration("VLR_RETRY_DELAY", "1s"); err != nil {
		return Config{}, err
	}
	if cfg.VLRMaxRetries, err = getEnvAsInt("VLR_MAX_RETRIES", 2); err != nil {
		return Config{}, fmt.Errorf("parse VLR_MAX_RETRIES: %w", err)
	}
	if cfg.VLRMaxRetries < 0 {
		return Config{}, fmt.Errorf("VLR_MAX_RETRIES must be >= 0")
	}
	if cfg.VLRCircuitEnabled, err = strconv.ParseBool(getEnv("VLR_CIRCUIT_ENABLED", "true")); err != nil {
		return Config{}, fmt.Errorf("parse VLR_CIRCUIT_ENABLED: %w", err)
	}
	if cfg.VLRCircuitFailureCount, err = atLeastOne("VLR_CIRCUIT_FAILURE_COUNT", 5); err != nil {
		return Config{}, err
	}
	if cfg.VLRCircuitOpenTimeout, err = positiveDuration("VLR_CIRCUIT_OPEN_TIMEOUT", "30s"); err != nil {
		return Config{}, err
	}
	if cfg.VLRCircuitHalfOpenMaxReq, err = atLeastOne("VLR_CIRCUIT_HALF_OPEN_MAX_REQ", 1); err != nil {
		return Config{}, err
	}
	if cfg.IngestStatsTimespan, err = atLeastOne("INGEST_STATS_TIMESPAN", 30); err != nil {
		return Config{}, err
	}
	if cfg.IngestMaxWorkers, err = atLeastOne("INGEST_MAX_WORKERS", 4); err != nil {
		return Config{}, err
	}
	if cfg.VLRBaseURL == "" {
		return Config{}, fmt.Errorf("VLR_BASE_URL cannot be empty")
	}

	switch cfg.EmbeddingProvider {
	case EmbeddingProviderHashing:
	case EmbeddingProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
	default:
		return Config{}, fmt.Errorf("invalid EMBEDDING_PROVIDER %q: valid values are %s, %s",
			cfg.EmbeddingProvider, EmbeddingProviderHashing, EmbeddingProviderOpenAI)
	}
	if cfg.EmbeddingDimension, err = getEnvAsInt("EMBEDDING_DIMENSION", 0); err != nil {
		return Config{}, fmt.Errorf("parse EMBEDDING_DIMENSION: %w", err)
	}
	if cfg.EmbeddingDimension < 0 {
		return Config{}, fmt.Errorf("EMBEDDING_DIMENSION must be >= 0")
	}
	if cfg.EmbeddingBatchSize, err = atLeastOne("EMBEDDING_BATCH_SIZE", 64); err != nil {
		return Config{}, err
	}
	if cfg.EmbeddingWorkers, err = atLeastOne("EMBEDDING_WORKERS", 4); err != nil {
		return Config{}, err
	}
	if cfg.EmbeddingMaxTokens, err = atLeastOne("EMBEDDING_MAX_TOKENS", 512); err != nil {
		return Config{}, err
	}
	if cfg.EmbeddingCacheTTL, err = positiveDuration("EMBEDDING_CACHE_TTL", "24h"); err != nil {
		return Config{}, err
	}
	if cfg.EmbeddingCacheSize, err = atLeastOne("EMBEDDING_CACHE_SIZE", 10000); err != nil {
		return Config{}, err
	}
	if cfg.OpenAIMaxRetries, err = getEnvAsInt("OPENAI_MAX_RETRIES", 2); err != nil {
		return Config{}, fmt.Errorf("parse OPENAI_MAX_RETRIES: %w", err)
	}

	if cfg.PredictThreshold, err = strconv.ParseFloat(getEnv("PREDICT_THRESHOLD", "0.5"), 64); err != nil {
		return Config{}, fmt.Errorf("parse PREDICT_THRESHOLD: %w", err)
	}
	if cfg.PredictThreshold <= 0 || cfg.PredictThreshold > 1 {
		return Config{}, fmt.Errorf("PREDICT_THRESHOLD must be in (0,1]")
	}
	if cfg.ModelDir == "" {
		return Config{}, fmt.Errorf("MODEL_DIR cannot be empty")
	}

	if cfg.UptraceEnabled, err = strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	if cfg.UptraceLogsEnabled, err = strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true")); err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}
	cfg.UptraceLogsMinLevel = parseLogLevel(getEnv("UPTRACE_LOGS_MIN_LEVEL", "info"))

	if cfg.PyroscopeEnabled, err = strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	if cfg.PyroscopeUploadRate, err = positiveDuration("PYROSCOPE_UPLOAD_RATE", "15s"); err != nil {
		return Config{}, err
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	cfg.PyroscopeBasicAuthUser = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", ""))
	cfg.PyroscopeBasicAuthPassword = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))

	return cfg, nil
}

func positiveDuration(key, fallback string) (time.Duration, error) {
	value, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return value, nil
}

func atLeastOne(key string, fallback int) (int, error) {
	value, err := getEnvAsInt(key, fallback)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value < 1 {
		return 0, fmt.Errorf("%s must be >= 1", key)
	}
	return value, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
