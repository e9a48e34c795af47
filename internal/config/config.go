package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

type Config struct {
	DBHost           string `envconfig:"DB_HOST" default:"postgres"`
	DBPort           int    `envconfig:"DB_PORT" default:"5432"`
	DBUser           string `envconfig:"DB_USER" default:"talentsync"`
	DBPass           string `envconfig:"DB_PASS" default:"password"`
	DBName           string `envconfig:"DB_NAME" default:"talentsync"`
	DBTimeoutSeconds int    `envconfig:"DB_TIMEOUT_SECONDS" default:"10"`
	MigrationPath    string `envconfig:"MIGRATION_PATH" default:"file://migrations"`
	RunMigrations    bool   `envconfig:"RUN_MIGRATIONS" default:"true"`

	// Queue
	QueueBackend string `envconfig:"QUEUE_BACKEND" default:"redis"`
	RedisURL     string `envconfig:"REDIS_URL" default:"redis://redis:6379"`
	RedisQueue   string `envconfig:"REDIS_QUEUE" default:"candidate_jobs"`
	NSQDHost     string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP     string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	NSQLookupd   string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQTopic     string `envconfig:"NSQ_TOPIC" default:"candidate.jobs"`
	NSQChannel   string `envconfig:"NSQ_CHANNEL" default:"indexer"`

	// Vector index
	VectorBackend        string `envconfig:"VECTOR_BACKEND" default:"qdrant"`
	QdrantHost           string `envconfig:"QDRANT_HOST" default:"qdrant"`
	QdrantPort           int    `envconfig:"QDRANT_PORT" default:"6334"`
	WeaviateHost         string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme       string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	CollectionName       string `envconfig:"COLLECTION_NAME" default:"candidates"`
	VectorTimeoutSeconds int    `envconfig:"VECTOR_TIMEOUT_SECONDS" default:"10"`

	// Embeddings
	EmbeddingProvider       string  `envconfig:"EMBEDDING_PROVIDER" default:"cohere"`
	CohereAPIKey            string  `envconfig:"COHERE_API_KEY"`
	CohereURL               string  `envconfig:"COHERE_URL" default:"https://api.cohere.ai/v1/embed"`
	GeminiAPIKey            string  `envconfig:"GEMINI_API_KEY"`
	OllamaHost              string  `envconfig:"OLLAMA_HOST" default:"http://localhost:11434"`
	EmbeddingModel          string  `envconfig:"EMBEDDING_MODEL" default:"embed-multilingual-light-v3.0"`
	EmbeddingDimension      int     `envconfig:"EMBEDDING_DIMENSION" default:"384"`
	EmbeddingDistance       string  `envconfig:"EMBEDDING_DISTANCE" default:"Cosine"`
	EmbeddingTimeoutSeconds int     `envconfig:"EMBEDDING_TIMEOUT_SECONDS" default:"30"`
	EmbeddingMaxRetries     int     `envconfig:"EMBEDDING_MAX_RETRIES" default:"3"`
	EmbeddingRetryMinWait   int     `envconfig:"EMBEDDING_RETRY_MIN_WAIT" default:"1"`
	EmbeddingRetryMaxWait   int     `envconfig:"EMBEDDING_RETRY_MAX_WAIT" default:"10"`
	EmbeddingRatePerSecond  float64 `envconfig:"EMBEDDING_RATE_PER_SECOND" default:"0"`

	// Server
	EnableAPI    bool `envconfig:"ENABLE_API" default:"true"`
	ServerPort   int  `envconfig:"SERVER_PORT" default:"8082"`
	HistoryLimit int  `envconfig:"HISTORY_LIMIT" default:"50"`

	// Periodic sync; both empty/zero disables it.
	SyncCron            string `envconfig:"SYNC_CRON"`
	SyncIntervalSeconds int    `envconfig:"SYNC_INTERVAL_SECONDS" default:"0"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Missing .env files are fine, the shell may already carry everything.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}

	switch c.QueueBackend {
	case QueueRedis, QueueNSQ:
	default:
		return fmt.Errorf("%w: QUEUE_BACKEND=%q", ErrInvalidValue, c.QueueBackend)
	}

	switch c.VectorBackend {
	case VectorQdrant, VectorWeaviate:
	default:
		return fmt.Errorf("%w: VECTOR_BACKEND=%q", ErrInvalidValue, c.VectorBackend)
	}

	switch c.EmbeddingProvider {
	case ProviderCohere:
		if c.CohereAPIKey == "" {
			return fmt.Errorf("%w: COHERE_API_KEY", ErrMissingRequired)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("%w: EMBEDDING_PROVIDER=%q", ErrInvalidValue, c.EmbeddingProvider)
	}

	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIMENSION must be positive", ErrInvalidValue)
	}
	return nil
}

// DSN builds the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}

// MaskedDSN is DSN with the password blanked, for logs.
func (c *Config) MaskedDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=*** dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBName)
}

func (c *Config) DBTimeout() time.Duration {
	return time.Duration(c.DBTimeoutSeconds) * time.Second
}

func (c *Config) VectorTimeout() time.Duration {
	return time.Duration(c.VectorTimeoutSeconds) * time.Second
}

func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.EmbeddingTimeoutSeconds) * time.Second
}

// DefaultCohereModel matches the EMBEDDING_MODEL default.
const DefaultCohereModel = "embed-multilingual-light-v3.0"

// ModelOr returns EMBEDDING_MODEL, or fallback when the variable was left at
// the Cohere default while a different provider is selected.
func (c *Config) ModelOr(fallback string) string {
	if c.EmbeddingProvider != ProviderCohere && (c.EmbeddingModel == "" || c.EmbeddingModel == DefaultCohereModel) {
		return fallback
	}
	return c.EmbeddingModel
}
