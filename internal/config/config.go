package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	// Backends
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel  string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	GenerationModel string `envconfig:"GENERATION_MODEL" default:"gemini-2.5-flash"`

	// Vector store. Leaving WEAVIATE_HOST empty selects the in-process store.
	WeaviateHost   string `envconfig:"WEAVIATE_HOST"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	IndexClass     string `envconfig:"INDEX_CLASS" default:"ChunkIndex"`

	// Document registry
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"ragchat"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"ragchat"`

	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Chunking & retrieval
	ChunkSize          int    `envconfig:"CHUNK_SIZE" default:"500"`
	ChunkOverlap       int    `envconfig:"CHUNK_OVERLAP" default:"100"`
	TopK               int    `envconfig:"TOP_K" default:"5"`
	ContextChunks      int    `envconfig:"CONTEXT_CHUNKS" default:"3"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"768"`
	DefaultNamespace   string `envconfig:"DEFAULT_NAMESPACE" default:"default"`

	// Batching & resilience
	EmbedBatchSize        int `envconfig:"EMBED_BATCH_SIZE" default:"5"`
	UpsertBatchSize       int `envconfig:"UPSERT_BATCH_SIZE" default:"100"`
	RetryAttempts         int `envconfig:"RETRY_ATTEMPTS" default:"3"`
	BackendTimeoutSeconds int `envconfig:"BACKEND_TIMEOUT_SECONDS" default:"30"`

	// Server
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell instead; a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalid)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalid)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: TOP_K must be positive", ErrInvalid)
	}
	if c.ContextChunks <= 0 {
		return fmt.Errorf("%w: CONTEXT_CHUNKS must be positive", ErrInvalid)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIMENSION must be positive", ErrInvalid)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("%w: EMBED_BATCH_SIZE must be positive", ErrInvalid)
	}
	if c.UpsertBatchSize <= 0 {
		return fmt.Errorf("%w: UPSERT_BATCH_SIZE must be positive", ErrInvalid)
	}
	if c.DefaultNamespace == "" {
		return fmt.Errorf("%w: DEFAULT_NAMESPACE must not be empty", ErrInvalid)
	}
	return nil
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSeconds) * time.Second
}
