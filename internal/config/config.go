package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`

	// Generation collaborator
	LLMProvider          string        `envconfig:"LLM_PROVIDER" default:"ollama"`
	OllamaURL            string        `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	GenerationModel      string        `envconfig:"GENERATION_MODEL" default:"llama3"`
	MaxTokens            int           `envconfig:"MAX_TOKENS" default:"500"`
	GenerationTimeout    time.Duration `envconfig:"GENERATION_TIMEOUT" default:"120s"`
	GenerationMaxRetries int           `envconfig:"GENERATION_MAX_RETRIES" default:"2"`

	// Embedding collaborator
	EmbeddingProvider   string `envconfig:"EMBEDDING_PROVIDER" default:"ollama"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"llama3"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"0"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	// Answer pipeline
	TopK          int  `envconfig:"TOP_K" default:"5"`
	WordBudget    int  `envconfig:"WORD_BUDGET" default:"400"`
	Concurrency   int  `envconfig:"CONCURRENCY" default:"4"`
	AllowPartial  bool `envconfig:"ALLOW_PARTIAL" default:"false"`
	StrictCombine bool `envconfig:"STRICT_COMBINE" default:"false"`

	// Index builder
	IndexChunkChars   int           `envconfig:"INDEX_CHUNK_CHARS" default:"1000"`
	IndexChunkOverlap int           `envconfig:"INDEX_CHUNK_OVERLAP" default:"200"`
	SourceDir         string        `envconfig:"SOURCE_DIR" default:"data/raw/fr"`
	WorkerInterval    time.Duration `envconfig:"WORKER_INTERVAL" default:"30s"`

	// Optional S3 document source; takes precedence over SourceDir when set
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"votewise-programs"`
	S3Prefix    string `envconfig:"S3_PREFIX"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Optional answer cache
	RedisURL string        `envconfig:"REDIS_URL"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"24h"`

	APIToken string `envconfig:"API_TOKEN"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("VOTEWISE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects values envconfig accepts but the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("VOTEWISE_DATABASE_URL is required")
	}
	switch c.LLMProvider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}
	switch c.EmbeddingProvider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.EmbeddingProvider)
	}
	if (c.LLMProvider == ProviderOpenAI || c.EmbeddingProvider == ProviderOpenAI) && !c.HasOpenAI() {
		return fmt.Errorf("openai provider selected but VOTEWISE_OPENAI_API_KEY not set")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.WordBudget <= 0 {
		return fmt.Errorf("WORD_BUDGET must be positive, got %d", c.WordBudget)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("CONCURRENCY must be positive, got %d", c.Concurrency)
	}
	if c.GenerationMaxRetries < 0 {
		return fmt.Errorf("GENERATION_MAX_RETRIES cannot be negative")
	}
	if c.IndexChunkOverlap >= c.IndexChunkChars {
		return fmt.Errorf("INDEX_CHUNK_OVERLAP (%d) must be smaller than INDEX_CHUNK_CHARS (%d)", c.IndexChunkOverlap, c.IndexChunkChars)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
