package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/votewise/votewise/internal/cache"
	"github.com/votewise/votewise/internal/config"
	"github.com/votewise/votewise/internal/database"
	"github.com/votewise/votewise/internal/extract"
	"github.com/votewise/votewise/internal/jobs"
	"github.com/votewise/votewise/internal/ollama"
	"github.com/votewise/votewise/internal/openai"
	"github.com/votewise/votewise/internal/repository"
	"github.com/votewise/votewise/internal/service"
	"github.com/votewise/votewise/internal/storage"
)

type embedder interface {
	service.EmbeddingClient
	Model() string
}

type generator interface {
	service.Generator
	Model() string
}

func newEmbedder(cfg *config.Config) embedder {
	if cfg.EmbeddingProvider == config.ProviderOpenAI {
		return openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
	}
	return ollama.NewEmbedder(ollama.Config{
		BaseURL:    cfg.OllamaURL,
		Model:      cfg.EmbeddingModel,
		Timeout:    cfg.GenerationTimeout,
		MaxRetries: cfg.GenerationMaxRetries,
		Dimensions: cfg.EmbeddingDimensions,
	})
}

func newGenerator(cfg *config.Config) generator {
	if cfg.LLMProvider == config.ProviderOpenAI {
		return openai.NewGenerator(openai.GeneratorConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.GenerationModel,
			MaxTokens:  cfg.MaxTokens,
			Timeout:    cfg.GenerationTimeout,
			MaxRetries: cfg.GenerationMaxRetries,
		})
	}
	return ollama.NewGenerator(ollama.Config{
		BaseURL:    cfg.OllamaURL,
		Model:      cfg.GenerationModel,
		MaxTokens:  cfg.MaxTokens,
		Timeout:    cfg.GenerationTimeout,
		MaxRetries: cfg.GenerationMaxRetries,
	})
}

func pipelineConfig(cfg *config.Config, model string) service.PipelineConfig {
	pc := service.DefaultPipelineConfig()
	pc.Model = model
	pc.TopK = cfg.TopK
	pc.WordBudget = cfg.WordBudget
	pc.Concurrency = cfg.Concurrency
	pc.AllowPartial = cfg.AllowPartial
	pc.StrictCombine = cfg.StrictCombine
	return pc
}

// newSource picks S3 when configured, the local directory otherwise. A
// non-empty dir overrides both.
func newSource(ctx context.Context, cfg *config.Config, dir string) (service.DocumentSource, error) {
	if dir != "" {
		return storage.NewDirSource(dir), nil
	}
	if cfg.HasS3() {
		src, err := storage.NewS3Source(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 source: %w", err)
		}
		log.Printf("reading documents from s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
		return src, nil
	}
	log.Printf("reading documents from %s", cfg.SourceDir)
	return storage.NewDirSource(cfg.SourceDir), nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		return nil, err
	}
	log.Println("connected to database")
	return pool, nil
}

// openCache returns nil without error when no Redis URL is configured.
func openCache(ctx context.Context, cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.HasRedis() {
		return nil, nil
	}
	c, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Println("answer cache enabled")
	return c, nil
}

type indexing struct {
	indexer *service.Indexer
	worker  *jobs.DocumentWorker
}

func newIndexing(pool *pgxpool.Pool, cfg *config.Config, source service.DocumentSource, emb embedder, answerCache *cache.RedisCache) indexing {
	docs := repository.NewDocumentRepository(pool)
	indexer := service.NewIndexer(
		source,
		extract.New(),
		emb,
		docs,
		repository.NewTxRunner(pool),
		emb.Model(),
		service.IndexChunkConfig{MaxChars: cfg.IndexChunkChars, Overlap: cfg.IndexChunkOverlap},
	)

	var invalidator jobs.CacheInvalidator
	if answerCache != nil {
		invalidator = answerCache
	}
	return indexing{
		indexer: indexer,
		worker:  jobs.NewDocumentWorker(docs, indexer, invalidator),
	}
}
