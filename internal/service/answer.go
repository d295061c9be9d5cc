package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/telemetry"
)

// PassageRetriever returns the passages most relevant to a question.
type PassageRetriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]domain.Passage, error)
}

// AnswerCache stores final answers. Get returns (nil, nil) on a miss.
type AnswerCache interface {
	Get(ctx context.Context, key string) (*domain.Answer, error)
	Set(ctx context.Context, key string, answer *domain.Answer) error
}

// PipelineConfig holds the tunables of the answer pipeline.
type PipelineConfig struct {
	// Model identifies the generation model in cache keys.
	Model           string
	TopK            int
	WordBudget      int
	Concurrency     int
	AllowPartial    bool
	StrictCombine   bool
	MaxCombineDepth int
}

// DefaultPipelineConfig returns the default pipeline settings.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TopK:            DefaultTopK,
		WordBudget:      DefaultWordBudget,
		Concurrency:     DefaultConcurrency,
		MaxCombineDepth: DefaultMaxCombineDepth,
	}
}

// AskInput represents input for Answer and Search
type AskInput struct {
	Question string
	K        int
}

// AnswerService runs retrieval, chunking, per-chunk summarization and
// combination for one question.
type AnswerService struct {
	retriever PassageRetriever
	fanOut    fanOut
	combiner  *Combiner
	cache     AnswerCache
	cfg       PipelineConfig
}

func NewAnswerService(retriever PassageRetriever, generator Generator, cfg PipelineConfig) *AnswerService {
	return NewAnswerServiceWithCache(retriever, generator, nil, cfg)
}

func NewAnswerServiceWithCache(retriever PassageRetriever, generator Generator, cache AnswerCache, cfg PipelineConfig) *AnswerService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.WordBudget <= 0 {
		cfg.WordBudget = DefaultWordBudget
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &AnswerService{
		retriever: retriever,
		fanOut: fanOut{
			summarizer:   NewSummarizer(generator),
			concurrency:  cfg.Concurrency,
			allowPartial: cfg.AllowPartial,
		},
		combiner: NewCombiner(generator, CombinerConfig{
			WordBudget:  cfg.WordBudget,
			Strict:      cfg.StrictCombine,
			MaxDepth:    cfg.MaxCombineDepth,
			Concurrency: cfg.Concurrency,
		}),
		cache: cache,
		cfg:   cfg,
	}
}

// Answer produces the final answer for input.Question. Zero retrieved
// passages fail with domain.ErrEmptyInput before any generation call.
func (s *AnswerService) Answer(ctx context.Context, input AskInput) (*domain.Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Answer", telemetry.SpanAttributes{
		Model:     s.cfg.Model,
		Operation: "answer",
	})
	defer span.End()

	k := s.topK(input.K)
	key := CacheKey(s.cfg.Model, k, s.cfg.WordBudget, input.Question)

	if cached := s.cachedAnswer(ctx, key); cached != nil {
		return cached, nil
	}

	passages, err := s.retriever.Retrieve(ctx, input.Question, k)
	if err != nil {
		span.SetError(err)
		return nil, domain.RetrievalError(err)
	}
	if len(passages) == 0 {
		return nil, domain.ErrEmptyInput
	}
	span.SetData("passages", len(passages))
	telemetry.AddBreadcrumb(ctx, "pipeline", fmt.Sprintf("retrieved %d passages", len(passages)))

	chunks := ChunkText(strings.Join(domain.PassageTexts(passages), " "), s.cfg.WordBudget)
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyInput
	}
	span.SetData("chunks", len(chunks))
	telemetry.AddBreadcrumb(ctx, "pipeline", fmt.Sprintf("split context into %d chunks", len(chunks)))

	partials, failures, err := s.fanOut.summarize(ctx, chunks, input.Question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(failures) > 0 {
		span.SetData("failed_chunks", len(failures))
	}
	for _, f := range failures {
		log.Printf("answer: chunk %d/%d failed, continuing without it: %v", f.Index+1, len(chunks), f.Err)
	}

	text, err := s.combiner.Combine(ctx, partials, input.Question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	answer := &domain.Answer{
		Question:   input.Question,
		Text:       text,
		Passages:   passages,
		ChunkCount: len(chunks),
		Failed:     failures,
	}

	if !answer.Degraded() {
		s.storeAnswer(ctx, key, answer)
	}
	return answer, nil
}

// Search returns the passages Answer would summarize, without generation.
func (s *AnswerService) Search(ctx context.Context, input AskInput) ([]domain.Passage, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	passages, err := s.retriever.Retrieve(ctx, input.Question, s.topK(input.K))
	if err != nil {
		span.SetError(err)
		return nil, domain.RetrievalError(err)
	}
	return passages, nil
}

func (s *AnswerService) topK(k int) int {
	if k <= 0 {
		return s.cfg.TopK
	}
	return k
}

func (s *AnswerService) cachedAnswer(ctx context.Context, key string) *domain.Answer {
	if s.cache == nil {
		return nil
	}
	answer, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("answer cache: get failed: %v", err)
		return nil
	}
	if answer == nil {
		return nil
	}
	answer.Cached = true
	return answer
}

func (s *AnswerService) storeAnswer(ctx context.Context, key string, answer *domain.Answer) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, answer); err != nil {
		log.Printf("answer cache: set failed: %v", err)
	}
}

// CacheKey identifies an answer by everything that changes its content.
func CacheKey(model string, k, wordBudget int, question string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%s", model, k, wordBudget, strings.TrimSpace(question))))
	return hex.EncodeToString(sum[:])
}
