package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/telemetry"
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 5

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// PassageSearcher runs the similarity query against stored passages.
type PassageSearcher interface {
	SearchPassages(ctx context.Context, embedding []float32, k int) ([]domain.Passage, error)
}

// IndexStore exposes what LoadIndex needs to decide whether the index is usable.
type IndexStore interface {
	GetIndexMeta(ctx context.Context) (*domain.IndexMeta, error)
	CountPassages(ctx context.Context) (int, error)
}

// Index is the loaded passage index. It is read-only once returned by
// LoadIndex and shared by every request.
type Index struct {
	meta     domain.IndexMeta
	passages int
}

func (i *Index) Meta() domain.IndexMeta { return i.meta }

func (i *Index) PassageCount() int { return i.passages }

// LoadIndex checks that a passage index exists and was built with
// embeddingModel. dimensions of zero skips the dimension check.
func LoadIndex(ctx context.Context, store IndexStore, embeddingModel string, dimensions int) (*Index, error) {
	meta, err := store.GetIndexMeta(ctx)
	if err != nil {
		return nil, domain.RetrievalError(err)
	}
	if meta == nil {
		return nil, domain.ErrIndexNotFound
	}

	count, err := store.CountPassages(ctx)
	if err != nil {
		return nil, domain.RetrievalError(err)
	}
	if count == 0 {
		return nil, domain.ErrIndexNotFound
	}

	if !strings.EqualFold(meta.EmbeddingModel, embeddingModel) {
		return nil, domain.NewDomainErrorWithCause(domain.ErrEmbeddingMismatch.Code, domain.ErrEmbeddingMismatch.Message,
			fmt.Errorf("index built with %q, configured %q", meta.EmbeddingModel, embeddingModel))
	}
	if dimensions > 0 && meta.Dimensions != dimensions {
		return nil, domain.NewDomainErrorWithCause(domain.ErrEmbeddingMismatch.Code, domain.ErrEmbeddingMismatch.Message,
			fmt.Errorf("index has %d dimensions, configured %d", meta.Dimensions, dimensions))
	}

	return &Index{meta: *meta, passages: count}, nil
}

// Retriever embeds a question and returns the most similar passages.
type Retriever struct {
	index    *Index
	embedder EmbeddingClient
	searcher PassageSearcher
}

func NewRetriever(index *Index, embedder EmbeddingClient, searcher PassageSearcher) *Retriever {
	return &Retriever{
		index:    index,
		embedder: embedder,
		searcher: searcher,
	}
}

// Retrieve returns up to k passages, most relevant first. Every failure is
// reported as a retrieval error.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]domain.Passage, error) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		Model:     r.index.meta.EmbeddingModel,
		Operation: "retrieve",
	})
	defer span.End()

	if k <= 0 {
		k = DefaultTopK
	}

	embedding, err := r.embedder.GenerateEmbedding(ctx, question)
	if err != nil {
		span.SetError(err)
		return nil, domain.RetrievalError(fmt.Errorf("embed question: %w", err))
	}
	if len(embedding) != r.index.meta.Dimensions {
		err := domain.NewDomainErrorWithCause(domain.ErrEmbeddingMismatch.Code, domain.ErrEmbeddingMismatch.Message,
			fmt.Errorf("question embedding has %d dimensions, index has %d", len(embedding), r.index.meta.Dimensions))
		span.SetError(err)
		return nil, err
	}

	passages, err := r.searcher.SearchPassages(ctx, embedding, k)
	if err != nil {
		span.SetError(err)
		return nil, domain.RetrievalError(err)
	}
	return passages, nil
}
