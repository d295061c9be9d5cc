package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/votewise/votewise/internal/domain"
)

func testIndex() *Index {
	return &Index{meta: domain.IndexMeta{EmbeddingModel: "llama3", Dimensions: 3}, passages: 10}
}

func TestLoadIndex_Success(t *testing.T) {
	store := new(MockIndexStore)
	store.On("GetIndexMeta", mock.Anything).Return(&domain.IndexMeta{EmbeddingModel: "llama3", Dimensions: 4096}, nil)
	store.On("CountPassages", mock.Anything).Return(120, nil)

	index, err := LoadIndex(context.Background(), store, "llama3", 0)

	require.NoError(t, err)
	assert.Equal(t, "llama3", index.Meta().EmbeddingModel)
	assert.Equal(t, 4096, index.Meta().Dimensions)
	assert.Equal(t, 120, index.PassageCount())
}

func TestLoadIndex_Failures(t *testing.T) {
	tests := []struct {
		name    string
		meta    *domain.IndexMeta
		metaErr error
		count   int
		model   string
		dims    int
		want    error
	}{
		{"no meta", nil, nil, 0, "llama3", 0, domain.ErrIndexNotFound},
		{"meta query fails", nil, errors.New("relation does not exist"), 0, "llama3", 0, domain.ErrRetrieval},
		{"no passages", &domain.IndexMeta{EmbeddingModel: "llama3", Dimensions: 8}, nil, 0, "llama3", 0, domain.ErrIndexNotFound},
		{"other model", &domain.IndexMeta{EmbeddingModel: "nomic-embed-text", Dimensions: 768}, nil, 5, "llama3", 0, domain.ErrEmbeddingMismatch},
		{"other dimensions", &domain.IndexMeta{EmbeddingModel: "llama3", Dimensions: 4096}, nil, 5, "llama3", 768, domain.ErrEmbeddingMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockIndexStore)
			if tt.metaErr != nil {
				store.On("GetIndexMeta", mock.Anything).Return(nil, tt.metaErr)
			} else if tt.meta == nil {
				store.On("GetIndexMeta", mock.Anything).Return(nil, nil)
			} else {
				store.On("GetIndexMeta", mock.Anything).Return(tt.meta, nil)
			}
			store.On("CountPassages", mock.Anything).Return(tt.count, nil).Maybe()

			index, err := LoadIndex(context.Background(), store, tt.model, tt.dims)

			assert.Nil(t, index)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, domain.ErrCodeRetrieval, domain.CodeOf(err))
		})
	}
}

func TestRetriever_Retrieve_Success(t *testing.T) {
	embedder := new(MockEmbeddingClient)
	searcher := new(MockPassageSearcher)
	embedding := []float32{0.1, 0.2, 0.3}
	passages := []domain.Passage{{ID: "a", Text: "first", Score: 0.9}, {ID: "b", Text: "second", Score: 0.5}}

	embedder.On("GenerateEmbedding", mock.Anything, "Who funds rail?").Return(embedding, nil).Once()
	searcher.On("SearchPassages", mock.Anything, embedding, 2).Return(passages, nil).Once()

	retriever := NewRetriever(testIndex(), embedder, searcher)

	got, err := retriever.Retrieve(context.Background(), "Who funds rail?", 2)

	require.NoError(t, err)
	assert.Equal(t, passages, got)
	embedder.AssertExpectations(t)
	searcher.AssertExpectations(t)
}

func TestRetriever_Retrieve_DefaultK(t *testing.T) {
	embedder := new(MockEmbeddingClient)
	searcher := new(MockPassageSearcher)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 2, 3}, nil).Once()
	searcher.On("SearchPassages", mock.Anything, mock.Anything, DefaultTopK).Return([]domain.Passage{}, nil).Once()

	_, err := NewRetriever(testIndex(), embedder, searcher).Retrieve(context.Background(), "q", 0)

	require.NoError(t, err)
	searcher.AssertExpectations(t)
}

func TestRetriever_Retrieve_EmbeddingFailure(t *testing.T) {
	embedder := new(MockEmbeddingClient)
	searcher := new(MockPassageSearcher)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return(nil, errors.New("ollama unreachable")).Once()

	_, err := NewRetriever(testIndex(), embedder, searcher).Retrieve(context.Background(), "q", 5)

	assert.ErrorIs(t, err, domain.ErrRetrieval)
	assert.Contains(t, err.Error(), "ollama unreachable")
	searcher.AssertNotCalled(t, "SearchPassages", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetriever_Retrieve_DimensionMismatch(t *testing.T) {
	embedder := new(MockEmbeddingClient)
	searcher := new(MockPassageSearcher)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 2}, nil).Once()

	_, err := NewRetriever(testIndex(), embedder, searcher).Retrieve(context.Background(), "q", 5)

	assert.ErrorIs(t, err, domain.ErrEmbeddingMismatch)
	searcher.AssertNotCalled(t, "SearchPassages", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetriever_Retrieve_SearchFailure(t *testing.T) {
	embedder := new(MockEmbeddingClient)
	searcher := new(MockPassageSearcher)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 2, 3}, nil).Once()
	searcher.On("SearchPassages", mock.Anything, mock.Anything, 5).Return(nil, errors.New("pool closed")).Once()

	_, err := NewRetriever(testIndex(), embedder, searcher).Retrieve(context.Background(), "q", 5)

	assert.ErrorIs(t, err, domain.ErrRetrieval)
	assert.Equal(t, "Could not answer: the document index is unavailable. No answer is available right now.", domain.UserMessage(err))
}
