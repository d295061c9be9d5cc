package ollama

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrEmptyEmbedding is returned when the server answers without a vector
	ErrEmptyEmbedding = errors.New("ollama returned an empty embedding")
)

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embedder calls /api/embeddings. The same instance serves indexing and
// question embedding.
type Embedder struct {
	client     client
	model      string
	dimensions int
}

func NewEmbedder(cfg Config) *Embedder {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Embedder{
		client:     newClient(cfg),
		model:      model,
		dimensions: cfg.Dimensions,
	}
}

func (e *Embedder) Model() string {
	return e.model
}

// GenerateEmbedding generates an embedding for the given text
func (e *Embedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var out embeddingResponse
	if err := e.client.postJSON(ctx, "/api/embeddings", embeddingRequest{Model: e.model, Prompt: text}, &out); err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}

	if e.dimensions > 0 && len(vec) != e.dimensions {
		return nil, fmt.Errorf("ollama embedding dimension mismatch: expected %d, got %d", e.dimensions, len(vec))
	}
	return vec, nil
}
