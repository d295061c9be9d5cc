package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_GenerateEmbedding_Success(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"embedding":[0.5,-0.25,1]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(testConfig(server.URL))

	vec, err := embedder.GenerateEmbedding(context.Background(), "Qui veut taxer la fortune ?")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25, 1}, vec)
	assert.Equal(t, embeddingRequest{Model: "llama3", Prompt: "Qui veut taxer la fortune ?"}, got)
}

func TestEmbedder_GenerateEmbedding_EmptyText(t *testing.T) {
	_, err := NewEmbedder(Config{}).GenerateEmbedding(context.Background(), "")

	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestEmbedder_GenerateEmbedding_EmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(testConfig(server.URL)).GenerateEmbedding(context.Background(), "text")

	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestEmbedder_GenerateEmbedding_DimensionCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[1,2,3]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Dimensions = 4

	_, err := NewEmbedder(cfg).GenerateEmbedding(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestEmbedder_GenerateEmbedding_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewEmbedder(testConfig(server.URL)).GenerateEmbedding(context.Background(), "text")

	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}
