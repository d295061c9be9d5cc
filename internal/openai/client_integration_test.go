//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_GenerateEmbedding_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClientWithConfig(Config{APIKey: apiKey, EmbeddingDimensions: DefaultEmbeddingDimensions})
	ctx := context.Background()
	text := "Le PTB propose une taxe des millionnaires."

	embedding, err := client.GenerateEmbedding(ctx, text)

	require.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)
}

func TestIntegration_Generate_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	gen := NewGenerator(GeneratorConfig{APIKey: apiKey, MaxTokens: 20})

	out, err := gen.Generate(context.Background(), "Reply with the single word: bonjour")

	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
