package ollama

import (
	"context"
	"strings"

	"github.com/votewise/votewise/internal/domain"
)

type generateRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
	Stream    bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generator calls /api/generate without streaming. It is safe for
// concurrent use.
type Generator struct {
	client    client
	model     string
	maxTokens int
}

func NewGenerator(cfg Config) *Generator {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Generator{
		client:    newClient(cfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (g *Generator) Model() string {
	return g.model
}

// Generate returns the trimmed completion for prompt. A response without a
// "response" field yields "". Failures are generation errors.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	var out generateResponse
	err := g.client.postJSON(ctx, "/api/generate", generateRequest{
		Model:     g.model,
		Prompt:    prompt,
		MaxTokens: g.maxTokens,
		Stream:    false,
	}, &out)
	if err != nil {
		return "", domain.GenerationError(err)
	}
	return strings.TrimSpace(out.Response), nil
}
