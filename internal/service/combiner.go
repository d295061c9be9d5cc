package service

import (
	"context"
	"strings"

	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/telemetry"
)

// DefaultMaxCombineDepth caps strict-mode re-chunking rounds.
const DefaultMaxCombineDepth = 4

type CombinerConfig struct {
	WordBudget int
	// Strict re-chunks a joined context that exceeds WordBudget instead of
	// sending it to the model in one prompt.
	Strict      bool
	MaxDepth    int
	Concurrency int
}

// Combiner merges ordered partial answers into one final answer.
type Combiner struct {
	generator Generator
	fanOut    fanOut
	cfg       CombinerConfig
}

func NewCombiner(generator Generator, cfg CombinerConfig) *Combiner {
	if cfg.WordBudget <= 0 {
		cfg.WordBudget = DefaultWordBudget
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxCombineDepth
	}
	return &Combiner{
		generator: generator,
		fanOut: fanOut{
			summarizer:  NewSummarizer(generator),
			concurrency: cfg.Concurrency,
		},
		cfg: cfg,
	}
}

// Combine returns the single partial verbatim and otherwise asks the model
// once over the space-joined partials. Strict mode may summarize in rounds
// first; every round shrinks the partial count.
func (c *Combiner) Combine(ctx context.Context, partials []string, question string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "Combiner.Combine", telemetry.SpanAttributes{
		Operation: "combine",
	})
	defer span.End()

	out, err := c.combine(ctx, partials, question, 0)
	if err != nil {
		span.SetError(err)
		return "", err
	}
	return out, nil
}

func (c *Combiner) combine(ctx context.Context, partials []string, question string, depth int) (string, error) {
	switch len(partials) {
	case 0:
		return "", domain.ErrEmptyInput
	case 1:
		return partials[0], nil
	}

	joined := strings.Join(partials, " ")
	if c.cfg.Strict && depth < c.cfg.MaxDepth && len(strings.Fields(joined)) > c.cfg.WordBudget {
		chunks := ChunkText(joined, c.cfg.WordBudget)
		if len(chunks) < len(partials) {
			telemetry.AddBreadcrumb(ctx, "combine", "re-chunking partial answers")
			next, _, err := c.fanOut.summarize(ctx, chunks, question)
			if err != nil {
				return "", err
			}
			return c.combine(ctx, next, question, depth+1)
		}
	}

	out, err := c.generator.Generate(ctx, BuildPrompt(joined, question))
	if err != nil {
		return "", domain.GenerationError(err)
	}
	return out, nil
}
