package service

import (
	"context"
	"strings"

	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/telemetry"
)

// Generator produces a completion for a prompt. Implementations must be
// safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptTemplate is the instruction sent with every chunk and every combination.
const PromptTemplate = `You are an expert in Belgian politics.
Provide a concise summary of political party positions based on the provided documents.
Answer clearly in the language of the question and highlight key differences.

Context:
{context}

Question:
{question}
`

// BuildPrompt fills PromptTemplate with the given context and question.
func BuildPrompt(context, question string) string {
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(PromptTemplate)
}

// Summarizer turns one chunk of passages into a partial answer.
type Summarizer struct {
	generator Generator
}

func NewSummarizer(generator Generator) *Summarizer {
	return &Summarizer{generator: generator}
}

// Summarize issues exactly one generation call for chunk. Failures surface
// as generation errors; there is no retry at this layer.
func (s *Summarizer) Summarize(ctx context.Context, chunk, question string) (string, error) {
	return s.summarize(ctx, chunk, question, telemetry.SpanAttributes{Operation: "summarize"})
}

// SummarizeChunk is Summarize for a chunk produced by the fan-out; the
// chunk position is recorded on the span.
func (s *Summarizer) SummarizeChunk(ctx context.Context, chunk domain.Chunk, question string) (string, error) {
	index := chunk.Index
	return s.summarize(ctx, chunk.Text, question, telemetry.SpanAttributes{
		Operation:  "summarize",
		ChunkIndex: &index,
	})
}

func (s *Summarizer) summarize(ctx context.Context, chunk, question string, attrs telemetry.SpanAttributes) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "Summarizer.Summarize", attrs)
	defer span.End()

	out, err := s.generator.Generate(ctx, BuildPrompt(chunk, question))
	if err != nil {
		span.SetError(err)
		return "", domain.GenerationError(err)
	}
	return out, nil
}
