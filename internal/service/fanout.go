package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/votewise/votewise/internal/domain"
)

// DefaultConcurrency bounds in-flight summarization calls per request.
const DefaultConcurrency = 4

type fanOut struct {
	summarizer   *Summarizer
	concurrency  int
	allowPartial bool
}

// summarize runs one Summarize call per chunk with at most f.concurrency in
// flight. Partials come back in chunk order. In fail-fast mode the first
// error cancels the remaining calls; with allowPartial failed chunks are
// reported and skipped, and the call only fails when every chunk failed.
func (f fanOut) summarize(ctx context.Context, chunks []string, question string) ([]string, []domain.ChunkFailure, error) {
	limit := f.concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]string, len(chunks))
	errs := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := f.summarizer.SummarizeChunk(gctx, domain.Chunk{Index: i, Text: chunk}, question)
			if err != nil {
				if f.allowPartial {
					errs[i] = err
					return nil
				}
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	partials := make([]string, 0, len(chunks))
	var failures []domain.ChunkFailure
	for i := range chunks {
		if errs[i] != nil {
			failures = append(failures, domain.ChunkFailure{Index: i, Err: errs[i]})
			continue
		}
		partials = append(partials, results[i])
	}
	if len(partials) == 0 && len(failures) > 0 {
		joined := make([]error, 0, len(failures))
		for _, f := range failures {
			joined = append(joined, f.Err)
		}
		return nil, failures, domain.GenerationError(errors.Join(joined...))
	}
	return partials, failures, nil
}
