package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/telemetry"
)

const (
	// MaxRetries is the number of attempts before a document is marked failed
	MaxRetries = 3
	// DefaultBatchSize is how many documents one ProcessJobs call claims
	DefaultBatchSize = 10
)

// DocumentJobRepository claims pending documents and records outcomes.
type DocumentJobRepository interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
}

// DocumentIndexer indexes one document and marks it indexed.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, doc *domain.Document) (int, error)
}

// CacheInvalidator drops cached answers once the index changed.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) (int, error)
}

// BatchResult counts the outcomes of one ProcessJobs pass.
type BatchResult struct {
	Claimed  int `json:"claimed"`
	Indexed  int `json:"indexed"`
	Retrying int `json:"retrying"`
	Failed   int `json:"failed"`
	Passages int `json:"passages"`
}

func (r *BatchResult) add(o BatchResult) {
	r.Claimed += o.Claimed
	r.Indexed += o.Indexed
	r.Retrying += o.Retrying
	r.Failed += o.Failed
	r.Passages += o.Passages
}

// DocumentWorker processes pending documents
type DocumentWorker struct {
	repo        DocumentJobRepository
	indexer     DocumentIndexer
	invalidator CacheInvalidator
	batchSize   int
}

// NewDocumentWorker creates a new DocumentWorker. invalidator may be nil.
func NewDocumentWorker(repo DocumentJobRepository, indexer DocumentIndexer, invalidator CacheInvalidator) *DocumentWorker {
	return &DocumentWorker{
		repo:        repo,
		indexer:     indexer,
		invalidator: invalidator,
		batchSize:   DefaultBatchSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *DocumentWorker) ProcessJobs(ctx context.Context) error {
	_, err := w.processBatch(ctx)
	return err
}

// Drain processes batches until no pending document is left. Documents that
// keep failing are retried within the same call until MaxRetries.
func (w *DocumentWorker) Drain(ctx context.Context) (BatchResult, error) {
	var total BatchResult
	for {
		batch, err := w.processBatch(ctx)
		total.add(batch)
		if err != nil {
			return total, err
		}
		if batch.Claimed == 0 {
			return total, nil
		}
	}
}

func (w *DocumentWorker) processBatch(ctx context.Context) (BatchResult, error) {
	var result BatchResult
	if err := ctx.Err(); err != nil {
		return result, err
	}

	docs, err := w.repo.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to claim pending documents: %w", err)
	}
	result.Claimed = len(docs)
	if len(docs) == 0 {
		return result, nil
	}

	log.Printf("Processing %d pending documents", len(docs))

	ctx, span := telemetry.StartTransaction(ctx, "DocumentWorker.processBatch", telemetry.OpIndex)
	defer span.End()
	span.SetData("documents", len(docs))

	for _, doc := range docs {
		passages, err := w.indexer.IndexDocument(ctx, doc)
		if err == nil {
			log.Printf("Document %s indexed (%d passages)", doc.SourceKey, passages)
			result.Indexed++
			result.Passages += passages
			continue
		}

		failed, hErr := w.handleFailure(ctx, doc, err)
		if hErr != nil {
			log.Printf("Error recording failure of %s: %v", doc.SourceKey, hErr)
		}
		if failed {
			result.Failed++
		} else {
			result.Retrying++
		}
	}

	if result.Indexed > 0 && w.invalidator != nil {
		removed, err := w.invalidator.Invalidate(ctx)
		if err != nil {
			log.Printf("answer cache: invalidate failed: %v", err)
		} else if removed > 0 {
			log.Printf("answer cache: dropped %d answers after reindex", removed)
		}
	}

	return result, nil
}

// handleFailure reports whether the document was marked failed for good.
func (w *DocumentWorker) handleFailure(ctx context.Context, doc *domain.Document, jobErr error) (bool, error) {
	log.Printf("Document %s failed: %v", doc.SourceKey, jobErr)
	telemetry.CaptureError(ctx, jobErr)

	if err := w.repo.IncrementRetries(ctx, doc.ID); err != nil {
		return false, fmt.Errorf("failed to increment retries: %w", err)
	}

	if doc.Retries+1 >= MaxRetries {
		log.Printf("Document %s exceeded max retries (%d), marking as failed", doc.SourceKey, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusFailed, errMsg); err != nil {
			return true, fmt.Errorf("failed to update document status to failed: %w", err)
		}
		return true, nil
	}

	log.Printf("Document %s will be retried (attempt %d/%d)", doc.SourceKey, doc.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", doc.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusPending, errMsg); err != nil {
		return false, fmt.Errorf("failed to reset document status to pending: %w", err)
	}
	return false, nil
}
