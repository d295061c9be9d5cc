package service

import (
	"context"

	"github.com/votewise/votewise/internal/domain"
)

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Passages() PassageWriter
	Documents() DocumentRepositoryInterface
	IndexMeta() IndexMetaRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// PassageWriter replaces the stored passages of a document.
type PassageWriter interface {
	ReplacePassages(ctx context.Context, documentID string, passages []domain.EmbeddedPassage) error
}

// IndexMetaRepositoryInterface reads and records how the index was embedded.
type IndexMetaRepositoryInterface interface {
	GetIndexMeta(ctx context.Context) (*domain.IndexMeta, error)
	UpsertIndexMeta(ctx context.Context, meta *domain.IndexMeta) error
}
