package service

import (
	"context"

	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/pagination"
	"github.com/votewise/votewise/internal/telemetry"
)

const (
	defaultDocumentPageSize = 20
	maxDocumentPageSize     = 100
)

// DocumentPageResult is one page of documents ordered newest first.
type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// DocumentListRepository lists documents with keyset pagination.
type DocumentListRepository interface {
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
}

type ListDocumentsInput struct {
	Cursor string
	Limit  int
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

// DocumentService exposes the indexed documents to the API.
type DocumentService struct {
	repo DocumentListRepository
}

func NewDocumentService(repo DocumentListRepository) *DocumentService {
	return &DocumentService{repo: repo}
}

func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.List", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultDocumentPageSize
	}
	if limit > maxDocumentPageSize {
		limit = maxDocumentPageSize
	}

	page, err := s.repo.ListWithCursor(ctx, cursor, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &ListDocumentsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}
