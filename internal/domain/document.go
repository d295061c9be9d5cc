package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the indexing state of a source document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusIndexed    DocumentStatus = "indexed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is a party program file tracked by the index
type Document struct {
	ID           string
	SourceKey    string
	Title        string
	Checksum     string
	Status       DocumentStatus
	Retries      int32
	Error        string
	PassageCount int
	CreatedAt    time.Time
	IndexedAt    *time.Time
}

// IndexMeta records how the passage index was embedded. Queries must use the
// same embedding model or similarity scores are meaningless.
type IndexMeta struct {
	EmbeddingModel string
	Dimensions     int
	UpdatedAt      time.Time
}

// NewDocument creates a pending Document instance
func NewDocument(id, sourceKey, title, checksum string, createdAt time.Time) *Document {
	return &Document{
		ID:        id,
		SourceKey: sourceKey,
		Title:     title,
		Checksum:  checksum,
		Status:    DocumentStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.SourceKey == "" {
		return fmt.Errorf("document SourceKey is required")
	}

	if d.Checksum == "" {
		return fmt.Errorf("document Checksum is required")
	}

	if !IsValidDocumentStatus(d.Status) {
		return fmt.Errorf("%w: %s", ErrInvalidDocumentStatus, d.Status)
	}

	if d.Retries < 0 {
		return fmt.Errorf("document Retries cannot be negative")
	}

	return nil
}

// IsValidDocumentStatus checks if a DocumentStatus is valid
func IsValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing,
		DocumentStatusIndexed, DocumentStatusFailed:
		return true
	}
	return false
}

// SourceObject is one file listed by a document source.
type SourceObject struct {
	Key     string
	Size    int64
	ModTime time.Time
}
