package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/telemetry"
)

// ErrNoText is returned when a document yields no extractable text.
var ErrNoText = errors.New("document contains no extractable text")

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// DocumentSource lists and opens the party program files to index.
type DocumentSource interface {
	List(ctx context.Context) ([]domain.SourceObject, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor turns a raw file into normalised plain text.
type TextExtractor interface {
	Extract(name string, data []byte) (string, error)
}

// DocumentRepositoryInterface defines document persistence used by indexing.
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetBySourceKey(ctx context.Context, sourceKey string) (*domain.Document, error)
	Requeue(ctx context.Context, id, checksum string) error
	MarkIndexed(ctx context.Context, id string, passageCount int) error
}

// SyncResult summarises one scan of the document source.
type SyncResult struct {
	Scanned   int `json:"scanned"`
	Queued    int `json:"queued"`
	Unchanged int `json:"unchanged"`
}

// Indexer builds the passage index from a document source.
type Indexer struct {
	source         DocumentSource
	extractor      TextExtractor
	embedder       EmbeddingClient
	docs           DocumentRepositoryInterface
	txRunner       TxRunner
	embeddingModel string
	chunkCfg       IndexChunkConfig
	uuidGen        UUIDGenerator
}

func NewIndexer(
	source DocumentSource,
	extractor TextExtractor,
	embedder EmbeddingClient,
	docs DocumentRepositoryInterface,
	txRunner TxRunner,
	embeddingModel string,
	chunkCfg IndexChunkConfig,
) *Indexer {
	return NewIndexerWithUUIDGen(source, extractor, embedder, docs, txRunner, embeddingModel, chunkCfg, &DefaultUUIDGenerator{})
}

func NewIndexerWithUUIDGen(
	source DocumentSource,
	extractor TextExtractor,
	embedder EmbeddingClient,
	docs DocumentRepositoryInterface,
	txRunner TxRunner,
	embeddingModel string,
	chunkCfg IndexChunkConfig,
	uuidGen UUIDGenerator,
) *Indexer {
	return &Indexer{
		source:         source,
		extractor:      extractor,
		embedder:       embedder,
		docs:           docs,
		txRunner:       txRunner,
		embeddingModel: embeddingModel,
		chunkCfg:       chunkCfg,
		uuidGen:        uuidGen,
	}
}

// Sync records every new or changed source file as a pending document.
// With force, unchanged files are queued again too.
func (s *Indexer) Sync(ctx context.Context, force bool) (*SyncResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Indexer.Sync", telemetry.SpanAttributes{
		Operation: "sync",
	})
	defer span.End()

	objects, err := s.source.List(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	result := &SyncResult{}
	for _, obj := range objects {
		result.Scanned++

		checksum, err := s.checksum(ctx, obj.Key)
		if err != nil {
			span.SetError(err)
			return nil, err
		}

		existing, err := s.docs.GetBySourceKey(ctx, obj.Key)
		switch {
		case errors.Is(err, domain.ErrDocumentNotFound):
			doc := domain.NewDocument(s.uuidGen.NewString(), obj.Key, titleFromKey(obj.Key), checksum, time.Now().UTC())
			if err := domain.ValidateDocument(doc); err != nil {
				return nil, err
			}
			if err := s.docs.Create(ctx, doc); err != nil {
				return nil, fmt.Errorf("failed to create document %s: %w", obj.Key, err)
			}
			result.Queued++
		case err != nil:
			return nil, fmt.Errorf("failed to load document %s: %w", obj.Key, err)
		case force || existing.Checksum != checksum:
			if err := s.docs.Requeue(ctx, existing.ID, checksum); err != nil {
				return nil, fmt.Errorf("failed to requeue document %s: %w", obj.Key, err)
			}
			result.Queued++
		default:
			result.Unchanged++
		}
	}

	log.Printf("Sync scanned %d documents: %d queued, %d unchanged", result.Scanned, result.Queued, result.Unchanged)
	return result, nil
}

// IndexDocument extracts, splits and embeds doc, then atomically replaces
// its passages and marks it indexed. It returns the number of passages.
func (s *Indexer) IndexDocument(ctx context.Context, doc *domain.Document) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "Indexer.IndexDocument", telemetry.SpanAttributes{
		DocumentID: doc.ID,
		SourceKey:  doc.SourceKey,
		Model:      s.embeddingModel,
		Operation:  "index",
	})
	defer span.End()

	passages, err := s.embedDocument(ctx, doc)
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	dimensions := len(passages[0].Embedding)

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		meta, err := repos.IndexMeta().GetIndexMeta(ctx)
		if err != nil {
			return fmt.Errorf("failed to read index meta: %w", err)
		}
		if meta != nil && (meta.Dimensions != dimensions || !strings.EqualFold(meta.EmbeddingModel, s.embeddingModel)) {
			return domain.NewDomainErrorWithCause(domain.ErrEmbeddingMismatch.Code, domain.ErrEmbeddingMismatch.Message,
				fmt.Errorf("index uses %s (%d dimensions), document embedded with %s (%d dimensions)",
					meta.EmbeddingModel, meta.Dimensions, s.embeddingModel, dimensions))
		}

		if err := repos.Passages().ReplacePassages(ctx, doc.ID, passages); err != nil {
			return fmt.Errorf("failed to store passages: %w", err)
		}
		if err := repos.IndexMeta().UpsertIndexMeta(ctx, &domain.IndexMeta{
			EmbeddingModel: s.embeddingModel,
			Dimensions:     dimensions,
			UpdatedAt:      time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("failed to record index meta: %w", err)
		}
		return repos.Documents().MarkIndexed(ctx, doc.ID, len(passages))
	})
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	return len(passages), nil
}

func (s *Indexer) embedDocument(ctx context.Context, doc *domain.Document) ([]domain.EmbeddedPassage, error) {
	data, err := s.read(ctx, doc.SourceKey)
	if err != nil {
		return nil, err
	}

	text, err := s.extractor.Extract(doc.SourceKey, data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", doc.SourceKey, err)
	}

	pieces := SplitForIndex(text, s.chunkCfg)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%s: %w", doc.SourceKey, ErrNoText)
	}

	passages := make([]domain.EmbeddedPassage, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := s.embedder.GenerateEmbedding(ctx, piece)
		if err != nil {
			return nil, fmt.Errorf("failed to embed passage %d of %s: %w", i, doc.SourceKey, err)
		}
		if len(passages) > 0 && len(embedding) != len(passages[0].Embedding) {
			return nil, fmt.Errorf("embedding dimension changed within %s: %d != %d", doc.SourceKey, len(embedding), len(passages[0].Embedding))
		}
		passages = append(passages, domain.EmbeddedPassage{
			Passage: domain.Passage{
				ID:         s.uuidGen.NewString(),
				DocumentID: doc.ID,
				Source:     doc.SourceKey,
				Index:      i,
				Text:       piece,
			},
			Embedding: embedding,
		})
	}
	return passages, nil
}

func (s *Indexer) checksum(ctx context.Context, key string) (string, error) {
	data, err := s.read(ctx, key)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (s *Indexer) read(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.source.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func titleFromKey(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}
