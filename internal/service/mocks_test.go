package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/pagination"
)

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// funcGenerator adapts a function to Generator and records every prompt.
type funcGenerator struct {
	mu      sync.Mutex
	prompts []string
	fn      func(ctx context.Context, prompt string) (string, error)
}

func (g *funcGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.fn(ctx, prompt)
}

func (g *funcGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// contextOf extracts the {context} part of a prompt built by BuildPrompt.
func contextOf(prompt string) string {
	_, rest, _ := strings.Cut(prompt, "Context:\n")
	ctx, _, _ := strings.Cut(rest, "\n\nQuestion:")
	return ctx
}

// MockRetriever is a mock implementation of PassageRetriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, question string, k int) ([]domain.Passage, error) {
	args := m.Called(ctx, question, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Passage), args.Error(1)
}

// MockAnswerCache is a mock implementation of AnswerCache
type MockAnswerCache struct {
	mock.Mock
}

func (m *MockAnswerCache) Get(ctx context.Context, key string) (*domain.Answer, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Answer), args.Error(1)
}

func (m *MockAnswerCache) Set(ctx context.Context, key string, answer *domain.Answer) error {
	args := m.Called(ctx, key, answer)
	return args.Error(0)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockPassageSearcher is a mock implementation of PassageSearcher
type MockPassageSearcher struct {
	mock.Mock
}

func (m *MockPassageSearcher) SearchPassages(ctx context.Context, embedding []float32, k int) ([]domain.Passage, error) {
	args := m.Called(ctx, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Passage), args.Error(1)
}

// MockIndexStore is a mock implementation of IndexStore
type MockIndexStore struct {
	mock.Mock
}

func (m *MockIndexStore) GetIndexMeta(ctx context.Context) (*domain.IndexMeta, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexMeta), args.Error(1)
}

func (m *MockIndexStore) CountPassages(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockIndexMetaRepository is a mock implementation of IndexMetaRepositoryInterface
type MockIndexMetaRepository struct {
	mock.Mock
}

func (m *MockIndexMetaRepository) GetIndexMeta(ctx context.Context) (*domain.IndexMeta, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexMeta), args.Error(1)
}

func (m *MockIndexMetaRepository) UpsertIndexMeta(ctx context.Context, meta *domain.IndexMeta) error {
	args := m.Called(ctx, meta)
	return args.Error(0)
}

// MockPassageWriter is a mock implementation of PassageWriter
type MockPassageWriter struct {
	mock.Mock
}

func (m *MockPassageWriter) ReplacePassages(ctx context.Context, documentID string, passages []domain.EmbeddedPassage) error {
	args := m.Called(ctx, documentID, passages)
	return args.Error(0)
}

// MockDocumentRepository is a mock implementation of DocumentRepositoryInterface
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetBySourceKey(ctx context.Context, sourceKey string) (*domain.Document, error) {
	args := m.Called(ctx, sourceKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) Requeue(ctx context.Context, id, checksum string) error {
	args := m.Called(ctx, id, checksum)
	return args.Error(0)
}

func (m *MockDocumentRepository) MarkIndexed(ctx context.Context, id string, passageCount int) error {
	args := m.Called(ctx, id, passageCount)
	return args.Error(0)
}

// MockDocumentListRepository is a mock implementation of DocumentListRepository
type MockDocumentListRepository struct {
	mock.Mock
}

func (m *MockDocumentListRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPageResult), args.Error(1)
}

// memorySource is an in-memory DocumentSource.
type memorySource struct {
	files map[string][]byte
	keys  []string
}

func newMemorySource(pairs ...string) *memorySource {
	s := &memorySource{files: map[string][]byte{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.files[pairs[i]] = []byte(pairs[i+1])
		s.keys = append(s.keys, pairs[i])
	}
	return s
}

func (s *memorySource) List(ctx context.Context) ([]domain.SourceObject, error) {
	objects := make([]domain.SourceObject, 0, len(s.keys))
	for _, k := range s.keys {
		objects = append(objects, domain.SourceObject{Key: k, Size: int64(len(s.files[k]))})
	}
	return objects, nil
}

func (s *memorySource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.files[key]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// plainExtractor returns the file content unchanged.
type plainExtractor struct{}

func (plainExtractor) Extract(name string, data []byte) (string, error) {
	return string(data), nil
}

// fixedUUIDGenerator hands out predictable IDs.
type fixedUUIDGenerator struct {
	mu   sync.Mutex
	next int
	ids  []string
}

func (g *fixedUUIDGenerator) NewString() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.ids[g.next%len(g.ids)]
	g.next++
	return id
}
