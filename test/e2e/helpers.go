//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/votewise/votewise/internal/api/handlers"
	"github.com/votewise/votewise/internal/cache"
	"github.com/votewise/votewise/internal/extract"
	"github.com/votewise/votewise/internal/jobs"
	"github.com/votewise/votewise/internal/ollama"
	"github.com/votewise/votewise/internal/repository"
	"github.com/votewise/votewise/internal/server"
	"github.com/votewise/votewise/internal/service"
	"github.com/votewise/votewise/internal/storage"
	"github.com/votewise/votewise/internal/testutil"
)

const (
	testModel     = "llama3"
	testDims      = 16
	testAPIToken  = "e2e-token"
	migrationsDir = "../../migrations"
)

// fakeOllama answers /api/embeddings with a bag-of-words hash vector and
// /api/generate with a deterministic summary of the prompt's question.
type fakeOllama struct {
	srv *httptest.Server

	generateCalls atomic.Int32
	embedCalls    atomic.Int32

	mu      sync.Mutex
	prompts []string
	fail    bool
}

func newFakeOllama(t *testing.T) *fakeOllama {
	f := &fakeOllama{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/embeddings", f.embeddings)
	mux.HandleFunc("POST /api/generate", f.generate)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeOllama) URL() string { return f.srv.URL }

func (f *fakeOllama) setFailing(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *fakeOllama) embeddings(w http.ResponseWriter, r *http.Request) {
	f.embedCalls.Add(1)
	var req struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	vec := make([]float64, testDims)
	for _, word := range strings.Fields(strings.ToLower(req.Prompt)) {
		word = strings.Trim(word, ".,;:?!")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%testDims]++
	}
	json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
}

func (f *fakeOllama) generate(w http.ResponseWriter, r *http.Request) {
	f.generateCalls.Add(1)
	var req struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
		Stream bool   `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	fail := f.fail
	f.mu.Unlock()

	if fail {
		http.Error(w, `{"error":"model not loaded"}`, http.StatusServiceUnavailable)
		return
	}

	question := req.Prompt
	if i := strings.LastIndex(question, "Question:\n"); i >= 0 {
		question = strings.TrimSpace(question[i+len("Question:\n"):])
	}
	json.NewEncoder(w).Encode(map[string]any{
		"model":    req.Model,
		"response": fmt.Sprintf("Summary for %q.", question),
		"done":     true,
	})
}

// Env holds all resources needed for E2E tests
type Env struct {
	T   *testing.T
	Ctx context.Context

	PostgresC *testutil.PostgresContainer
	RedisC    *testutil.RedisContainer
	Pool      *pgxpool.Pool
	Ollama    *fakeOllama
	Cache     *cache.RedisCache

	SourceDir string
	Indexer   *service.Indexer
	Worker    *jobs.DocumentWorker
	Embedder  *ollama.Embedder
	Generator *ollama.Generator

	ServerURL  string
	server     *httptest.Server
	BinaryDir  string
	HTTPClient *http.Client
}

// SetupEnv starts Postgres and Redis, a fake Ollama, and writes the party
// programs into a temporary source directory.
func SetupEnv(t *testing.T, programs map[string]string) *Env {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	redisC := testutil.NewRedisContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, migrationsDir)

	answerCache, err := cache.NewRedisCache(ctx, redisC.URL(), time.Hour)
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}

	dir := t.TempDir()
	for name, content := range programs {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	fake := newFakeOllama(t)
	ollamaCfg := ollama.Config{
		BaseURL:              fake.URL(),
		Model:                testModel,
		Timeout:              5 * time.Second,
		MaxRetries:           1,
		RetryInitialInterval: 10 * time.Millisecond,
	}
	embedder := ollama.NewEmbedder(ollamaCfg)
	generator := ollama.NewGenerator(ollamaCfg)

	docs := repository.NewDocumentRepository(pool)
	indexer := service.NewIndexer(
		storage.NewDirSource(dir),
		extract.New(),
		embedder,
		docs,
		repository.NewTxRunner(pool),
		embedder.Model(),
		service.IndexChunkConfig{MaxChars: 200, Overlap: 40},
	)

	return &Env{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RedisC:     redisC,
		Pool:       pool,
		Ollama:     fake,
		Cache:      answerCache,
		SourceDir:  dir,
		Indexer:    indexer,
		Worker:     jobs.NewDocumentWorker(docs, indexer, answerCache),
		Embedder:   embedder,
		Generator:  generator,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *Env) Cleanup() {
	if e.server != nil {
		e.server.Close()
	}
	if e.Cache != nil {
		e.Cache.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RedisC != nil {
		e.RedisC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildIndex syncs the source directory and drains the document queue.
func (e *Env) BuildIndex(force bool) (*service.SyncResult, jobs.BatchResult) {
	syncResult, err := e.Indexer.Sync(e.Ctx, force)
	if err != nil {
		e.T.Fatalf("sync failed: %v", err)
	}
	batch, err := e.Worker.Drain(e.Ctx)
	if err != nil {
		e.T.Fatalf("drain failed: %v", err)
	}
	return syncResult, batch
}

// StartServer loads the index and serves the API the way votewised serve does.
func (e *Env) StartServer(cfg service.PipelineConfig) {
	index, err := service.LoadIndex(e.Ctx, repository.NewIndexStore(e.Pool), e.Embedder.Model(), 0)
	if err != nil {
		e.T.Fatalf("failed to load index: %v", err)
	}

	cfg.Model = e.Generator.Model()
	retriever := service.NewRetriever(index, e.Embedder, repository.NewPassageRepository(e.Pool))
	answerSvc := service.NewAnswerServiceWithCache(retriever, e.Generator, e.Cache, cfg)

	router := server.NewRouter(server.RouterConfig{
		APIToken:        testAPIToken,
		AnswerHandler:   handlers.NewAnswerHandler(answerSvc),
		DocumentHandler: handlers.NewDocumentHandler(service.NewDocumentService(repository.NewDocumentRepository(e.Pool)), e.Indexer),
		HealthHandler:   handlers.NewHealthHandler(index),
	})

	if e.server != nil {
		e.server.Close()
	}
	e.server = httptest.NewServer(router)
	e.ServerURL = e.server.URL
}

// BuildBinaries builds the votewise and votewised binaries
func (e *Env) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "votewise-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"votewise", "votewised"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// RunVotewise runs the client CLI against the test server.
func (e *Env) RunVotewise(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "votewise"), args...)
	cmd.Dir = e.T.TempDir()
	cmd.Env = append(os.Environ(),
		"VOTEWISE_API_TOKEN="+testAPIToken,
		"VOTEWISE_API_URL="+e.ServerURL,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
	Code       string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *Env) Get(path, token string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, token)
}

// Post performs a POST request
func (e *Env) Post(path string, body interface{}, token string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, token)
}

// doRequest returns the decoded envelope for every status; callers inspect
// StatusCode.
func (e *Env) doRequest(method, path string, body interface{}, token string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(respBody, apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return apiResp, nil
}

func runBinary(e *Env, name string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, name), args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
