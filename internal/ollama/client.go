// Package ollama talks to a local Ollama server for text generation and
// embeddings.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultBaseURL              = "http://localhost:11434"
	DefaultModel                = "llama3"
	DefaultMaxTokens            = 500
	DefaultTimeout              = 120 * time.Second
	DefaultMaxRetries           = 2
	defaultRetryInitialInterval = 500 * time.Millisecond
	maxErrorBodyBytes           = 2048
)

// Config holds the connection settings shared by Generator and Embedder.
type Config struct {
	BaseURL   string
	Model     string
	MaxTokens int
	// Timeout bounds each HTTP attempt.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a retryable failure.
	MaxRetries int
	// Dimensions, when positive, is the embedding length Embedder enforces.
	Dimensions int

	RetryInitialInterval time.Duration
	HTTPClient           *http.Client
}

// StatusError reports a non-2xx answer from the Ollama server.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("ollama returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if sent again.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type client struct {
	baseURL    string
	http       *http.Client
	timeout    time.Duration
	maxRetries int
	interval   time.Duration
}

func newClient(cfg Config) client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	interval := cfg.RetryInitialInterval
	if interval <= 0 {
		interval = defaultRetryInitialInterval
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return client{
		baseURL:    baseURL,
		http:       httpClient,
		timeout:    timeout,
		maxRetries: maxRetries,
		interval:   interval,
	}
}

// postJSON sends body to path and decodes the JSON answer into out. Transport
// errors, 429 and 5xx are retried with exponential backoff; other statuses
// fail immediately.
func (c client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal ollama request: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.interval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx)

	attempt := func() error {
		err := c.once(ctx, path, payload, out)
		if err == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("ollama: %s failed, retrying in %v: %v", path, wait, err)
	}

	return backoff.RetryNotify(attempt, b, notify)
}

func (c client) once(ctx context.Context, path string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call ollama %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ollama response: %w", err)
	}
	return nil
}
