package openai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/votewise/votewise/internal/domain"
)

const (
	DefaultChatModel   = openai.GPT4oMini
	defaultMaxTokens   = 500
	defaultTimeout     = 120 * time.Second
	defaultRetryPeriod = 500 * time.Millisecond
)

// ChatAPI is the part of the go-openai client Generator uses.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type GeneratorConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int

	RetryInitialInterval time.Duration
}

// Generator sends each prompt as a single user message.
type Generator struct {
	api        ChatAPI
	model      string
	maxTokens  int
	timeout    time.Duration
	maxRetries int
	interval   time.Duration
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	return NewGeneratorWithAPI(newAPIClient(cfg.APIKey, cfg.BaseURL), cfg)
}

func NewGeneratorWithAPI(api ChatAPI, cfg GeneratorConfig) *Generator {
	g := &Generator{
		api:        api,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		timeout:    cfg.Timeout,
		maxRetries: max(cfg.MaxRetries, 0),
		interval:   cfg.RetryInitialInterval,
	}
	if g.model == "" {
		g.model = DefaultChatModel
	}
	if g.maxTokens <= 0 {
		g.maxTokens = defaultMaxTokens
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	if g.interval <= 0 {
		g.interval = defaultRetryPeriod
	}
	return g
}

func (g *Generator) Model() string {
	return g.model
}

// Generate returns the trimmed content of the first choice. Rate limits,
// server errors and transport failures are retried.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.interval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(g.maxRetries)), ctx)

	var out string
	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.api.CreateChatCompletion(callCtx, req)
		if err != nil {
			if !retryable(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("no completion choices returned"))
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("openai: chat completion failed, retrying in %v: %v", wait, err)
	}

	if err := backoff.RetryNotify(attempt, b, notify); err != nil {
		return "", domain.GenerationError(fmt.Errorf("chat completion: %w", err))
	}
	return out, nil
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
