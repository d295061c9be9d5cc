// Package cache keeps final answers in Redis so repeated questions skip the
// generation model.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/votewise/votewise/internal/domain"
)

const (
	keyPrefix  = "votewise:answer:"
	DefaultTTL = 24 * time.Hour
)

// RedisCache implements service.AnswerCache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server at url (redis://host:port/db)
// and checks it answers a ping.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.MaxRetries = 3
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

type passageEntry struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type answerEntry struct {
	Question   string         `json:"question"`
	Text       string         `json:"text"`
	Passages   []passageEntry `json:"passages"`
	ChunkCount int            `json:"chunk_count"`
	StoredAt   time.Time      `json:"stored_at"`
}

func toEntry(a *domain.Answer, now time.Time) answerEntry {
	e := answerEntry{
		Question:   a.Question,
		Text:       a.Text,
		Passages:   make([]passageEntry, len(a.Passages)),
		ChunkCount: a.ChunkCount,
		StoredAt:   now,
	}
	for i, p := range a.Passages {
		e.Passages[i] = passageEntry(p)
	}
	return e
}

func (e answerEntry) answer() *domain.Answer {
	a := &domain.Answer{
		Question:   e.Question,
		Text:       e.Text,
		Passages:   make([]domain.Passage, len(e.Passages)),
		ChunkCount: e.ChunkCount,
	}
	for i, p := range e.Passages {
		a.Passages[i] = domain.Passage(p)
	}
	return a
}

// Get returns the cached answer for key, or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*domain.Answer, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}

	var entry answerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answer: %w", err)
	}
	return entry.answer(), nil
}

// Set stores answer under key. Chunk failures are not kept.
func (c *RedisCache) Set(ctx context.Context, key string, answer *domain.Answer) error {
	data, err := json.Marshal(toEntry(answer, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

// Invalidate drops every cached answer and returns how many were removed.
// It runs after the index changes.
func (c *RedisCache) Invalidate(ctx context.Context) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
		removed++
	}
	return removed, iter.Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
