package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/votewise/votewise/internal/domain"
)

func TestEntry_DropsFailuresAndCachedFlag(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	answer := &domain.Answer{
		Question:   "Wat wil Vooruit met de pensioenen?",
		Text:       "Vooruit wil het minimumpensioen optrekken.",
		Passages:   []domain.Passage{{ID: "p1", DocumentID: "d1", Source: "nl/vooruit.pdf", Index: 3, Text: "pensioen", Score: 0.8}},
		ChunkCount: 2,
		Failed:     []domain.ChunkFailure{{Index: 1}},
		Cached:     true,
	}

	entry := toEntry(answer, now)
	got := entry.answer()

	assert.Equal(t, now, entry.StoredAt)
	assert.Equal(t, answer.Question, got.Question)
	assert.Equal(t, answer.Text, got.Text)
	assert.Equal(t, answer.Passages, got.Passages)
	assert.Equal(t, 2, got.ChunkCount)
	assert.Empty(t, got.Failed)
	assert.False(t, got.Cached)
}

func TestNewRedisCacheWithClient_DefaultTTL(t *testing.T) {
	c := NewRedisCacheWithClient(nil, 0)

	assert.Equal(t, DefaultTTL, c.ttl)
}
