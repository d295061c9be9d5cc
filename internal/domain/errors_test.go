package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeNotFound, "document not found")
	assert.Equal(t, "[NOT_FOUND] document not found", err.Error())

	wrapped := NewDomainErrorWithCause(ErrCodeRetrieval, "retrieval failed", errors.New("connection refused"))
	assert.Equal(t, "[RETRIEVAL_ERROR] retrieval failed: connection refused", wrapped.Error())
}

func TestDomainError_IsMatchesWrappedSentinel(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := RetrievalError(cause)

	assert.True(t, errors.Is(err, ErrRetrieval))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrGeneration))
	assert.False(t, errors.Is(err, ErrIndexNotFound))
}

func TestRetrievalError_KeepsExistingRetrievalErrors(t *testing.T) {
	err := RetrievalError(ErrEmbeddingMismatch)
	assert.Same(t, ErrEmbeddingMismatch, err)

	err = RetrievalError(fmt.Errorf("load index: %w", ErrIndexNotFound))
	assert.True(t, errors.Is(err, ErrIndexNotFound))
}

func TestRetrievalError_Nil(t *testing.T) {
	assert.NoError(t, RetrievalError(nil))
	assert.NoError(t, GenerationError(nil))
}

func TestGenerationError(t *testing.T) {
	err := GenerationError(errors.New("status 503"))

	assert.True(t, errors.Is(err, ErrGeneration))
	assert.Equal(t, ErrCodeGeneration, CodeOf(err))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeEmptyInput, CodeOf(ErrEmptyInput))
	assert.Equal(t, ErrCodeEmptyInput, CodeOf(fmt.Errorf("answer: %w", ErrEmptyInput)))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"retrieval", RetrievalError(errors.New("down")), "document index is unavailable"},
		{"generation", GenerationError(errors.New("down")), "language model did not respond"},
		{"empty input", ErrEmptyInput, "no relevant passages"},
		{"validation", ErrInvalidQuestion, "question is required"},
		{"unknown", errors.New("boom"), "unexpected error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := UserMessage(tt.err)
			assert.Contains(t, msg, "Could not answer")
			assert.Contains(t, msg, tt.contains)
		})
	}
}
