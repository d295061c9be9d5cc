package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/votewise/votewise/internal/domain"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusAccepted, map[string]int{"queued": 2})

	assert.Equal(t, http.StatusAccepted, w.Code)

	var result SuccessResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["queued"])
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation error", domain.ErrInvalidQuestion, http.StatusBadRequest},
		{"not found error", domain.ErrDocumentNotFound, http.StatusNotFound},
		{"unauthorized error", domain.ErrInvalidAPIToken, http.StatusUnauthorized},
		{"empty input", domain.ErrEmptyInput, http.StatusUnprocessableEntity},
		{"generation", domain.GenerationError(errors.New("502 from ollama")), http.StatusBadGateway},
		{"retrieval", domain.RetrievalError(errors.New("pool closed")), http.StatusServiceUnavailable},
		{"embedding mismatch", domain.ErrEmbeddingMismatch, http.StatusServiceUnavailable},
		{"wrapped domain error", fmt.Errorf("answer: %w", domain.ErrEmptyInput), http.StatusUnprocessableEntity},
		{"internal error", domain.ErrStorageOperationFail, http.StatusInternalServerError},
		{"non-domain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"generation", domain.GenerationError(errors.New("timeout")), http.StatusBadGateway, domain.ErrCodeGeneration, domain.UserMessage(domain.ErrGeneration)},
		{"validation", domain.ErrInvalidQuestion, http.StatusBadRequest, domain.ErrCodeValidation, "Could not answer: question is required"},
		{"not found", domain.ErrDocumentNotFound, http.StatusNotFound, domain.ErrCodeNotFound, "document not found"},
		{"foreign", errors.New("pq: secret detail"), http.StatusInternalServerError, "", "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var result ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, tt.code, result.Code)
			assert.Equal(t, tt.message, result.Error)
			assert.Equal(t, tt.code, w.Header().Get(ErrorCodeHeader))
		})
	}
}
