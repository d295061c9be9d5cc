package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/votewise/votewise/internal/api"
	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/service"
)

// MaxK bounds the number of passages a client may request.
const MaxK = 50

type AnswerService interface {
	Answer(ctx context.Context, input service.AskInput) (*domain.Answer, error)
	Search(ctx context.Context, input service.AskInput) ([]domain.Passage, error)
}

type AnswerHandler struct {
	svc AnswerService
}

func NewAnswerHandler(svc AnswerService) *AnswerHandler {
	return &AnswerHandler{svc: svc}
}

type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

type PassageResponse struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id,omitempty"`
	Source     string  `json:"source,omitempty"`
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type FailedChunkResponse struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type AnswerResponse struct {
	Question     string                `json:"question"`
	Answer       string                `json:"answer"`
	Passages     []PassageResponse     `json:"passages"`
	ChunkCount   int                   `json:"chunk_count"`
	FailedChunks []FailedChunkResponse `json:"failed_chunks,omitempty"`
	Cached       bool                  `json:"cached"`
}

type SearchResponse struct {
	Question string            `json:"question"`
	Passages []PassageResponse `json:"passages"`
}

func (h *AnswerHandler) Ask(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeAskRequest(w, r)
	if !ok {
		return
	}

	answer, err := h.svc.Answer(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answerToResponse(answer))
}

func (h *AnswerHandler) Search(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeAskRequest(w, r)
	if !ok {
		return
	}

	passages, err := h.svc.Search(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SearchResponse{
		Question: input.Question,
		Passages: passagesToResponse(passages),
	})
}

func decodeAskRequest(w http.ResponseWriter, r *http.Request) (service.AskInput, bool) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return service.AskInput{}, false
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		api.HandleError(w, domain.ErrInvalidQuestion)
		return service.AskInput{}, false
	}
	if req.K < 0 || req.K > MaxK {
		api.HandleError(w, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("k must be between 1 and %d", MaxK)))
		return service.AskInput{}, false
	}

	return service.AskInput{Question: question, K: req.K}, true
}

func answerToResponse(a *domain.Answer) AnswerResponse {
	resp := AnswerResponse{
		Question:   a.Question,
		Answer:     a.Text,
		Passages:   passagesToResponse(a.Passages),
		ChunkCount: a.ChunkCount,
		Cached:     a.Cached,
	}
	for _, f := range a.Failed {
		resp.FailedChunks = append(resp.FailedChunks, FailedChunkResponse{
			Index: f.Index,
			Error: domain.UserMessage(f.Err),
		})
	}
	return resp
}

func passagesToResponse(passages []domain.Passage) []PassageResponse {
	out := make([]PassageResponse, len(passages))
	for i, p := range passages {
		out[i] = PassageResponse{
			ID:         p.ID,
			DocumentID: p.DocumentID,
			Source:     p.Source,
			Index:      p.Index,
			Text:       p.Text,
			Score:      p.Score,
		}
	}
	return out
}
