package handlers

import (
	"net/http"

	"github.com/votewise/votewise/internal/api"
	"github.com/votewise/votewise/internal/service"
)

type HealthHandler struct {
	index *service.Index
}

func NewHealthHandler(index *service.Index) *HealthHandler {
	return &HealthHandler{index: index}
}

type HealthResponse struct {
	Status         string `json:"status"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	Dimensions     int    `json:"dimensions,omitempty"`
	Passages       int    `json:"passages"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if h.index != nil {
		meta := h.index.Meta()
		resp.EmbeddingModel = meta.EmbeddingModel
		resp.Dimensions = meta.Dimensions
		resp.Passages = h.index.PassageCount()
	}
	api.Success(w, http.StatusOK, resp)
}
