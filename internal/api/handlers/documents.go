package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/votewise/votewise/internal/api"
	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/service"
)

type DocumentLister interface {
	List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error)
}

// DocumentSyncer scans the document source and queues new or changed files.
type DocumentSyncer interface {
	Sync(ctx context.Context, force bool) (*service.SyncResult, error)
}

type DocumentHandler struct {
	lister DocumentLister
	syncer DocumentSyncer
}

// NewDocumentHandler creates a document handler. syncer may be nil when no
// document source is configured.
func NewDocumentHandler(lister DocumentLister, syncer DocumentSyncer) *DocumentHandler {
	return &DocumentHandler{lister: lister, syncer: syncer}
}

type DocumentResponse struct {
	ID           string  `json:"id"`
	SourceKey    string  `json:"source_key"`
	Title        string  `json:"title"`
	Status       string  `json:"status"`
	Retries      int32   `json:"retries"`
	Error        string  `json:"error,omitempty"`
	PassageCount int     `json:"passage_count"`
	CreatedAt    string  `json:"created_at"`
	IndexedAt    *string `json:"indexed_at,omitempty"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.lister.List(r.Context(), service.ListDocumentsInput{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(output.Items))
	for i, d := range output.Items {
		items[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   items,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

// Sync queues documents for the background worker and returns 202.
func (h *DocumentHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		api.Error(w, http.StatusServiceUnavailable, "no document source configured")
		return
	}

	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	result, err := h.syncer.Sync(r.Context(), force)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, result)
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:           d.ID,
		SourceKey:    d.SourceKey,
		Title:        d.Title,
		Status:       string(d.Status),
		Retries:      d.Retries,
		Error:        d.Error,
		PassageCount: d.PassageCount,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
	}
	if d.IndexedAt != nil {
		s := d.IndexedAt.Format(time.RFC3339)
		resp.IndexedAt = &s
	}
	return resp
}
