package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/votewise/votewise/internal/api/handlers"
	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/service"
)

const testToken = "s3cret-token"

type MockAnswerService struct {
	mock.Mock
}

func (m *MockAnswerService) Answer(ctx context.Context, input service.AskInput) (*domain.Answer, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Answer), args.Error(1)
}

func (m *MockAnswerService) Search(ctx context.Context, input service.AskInput) ([]domain.Passage, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Passage), args.Error(1)
}

type MockDocumentLister struct {
	mock.Mock
}

func (m *MockDocumentLister) List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListDocumentsOutput), args.Error(1)
}

func setupRouter(token string) (http.Handler, *MockAnswerService, *MockDocumentLister) {
	answerSvc := new(MockAnswerService)
	lister := new(MockDocumentLister)

	router := NewRouter(RouterConfig{
		APIToken:        token,
		AnswerHandler:   handlers.NewAnswerHandler(answerSvc),
		DocumentHandler: handlers.NewDocumentHandler(lister, nil),
		HealthHandler:   handlers.NewHealthHandler(nil),
	})
	return router, answerSvc, lister
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _ := setupRouter(testToken)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, answerSvc, lister := setupRouter(testToken)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/ask"},
		{http.MethodPost, "/search"},
		{http.MethodGet, "/documents"},
		{http.MethodPost, "/documents/sync"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			req.Header.Set("Authorization", "Bearer wrong")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	answerSvc.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything)
	lister.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestRouter_Ask_WithValidAuth(t *testing.T) {
	router, answerSvc, _ := setupRouter(testToken)

	answerSvc.On("Answer", mock.Anything, service.AskInput{Question: "Wat wil Vooruit?"}).Return(&domain.Answer{
		Question: "Wat wil Vooruit?",
		Text:     "Vooruit wil hogere pensioenen.",
	}, nil)

	body, _ := json.Marshal(map[string]string{"question": "Wat wil Vooruit?"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	answerSvc.AssertExpectations(t)
}

func TestRouter_NoTokenConfigured(t *testing.T) {
	router, _, lister := setupRouter("")

	lister.On("List", mock.Anything, service.ListDocumentsInput{Limit: 20}).Return(&service.ListDocumentsOutput{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	lister.AssertExpectations(t)
}

func TestRouter_SyncWithoutSource(t *testing.T) {
	router, _, _ := setupRouter("")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/documents/sync", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_BodyTooLarge(t *testing.T) {
	router, answerSvc, _ := setupRouter("")

	big := bytes.Repeat([]byte("a"), 128*1024)
	body, _ := json.Marshal(map[string]string{"question": string(big)})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	answerSvc.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything)
}
