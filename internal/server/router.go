package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/votewise/votewise/internal/api/handlers"
	"github.com/votewise/votewise/internal/api/middleware"
)

type RouterConfig struct {
	// APIToken guards every route except /health. Empty disables the check.
	APIToken        string
	AnswerHandler   *handlers.AnswerHandler
	DocumentHandler *handlers.DocumentHandler
	HealthHandler   *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 64 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(cfg.APIToken))

		r.Post("/ask", cfg.AnswerHandler.Ask)
		r.Post("/search", cfg.AnswerHandler.Search)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", cfg.DocumentHandler.List)
			r.Post("/sync", cfg.DocumentHandler.Sync)
		})
	})

	return r
}
