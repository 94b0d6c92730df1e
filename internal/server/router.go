package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/parley/internal/api"
	"github.com/cloo-solutions/parley/internal/api/handlers"
	"github.com/cloo-solutions/parley/internal/api/middleware"
)

type RouterConfig struct {
	// APIToken guards the API when non-empty.
	APIToken string

	ConversationHandler *handlers.ConversationHandler
	ChatHandler         *handlers.ChatHandler
	DomainHandler       *handlers.DomainHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.APIToken))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", cfg.ConversationHandler.Create)
			r.Get("/", cfg.ConversationHandler.List)
			r.Post("/{id}/chat", cfg.ChatHandler.Chat)
			r.Get("/{id}/history", cfg.ConversationHandler.History)
		})

		r.Route("/domains", func(r chi.Router) {
			r.Post("/records", cfg.DomainHandler.AddRecord)
			r.Get("/{domain}/records", cfg.DomainHandler.ListRecords)
			r.Post("/{domain}/import", cfg.DomainHandler.Import)
		})
	})

	return r
}
