package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightforge/sitechat/internal/api"
	"github.com/brightforge/sitechat/internal/api/handlers"
	"github.com/brightforge/sitechat/internal/api/middleware"
)

type RouterConfig struct {
	ChatHandler  *handlers.ChatHandler
	IndexHandler *handlers.IndexHandler
	ViewsHandler *handlers.ViewsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/chat", cfg.ChatHandler.Chat)
	r.Get("/sessions/{id}/history", cfg.ChatHandler.History)

	r.Get("/views/{kind}", cfg.ViewsHandler.Get)

	r.Route("/index", func(r chi.Router) {
		r.Get("/status", cfg.IndexHandler.Status)
		r.Post("/rebuild", cfg.IndexHandler.Rebuild)
	})

	return r
}
