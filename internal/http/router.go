package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docchat/internal/handlers"
	"docchat/internal/service"
	"docchat/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService service.ChatService
	Pipeline    handlers.DocumentIndexer
	Documents   storage.DocumentStore
	History     storage.HistoryStore
	Health      handlers.CollectionChecker
	Collection  string
	UploadDir   string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	documentsHandler := handlers.NewDocumentsHandler(deps.Pipeline, deps.Documents, deps.History, deps.UploadDir)
	historyHandler := handlers.NewHistoryHandler(deps.ChatService)
	healthHandler := handlers.NewHealthHandler(deps.Health, deps.Collection)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodPost, "/chat", chatHandler)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documentsHandler.Upload)
			r.Get("/", documentsHandler.List)

			r.Route("/{documentID}", func(r chi.Router) {
				r.Get("/", documentsHandler.Status)
				r.Delete("/", documentsHandler.Delete)
				r.Get("/history", historyHandler.Get)
				r.Delete("/history", historyHandler.Clear)
			})
		})
	})

	return r
}
