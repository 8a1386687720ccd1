package api

import (
	"net/http"

	"github.com/ashureev/chatprobe/internal/agent"
	"github.com/ashureev/chatprobe/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	return r
}

// NewPrimaryRouter returns the stub primary service.
func NewPrimaryRouter(processor agent.Processor) http.Handler {
	r := newRouter()
	NewPrimaryHandler(processor).RegisterRoutes(r)
	return r
}

// NewBackendRouter returns the stub backend service.
func NewBackendRouter(svc *agent.Service, tokens map[string]string) http.Handler {
	r := newRouter()
	NewChatHandler(svc, tokens).RegisterRoutes(r)
	return r
}
