package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/deckwars-server/internal/hub"
	"github.com/DoyleJ11/deckwars-server/internal/ws"
)

func SetupRoutes(h *hub.Hub, wsOpts ws.Options, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(log))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/sessions", ListSessions(h))
	r.Get("/stats", GetStats(h))
	r.Get("/ws", ws.Handler(h, wsOpts, log))
	return r
}
