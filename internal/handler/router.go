package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/travela2a/concierge/backend/internal/handler/agents"
	"github.com/travela2a/concierge/backend/internal/handler/chat"
	"github.com/travela2a/concierge/backend/internal/handler/stream"
	"github.com/travela2a/concierge/backend/internal/handler/ws"
	"github.com/travela2a/concierge/backend/internal/model/agent"
	"github.com/travela2a/concierge/backend/internal/service/session"
	"github.com/travela2a/concierge/backend/internal/service/turn"
	"github.com/travela2a/concierge/backend/pkg/utils"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Agents   agent.Store
	Querier  agents.Querier
	Store    *session.Store
	Hub      *turn.Hub
	Greeting string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", handleHealth)

		agents.New(deps.Agents, deps.Querier).RegisterRoutes(api)
		chat.New(deps.Store, deps.Hub).RegisterRoutes(api)
		stream.New(deps.Hub).RegisterRoutes(api)
		ws.New(deps.Hub, deps.Greeting).RegisterRoutes(api)
	})

	return r
}

// handleHealth reports liveness; it does not depend on any session.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
