package agents

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/travela2a/concierge/backend/internal/model/agent"
	"github.com/travela2a/concierge/backend/internal/service/orchestrator"
	"github.com/travela2a/concierge/backend/pkg/utils"
)

// Querier runs one agent directly. orchestrator.Orchestrator satisfies it.
type Querier interface {
	Query(ctx context.Context, key agent.Key, text string) (string, error)
}

// Handler serves the agent registry and direct agent queries.
type Handler struct {
	agents  agent.Store
	querier Querier
}

// New creates the agents handler.
func New(agents agent.Store, querier Querier) *Handler {
	return &Handler{
		agents:  agents,
		querier: querier,
	}
}

// RegisterRoutes mounts the agent endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/agents", h.handleListAgents)
	r.Post("/agents/{agentKey}/query", h.handleQuery)
}

// QueryRequest is the body of a direct agent query.
type QueryRequest struct {
	Message string `json:"message"`
}

// QueryResponse carries the agent reply.
type QueryResponse struct {
	Agent agent.Key `json:"agent"`
	Reply string    `json:"reply"`
}

func (h *Handler) handleListAgents(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.agents.List())
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	key := agent.Key(chi.URLParam(r, "agentKey"))
	if _, ok := h.agents.Find(key); !ok {
		utils.RespondError(w, http.StatusNotFound, "agent not found")
		return
	}

	var payload QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.querier.Query(r.Context(), key, message)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, QueryResponse{Agent: key, Reply: reply})
	case errors.Is(err, agent.ErrUnknownAgent):
		utils.RespondError(w, http.StatusNotFound, "agent not found")
	case errors.Is(err, orchestrator.ErrExecutorUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, "agent execution unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		utils.RespondError(w, http.StatusGatewayTimeout, "agent timed out")
	default:
		log.Printf("[agents] query agent=%s failed: %v", key, err)
		utils.RespondError(w, http.StatusBadGateway, "agent query failed")
	}
}
