package stream

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/travela2a/concierge/backend/internal/service/turn"
	"github.com/travela2a/concierge/backend/pkg/utils"
)

// Handler streams one turn per request as Server-Sent Events. It shares the
// session runner with WebSocket connections, so turns from both transports
// are serialized together.
type Handler struct {
	hub  *turn.Hub
	busy string
}

// New creates a stream handler.
func New(hub *turn.Hub) *Handler {
	return &Handler{hub: hub, busy: turn.DefaultMessages.Busy}
}

// RegisterRoutes mounts the streaming endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// TurnStarted is sent as the "turn" event before any frame.
type TurnStarted struct {
	SessionID string `json:"session_id"`
	TurnID    uint64 `json:"turn_id"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	runner, detach := h.hub.Attach(sessionID, false, nil)
	defer detach()

	t, err := runner.Submit(message)
	if errors.Is(err, turn.ErrRunnerClosed) {
		utils.RespondError(w, http.StatusServiceUnavailable, h.busy)
		return
	}
	if err != nil {
		log.Printf("[stream] session=%s submit failed: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEEvent(w, flusher, "turn", TurnStarted{SessionID: sessionID, TurnID: t.ID})

	ctx := r.Context()
	for {
		f, ok := t.Next(ctx)
		if !ok {
			break
		}
		utils.SendSSEChunk(w, flusher, f)
	}

	if ctx.Err() != nil {
		t.Abandon()
		log.Printf("[stream] session=%s turn=%d client went away", sessionID, t.ID)
		return
	}
	log.Printf("[stream] session=%s turn=%d completed", sessionID, t.ID)
}
