package chat

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/travela2a/concierge/backend/internal/service/session"
	"github.com/travela2a/concierge/backend/internal/service/turn"
	"github.com/travela2a/concierge/backend/pkg/utils"
)

// Handler exposes session lifecycle over REST.
type Handler struct {
	store *session.Store
	hub   *turn.Hub
}

// New creates the session handler.
func New(store *session.Store, hub *turn.Hub) *Handler {
	return &Handler{
		store: store,
		hub:   hub,
	}
}

// RegisterRoutes mounts the session endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/sessions/{sessionID}", h.handleDeleteSession)
}

// SessionView is the audit view of a session.
type SessionView struct {
	session.Context
	Live    bool   `json:"live"`
	Summary string `json:"summary"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Create(r.Context(), uuid.NewString())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("[session] created session=%s", sess.ID)
	utils.RespondJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if !h.store.Exists(sessionID) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	snap, err := h.store.Snapshot(r.Context(), sessionID, 0)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, SessionView{
		Context: snap,
		Live:    h.hub.Live(sessionID),
		Summary: snap.Summary(),
	})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}

	closed := h.hub.Close(sessionID)
	if !closed && !h.store.Exists(sessionID) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err := h.store.Discard(r.Context(), sessionID); err != nil {
		log.Printf("[session] discard failed session=%s: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	utils.RespondNoContent(w)
}
