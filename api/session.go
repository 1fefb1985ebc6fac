package api

import (
	"errors"
	"net/http"

	"github.com/lorewarden/lorewarden/internal/log"
	"github.com/lorewarden/lorewarden/internal/session"
)

// SessionHandler handles chat listing and history endpoints.
type SessionHandler struct {
	agent  Agent
	store  Store
	logger log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(agent Agent, store Store, logger log.Logger) *SessionHandler {
	return &SessionHandler{agent: agent, store: store, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/chats", h.list)
	mux.HandleFunc("GET /api/chats/{id}/messages", h.messages)
}

// list returns all chats with their message counts.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	infos, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list chats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list chats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chats": infos,
		"total": len(infos),
	})
}

// MessagesResponse is the response body for a chat history request.
type MessagesResponse struct {
	ChatID   string            `json:"chat_id"`
	Messages []session.Message `json:"messages"`
}

// messages returns the ordered history of one chat.
func (h *SessionHandler) messages(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")

	msgs, err := h.agent.History(r.Context(), chatID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "unknown chat id")
			return
		}
		h.logger.Error("failed to load history", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, MessagesResponse{ChatID: chatID, Messages: msgs})
}
