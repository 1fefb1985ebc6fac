package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/lorewarden/lorewarden/internal/completion"
	"github.com/lorewarden/lorewarden/internal/log"
	"github.com/lorewarden/lorewarden/internal/session"
)

// Question validation bounds (characters, after trimming).
const (
	MinQuestionLength = 3
	MaxQuestionLength = 1000
)

// ChatHandler handles the chat turn endpoint.
type ChatHandler struct {
	agent  Agent
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(agent Agent, logger log.Logger) *ChatHandler {
	return &ChatHandler{agent: agent, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
}

// ChatRequest is the request body for a conversation turn. ChatID is
// optional: empty starts a new chat.
type ChatRequest struct {
	ChatID   string `json:"chat_id"`
	Question string `json:"question"`
}

// ChatResponse is the response body for a conversation turn.
// SourceRestricted reports whether the answer was a domain-restriction
// refusal rather than knowledge-base content.
type ChatResponse struct {
	ChatID           string `json:"chat_id"`
	Answer           string `json:"answer"`
	SourceRestricted bool   `json:"source_restricted"`
}

// chat runs one conversation turn.
func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if utf8.RuneCountInString(req.Question) < MinQuestionLength {
		writeError(w, http.StatusBadRequest, "invalid_request",
			"question must be at least 3 characters")
		return
	}
	if utf8.RuneCountInString(req.Question) > MaxQuestionLength {
		writeError(w, http.StatusBadRequest, "invalid_request",
			"question must be at most 1000 characters")
		return
	}

	turn, err := h.agent.Send(r.Context(), req.ChatID, req.Question)
	if err != nil {
		h.writeSendError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		ChatID:           turn.ChatID,
		Answer:           turn.Answer,
		SourceRestricted: turn.Refused,
	})
}

// writeSendError maps core failures to status codes. A refusal never lands
// here: it is a successful turn.
func (h *ChatHandler) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "unknown chat id")
	case errors.Is(err, completion.ErrTimeout):
		h.logger.Error("completion timed out", "error", err)
		writeError(w, http.StatusGatewayTimeout, "provider_timeout", "AI provider timed out")
	case errors.Is(err, completion.ErrUnavailable):
		h.logger.Error("completion unavailable", "error", err)
		writeError(w, http.StatusBadGateway, "provider_error", "AI provider error")
	case errors.Is(err, session.ErrPersistence):
		h.logger.Error("persistence failure", "error", err)
		writeError(w, http.StatusServiceUnavailable, "persistence_error",
			"could not persist the turn, please retry")
	default:
		h.logger.Error("chat turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
