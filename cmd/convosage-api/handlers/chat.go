package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/chat"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/monitoring"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
)

// maxMessageLength bounds a single chat message.
const maxMessageLength = 2000

// ChatHandler handles the conversational endpoints.
type ChatHandler struct {
	logger     *observability.Logger
	dispatcher *chat.Dispatcher
	usage      *monitoring.Usage
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(dispatcher *chat.Dispatcher, usage *monitoring.Usage, logger *observability.Logger) *ChatHandler {
	return &ChatHandler{
		logger:     logger,
		dispatcher: dispatcher,
		usage:      usage,
	}
}

// chatRequest is the POST /chat payload.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}
	if len(req.Message) > maxMessageLength {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("message exceeds %d characters", maxMessageLength))
		return
	}

	reply := h.dispatcher.Dispatch(r.Context(), req.SessionID, req.Message)
	writeJSON(w, http.StatusOK, reply)
}

// historyResponse wraps a session transcript with its metadata.
type historyResponse struct {
	SessionID string           `json:"session_id"`
	History   []chat.Message   `json:"history"`
	Metadata  chat.SessionInfo `json:"metadata"`
}

// History handles GET /chat/history/{sessionID}.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	history, ok := h.dispatcher.Sessions().History(sessionID)
	info, infoOK := h.dispatcher.Sessions().Info(sessionID)
	if !ok && !infoOK {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	if history == nil {
		history = []chat.Message{}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		SessionID: sessionID,
		History:   history,
		Metadata:  info,
	})
}

// DeleteSession handles DELETE /chat/sessions/{sessionID}. Deleting an
// unknown session still succeeds.
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	h.dispatcher.Sessions().Delete(sessionID)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted successfully", sessionID),
	})
}

// statsResponse combines session counters with tool usage.
type statsResponse struct {
	ActiveSessions int                   `json:"active_sessions"`
	TotalMessages  int                   `json:"total_messages"`
	Usage          monitoring.UsageStats `json:"usage"`
}

// Stats handles GET /chat/stats.
func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.dispatcher.Sessions().Stats()

	resp := statsResponse{
		ActiveSessions: stats.ActiveSessions,
		TotalMessages:  stats.TotalMessages,
	}
	if h.usage != nil {
		resp.Usage = h.usage.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}
