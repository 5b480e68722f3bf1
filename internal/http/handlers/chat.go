// Package handlers contains the HTTP handlers for the dialogue API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/morelandlabs/dentalagent/internal/agent"
	"github.com/morelandlabs/dentalagent/pkg/logging"
)

// TurnProcessor runs one dialogue turn. Satisfied by *agent.Engine.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, actor agent.Actor, message string) *agent.Response
}

// ChatHandler serves the synchronous chat API.
type ChatHandler struct {
	engine TurnProcessor
	logger *logging.Logger
}

// NewChatHandler creates the chat handler.
func NewChatHandler(engine TurnProcessor, logger *logging.Logger) *ChatHandler {
	if engine == nil {
		panic("handlers: turn processor required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{engine: engine, logger: logger}
}

type chatRequest struct {
	ActorID int64  `json:"actor_id"`
	Role    string `json:"role"`
	Text    string `json:"text"`
}

// Message handles POST /chat/message.
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	role := agent.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if role != agent.RoleDoctor && role != agent.RolePatient {
		http.Error(w, "role must be doctor or patient", http.StatusBadRequest)
		return
	}
	if req.ActorID <= 0 {
		http.Error(w, "actor_id is required", http.StatusBadRequest)
		return
	}

	resp := h.engine.ProcessTurn(r.Context(), agent.Actor{ID: req.ActorID, Role: role}, req.Text)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("chat: encode response", "error", err)
	}
}

// Health handles GET /health.
func (h *ChatHandler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
