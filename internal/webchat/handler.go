// Package webchat exposes the dialogue engine over a WebSocket for the
// embedded chat widget.
package webchat

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/morelandlabs/dentalagent/internal/agent"
	"github.com/morelandlabs/dentalagent/internal/http/handlers"
	"github.com/morelandlabs/dentalagent/pkg/logging"
)

// Handler serves real-time chat sessions.
type Handler struct {
	engine handlers.TurnProcessor
	logger *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string         `json:"type"` // "message", "pong", "error"
	Text      string         `json:"text,omitempty"`
	Buttons   []agent.Button `json:"buttons,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// NewHandler creates a webchat handler.
func NewHandler(engine handlers.TurnProcessor, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("webchat: turn processor required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// HandleWebSocket upgrades to WebSocket and runs the session loop. The actor
// is identified by the actor and role query parameters.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	actor, ok := actorFromQuery(r)
	if !ok {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "actor and role parameters required"})
		return
	}

	h.logger.Info("webchat: connection opened", "actor", actor.Key())
	defer h.logger.Debug("webchat: connection closed", "actor", actor.Key())

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		resp := h.engine.ProcessTurn(r.Context(), actor, msg.Text)
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Text:      resp.Text,
			Buttons:   resp.Buttons,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func actorFromQuery(r *http.Request) (agent.Actor, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("actor"), 10, 64)
	if err != nil || id <= 0 {
		return agent.Actor{}, false
	}
	role := agent.Role(strings.ToLower(r.URL.Query().Get("role")))
	if role != agent.RoleDoctor && role != agent.RolePatient {
		return agent.Actor{}, false
	}
	return agent.Actor{ID: id, Role: role}, true
}
