// Package ws implements the WebSocket surface (spec §6): one endpoint,
// parametrized by a session identifier that may be "new", a known SDK
// session id to resume, or an ephemeral connection id.
package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/session"
	"github.com/prime-system/prime-agent/pkg/logger"
	appjson "github.com/prime-system/prime-agent/pkg/utils/json"
)

const moduleName = "ws"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The relay sits behind the same bearer-auth boundary as the rest of
	// the API; origin checking adds nothing a same-origin browser client
	// needs and would only get in the way of native/CLI clients.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientEnvelope is the shape of every client → server message (spec §6).
type clientEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type userMessageData struct {
	Message string `json:"message"`
}

type askUserResponseData struct {
	QuestionID string                 `json:"question_id"`
	Answers    map[string]interface{} `json:"answers"`
	Cancelled  bool                   `json:"cancelled"`
}

// Handler upgrades HTTP requests to WebSocket connections and bridges
// them to the Agent Session Manager.
type Handler struct {
	sessions *session.Manager
}

func NewHandler(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// Serve handles GET /ws/:id.
func (h *Handler) Serve(c *gin.Context) {
	requestedID := c.Param("id")
	if requestedID == "new" {
		requestedID = ""
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorX(moduleName, "upgrade failed: %v", err)
		return
	}

	tr := newConn(ws)
	clientID := uuid.NewString()

	s := h.sessions.GetOrCreate(c.Request.Context(), requestedID)

	_ = tr.Send(event.Connected(clientID, s.SessionID()))
	_ = tr.Send(s.StatusSnapshot())

	buffered := h.sessions.Attach(s, clientID, tr)
	for _, ev := range buffered {
		_ = tr.Send(ev)
	}
	h.sessions.FinishReplay(s, clientID, tr)

	h.readLoop(s, clientID, tr)
}

func (h *Handler) readLoop(s *session.Session, clientID string, tr *conn) {
	defer h.sessions.Detach(s, clientID)

	for {
		_, raw, err := tr.ws.ReadMessage()
		if err != nil {
			return
		}

		var env clientEnvelope
		if err := appjson.Unmarshal(raw, &env); err != nil {
			logger.WarnX(moduleName, "session %s: malformed client message: %v", s.SessionID(), err)
			continue
		}

		switch env.Type {
		case "user_message":
			h.handleUserMessage(s, clientID, tr, env.Data)
		case "ask_user_response":
			h.handleAskUserResponse(s, clientID, tr, env.Data)
		case "interrupt":
			_ = tr.Send(event.Err("interrupt is not supported", false))
		default:
			logger.WarnX(moduleName, "session %s: unknown client message type %q", s.SessionID(), env.Type)
		}
	}
}

func (h *Handler) handleUserMessage(s *session.Session, clientID string, tr *conn, data json.RawMessage) {
	var payload userMessageData
	if err := appjson.Unmarshal(data, &payload); err != nil {
		_ = tr.Send(event.Err("invalid user_message payload", false))
		return
	}
	h.sessions.SendUserMessage(s, payload.Message, clientID, tr)
}

func (h *Handler) handleAskUserResponse(s *session.Session, clientID string, tr *conn, data json.RawMessage) {
	var payload askUserResponseData
	if err := appjson.Unmarshal(data, &payload); err != nil {
		return
	}
	h.sessions.SubmitAskUserResponse(s, payload.QuestionID, payload.Answers, payload.Cancelled, clientID, tr)
}
