package handlers

import (
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/chat"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSChatRequest is one inbound frame: a single query against the
// connection's session.
type WSChatRequest struct {
	Query string `json:"query"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	// 64KB Read Buffer
	ReadBufferSize: 64 * 1024,
	// 64KB Write Buffer
	WriteBufferSize: 64 * 1024,
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleChatWebSocket runs the chat pipeline over a websocket. The session
// is fixed at connect time via ?session_id=; each text frame carries one
// query and receives the same JSON body POST /v1/chat would produce.
func HandleChatWebSocket(svc *chat.Service, maxQueryLen int) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Query("session_id")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id query parameter is required"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("Websocket client connected", "session_id", sessionID)

		for {
			var req WSChatRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("Websocket client disconnected", "error", err.Error())
				break
			}

			ctx := c.Request.Context()

			// Same validation the POST endpoint applies, surfaced as a frame
			// instead of a status code.
			turn := datatypes.ChatRequest{SessionID: sessionID, Query: req.Query}
			if err := turn.Validate(maxQueryLen); err != nil {
				if sendJSON(ws, gin.H{"error": err.Error()}) != nil {
					return
				}
				continue
			}

			resp, errEnv := svc.ProcessChat(ctx, sessionID, req.Query)
			if errEnv != nil {
				if sendJSON(ws, errEnv) != nil {
					return
				}
				continue
			}
			if sendJSON(ws, resp) != nil {
				return
			}
		}
	}
}
