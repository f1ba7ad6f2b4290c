package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/konverge/devhub/internal/middleware"
	ws "github.com/konverge/devhub/internal/websocket"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	hub           *ws.Hub
	editorHandler *EditorHandler
	upgrader      websocket.Upgrader
}

// NewWebSocketHandler создает новый WebSocket handler
func NewWebSocketHandler(hub *ws.Hub, editorHandler *EditorHandler) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		editorHandler: editorHandler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: Проверить origin в prod
				return true
			},
		},
	}
}

// HandleWebSocket обрабатывает WebSocket соединения. Личность восстановлена
// из claims токена, фиксируется один раз здесь и дальше неизменной живет
// в Client.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	caller, exists := c.Get(middleware.IdentityKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	who := caller.(middleware.Identity)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, ws.Identity{
		ID:       who.ID,
		Email:    who.Email,
		Username: who.Username,
	})

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.editorHandler)
}
