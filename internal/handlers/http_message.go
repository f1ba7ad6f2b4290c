package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/internal/middleware"
	"github.com/konverge/devhub/internal/models"
)

type HTTPMessageHandler struct {
	db *database.Database
}

func NewHTTPMessageHandler(db *database.Database) *HTTPMessageHandler {
	return &HTTPMessageHandler{db: db}
}

// GetRoomMessages получает историю сообщений комнаты
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID := c.Param("id")

	room, err := h.db.GetRoom(roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if !isMember(room, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this room"})
		return
	}

	// Параметры пагинации
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	var beforeID *uuid.UUID
	if before := c.Query("before"); before != "" {
		if id, err := uuid.Parse(before); err == nil {
			beforeID = &id
		}
	}

	messages, err := h.db.GetRoomMessages(roomID, limit, beforeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	result := make([]gin.H, len(messages))
	for i, msg := range messages {
		result[i] = formatMessageResponse(&msg)
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": result,
		"has_more": len(messages) == limit,
	})
}

// SendMessage отправляет сообщение через HTTP (альтернатива WebSocket)
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomIDStr := c.Param("id")

	roomID, err := uuid.Parse(roomIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	room, err := h.db.GetRoom(roomIDStr)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if !isMember(room, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this room"})
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message := &models.Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		UserID:    userID,
		Content:   req.Text,
		CreatedAt: time.Now(),
	}

	if err := h.db.SaveMessage(message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
		return
	}

	fullMessage, _ := h.db.GetMessage(message.ID.String())

	c.JSON(http.StatusCreated, formatMessageResponse(fullMessage))
}

// formatMessageResponse форматирует ответ для сообщения
func formatMessageResponse(msg *models.Message) gin.H {
	response := gin.H{
		"id":         msg.ID,
		"room_id":    msg.RoomID,
		"user_id":    msg.UserID,
		"content":    msg.Content,
		"created_at": msg.CreatedAt,
	}

	// Если загружена информация о пользователе
	if msg.User.ID != uuid.Nil {
		response["user"] = gin.H{
			"id":         msg.User.ID,
			"username":   msg.User.Username,
			"avatar_url": msg.User.AvatarURL,
		}
	}

	return response
}
