package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/internal/handlers/dto"
	"github.com/konverge/devhub/internal/middleware"
	"github.com/konverge/devhub/internal/services"
	"github.com/konverge/devhub/internal/websocket"
)

// AIHandler принимает вопрос к ассистенту и ретранслирует полученный дифф
// всем участникам канала файла, включая инициатора
type AIHandler struct {
	db        *database.Database
	assistant *services.Assistant
	hub       *websocket.Hub
}

func NewAIHandler(db *database.Database, assistant *services.Assistant, hub *websocket.Hub) *AIHandler {
	return &AIHandler{db: db, assistant: assistant, hub: hub}
}

// Query — POST /ai/query
func (h *AIHandler) Query(c *gin.Context) {
	caller := middleware.CurrentIdentity(c)

	var req struct {
		RoomID   uuid.UUID `json:"room_id" binding:"required"`
		FileID   uuid.UUID `json:"file_id"`
		Question string    `json:"question" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.db.IsRoomMember(req.RoomID, caller.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this room"})
		return
	}

	result, err := h.assistant.Query(c.Request.Context(), caller.ID, req.RoomID, req.FileID, req.Question)
	if err != nil {
		respondError(c, err)
		return
	}

	// Предложенный дифф видят все живые участники канала файла
	if result.Diff != "" {
		h.broadcastDiff(req.RoomID, req.FileID, caller, result)
	}

	c.JSON(http.StatusOK, result)
}

func (h *AIHandler) broadcastDiff(roomID, fileID uuid.UUID, caller middleware.Identity, result *services.AssistantResult) {
	payload, err := json.Marshal(dto.DiffBroadcast{
		FileID:        fileID,
		Diff:          result.Diff,
		SuggestedCode: result.SuggestedCode,
		AppliedBy:     caller.Email,
	})
	if err != nil {
		return
	}

	data, err := json.Marshal(websocket.Message{
		Type:        websocket.TypeEditorDiff,
		Data:        payload,
		SenderEmail: caller.Email,
		SenderName:  caller.Username,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return
	}

	h.hub.BroadcastToAll(websocket.FileChannel(roomID, fileID), data)
}
