package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/internal/middleware"
	"github.com/konverge/devhub/internal/models"
	"github.com/konverge/devhub/internal/websocket"
)

type RoomHandler struct {
	db  *database.Database
	hub *websocket.Hub
}

func NewRoomHandler(db *database.Database, hub *websocket.Hub) *RoomHandler {
	return &RoomHandler{db: db, hub: hub}
}

// CreateRoom создает новую комнату. Создатель сразу становится участником
// и попадает в список приглашенных.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	caller := middleware.CurrentIdentity(c)

	var req struct {
		Name          string   `json:"name" binding:"required"`
		InvitedEmails []string `json:"invited_emails"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room := &models.Room{
		ID:        uuid.New(),
		Name:      req.Name,
		CreatedBy: caller.ID,
		CreatedAt: time.Now(),
	}

	if err := h.db.CreateRoom(room); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	if err := h.db.AddUserToRoom(caller.ID.String(), room.ID.String()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add creator to room"})
		return
	}

	// Создатель всегда в списке приглашенных
	emails := append([]string{caller.Email}, req.InvitedEmails...)
	if err := h.db.AddRoomInvites(room.ID, emails); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save invites"})
		return
	}

	fullRoom, _ := h.db.GetRoom(room.ID.String())

	c.JSON(http.StatusCreated, formatRoomResponse(fullRoom))
}

// JoinRoom добавляет пользователя в комнату, если его email приглашен
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	caller := middleware.CurrentIdentity(c)
	roomID := c.Param("id")

	room, err := h.db.GetRoom(roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	invited, err := h.db.IsInvited(room.ID, caller.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check invite"})
		return
	}
	if !invited {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not invited to this room"})
		return
	}

	// Повторный join идемпотентен
	if member, _ := h.db.IsRoomMember(room.ID, caller.ID); !member {
		if err := h.db.AddUserToRoom(caller.ID.String(), roomID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "joined room successfully"})
}

// GetMyRooms получает список комнат пользователя
func (h *RoomHandler) GetMyRooms(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	rooms, err := h.db.GetUserRooms(userID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rooms"})
		return
	}

	roomsResponse := make([]gin.H, len(rooms))
	for i, room := range rooms {
		roomResponse := formatRoomResponse(&room)

		// Последнее сообщение для превью
		messages, _ := h.db.GetRoomMessages(room.ID.String(), 1, nil)
		if len(messages) > 0 {
			roomResponse["last_message"] = gin.H{
				"id":         messages[0].ID,
				"content":    messages[0].Content,
				"user_id":    messages[0].UserID,
				"created_at": messages[0].CreatedAt,
			}
		}

		roomsResponse[i] = roomResponse
	}

	c.JSON(http.StatusOK, gin.H{"rooms": roomsResponse})
}

// GetRoom получает информацию о конкретной комнате
func (h *RoomHandler) GetRoom(c *gin.Context) {
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

	response := formatRoomResponse(room)
	response["online_users"] = h.hub.ChannelMembers(websocket.ChatChannel(room.ID))

	c.JSON(http.StatusOK, response)
}

// GetRoomMembers получает список участников комнаты с онлайн статусом
func (h *RoomHandler) GetRoomMembers(c *gin.Context) {
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

	members := make([]gin.H, len(room.Members))
	for i, member := range room.Members {
		members[i] = gin.H{
			"id":           member.ID,
			"username":     member.Username,
			"avatar_url":   member.AvatarURL,
			"last_seen_at": member.LastSeenAt,
			"is_online":    h.hub.IsOnline(member.ID),
			"is_creator":   member.ID == room.CreatedBy,
		}
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// DeleteRoom удаляет комнату вместе с файлами, историей и сообщениями
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID := c.Param("id")

	room, err := h.db.GetRoom(roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	// Только создатель может удалить комнату
	if room.CreatedBy != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only room creator can delete room"})
		return
	}

	if err := h.db.DeleteRoom(roomID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "room deleted successfully"})
}

func isMember(room *models.Room, userID uuid.UUID) bool {
	for _, member := range room.Members {
		if member.ID == userID {
			return true
		}
	}
	return false
}

// formatRoomResponse форматирует ответ для комнаты
func formatRoomResponse(room *models.Room) gin.H {
	members := make([]gin.H, len(room.Members))
	for i, member := range room.Members {
		members[i] = gin.H{
			"id":         member.ID,
			"username":   member.Username,
			"avatar_url": member.AvatarURL,
		}
	}

	invited := make([]string, len(room.Invites))
	for i, invite := range room.Invites {
		invited[i] = invite.Email
	}

	return gin.H{
		"id":             room.ID,
		"name":           room.Name,
		"created_by":     room.CreatedBy,
		"created_at":     room.CreatedAt,
		"members":        members,
		"invited_emails": invited,
	}
}
