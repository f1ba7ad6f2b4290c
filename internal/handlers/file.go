package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/internal/middleware"
	"github.com/konverge/devhub/internal/models"
	"github.com/konverge/devhub/internal/services"
)

// FileHandler — REST для файлов комнаты и их истории версий
type FileHandler struct {
	db        *database.Database
	files     *services.FileService
	snapshots *services.SnapshotService
}

func NewFileHandler(db *database.Database, files *services.FileService, snapshots *services.SnapshotService) *FileHandler {
	return &FileHandler{db: db, files: files, snapshots: snapshots}
}

// ListFiles возвращает файлы комнаты в порядке создания
func (h *FileHandler) ListFiles(c *gin.Context) {
	room, _, ok := h.requireRoomAccess(c)
	if !ok {
		return
	}

	files, err := h.files.List(room.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]gin.H, len(files))
	for i, file := range files {
		result[i] = formatFileResponse(&file)
	}

	c.JSON(http.StatusOK, gin.H{"files": result})
}

// CreateFile создает файл, разрешено только создателю комнаты
func (h *FileHandler) CreateFile(c *gin.Context) {
	room, caller, ok := h.requireRoomAccess(c)
	if !ok {
		return
	}

	if room.CreatedBy != caller.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the room creator can add files"})
		return
	}

	var req struct {
		Name     string `json:"name" binding:"required"`
		Language string `json:"language"`
		Content  string `json:"content"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := h.files.Create(room.ID, req.Name, req.Language, req.Content, caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, formatFileResponse(file))
}

// GetFile возвращает содержимое файла
func (h *FileHandler) GetFile(c *gin.Context) {
	room, _, ok := h.requireRoomAccess(c)
	if !ok {
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	file, err := h.files.Get(room.ID, fileID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, formatFileResponse(file))
}

// UpdateFile перезаписывает содержимое. Старая версия перед этим
// автоматически уходит в историю.
func (h *FileHandler) UpdateFile(c *gin.Context) {
	room, caller, ok := h.requireRoomAccess(c)
	if !ok {
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	var req struct {
		Content *string `json:"content" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	file, err := h.files.Update(room.ID, fileID, *req.Content, caller.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         file.ID,
		"content":    file.Content,
		"updated_at": file.UpdatedAt,
	})
}

// DeleteFile удаляет файл и все его снапшоты, только создатель комнаты
func (h *FileHandler) DeleteFile(c *gin.Context) {
	room, caller, ok := h.requireRoomAccess(c)
	if !ok {
		return
	}

	if room.CreatedBy != caller.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the room creator can delete files"})
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	if err := h.files.Delete(room.ID, fileID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file deleted successfully"})
}

// ListSnapshots возвращает историю файла, новые записи первыми
func (h *FileHandler) ListSnapshots(c *gin.Context) {
	room, _, ok := h.requireRoomAccess(c)
	if !ok {
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	snapshots, err := h.snapshots.List(room.ID, fileID)
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]gin.H, len(snapshots))
	for i, snapshot := range snapshots {
		result[i] = gin.H{
			"id":             snapshot.ID,
			"content":        snapshot.Content,
			"saved_by":       snapshot.SavedBy,
			"commit_message": snapshot.CommitMessage,
			"created_at":     snapshot.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": result})
}

// SaveSnapshot делает ручной снапшот текущего содержимого
func (h *FileHandler) SaveSnapshot(c *gin.Context) {
	room, caller, ok := h.requireRoomAccess(c)
	if !ok {
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	var req struct {
		CommitMessage string `json:"commit_message"`
	}
	c.ShouldBindJSON(&req)

	snapshot, err := h.snapshots.Save(room.ID, fileID, caller.Email, req.CommitMessage)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":             snapshot.ID,
		"content":        snapshot.Content,
		"saved_by":       snapshot.SavedBy,
		"commit_message": snapshot.CommitMessage,
		"created_at":     snapshot.CreatedAt,
	})
}

// Rollback откатывает файл к указанному снапшоту
func (h *FileHandler) Rollback(c *gin.Context) {
	room, caller, ok := h.requireRoomAccess(c)
	if !ok {
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	var req struct {
		SnapshotID uuid.UUID `json:"snapshot_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "snapshot_id is required"})
		return
	}

	result, err := h.snapshots.Rollback(room.ID, fileID, req.SnapshotID, caller.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             result.File.ID,
		"content":        result.File.Content,
		"updated_at":     result.File.UpdatedAt,
		"rolled_back_to": result.RolledBackTo,
	})
}

// requireRoomAccess загружает комнату и проверяет членство вызывающего.
// Личность берется из claims токена, базу ради нее не трогаем.
func (h *FileHandler) requireRoomAccess(c *gin.Context) (*models.Room, middleware.Identity, bool) {
	caller := middleware.CurrentIdentity(c)
	roomID := c.Param("id")

	room, err := h.db.GetRoom(roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return nil, middleware.Identity{}, false
	}

	if !isMember(room, caller.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this room"})
		return nil, middleware.Identity{}, false
	}

	return room, caller, true
}

func formatFileResponse(file *models.File) gin.H {
	return gin.H{
		"id":         file.ID,
		"room_id":    file.RoomID,
		"name":       file.Name,
		"language":   file.Language,
		"content":    file.Content,
		"created_by": file.CreatedBy,
		"created_at": file.CreatedAt,
		"updated_at": file.UpdatedAt,
	}
}
