package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/konverge/devhub/internal/services"
)

// respondError переводит ошибки сервисов в HTTP статусы
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrFileNotFound),
		errors.Is(err, services.ErrSnapshotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrNoLLMToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
