package models

import (
	"github.com/google/uuid"
	"time"
)

// Сообщения коммитов для автоматических снапшотов
const (
	CommitManualSave     = "manual save"
	CommitAutoBeforeEdit = "auto-save before edit"
)

// Snapshot — полная копия содержимого файла на момент сохранения.
// Записи только добавляются, существующий снапшот никогда не меняется.
type Snapshot struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	FileID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Content       string
	SavedBy       string    `gorm:"not null"` // email автора
	CommitMessage string    `gorm:"not null"`
	CreatedAt     time.Time

	// Связи
	File File `gorm:"foreignKey:FileID"`
}
