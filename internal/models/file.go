package models

import (
	"github.com/google/uuid"
	"time"
)

// File — редактируемый документ внутри комнаты.
// Мутабельны только Content и UpdatedAt, остальное фиксируется при создании.
type File struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Language  string    `gorm:"default:'javascript'"`
	Content   string
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Связи
	Room Room `gorm:"foreignKey:RoomID"`
}
