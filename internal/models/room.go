package models

import (
	"github.com/google/uuid"
	"time"
)

type Room struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time

	// Связи
	Members  []User       `gorm:"many2many:room_members"`
	Invites  []RoomInvite `gorm:"foreignKey:RoomID"`
	Files    []File       `gorm:"foreignKey:RoomID"`
	Messages []Message    `gorm:"foreignKey:RoomID"`
}

// RoomInvite — приглашение по email, войти в комнату можно только по нему
type RoomInvite struct {
	RoomID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email  string    `gorm:"primaryKey"`
}
