package models

import (
	"github.com/google/uuid"
	"time"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	AvatarURL    string

	// Зашифрованный (AES-GCM) API токен для LLM, наружу не отдается
	EncryptedLLMToken string

	LastSeenAt time.Time
	CreatedAt  time.Time
}
