package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Входящие payload'ы WebSocket событий

type EditorJoinPayload struct {
	RoomID uuid.UUID `json:"room_id"`
	FileID uuid.UUID `json:"file_id"`
}

type EditorChangePayload struct {
	RoomID uuid.UUID `json:"room_id"`
	FileID uuid.UUID `json:"file_id"`
	// Delta — косметика для клиентов с минимальным ре-рендером,
	// авторитетно только FullContent
	Delta       json.RawMessage `json:"delta,omitempty"`
	FullContent string          `json:"full_content"`
}

type EditorCursorPayload struct {
	RoomID   uuid.UUID       `json:"room_id"`
	FileID   uuid.UUID       `json:"file_id"`
	Position json.RawMessage `json:"position"`
}

type ApplyDiffPayload struct {
	RoomID        uuid.UUID `json:"room_id"`
	FileID        uuid.UUID `json:"file_id"`
	Diff          string    `json:"diff"`
	SuggestedCode string    `json:"suggested_code"`
}

type ChatJoinPayload struct {
	RoomID uuid.UUID `json:"room_id"`
}

type ChatMessagePayload struct {
	RoomID uuid.UUID `json:"room_id"`
	Text   string    `json:"text"`
}

type ChatTypingPayload struct {
	RoomID   uuid.UUID `json:"room_id"`
	IsTyping bool      `json:"is_typing"`
}

// Исходящие payload'ы

type ChangeBroadcast struct {
	FileID      uuid.UUID       `json:"file_id"`
	Delta       json.RawMessage `json:"delta,omitempty"`
	FullContent string          `json:"full_content"`
}

type CursorBroadcast struct {
	FileID   uuid.UUID       `json:"file_id"`
	Position json.RawMessage `json:"position"`
}

type DiffBroadcast struct {
	FileID        uuid.UUID `json:"file_id"`
	Diff          string    `json:"diff"`
	SuggestedCode string    `json:"suggested_code"`
	AppliedBy     string    `json:"applied_by"`
}

type TypingBroadcast struct {
	RoomID   uuid.UUID `json:"room_id"`
	IsTyping bool      `json:"is_typing"`
}
