package handlers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/internal/handlers/dto"
	"github.com/konverge/devhub/internal/models"
	"github.com/konverge/devhub/internal/services"
	"github.com/konverge/devhub/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EditorHandler диспетчеризует все WebSocket события: совместное
// редактирование, курсоры, AI-диффы и чат. Личность отправителя берется из
// соединения, проверенного при апгрейде.
type EditorHandler struct {
	db        *database.Database
	hub       *websocket.Hub
	scheduler *services.SaveScheduler
}

func NewEditorHandler(db *database.Database, hub *websocket.Hub, scheduler *services.SaveScheduler) *EditorHandler {
	return &EditorHandler{
		db:        db,
		hub:       hub,
		scheduler: scheduler,
	}
}

func (h *EditorHandler) HandleMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeEditorJoin:
		return h.handleEditorJoin(client, msg)

	case websocket.TypeEditorChange:
		return h.handleEditorChange(client, msg)

	case websocket.TypeEditorCursor:
		return h.handleEditorCursor(client, msg)

	case websocket.TypeEditorApplyDiff:
		return h.handleApplyDiff(client, msg)

	case websocket.TypeChatJoin:
		return h.handleChatJoin(client, msg)

	case websocket.TypeChatMessage:
		return h.handleChatMessage(client, msg)

	case websocket.TypeChatTyping:
		return h.handleChatTyping(client, msg)

	default:
		logrus.Warnf("Unknown message type: %s", msg.Type)
		return nil
	}
}

// handleEditorJoin подключает клиента к каналу файла. Контент при этом не
// пушится — клиент обязан забрать его через REST до подключения.
func (h *EditorHandler) handleEditorJoin(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.EditorJoinPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return err
	}

	if err := h.requireMember(payload.RoomID, client.Identity.ID); err != nil {
		return err
	}

	// Канал несуществующего файла не открываем
	if _, err := h.db.GetFile(payload.RoomID, payload.FileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return services.ErrFileNotFound
		}
		return err
	}

	channel := websocket.FileChannel(payload.RoomID, payload.FileID)
	h.hub.JoinChannel(client, channel)

	return client.SendMessage(websocket.TypeChannelUsers, h.hub.ChannelMembers(channel))
}

// handleEditorChange рассылает правку остальным участникам и ставит
// отложенную запись в базу. Рассылка идет первой: её задержка не должна
// зависеть от персистентности.
func (h *EditorHandler) handleEditorChange(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.EditorChangePayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return err
	}

	channel := websocket.FileChannel(payload.RoomID, payload.FileID)
	if !client.InChannel(channel) {
		return websocket.ErrNotInChannel
	}

	data, err := h.envelope(websocket.TypeEditorChange, client.Identity, dto.ChangeBroadcast{
		FileID:      payload.FileID,
		Delta:       payload.Delta,
		FullContent: payload.FullContent,
	})
	if err != nil {
		return err
	}
	h.hub.BroadcastExcluding(channel, data, client.ID)

	h.scheduler.Schedule(payload.RoomID, payload.FileID, payload.FullContent)

	return nil
}

// handleEditorCursor — эфемерный broadcast позиции курсора, в базу ничего
// не пишется
func (h *EditorHandler) handleEditorCursor(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.EditorCursorPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return err
	}

	channel := websocket.FileChannel(payload.RoomID, payload.FileID)
	if !client.InChannel(channel) {
		return websocket.ErrNotInChannel
	}

	data, err := h.envelope(websocket.TypeEditorCursor, client.Identity, dto.CursorBroadcast{
		FileID:   payload.FileID,
		Position: payload.Position,
	})
	if err != nil {
		return err
	}
	h.hub.BroadcastExcluding(channel, data, client.ID)

	return nil
}

// handleApplyDiff ретранслирует AI-дифф всем участникам канала, включая
// инициатора — его другие вкладки должны увидеть то же предложение.
// Содержимое файла событие не меняет: принятие диффа приходит обычным
// editor:change после подтверждения на клиенте.
func (h *EditorHandler) handleApplyDiff(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.ApplyDiffPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return err
	}

	channel := websocket.FileChannel(payload.RoomID, payload.FileID)
	if !client.InChannel(channel) {
		return websocket.ErrNotInChannel
	}

	data, err := h.envelope(websocket.TypeEditorDiff, client.Identity, dto.DiffBroadcast{
		FileID:        payload.FileID,
		Diff:          payload.Diff,
		SuggestedCode: payload.SuggestedCode,
		AppliedBy:     client.Identity.Email,
	})
	if err != nil {
		return err
	}
	h.hub.BroadcastToAll(channel, data)

	return nil
}

func (h *EditorHandler) handleChatJoin(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.ChatJoinPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return err
	}

	if err := h.requireMember(payload.RoomID, client.Identity.ID); err != nil {
		return err
	}

	channel := websocket.ChatChannel(payload.RoomID)
	h.hub.JoinChannel(client, channel)

	return client.SendMessage(websocket.TypeChannelUsers, h.hub.ChannelMembers(channel))
}

// handleChatMessage сохраняет сообщение и рассылает его всем в канале,
// включая отправителя — в отличие от editor:change
func (h *EditorHandler) handleChatMessage(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.ChatMessagePayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return err
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return websocket.ErrInvalidMessage
	}

	channel := websocket.ChatChannel(payload.RoomID)
	if !client.InChannel(channel) {
		return websocket.ErrNotInChannel
	}

	message := &models.Message{
		ID:        uuid.New(),
		RoomID:    payload.RoomID,
		UserID:    client.Identity.ID,
		Content:   text,
		CreatedAt: time.Now(),
	}

	if err := h.db.SaveMessage(message); err != nil {
		logrus.Errorf("Failed to save message: %v", err)
		return err
	}

	data, err := h.envelope(websocket.TypeChatMessage, client.Identity, dto.MessageResponse{
		ID:        message.ID,
		RoomID:    message.RoomID,
		UserID:    message.UserID,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
		User: dto.UserInfo{
			ID:       client.Identity.ID,
			Username: client.Identity.Username,
		},
	})
	if err != nil {
		return err
	}
	h.hub.BroadcastToAll(channel, data)

	if err := h.db.UpdateLastSeen(client.Identity.ID.String()); err != nil {
		logrus.Errorf("Failed to update last seen for %s: %v", client.Identity.Email, err)
	}

	return nil
}

func (h *EditorHandler) handleChatTyping(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.ChatTypingPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return err
	}

	channel := websocket.ChatChannel(payload.RoomID)
	if !client.InChannel(channel) {
		return websocket.ErrNotInChannel
	}

	data, err := h.envelope(websocket.TypeChatTyping, client.Identity, dto.TypingBroadcast{
		RoomID:   payload.RoomID,
		IsTyping: payload.IsTyping,
	})
	if err != nil {
		return err
	}
	h.hub.BroadcastExcluding(channel, data, client.ID)

	return nil
}

// requireMember закрывает события по несуществующим комнатам и чужим
// участникам
func (h *EditorHandler) requireMember(roomID, userID uuid.UUID) error {
	ok, err := h.db.IsRoomMember(roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return services.ErrForbidden
	}
	return nil
}

func (h *EditorHandler) envelope(msgType websocket.MessageType, sender websocket.Identity, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(websocket.Message{
		Type:        msgType,
		Data:        data,
		SenderEmail: sender.Email,
		SenderName:  sender.Username,
		Timestamp:   time.Now(),
	})
}
