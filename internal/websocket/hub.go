package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// MessageType определяет типы событий
type MessageType string

const (
	// Системные типы
	TypePing  MessageType = "ping"
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"

	// События редактора
	TypeEditorJoin      MessageType = "editor:join"
	TypeEditorChange    MessageType = "editor:change"
	TypeEditorCursor    MessageType = "editor:cursor"
	TypeEditorApplyDiff MessageType = "editor:apply_diff"
	TypeEditorDiff      MessageType = "editor:diff"

	// События чата
	TypeChatJoin    MessageType = "chat:join"
	TypeChatMessage MessageType = "chat:message"
	TypeChatTyping  MessageType = "chat:typing"

	// Состав канала
	TypeChannelUsers MessageType = "channel:users"
)

// Identity — проверенная личность соединения. Заполняется один раз при
// апгрейде и дальше не меняется.
type Identity struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
}

type Message struct {
	Type        MessageType     `json:"type"`
	Data        json.RawMessage `json:"data,omitempty"`
	SenderEmail string          `json:"sender_email,omitempty"`
	SenderName  string          `json:"sender_name,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Ключи каналов. Чат живет на комнату, редактор — на пару комната+файл.
func ChatChannel(roomID uuid.UUID) string {
	return fmt.Sprintf("room:%s:chat", roomID)
}

func FileChannel(roomID, fileID uuid.UUID) string {
	return fmt.Sprintf("room:%s:file:%s", roomID, fileID)
}

type Client struct {
	ID       uuid.UUID
	Identity Identity
	Conn     *websocket.Conn
	Send     chan []byte
	Channels map[string]bool
	Hub      *Hub
	mu       sync.RWMutex
}

type Hub struct {
	clients map[uuid.UUID]*Client

	// Участники каналов: ключ канала -> id соединения -> клиент
	channels map[string]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		channels:   make(map[string]map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run запускает hub
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.channels = make(map[string]map[uuid.UUID]*Client)
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister отменяет регистрацию клиента
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	logrus.Infof("Client registered: %s (%s)", client.ID, client.Identity.Email)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	// Убираем из всех каналов, в которые соединение входило
	client.mu.Lock()
	channels := make([]string, 0, len(client.Channels))
	for channel := range client.Channels {
		channels = append(channels, channel)
	}
	client.mu.Unlock()

	for _, channel := range channels {
		h.leaveChannelUnsafe(client, channel)
	}

	delete(h.clients, client.ID)
	close(client.Send)

	logrus.Infof("Client unregistered: %s (%s)", client.ID, client.Identity.Email)
}

// JoinChannel добавляет клиента в канал
func (h *Hub) JoinChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[uuid.UUID]*Client)
	}

	h.channels[channel][client.ID] = client

	client.mu.Lock()
	client.Channels[channel] = true
	client.mu.Unlock()

	logrus.Infof("Client %s joined channel %s", client.Identity.Email, channel)
}

// LeaveChannel удаляет клиента из канала
func (h *Hub) LeaveChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveChannelUnsafe(client, channel)
}

func (h *Hub) leaveChannelUnsafe(client *Client, channel string) {
	members, ok := h.channels[channel]
	if !ok {
		return
	}

	if _, ok := members[client.ID]; !ok {
		return
	}

	delete(members, client.ID)
	client.mu.Lock()
	delete(client.Channels, channel)
	client.mu.Unlock()

	if len(members) == 0 {
		delete(h.channels, channel)
	}
}

// BroadcastExcluding рассылает событие всем участникам канала, кроме
// отправителя. Отправитель уже держит авторитетное состояние локально.
func (h *Hub) BroadcastExcluding(channel string, message []byte, excludeID uuid.UUID) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.broadcastUnsafe(channel, message, excludeID)
}

// BroadcastToAll рассылает событие всем участникам канала, включая
// отправителя — так сходятся его другие вкладки и сессии.
func (h *Hub) BroadcastToAll(channel string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.broadcastUnsafe(channel, message, uuid.Nil)
}

func (h *Hub) broadcastUnsafe(channel string, message []byte, excludeID uuid.UUID) {
	members, ok := h.channels[channel]
	if !ok {
		return
	}

	for _, client := range members {
		if client.ID == excludeID {
			continue
		}
		select {
		case client.Send <- message:
		default:
			logrus.Warnf("Client %s send channel full, dropping message", client.ID)
		}
	}
}

// ChannelMembers возвращает личности участников канала без дублей
func (h *Hub) ChannelMembers(channel string) []Identity {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[uuid.UUID]bool)
	members := make([]Identity, 0)

	if clients, ok := h.channels[channel]; ok {
		for _, client := range clients {
			if seen[client.Identity.ID] {
				continue
			}
			seen[client.Identity.ID] = true
			members = append(members, client.Identity)
		}
	}

	return members
}

// IsOnline проверяет, есть ли у пользователя хотя бы одно живое соединение
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.Identity.ID == userID {
			return true
		}
	}
	return false
}
