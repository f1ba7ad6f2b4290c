package handlers_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/internal/handlers"
	"github.com/konverge/devhub/internal/handlers/dto"
	"github.com/konverge/devhub/internal/models"
	"github.com/konverge/devhub/internal/services"
	"github.com/konverge/devhub/internal/tester"
	"github.com/konverge/devhub/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type editorEnv struct {
	db        *database.Database
	hub       *websocket.Hub
	scheduler *services.SaveScheduler
	handler   *handlers.EditorHandler

	user *models.User
	room *models.Room
	file *models.File
}

func newEditorEnv(t *testing.T) *editorEnv {
	t.Helper()

	db := tester.NewTestDB(t)
	user := tester.CreateUser(t, db, "alice", "alice@example.com")
	room := tester.CreateRoom(t, db, user, "backend")
	file := tester.CreateFile(t, db, room, "main.go", "package main")

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	scheduler := services.NewSaveScheduler(db, 20*time.Millisecond)
	t.Cleanup(scheduler.Stop)

	return &editorEnv{
		db:        db,
		hub:       hub,
		scheduler: scheduler,
		handler:   handlers.NewEditorHandler(db, hub, scheduler),
		user:      user,
		room:      room,
		file:      file,
	}
}

// connect регистрирует соединение и дожидается, пока hub его увидит
func (e *editorEnv) connect(t *testing.T, user *models.User) *websocket.Client {
	t.Helper()

	client := websocket.NewClient(e.hub, nil, websocket.Identity{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
	})
	e.hub.Register(client)
	require.Eventually(t, func() bool {
		return e.hub.IsOnline(user.ID)
	}, time.Second, time.Millisecond)

	return client
}

func event(t *testing.T, msgType websocket.MessageType, payload interface{}) *websocket.Message {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	return &websocket.Message{Type: msgType, Data: data, Timestamp: time.Now()}
}

func receive(t *testing.T, client *websocket.Client) *websocket.Message {
	t.Helper()

	select {
	case raw := <-client.Send:
		var msg websocket.Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatalf("no message for %s", client.Identity.Email)
		return nil
	}
}

func assertSilent(t *testing.T, client *websocket.Client) {
	t.Helper()

	select {
	case raw := <-client.Send:
		t.Fatalf("unexpected message for %s: %s", client.Identity.Email, raw)
	default:
	}
}

func TestEditorJoin_RequiresMembership(t *testing.T) {
	env := newEditorEnv(t)
	stranger := tester.CreateUser(t, env.db, "bob", "bob@example.com")
	client := env.connect(t, stranger)

	err := env.handler.HandleMessage(client, event(t, websocket.TypeEditorJoin, dto.EditorJoinPayload{
		RoomID: env.room.ID,
		FileID: env.file.ID,
	}))

	assert.ErrorIs(t, err, services.ErrForbidden)
	assert.False(t, client.InChannel(websocket.FileChannel(env.room.ID, env.file.ID)))
}

func TestEditorJoin_UnknownFile(t *testing.T) {
	env := newEditorEnv(t)
	client := env.connect(t, env.user)

	err := env.handler.HandleMessage(client, event(t, websocket.TypeEditorJoin, dto.EditorJoinPayload{
		RoomID: env.room.ID,
		FileID: uuid.New(),
	}))

	assert.ErrorIs(t, err, services.ErrFileNotFound)
}

func TestEditorJoin_SendsChannelUsers(t *testing.T) {
	env := newEditorEnv(t)
	client := env.connect(t, env.user)

	err := env.handler.HandleMessage(client, event(t, websocket.TypeEditorJoin, dto.EditorJoinPayload{
		RoomID: env.room.ID,
		FileID: env.file.ID,
	}))
	require.NoError(t, err)

	msg := receive(t, client)
	assert.Equal(t, websocket.TypeChannelUsers, msg.Type)
	assert.True(t, client.InChannel(websocket.FileChannel(env.room.ID, env.file.ID)))
}

func TestEditorChange_ExcludesSenderAndPersists(t *testing.T) {
	env := newEditorEnv(t)
	other := tester.CreateUser(t, env.db, "bob", "bob@example.com")
	require.NoError(t, env.db.AddUserToRoom(other.ID.String(), env.room.ID.String()))

	sender := env.connect(t, env.user)
	receiver := env.connect(t, other)

	join := dto.EditorJoinPayload{RoomID: env.room.ID, FileID: env.file.ID}
	require.NoError(t, env.handler.HandleMessage(sender, event(t, websocket.TypeEditorJoin, join)))
	require.NoError(t, env.handler.HandleMessage(receiver, event(t, websocket.TypeEditorJoin, join)))
	receive(t, sender)   // channel:users
	receive(t, receiver) // channel:users

	err := env.handler.HandleMessage(sender, event(t, websocket.TypeEditorChange, dto.EditorChangePayload{
		RoomID:      env.room.ID,
		FileID:      env.file.ID,
		FullContent: "package main // edited",
	}))
	require.NoError(t, err)

	// Правку видит только второй участник
	msg := receive(t, receiver)
	assert.Equal(t, websocket.TypeEditorChange, msg.Type)
	assertSilent(t, sender)

	var broadcast dto.ChangeBroadcast
	require.NoError(t, json.Unmarshal(msg.Data, &broadcast))
	assert.Equal(t, "package main // edited", broadcast.FullContent)

	// Содержимое доезжает в базу после периода тишины
	require.Eventually(t, func() bool {
		fresh, err := env.db.GetFile(env.room.ID, env.file.ID)
		return err == nil && fresh.Content == "package main // edited"
	}, time.Second, 10*time.Millisecond)
}

func TestEditorChange_NotInChannel(t *testing.T) {
	env := newEditorEnv(t)
	client := env.connect(t, env.user)

	err := env.handler.HandleMessage(client, event(t, websocket.TypeEditorChange, dto.EditorChangePayload{
		RoomID:      env.room.ID,
		FileID:      env.file.ID,
		FullContent: "sneaky",
	}))

	assert.ErrorIs(t, err, websocket.ErrNotInChannel)
	assert.Equal(t, 0, env.scheduler.PendingCount())
}

func TestChatMessage_IncludesSenderAndPersists(t *testing.T) {
	env := newEditorEnv(t)
	other := tester.CreateUser(t, env.db, "bob", "bob@example.com")
	require.NoError(t, env.db.AddUserToRoom(other.ID.String(), env.room.ID.String()))

	sender := env.connect(t, env.user)
	receiver := env.connect(t, other)

	join := dto.ChatJoinPayload{RoomID: env.room.ID}
	require.NoError(t, env.handler.HandleMessage(sender, event(t, websocket.TypeChatJoin, join)))
	require.NoError(t, env.handler.HandleMessage(receiver, event(t, websocket.TypeChatJoin, join)))
	receive(t, sender)
	receive(t, receiver)

	err := env.handler.HandleMessage(sender, event(t, websocket.TypeChatMessage, dto.ChatMessagePayload{
		RoomID: env.room.ID,
		Text:   "hello team",
	}))
	require.NoError(t, err)

	// Чат, в отличие от правок, приходит и отправителю
	for _, client := range []*websocket.Client{sender, receiver} {
		msg := receive(t, client)
		assert.Equal(t, websocket.TypeChatMessage, msg.Type)
		assert.Equal(t, env.user.Email, msg.SenderEmail)

		var response dto.MessageResponse
		require.NoError(t, json.Unmarshal(msg.Data, &response))
		assert.Equal(t, "hello team", response.Content)
	}

	messages, err := env.db.GetRoomMessages(env.room.ID.String(), 10, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello team", messages[0].Content)

	// Сообщение обновляет last_seen отправителя
	fresh, err := env.db.GetUser(env.user.ID.String())
	require.NoError(t, err)
	assert.False(t, fresh.LastSeenAt.IsZero())
}

func TestApplyDiff_ReachesAllIncludingSender(t *testing.T) {
	env := newEditorEnv(t)
	other := tester.CreateUser(t, env.db, "bob", "bob@example.com")
	require.NoError(t, env.db.AddUserToRoom(other.ID.String(), env.room.ID.String()))

	sender := env.connect(t, env.user)
	receiver := env.connect(t, other)

	join := dto.EditorJoinPayload{RoomID: env.room.ID, FileID: env.file.ID}
	require.NoError(t, env.handler.HandleMessage(sender, event(t, websocket.TypeEditorJoin, join)))
	require.NoError(t, env.handler.HandleMessage(receiver, event(t, websocket.TypeEditorJoin, join)))
	receive(t, sender)
	receive(t, receiver)

	err := env.handler.HandleMessage(sender, event(t, websocket.TypeEditorApplyDiff, dto.ApplyDiffPayload{
		RoomID:        env.room.ID,
		FileID:        env.file.ID,
		Diff:          "@@ -1 +1 @@",
		SuggestedCode: "package main // suggested",
	}))
	require.NoError(t, err)

	// Дифф приходит всем, включая другие вкладки инициатора
	for _, client := range []*websocket.Client{sender, receiver} {
		msg := receive(t, client)
		assert.Equal(t, websocket.TypeEditorDiff, msg.Type)

		var broadcast dto.DiffBroadcast
		require.NoError(t, json.Unmarshal(msg.Data, &broadcast))
		assert.Equal(t, env.user.Email, broadcast.AppliedBy)
		assert.Equal(t, "package main // suggested", broadcast.SuggestedCode)
	}

	// Само событие содержимое файла не меняет и запись не ставит
	fresh, err := env.db.GetFile(env.room.ID, env.file.ID)
	require.NoError(t, err)
	assert.Equal(t, "package main", fresh.Content)
	assert.Equal(t, 0, env.scheduler.PendingCount())
}

func TestApplyDiff_NotInChannel(t *testing.T) {
	env := newEditorEnv(t)
	client := env.connect(t, env.user)

	err := env.handler.HandleMessage(client, event(t, websocket.TypeEditorApplyDiff, dto.ApplyDiffPayload{
		RoomID: env.room.ID,
		FileID: env.file.ID,
		Diff:   "@@ -1 +1 @@",
	}))

	assert.ErrorIs(t, err, websocket.ErrNotInChannel)
}

func TestEditorCursor_ExcludesSenderAndIsEphemeral(t *testing.T) {
	env := newEditorEnv(t)
	other := tester.CreateUser(t, env.db, "bob", "bob@example.com")
	require.NoError(t, env.db.AddUserToRoom(other.ID.String(), env.room.ID.String()))

	sender := env.connect(t, env.user)
	receiver := env.connect(t, other)

	join := dto.EditorJoinPayload{RoomID: env.room.ID, FileID: env.file.ID}
	require.NoError(t, env.handler.HandleMessage(sender, event(t, websocket.TypeEditorJoin, join)))
	require.NoError(t, env.handler.HandleMessage(receiver, event(t, websocket.TypeEditorJoin, join)))
	receive(t, sender)
	receive(t, receiver)

	err := env.handler.HandleMessage(sender, event(t, websocket.TypeEditorCursor, dto.EditorCursorPayload{
		RoomID:   env.room.ID,
		FileID:   env.file.ID,
		Position: json.RawMessage(`{"line":3,"column":7}`),
	}))
	require.NoError(t, err)

	msg := receive(t, receiver)
	assert.Equal(t, websocket.TypeEditorCursor, msg.Type)
	assert.Equal(t, env.user.Email, msg.SenderEmail)

	var broadcast dto.CursorBroadcast
	require.NoError(t, json.Unmarshal(msg.Data, &broadcast))
	assert.JSONEq(t, `{"line":3,"column":7}`, string(broadcast.Position))

	// Свой же курсор отправителю не возвращается
	assertSilent(t, sender)

	// Курсор эфемерен: ни записи, ни отложенного сохранения
	assert.Equal(t, 0, env.scheduler.PendingCount())
	snapshots, err := env.db.ListFileSnapshots(env.file.ID)
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestChatTyping_ExcludesSender(t *testing.T) {
	env := newEditorEnv(t)
	other := tester.CreateUser(t, env.db, "bob", "bob@example.com")
	require.NoError(t, env.db.AddUserToRoom(other.ID.String(), env.room.ID.String()))

	sender := env.connect(t, env.user)
	receiver := env.connect(t, other)

	join := dto.ChatJoinPayload{RoomID: env.room.ID}
	require.NoError(t, env.handler.HandleMessage(sender, event(t, websocket.TypeChatJoin, join)))
	require.NoError(t, env.handler.HandleMessage(receiver, event(t, websocket.TypeChatJoin, join)))
	receive(t, sender)
	receive(t, receiver)

	err := env.handler.HandleMessage(sender, event(t, websocket.TypeChatTyping, dto.ChatTypingPayload{
		RoomID:   env.room.ID,
		IsTyping: true,
	}))
	require.NoError(t, err)

	msg := receive(t, receiver)
	assert.Equal(t, websocket.TypeChatTyping, msg.Type)

	var broadcast dto.TypingBroadcast
	require.NoError(t, json.Unmarshal(msg.Data, &broadcast))
	assert.True(t, broadcast.IsTyping)

	assertSilent(t, sender)

	// Индикатор набора в историю не пишется
	messages, err := env.db.GetRoomMessages(env.room.ID.String(), 10, nil)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestChatMessage_RejectsBlank(t *testing.T) {
	env := newEditorEnv(t)
	client := env.connect(t, env.user)

	require.NoError(t, env.handler.HandleMessage(client, event(t, websocket.TypeChatJoin, dto.ChatJoinPayload{
		RoomID: env.room.ID,
	})))
	receive(t, client)

	err := env.handler.HandleMessage(client, event(t, websocket.TypeChatMessage, dto.ChatMessagePayload{
		RoomID: env.room.ID,
		Text:   "   ",
	}))

	assert.ErrorIs(t, err, websocket.ErrInvalidMessage)

	messages, dbErr := env.db.GetRoomMessages(env.room.ID.String(), 10, nil)
	require.NoError(t, dbErr)
	assert.Empty(t, messages)
}
