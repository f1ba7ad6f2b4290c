package websocket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Клиент без живого соединения, сообщения копятся в Send
func newTestClient(hub *Hub, email string) *Client {
	return NewClient(hub, nil, Identity{
		ID:       uuid.New(),
		Email:    email,
		Username: email,
	})
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func registerAndWait(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	hub.Register(client)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.clients[client.ID]
		return ok
	}, time.Second, time.Millisecond)
}

func readMessage(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case msg := <-client.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("no message for client %s", client.Identity.Email)
		return nil
	}
}

func assertNoMessage(t *testing.T, client *Client) {
	t.Helper()
	select {
	case msg := <-client.Send:
		t.Fatalf("unexpected message for %s: %s", client.Identity.Email, msg)
	default:
	}
}

func TestHub_BroadcastExcluding(t *testing.T) {
	hub := startHub(t)

	sender := newTestClient(hub, "sender@example.com")
	other := newTestClient(hub, "other@example.com")
	outsider := newTestClient(hub, "outsider@example.com")
	for _, c := range []*Client{sender, other, outsider} {
		registerAndWait(t, hub, c)
	}

	channel := FileChannel(uuid.New(), uuid.New())
	hub.JoinChannel(sender, channel)
	hub.JoinChannel(other, channel)

	hub.BroadcastExcluding(channel, []byte("edit"), sender.ID)

	assert.Equal(t, []byte("edit"), readMessage(t, other))
	assertNoMessage(t, sender)
	assertNoMessage(t, outsider)
}

func TestHub_BroadcastToAll(t *testing.T) {
	hub := startHub(t)

	sender := newTestClient(hub, "sender@example.com")
	other := newTestClient(hub, "other@example.com")
	registerAndWait(t, hub, sender)
	registerAndWait(t, hub, other)

	channel := ChatChannel(uuid.New())
	hub.JoinChannel(sender, channel)
	hub.JoinChannel(other, channel)

	hub.BroadcastToAll(channel, []byte("hello"))

	// Отправитель тоже получает свое сообщение
	assert.Equal(t, []byte("hello"), readMessage(t, sender))
	assert.Equal(t, []byte("hello"), readMessage(t, other))
}

func TestHub_BroadcastOrderPreserved(t *testing.T) {
	hub := startHub(t)

	receiver := newTestClient(hub, "receiver@example.com")
	registerAndWait(t, hub, receiver)

	channel := ChatChannel(uuid.New())
	hub.JoinChannel(receiver, channel)

	hub.BroadcastToAll(channel, []byte("first"))
	hub.BroadcastToAll(channel, []byte("second"))
	hub.BroadcastToAll(channel, []byte("third"))

	assert.Equal(t, []byte("first"), readMessage(t, receiver))
	assert.Equal(t, []byte("second"), readMessage(t, receiver))
	assert.Equal(t, []byte("third"), readMessage(t, receiver))
}

func TestHub_ChannelsAreIsolated(t *testing.T) {
	hub := startHub(t)

	roomID := uuid.New()
	chatter := newTestClient(hub, "chatter@example.com")
	editor := newTestClient(hub, "editor@example.com")
	registerAndWait(t, hub, chatter)
	registerAndWait(t, hub, editor)

	hub.JoinChannel(chatter, ChatChannel(roomID))
	hub.JoinChannel(editor, FileChannel(roomID, uuid.New()))

	hub.BroadcastToAll(ChatChannel(roomID), []byte("chat"))

	assert.Equal(t, []byte("chat"), readMessage(t, chatter))
	assertNoMessage(t, editor)
}

func TestHub_ChannelMembersDeduplicated(t *testing.T) {
	hub := startHub(t)

	// Две вкладки одного пользователя
	identity := Identity{ID: uuid.New(), Email: "alice@example.com", Username: "alice"}
	tab1 := NewClient(hub, nil, identity)
	tab2 := NewClient(hub, nil, identity)
	registerAndWait(t, hub, tab1)
	registerAndWait(t, hub, tab2)

	channel := ChatChannel(uuid.New())
	hub.JoinChannel(tab1, channel)
	hub.JoinChannel(tab2, channel)

	members := hub.ChannelMembers(channel)
	require.Len(t, members, 1)
	assert.Equal(t, identity.ID, members[0].ID)
}

func TestHub_UnregisterLeavesChannels(t *testing.T) {
	hub := startHub(t)

	staying := newTestClient(hub, "staying@example.com")
	leaving := newTestClient(hub, "leaving@example.com")
	registerAndWait(t, hub, staying)
	registerAndWait(t, hub, leaving)

	channel := ChatChannel(uuid.New())
	hub.JoinChannel(staying, channel)
	hub.JoinChannel(leaving, channel)

	hub.Unregister(leaving)
	require.Eventually(t, func() bool {
		return len(hub.ChannelMembers(channel)) == 1
	}, time.Second, time.Millisecond)

	hub.BroadcastToAll(channel, []byte("after"))
	assert.Equal(t, []byte("after"), readMessage(t, staying))
	assert.False(t, hub.IsOnline(leaving.Identity.ID))
	assert.True(t, hub.IsOnline(staying.Identity.ID))
}

func TestHub_BroadcastToEmptyChannel(t *testing.T) {
	hub := startHub(t)

	// Не должно паниковать
	hub.BroadcastToAll("room:unknown:chat", []byte("void"))
	hub.BroadcastExcluding("room:unknown:chat", []byte("void"), uuid.New())
}
