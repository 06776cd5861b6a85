package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/rooms"
)

func newTestHub(t *testing.T, mutate func(*Config)) *Hub {
	t.Helper()
	cfg := NewConfig()
	cfg.Rooms = []string{"General", "Random"}
	if mutate != nil {
		mutate(cfg)
	}
	hub := NewHub(*cfg, zerolog.Nop())
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })
	return hub
}

// nextEnvelope reads the next queued frame for a client without a socket.
func nextEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw, ok := <-c.GetSendChan():
		require.True(t, ok, "send channel closed")
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
		return Envelope{}
	}
}

func expectNoEnvelope(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw, ok := <-c.GetSendChan():
		if ok {
			t.Fatalf("unexpected event: %s", raw)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

// connectClient registers a socketless client and consumes its greeting.
func connectClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	c := NewClient(nil, hub, "127.0.0.1:12345")
	hub.GetRegisterChan() <- c

	connected := nextEnvelope(t, c)
	require.Equal(t, eventConnected, connected.Event)
	var payload connectedPayload
	require.NoError(t, json.Unmarshal(connected.Data, &payload))
	require.Equal(t, c.ID(), payload.ConnectionID)

	require.Equal(t, rooms.EventAvailableRooms, nextEnvelope(t, c).Event)
	return c
}

func sendEvent(t *testing.T, hub *Hub, c *Client, event string, data any) {
	t.Helper()
	raw, err := encodeEvent(event, data)
	require.NoError(t, err)
	hub.dispatch(c, raw)
}

func drainUntil(t *testing.T, c *Client, event string) Envelope {
	t.Helper()
	for {
		env := nextEnvelope(t, c)
		if env.Event == event {
			return env
		}
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(*NewConfig(), zerolog.Nop())

	require.NotNil(t, hub)
	assert.NotNil(t, hub.GetRegisterChan())
	assert.NotNil(t, hub.GetUnregisterChan())
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, defaultRooms, hub.Config().Rooms)
	assert.Len(t, hub.Rooms().ListRooms(), len(defaultRooms))
}

func TestNewClientAssignsUniqueIDs(t *testing.T) {
	hub := NewHub(*NewConfig(), zerolog.Nop())

	a := NewClient(nil, hub, "127.0.0.1:1")
	b := NewClient(nil, hub, "127.0.0.1:2")

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotNil(t, a.GetSendChan())
	assert.Equal(t, hub.cfg.MaxMessageSize, a.maxMessageSize)
}

func TestHubRegisterSendsGreeting(t *testing.T) {
	hub := newTestHub(t, nil)

	c := connectClient(t, hub)

	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.Rooms().ConnectionCount())
	expectNoEnvelope(t, c)
}

func TestHubRegisterNilClient(t *testing.T) {
	hub := newTestHub(t, nil)

	select {
	case hub.GetRegisterChan() <- nil:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("hub did not accept registration")
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubDispatchJoinAndChat(t *testing.T) {
	hub := newTestHub(t, nil)
	a := connectClient(t, hub)
	b := connectClient(t, hub)

	sendEvent(t, hub, a, eventJoinRoom, joinRoomRequest{Username: "alice", RoomName: "General"})
	assert.Equal(t, rooms.EventJoinedRoom, nextEnvelope(t, a).Event)
	assert.Equal(t, rooms.EventRoomUsers, nextEnvelope(t, a).Event)

	sendEvent(t, hub, b, eventJoinRoom, joinRoomRequest{Username: "bob", RoomName: "General"})
	assert.Equal(t, rooms.EventUserJoined, nextEnvelope(t, a).Event)
	assert.Equal(t, rooms.EventRoomUsers, nextEnvelope(t, a).Event)
	drainUntil(t, b, rooms.EventRoomUsers)

	sendEvent(t, hub, a, eventChatMessage, chatMessageRequest{Text: "hi"})
	for _, c := range []*Client{a, b} {
		env := nextEnvelope(t, c)
		require.Equal(t, rooms.EventChatMessage, env.Event)
		var msg rooms.ChatPayload
		require.NoError(t, json.Unmarshal(env.Data, &msg))
		assert.Equal(t, "hi", msg.Text)
		assert.Equal(t, "alice", msg.Username)
		assert.Equal(t, a.ID(), msg.SenderConnectionID)
		assert.Equal(t, "General", msg.RoomName)
	}

	sendEvent(t, hub, b, eventTyping, typingRequest{IsTyping: true})
	env := nextEnvelope(t, a)
	require.Equal(t, rooms.EventTyping, env.Event)
	var typing rooms.TypingPayload
	require.NoError(t, json.Unmarshal(env.Data, &typing))
	assert.Equal(t, rooms.TypingPayload{Username: "bob", IsTyping: true}, typing)
	expectNoEnvelope(t, b)
}

func TestHubDispatchErrors(t *testing.T) {
	hub := newTestHub(t, nil)
	c := connectClient(t, hub)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "malformed json", raw: `{"event":`},
		{name: "missing event", raw: `{"data":{}}`},
		{name: "unknown event", raw: `{"event":"dance","data":{}}`},
		{name: "wrong payload type", raw: `{"event":"join-room","data":{"username":42}}`},
		{name: "chat without room", raw: `{"event":"chat-message","data":{"text":"hi"}}`},
		{name: "unknown room", raw: `{"event":"join-room","data":{"username":"x","roomName":"Nope"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub.dispatch(c, []byte(tt.raw))

			env := nextEnvelope(t, c)
			require.Equal(t, rooms.EventError, env.Event)
			var payload rooms.ErrorPayload
			require.NoError(t, json.Unmarshal(env.Data, &payload))
			assert.NotEmpty(t, payload.Text)
			expectNoEnvelope(t, c)
		})
	}
}

func TestHubDispatchGetRoomsAndLeave(t *testing.T) {
	hub := newTestHub(t, nil)
	c := connectClient(t, hub)

	hub.dispatch(c, []byte(`{"event":"get-rooms"}`))
	env := nextEnvelope(t, c)
	require.Equal(t, rooms.EventRoomsList, env.Event)
	var list rooms.RoomsPayload
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, []rooms.RoomInfo{{Name: "General"}, {Name: "Random"}}, list.Rooms)

	sendEvent(t, hub, c, eventJoinRoom, joinRoomRequest{Username: "carol", RoomName: "Random"})
	drainUntil(t, c, rooms.EventRoomUsers)

	hub.dispatch(c, []byte(`{"event":"leave-room"}`))
	assert.Equal(t, rooms.EventLeftRoom, nextEnvelope(t, c).Event)
	_, ok := hub.Rooms().ResolveRoom(c.ID())
	assert.False(t, ok)
}

func TestHubUnregisterDisconnectsFromRoom(t *testing.T) {
	hub := newTestHub(t, nil)
	a := connectClient(t, hub)
	b := connectClient(t, hub)
	sendEvent(t, hub, a, eventJoinRoom, joinRoomRequest{Username: "alice", RoomName: "General"})
	sendEvent(t, hub, b, eventJoinRoom, joinRoomRequest{Username: "bob", RoomName: "General"})
	drainUntil(t, a, rooms.EventUserJoined)
	drainUntil(t, a, rooms.EventRoomUsers)

	hub.GetUnregisterChan() <- b
	hub.GetUnregisterChan() <- b

	assert.Equal(t, rooms.EventUserLeft, nextEnvelope(t, a).Event)
	env := nextEnvelope(t, a)
	require.Equal(t, rooms.EventRoomUsers, env.Event)
	var roster rooms.RosterPayload
	require.NoError(t, json.Unmarshal(env.Data, &roster))
	require.Len(t, roster.Users, 1)
	assert.Equal(t, "alice", roster.Users[0].Username)
	expectNoEnvelope(t, a)

	assert.Equal(t, 1, hub.ClientCount())
	assert.Len(t, hub.Rooms().MembersOf("General"), 1)
}

func TestHubEvictsClientWithFullBuffer(t *testing.T) {
	hub := newTestHub(t, nil)
	a := connectClient(t, hub)
	b := connectClient(t, hub)
	sendEvent(t, hub, a, eventJoinRoom, joinRoomRequest{Username: "alice", RoomName: "General"})
	sendEvent(t, hub, b, eventJoinRoom, joinRoomRequest{Username: "bob", RoomName: "General"})
	drainUntil(t, a, rooms.EventRoomUsers)
	drainUntil(t, a, rooms.EventRoomUsers)

	for i := 0; i < sendBufferSize+10; i++ {
		sendEvent(t, hub, a, eventTyping, typingRequest{IsTyping: i%2 == 0})
	}

	assert.Equal(t, 1, hub.ClientCount())
	assert.True(t, hub.isClosed(b))

	// The evicted client's channel is closed once its backlog is drained.
	drained := 0
	for range b.GetSendChan() {
		drained++
	}
	assert.LessOrEqual(t, drained, sendBufferSize)

	// Events from a client mid-teardown are ignored.
	sendEvent(t, hub, b, eventChatMessage, chatMessageRequest{Text: "still here?"})
	expectNoEnvelope(t, a)

	hub.GetUnregisterChan() <- b
	assert.Equal(t, rooms.EventUserLeft, nextEnvelope(t, a).Event)
	assert.Equal(t, rooms.EventRoomUsers, nextEnvelope(t, a).Event)
}

func TestHubSendToUnknownClient(t *testing.T) {
	hub := NewHub(*NewConfig(), zerolog.Nop())

	assert.NotPanics(t, func() {
		hub.Send("missing", rooms.Event{Name: rooms.EventError, Payload: rooms.ErrorPayload{Text: "x"}})
	})
}

func TestHubShutdown(t *testing.T) {
	hub := NewHub(*NewConfig(), zerolog.Nop())
	go hub.Run()
	c := connectClient(t, hub)

	require.NoError(t, hub.Shutdown(time.Second))

	_, ok := <-c.GetSendChan()
	assert.False(t, ok, "client channel should be closed on shutdown")
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.Rooms().ConnectionCount())
}

func TestHubShutdownWithoutRun(t *testing.T) {
	hub := NewHub(*NewConfig(), zerolog.Nop())

	err := hub.Shutdown(20 * time.Millisecond)
	assert.Error(t, err)
}
