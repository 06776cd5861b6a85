package rooms

import "time"

// Outbound event names.
const (
	EventAvailableRooms = "available-rooms"
	EventRoomsList      = "rooms-list"
	EventJoinedRoom     = "joined-room"
	EventLeftRoom       = "left-room"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventRoomUsers      = "room-users"
	EventChatMessage    = "chat-message"
	EventTyping         = "typing"
	EventError          = "error"
)

// Event is a finished outbound payload handed to the transport.
type Event struct {
	Name    string
	Payload any
}

// Sender delivers events to a single connection. Implementations must not
// block and must not call back into the Service.
type Sender interface {
	Send(connID string, ev Event)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(connID string, ev Event)

// Send calls f(connID, ev).
func (f SenderFunc) Send(connID string, ev Event) { f(connID, ev) }

// RoomInfo is a declared room and its current occupancy.
type RoomInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Member is one entry of a room roster.
type Member struct {
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}

// RoomsPayload carries the room listing for available-rooms and rooms-list.
type RoomsPayload struct {
	Rooms []RoomInfo `json:"rooms"`
}

// JoinedRoomPayload confirms a join to the joining connection.
type JoinedRoomPayload struct {
	RoomName    string    `json:"roomName"`
	WelcomeText string    `json:"welcomeText"`
	Timestamp   time.Time `json:"timestamp"`
}

// LeftRoomPayload confirms an explicit leave to the leaving connection.
type LeftRoomPayload struct {
	RoomName  string    `json:"roomName"`
	Timestamp time.Time `json:"timestamp"`
}

// NoticePayload is used for user-joined and user-left.
type NoticePayload struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
}

// RosterPayload is a full snapshot of a room's members in join order.
type RosterPayload struct {
	RoomName string   `json:"roomName"`
	Users    []Member `json:"users"`
}

// ChatPayload is a routed chat message.
type ChatPayload struct {
	Text               string    `json:"text"`
	Username           string    `json:"username"`
	Timestamp          time.Time `json:"timestamp"`
	SenderConnectionID string    `json:"senderConnectionId"`
	RoomName           string    `json:"roomName"`
}

// TypingPayload relays a typing-state change.
type TypingPayload struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// ErrorPayload reports a recoverable error to one connection.
type ErrorPayload struct {
	Text string `json:"text"`
}

func errorEvent(text string) Event {
	return Event{Name: EventError, Payload: ErrorPayload{Text: text}}
}
