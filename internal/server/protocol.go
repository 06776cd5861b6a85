// Package server defines the JSON envelope exchanged over the WebSocket and
// the inbound payloads it carries.
package server

import (
	"encoding/json"
	"strings"
)

// Inbound event names.
const (
	eventJoinRoom    = "join-room"
	eventLeaveRoom   = "leave-room"
	eventChatMessage = "chat-message"
	eventTyping      = "typing"
	eventGetRooms    = "get-rooms"

	// eventConnected is sent by the transport itself, before any room event,
	// so the client learns its own connection id.
	eventConnected = "connected"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinRoomRequest struct {
	Username string `json:"username"`
	RoomName string `json:"roomName"`
}

type chatMessageRequest struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
}

type typingRequest struct {
	IsTyping bool   `json:"isTyping"`
	Username string `json:"username,omitempty"`
}

type connectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// encodeEvent wraps payload in an Envelope and marshals it.
func encodeEvent(name string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: name, Data: data})
}

// decodeData unmarshals an envelope's data. Missing data decodes as {}.
func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
