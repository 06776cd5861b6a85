package rooms

import "fmt"

const (
	defaultChatName   = "Anonymous"
	defaultTypingName = "Someone"
)

// RouteMessage delivers text to every member of the sender's room, the sender
// included. Clients drop their own echo by comparing SenderConnectionID with
// their connection id. A sender without a room gets an error event and
// nothing is broadcast.
func (s *Service) RouteMessage(id, text, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[id]
	if !ok {
		return fmt.Errorf("route message from %s: %w", id, ErrUnknownConnection)
	}
	if c.room == nil {
		s.send(id, errorEvent("You must join a room before sending messages"))
		return fmt.Errorf("route message from %s: %w", id, ErrNotInRoom)
	}

	ev := Event{Name: EventChatMessage, Payload: ChatPayload{
		Text:               text,
		Username:           displayNameFor(c, displayName, defaultChatName),
		Timestamp:          s.timestamp(),
		SenderConnectionID: id,
		RoomName:           c.room.name,
	}}
	for _, m := range c.room.members {
		s.send(m.id, ev)
	}
	return nil
}

// RouteTyping relays a typing-state change to the other members of the
// sender's room. It does nothing when the sender has no room.
func (s *Service) RouteTyping(id string, isTyping bool, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[id]
	if !ok {
		return fmt.Errorf("route typing from %s: %w", id, ErrUnknownConnection)
	}
	if c.room == nil {
		return nil
	}

	ev := Event{Name: EventTyping, Payload: TypingPayload{
		Username: displayNameFor(c, displayName, defaultTypingName),
		IsTyping: isTyping,
	}}
	for _, m := range c.room.members {
		if m != c {
			s.send(m.id, ev)
		}
	}
	return nil
}

func displayNameFor(c *connection, displayName, fallback string) string {
	if displayName != "" {
		return displayName
	}
	if c.username != "" {
		return c.username
	}
	return fallback
}
