package rooms

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxUsernameLength = 32
	anonymousName     = "Anonymous"
)

// Connect registers a new, unjoined connection and sends it the room listing.
// Connecting an id that is already registered is a no-op.
func (s *Service) Connect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[id]; ok {
		return
	}
	s.conns[id] = &connection{id: id}
	s.log.Debug().Str("conn", id).Int("connections", len(s.conns)).Msg("connection registered")

	s.send(id, Event{Name: EventAvailableRooms, Payload: RoomsPayload{Rooms: s.listLocked()}})
}

// Join moves the connection into roomName under the given display name.
//
// A connection that is already in a room leaves it first, with the usual leave
// notices to that room. This also happens when roomName is the room the
// connection is already in: clients re-issue join-room after reconnecting and
// rely on the resulting leave/join broadcasts to resync everyone's view.
func (s *Service) Join(id, username, roomName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[id]
	if !ok {
		return fmt.Errorf("join %s: %w", id, ErrUnknownConnection)
	}

	roomName = strings.TrimSpace(roomName)
	target := s.lookupRoom(roomName)
	if target == nil {
		s.send(id, errorEvent(fmt.Sprintf("Room %q does not exist", roomName)))
		return fmt.Errorf("join %q: %w", roomName, ErrUnknownRoom)
	}

	if c.room != nil {
		s.leaveLocked(c)
	}
	c.username = cleanUsername(username)
	s.enterLocked(c, target)
	return nil
}

// Leave removes the connection from its current room. It is a no-op for a
// connection that has not joined one. The username is kept.
func (s *Service) Leave(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[id]
	if !ok {
		return fmt.Errorf("leave %s: %w", id, ErrUnknownConnection)
	}
	if c.room == nil {
		return nil
	}

	name := c.room.name
	s.leaveLocked(c)
	s.send(id, Event{Name: EventLeftRoom, Payload: LeftRoomPayload{RoomName: name, Timestamp: s.timestamp()}})
	return nil
}

// Disconnect leaves the current room, if any, and forgets the connection.
// Calling it again for the same id does nothing.
func (s *Service) Disconnect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[id]
	if !ok {
		return
	}
	if c.room != nil {
		s.leaveLocked(c)
	}
	delete(s.conns, id)
	s.log.Debug().Str("conn", id).Int("connections", len(s.conns)).Msg("connection removed")
}

// ResolveRoom returns the name of the connection's current room.
func (s *Service) ResolveRoom(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[id]
	if !ok || c.room == nil {
		return "", false
	}
	return c.room.name, true
}

// ConnectionCount returns the number of registered connections.
func (s *Service) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Service) lookupRoom(name string) *room {
	if r, ok := s.rooms[name]; ok {
		return r
	}
	if !s.adHoc || name == "" {
		return nil
	}
	s.log.Info().Str("room", name).Msg("ad-hoc room created")
	return s.addRoom(name)
}

// cleanUsername trims the name, drops control characters and caps its length.
func cleanUsername(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))

	if utf8.RuneCountInString(name) > maxUsernameLength {
		name = strings.TrimSpace(string([]rune(name)[:maxUsernameLength]))
	}
	if name == "" {
		return anonymousName
	}
	return name
}
