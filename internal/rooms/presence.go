package rooms

import (
	"fmt"
	"time"
)

// leaveLocked removes c from its room and tells the remaining members: a
// user-left notice followed by a fresh roster snapshot.
func (s *Service) leaveLocked(c *connection) {
	r := c.room
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	c.room = nil
	c.joinedAt = time.Time{}

	s.log.Info().Str("conn", c.id).Str("user", c.username).Str("room", r.name).
		Int("members", len(r.members)).Msg("left room")

	notice := Event{Name: EventUserLeft, Payload: NoticePayload{
		Text:      fmt.Sprintf("%s left the room", c.username),
		Timestamp: s.timestamp(),
		Username:  c.username,
	}}
	for _, m := range r.members {
		s.send(m.id, notice)
	}
	s.broadcastRoster(r)
}

// enterLocked adds c to r. The joiner gets a confirmation, the other members a
// user-joined notice, and everyone in r (joiner included) a roster snapshot.
func (s *Service) enterLocked(c *connection, r *room) {
	now := s.timestamp()
	c.room = r
	c.joinedAt = now
	r.members = append(r.members, c)

	s.log.Info().Str("conn", c.id).Str("user", c.username).Str("room", r.name).
		Int("members", len(r.members)).Msg("joined room")

	s.send(c.id, Event{Name: EventJoinedRoom, Payload: JoinedRoomPayload{
		RoomName:    r.name,
		WelcomeText: fmt.Sprintf("Welcome to %s, %s!", r.name, c.username),
		Timestamp:   now,
	}})

	notice := Event{Name: EventUserJoined, Payload: NoticePayload{
		Text:      fmt.Sprintf("%s joined the room", c.username),
		Timestamp: now,
		Username:  c.username,
	}}
	for _, m := range r.members {
		if m != c {
			s.send(m.id, notice)
		}
	}
	s.broadcastRoster(r)
}

// broadcastRoster sends the full member snapshot of r to every member of r.
func (s *Service) broadcastRoster(r *room) {
	ev := Event{Name: EventRoomUsers, Payload: RosterPayload{RoomName: r.name, Users: snapshot(r)}}
	for _, m := range r.members {
		s.send(m.id, ev)
	}
}
