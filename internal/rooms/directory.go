package rooms

// ListRooms returns every known room with its member count, in declaration
// order. Ad-hoc rooms follow the declared ones in creation order.
func (s *Service) ListRooms() []RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

// MembersOf returns the roster of roomName ordered by join time. Unknown and
// empty rooms yield an empty slice.
func (s *Service) MembersOf(roomName string) []Member {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomName]
	if !ok {
		return []Member{}
	}
	return snapshot(r)
}

// SendRooms answers a get-rooms request with a rooms-list event.
func (s *Service) SendRooms(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[id]; !ok {
		return
	}
	s.send(id, Event{Name: EventRoomsList, Payload: RoomsPayload{Rooms: s.listLocked()}})
}

func (s *Service) listLocked() []RoomInfo {
	out := make([]RoomInfo, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, RoomInfo{Name: name, Count: len(s.rooms[name].members)})
	}
	return out
}

func snapshot(r *room) []Member {
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, Member{Username: m.username, JoinedAt: m.joinedAt})
	}
	return out
}
