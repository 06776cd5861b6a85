package rooms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterNames(t *testing.T, ev Event) []string {
	t.Helper()
	require.Equal(t, EventRoomUsers, ev.Name)
	payload, ok := ev.Payload.(RosterPayload)
	require.True(t, ok, "unexpected roster payload %T", ev.Payload)
	out := make([]string, 0, len(payload.Users))
	for _, u := range payload.Users {
		out = append(out, u.Username)
	}
	return out
}

func TestFreshJoinEffects(t *testing.T) {
	s, rec := newTestService()
	connectAll(s, rec, "a", "b")
	require.NoError(t, s.Join("a", "alice", "General"))

	first := rec.take()
	require.Len(t, first, 2)
	assert.Equal(t, []string{EventJoinedRoom, EventRoomUsers}, names(eventsTo(first, "a")))

	require.NoError(t, s.Join("b", "bob", "General"))
	got := rec.take()

	require.Len(t, got, 4)
	assert.Equal(t, "b", got[0].to)
	assert.Equal(t, EventJoinedRoom, got[0].ev.Name)
	joined := got[0].ev.Payload.(JoinedRoomPayload)
	assert.Equal(t, "General", joined.RoomName)
	assert.Equal(t, "Welcome to General, bob!", joined.WelcomeText)
	assert.False(t, joined.Timestamp.IsZero())

	assert.Equal(t, "a", got[1].to)
	assert.Equal(t, EventUserJoined, got[1].ev.Name)
	assert.Equal(t, "bob", got[1].ev.Payload.(NoticePayload).Username)
	assert.Equal(t, "bob joined the room", got[1].ev.Payload.(NoticePayload).Text)

	assert.Equal(t, "a", got[2].to)
	assert.Equal(t, []string{"alice", "bob"}, rosterNames(t, got[2].ev))
	assert.Equal(t, "b", got[3].to)
	assert.Equal(t, []string{"alice", "bob"}, rosterNames(t, got[3].ev))

	requireConsistent(t, s)
}

func TestSwitchRoomEffects(t *testing.T) {
	s, rec := newTestService()
	connectAll(s, rec, "a", "b", "c", "d")
	require.NoError(t, s.Join("a", "alice", "General"))
	require.NoError(t, s.Join("b", "bob", "General"))
	require.NoError(t, s.Join("c", "carol", "General"))
	require.NoError(t, s.Join("d", "dave", "Random"))
	rec.take()

	require.NoError(t, s.Join("c", "carol", "Random"))
	got := rec.take()

	type step struct{ to, name string }
	steps := make([]step, 0, len(got))
	for _, d := range got {
		steps = append(steps, step{d.to, d.ev.Name})
	}
	assert.Equal(t, []step{
		{"a", EventUserLeft},
		{"b", EventUserLeft},
		{"a", EventRoomUsers},
		{"b", EventRoomUsers},
		{"c", EventJoinedRoom},
		{"d", EventUserJoined},
		{"d", EventRoomUsers},
		{"c", EventRoomUsers},
	}, steps)

	assert.Equal(t, "carol", got[0].ev.Payload.(NoticePayload).Username)
	assert.Equal(t, []string{"alice", "bob"}, rosterNames(t, got[2].ev))
	assert.Equal(t, []string{"dave", "carol"}, rosterNames(t, got[7].ev))
	assert.Empty(t, eventsTo(got[:4], "c"), "the switcher gets no notice about the room it left")

	requireConsistent(t, s)
}

func TestRejoinSameRoomReplaysLeaveThenJoin(t *testing.T) {
	s, rec := newTestService()
	connectAll(s, rec, "a", "b")
	require.NoError(t, s.Join("a", "alice", "General"))
	require.NoError(t, s.Join("b", "bob", "General"))
	rec.take()

	require.NoError(t, s.Join("b", "bob", "General"))
	got := rec.take()

	assert.Equal(t, []string{EventUserLeft, EventRoomUsers, EventUserJoined, EventRoomUsers}, names(eventsTo(got, "a")))
	assert.Equal(t, []string{EventJoinedRoom, EventRoomUsers}, names(eventsTo(got, "b")))

	toA := eventsTo(got, "a")
	assert.Equal(t, []string{"alice"}, rosterNames(t, toA[1]))
	assert.Equal(t, []string{"alice", "bob"}, rosterNames(t, toA[3]))

	members := s.MembersOf("General")
	require.Len(t, members, 2)
	requireConsistent(t, s)
}

func TestRenameOnRejoinUsesOldNameForLeave(t *testing.T) {
	s, rec := newTestService()
	connectAll(s, rec, "a", "b")
	require.NoError(t, s.Join("a", "alice", "General"))
	require.NoError(t, s.Join("b", "bob", "General"))
	rec.take()

	require.NoError(t, s.Join("b", "robert", "General"))
	toA := eventsTo(rec.take(), "a")

	require.Len(t, toA, 4)
	assert.Equal(t, "bob", toA[0].Payload.(NoticePayload).Username)
	assert.Equal(t, "robert", toA[2].Payload.(NoticePayload).Username)
}

func TestDisconnectEffects(t *testing.T) {
	s, rec := newTestService()
	connectAll(s, rec, "a", "b", "c")
	require.NoError(t, s.Join("a", "alice", "General"))
	require.NoError(t, s.Join("b", "bob", "General"))
	rec.take()

	s.Disconnect("c")
	assert.Empty(t, rec.take(), "unjoined disconnect has no side effects")

	s.Disconnect("b")
	got := rec.take()

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].to)
	assert.Equal(t, EventUserLeft, got[0].ev.Name)
	assert.Equal(t, "bob left the room", got[0].ev.Payload.(NoticePayload).Text)
	assert.Equal(t, []string{"alice"}, rosterNames(t, got[1].ev))
	assert.Empty(t, eventsTo(got, "b"))

	requireConsistent(t, s)
}

func TestLastMemberLeavingSendsNothingToRoom(t *testing.T) {
	s, rec := newTestService()
	connectAll(s, rec, "a")
	require.NoError(t, s.Join("a", "alice", "General"))
	rec.take()

	s.Disconnect("a")

	assert.Empty(t, rec.take())
	assert.Equal(t, RoomInfo{Name: "General"}, s.ListRooms()[0])
}
