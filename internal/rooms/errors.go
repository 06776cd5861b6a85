package rooms

import "errors"

var (
	// ErrNotInRoom is returned when a connection routes a message or typing
	// notice without having joined a room.
	ErrNotInRoom = errors.New("not in a room")

	// ErrUnknownRoom is returned when a join names a room outside the
	// declared set and ad-hoc rooms are disabled.
	ErrUnknownRoom = errors.New("unknown room")

	// ErrUnknownConnection is returned for ids that were never connected or
	// have already disconnected.
	ErrUnknownConnection = errors.New("unknown connection")
)
