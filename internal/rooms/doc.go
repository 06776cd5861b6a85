// Package rooms implements the room membership and message-routing core of
// the chat relay.
//
// A Service tracks which connection sits in which room, keeps that view
// consistent across joins, leaves and disconnects, and fans presence, chat
// and typing events out to the right subset of connections through a
// transport-provided Sender.
package rooms
