// Package server is the transport layer of the room chat relay.
//
// It accepts WebSocket connections, assigns each one an id, decodes inbound
// JSON envelopes into calls on the rooms core, and delivers the events the
// core emits back to the right sockets. Configuration, origin checks,
// per-connection rate limiting, HTTP routes and middleware live here too.
package server
