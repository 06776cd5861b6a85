// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, the room listing API, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Tyrowin/roomchat/internal/rooms"
)

// HealthResponse is the JSON body served on /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if h.origins.allows(r) {
		return true
	}

	h.log.Warn().Str("origin", r.Header.Get("Origin")).Msg("blocked websocket connection from disallowed origin")
	return false
}

// WebSocketHandler handles WebSocket upgrade requests. It validates that the
// request uses the GET method, upgrades the HTTP connection to WebSocket and
// registers a new Client with the hub, which launches its pumps.
func (h *Hub) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(conn, h, r.RemoteAddr)

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close()
	}
}

// HealthHandler provides a simple liveness endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Room chat server is running!")
}

// HealthCheckHandler reports liveness together with connection and room counts.
func (h *Hub) HealthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Connections: h.ClientCount(),
		Rooms:       len(h.rooms.ListRooms()),
	})
}

// RoomsHandler returns every room with its current occupancy, the same data
// clients receive in rooms-list.
func (h *Hub) RoomsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rooms.RoomsPayload{Rooms: h.rooms.ListRooms()})
}

// RoomUsersHandler returns the roster of one room in join order. Unknown rooms
// yield an empty list.
func (h *Hub) RoomUsersHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "room")
	writeJSON(w, http.StatusOK, rooms.RosterPayload{RoomName: name, Users: h.rooms.MembersOf(name)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
