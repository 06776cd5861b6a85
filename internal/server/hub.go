// Package server coordinates client registration, event delivery, and
// connection cleanup for the chat relay via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/roomchat/internal/metrics"
	"github.com/Tyrowin/roomchat/internal/rooms"
)

// Hub manages all WebSocket client connections. It owns the live client set,
// feeds inbound events into the rooms core and implements rooms.Sender so the
// core can deliver events back to individual sockets.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	rooms    *rooms.Service
	cfg      Config
	origins  originPolicy
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHub creates a Hub for the given configuration together with the rooms
// core it drives. The returned Hub is ready to manage WebSocket connections
// once Run has been started.
func NewHub(cfg Config, logger zerolog.Logger) *Hub {
	cfg = sanitizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		cfg:        cfg,
		log:        logger.With().Str("component", "hub").Logger(),
	}
	h.origins = newOriginPolicy(cfg.AllowedOrigins, h.log)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	h.rooms = rooms.NewService(cfg.Rooms, h,
		rooms.WithAdHocRooms(cfg.AllowAdHocRooms),
		rooms.WithLogger(logger.With().Str("component", "rooms").Logger()),
	)
	h.refreshRoomGauges()
	return h
}

// Rooms exposes the membership core for read-only queries.
func (h *Hub) Rooms() *rooms.Service {
	return h.rooms
}

// Config returns the sanitized configuration the hub runs with.
func (h *Hub) Config() Config {
	cfg := h.cfg
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	cfg.Rooms = append([]string(nil), cfg.Rooms...)
	return cfg
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Send implements rooms.Sender. It never blocks: a client whose buffer is full
// is dropped from the hub and its pumps wind down, which in turn disconnects
// it from the rooms core.
func (h *Hub) Send(connID string, ev rooms.Event) {
	payload, err := encodeEvent(ev.Name, ev.Payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", ev.Name).Msg("encoding event")
		return
	}

	h.mutex.RLock()
	client, ok := h.clients[connID]
	h.mutex.RUnlock()
	if !ok {
		metrics.DroppedDeliveries.Inc()
		return
	}

	if !h.safeSend(client, payload) {
		metrics.DroppedDeliveries.Inc()
		if h.removeClient(client) {
			h.log.Warn().Str("conn", client.id).Str("addr", client.addr).Msg("client removed due to full send buffer")
		}
		return
	}
	metrics.OutboundEvents.WithLabelValues(ev.Name).Inc()
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Msg("recovered from panic in safeSend")
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	// Check if client is still registered and not closed
	if current, exists := h.clients[client.id]; !exists || current != client || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. This method should be called in a separate goroutine as it
// runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn().Msg("received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			if client == nil {
				continue
			}
			if h.removeClient(client) {
				h.log.Info().Str("conn", client.id).Str("addr", client.addr).Int("clients", h.ClientCount()).Msg("client unregistered")
			}
			h.rooms.Disconnect(client.id)
			h.refreshRoomGauges()
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	metrics.ActiveConnections.Set(float64(clientCount))
	h.log.Info().Str("conn", client.id).Str("addr", client.addr).Int("clients", clientCount).Msg("client registered")

	h.Send(client.id, rooms.Event{Name: eventConnected, Payload: connectedPayload{ConnectionID: client.id}})
	h.rooms.Connect(client.id)

	if client.conn == nil {
		return
	}
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// removeClient drops the client from the live set and closes its send
// channel. It reports whether the client was still registered.
func (h *Hub) removeClient(client *Client) bool {
	h.mutex.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mutex.Unlock()
		return false
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	metrics.ActiveConnections.Set(float64(clientCount))
	return true
}

// requestUnregister hands the client to Run for cleanup. After shutdown has
// begun nobody reads the channel, so the request is dropped.
func (h *Hub) requestUnregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) isClosed(client *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return client.closed
}

// dispatch decodes one inbound envelope and applies it to the rooms core.
func (h *Hub) dispatch(client *Client, raw []byte) {
	if h.isClosed(client) {
		return
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		h.log.Debug().Str("conn", client.id).Err(err).Msg("invalid envelope")
		h.replyError(client, "Invalid message format")
		return
	}

	var err error
	switch env.Event {
	case eventJoinRoom:
		var req joinRoomRequest
		if err = decodeData(env.Data, &req); err == nil {
			err = h.rooms.Join(client.id, req.Username, req.RoomName)
			h.refreshRoomGauges()
		}

	case eventLeaveRoom:
		err = h.rooms.Leave(client.id)
		h.refreshRoomGauges()

	case eventChatMessage:
		var req chatMessageRequest
		if err = decodeData(env.Data, &req); err == nil {
			err = h.rooms.RouteMessage(client.id, req.Text, req.Username)
		}

	case eventTyping:
		var req typingRequest
		if err = decodeData(env.Data, &req); err == nil {
			err = h.rooms.RouteTyping(client.id, req.IsTyping, req.Username)
		}

	case eventGetRooms:
		h.rooms.SendRooms(client.id)

	default:
		metrics.InboundEvents.WithLabelValues("unknown").Inc()
		h.replyError(client, fmt.Sprintf("Unknown event %q", env.Event))
		return
	}
	metrics.InboundEvents.WithLabelValues(env.Event).Inc()

	h.logDispatchError(client, env.Event, err)
}

func (h *Hub) logDispatchError(client *Client, event string, err error) {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case err == nil:
	case errors.Is(err, rooms.ErrNotInRoom), errors.Is(err, rooms.ErrUnknownRoom):
		h.log.Debug().Str("conn", client.id).Str("event", event).Err(err).Msg("event rejected")
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		h.log.Debug().Str("conn", client.id).Str("event", event).Err(err).Msg("invalid event payload")
		h.replyError(client, fmt.Sprintf("Invalid %s payload", event))
	default:
		h.log.Warn().Str("conn", client.id).Str("event", event).Err(err).Msg("event failed")
	}
}

func (h *Hub) replyError(client *Client, text string) {
	h.Send(client.id, rooms.Event{Name: rooms.EventError, Payload: rooms.ErrorPayload{Text: text}})
}

func (h *Hub) refreshRoomGauges() {
	for _, info := range h.rooms.ListRooms() {
		metrics.RoomMembers.WithLabelValues(info.Name).Set(float64(info.Count))
	}
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	h.log.Info().Msg("shutting down all client connections")

	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		h.removeClient(client)
		h.rooms.Disconnect(client.id)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn().Err(err).Str("addr", client.addr).Msg("error closing client connection")
			}
		}
	}

	h.refreshRoomGauges()
	h.log.Info().Int("closed", len(clients)).Msg("closed client connections")
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info().Msg("initiating hub shutdown")

	h.cancel()

	select {
	case <-h.done:
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info().Msg("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn().Msg("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
