// Package testhelpers provides common utilities for exercising the room chat
// server end to end: a ready-to-use test server and a WebSocket client that
// speaks the event envelope protocol.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/rooms"
	"github.com/Tyrowin/roomchat/internal/server"
)

// TestOrigin is the Origin header every helper client sends.
const TestOrigin = "http://localhost:8080"

// DefaultTimeout bounds every wait for an inbound event.
const DefaultTimeout = 2 * time.Second

// TestServer bundles a running hub with the HTTP server in front of it.
type TestServer struct {
	Hub   *server.Hub
	HTTP  *httptest.Server
	WSURL string
}

// StartServer runs a hub and an httptest server with rooms General, Random
// and Tech. mutate may adjust the configuration before the hub is built.
// Both are stopped when the test ends.
func StartServer(t *testing.T, mutate func(cfg *server.Config)) *TestServer {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{TestOrigin}
	cfg.Rooms = []string{"General", "Random", "Tech"}
	if mutate != nil {
		mutate(cfg)
	}

	hub := server.NewHub(*cfg, zerolog.Nop())
	go hub.Run()

	srv := httptest.NewServer(server.SetupRoutes(hub))
	t.Cleanup(func() {
		_ = hub.Shutdown(2 * time.Second)
		srv.Close()
	})

	return &TestServer{
		Hub:   hub,
		HTTP:  srv,
		WSURL: WebSocketURL(srv.URL),
	}
}

// WebSocketURL converts an http(s) base URL into the /ws endpoint URL.
func WebSocketURL(baseURL string) string {
	return "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
}

// Dial opens a raw WebSocket connection with the given Origin header. An
// empty origin sends none.
func Dial(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// Client is a test WebSocket client. A background reader splits coalesced
// frames and queues every envelope it receives.
type Client struct {
	t      *testing.T
	Conn   *websocket.Conn
	ID     string
	Rooms  []rooms.RoomInfo
	events chan server.Envelope
}

// Connect dials the server, consumes the connected and available-rooms
// greeting and returns the client. The connection is closed when the test ends.
func Connect(t *testing.T, url string) *Client {
	t.Helper()

	conn, _, err := Dial(url, TestOrigin)
	require.NoError(t, err, "dialing %s", url)

	c := &Client{t: t, Conn: conn, events: make(chan server.Envelope, 1024)}
	go c.readLoop()
	t.Cleanup(func() { _ = c.Conn.Close() })

	var connected struct {
		ConnectionID string `json:"connectionId"`
	}
	c.Decode(c.Expect("connected"), &connected)
	require.NotEmpty(t, connected.ConnectionID)
	c.ID = connected.ConnectionID

	var available rooms.RoomsPayload
	c.Decode(c.Expect(rooms.EventAvailableRooms), &available)
	c.Rooms = available.Rooms

	return c
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			var env server.Envelope
			if err := json.Unmarshal([]byte(line), &env); err != nil {
				continue
			}
			c.events <- env
		}
	}
}

// Send writes one event envelope.
func (c *Client) Send(event string, data any) {
	c.t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.Conn.WriteJSON(server.Envelope{Event: event, Data: payload}))
}

// SendRaw writes a raw text frame.
func (c *Client) SendRaw(data []byte) error {
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Next returns the next received envelope, failing the test on timeout or
// when the connection has closed.
func (c *Client) Next() server.Envelope {
	c.t.Helper()
	select {
	case env, ok := <-c.events:
		require.True(c.t, ok, "connection closed while waiting for an event")
		return env
	case <-time.After(DefaultTimeout):
		require.FailNow(c.t, "timed out waiting for an event")
		return server.Envelope{}
	}
}

// Expect skips envelopes until one with the given event name arrives.
func (c *Client) Expect(event string) server.Envelope {
	c.t.Helper()
	deadline := time.After(DefaultTimeout)
	for {
		select {
		case env, ok := <-c.events:
			require.True(c.t, ok, "connection closed while waiting for %q", event)
			if env.Event == event {
				return env
			}
		case <-deadline:
			require.FailNow(c.t, "timed out waiting for event", event)
			return server.Envelope{}
		}
	}
}

// ExpectSilence fails the test if any envelope arrives within d.
func (c *Client) ExpectSilence(d time.Duration) {
	c.t.Helper()
	select {
	case env, ok := <-c.events:
		if ok {
			require.FailNow(c.t, "unexpected event", "%s: %s", env.Event, env.Data)
		}
	case <-time.After(d):
	}
}

// WaitClosed drains events until the server closes the connection and
// reports whether that happened within d.
func (c *Client) WaitClosed(d time.Duration) bool {
	deadline := time.After(d)
	for {
		select {
		case _, ok := <-c.events:
			if !ok {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

// Decode unmarshals an envelope's data into v.
func (c *Client) Decode(env server.Envelope, v any) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(env.Data, v), "decoding %s", env.Event)
}

// Join sends join-room and waits for the server to confirm with joined-room
// and the resulting roster.
func (c *Client) Join(username, room string) rooms.RosterPayload {
	c.t.Helper()
	c.Send("join-room", map[string]string{"username": username, "roomName": room})

	var joined rooms.JoinedRoomPayload
	c.Decode(c.Expect(rooms.EventJoinedRoom), &joined)
	require.Equal(c.t, room, joined.RoomName)

	var roster rooms.RosterPayload
	c.Decode(c.Expect(rooms.EventRoomUsers), &roster)
	return roster
}

// Chat sends a chat-message.
func (c *Client) Chat(text string) {
	c.t.Helper()
	c.Send("chat-message", map[string]string{"text": text})
}

// Close sends a normal close frame and closes the socket.
func (c *Client) Close() {
	_ = c.Conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.Conn.Close()
}

// Usernames extracts usernames from a roster in order.
func Usernames(roster rooms.RosterPayload) []string {
	names := make([]string, 0, len(roster.Users))
	for _, u := range roster.Users {
		names = append(names, u.Username)
	}
	return names
}

// GetJSON performs a GET request and decodes the JSON body into v.
func GetJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp
}
