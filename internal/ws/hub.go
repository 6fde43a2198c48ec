// Package ws broadcasts migration progress to admin dashboard
// connections over websockets.
package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// MessageType labels a hub payload.
type MessageType string

const (
	MessageMigrationStarted  MessageType = "MigrationStarted"
	MessageMigrationProgress MessageType = "MigrationProgress"
	MessageMigrationComplete MessageType = "MigrationComplete"
	MessageMigrationError    MessageType = "MigrationError"
)

// BroadcastMessage packages a payload for a session-scoped broadcast.
type BroadcastMessage struct {
	SessionID string
	Payload   []byte
}

// Hub manages active clients and session-scoped broadcasts. A client only
// receives payloads for the migration session it has subscribed to.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan BroadcastMessage
}

// NewHub builds a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan BroadcastMessage),
	}
}

// Run starts the hub loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				if client.SessionID() != message.SessionID {
					continue
				}
				select {
				case client.Send <- message.Payload:
				default:
					delete(h.clients, client)
					close(client.Send)
				}
			}
		}
	}
}

// Broadcast sends a payload to all clients watching a session.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.broadcast <- BroadcastMessage{SessionID: sessionID, Payload: payload}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Client represents a websocket connection.
type Client struct {
	Conn      *websocket.Conn
	Hub       *Hub
	Send      chan []byte
	mu        sync.RWMutex
	sessionID string
}

// NewClient returns a client ready for registration.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		Conn: conn,
		Hub:  hub,
		Send: make(chan []byte, 256),
	}
}

// SessionID returns the migration session the client is watching.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// SetSessionID updates the watched session for the client.
func (c *Client) SetSessionID(sessionID string) {
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
}
