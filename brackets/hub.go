package brackets

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Event is the wire format for every message pushed to clients.
type Event struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	Room    string      `json:"room,omitempty"`
}

// TournamentRoom and UserRoom build the room names clients subscribe to.
func TournamentRoom(tournamentID int) string { return fmt.Sprintf("tournament:%d", tournamentID) }
func UserRoom(userID int) string             { return fmt.Sprintf("user:%d", userID) }

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	rooms  []string
	closed bool
	mu     sync.Mutex
}

func NewClient(hub *Hub, conn *websocket.Conn, rooms ...string) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, 32),
		rooms: rooms,
	}
}

// Hub fans events out to connected websocket clients. A client belongs to
// zero or more rooms; BroadcastAll reaches every client regardless of rooms.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	mu      sync.RWMutex

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		rooms:      make(map[string]map[*Client]struct{}),
		clients:    make(map[*Client]struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			for _, room := range client.rooms {
				if _, ok := h.rooms[room]; !ok {
					h.rooms[room] = make(map[*Client]struct{})
				}
				h.rooms[room][client] = struct{}{}
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for _, room := range client.rooms {
					delete(h.rooms[room], client)
					if len(h.rooms[room]) == 0 {
						delete(h.rooms, room)
					}
				}
				client.close()
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				client.trySend(message)
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastAll pushes an event to every connected client.
func (h *Hub) BroadcastAll(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal broadcast event", slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast channel full, dropping event", slog.String("type", event.Type))
	}
}

// BroadcastToRoom pushes an event to every client subscribed to the room.
func (h *Hub) BroadcastToRoom(room string, event Event) {
	event.Room = room
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal room event", slog.String("room", room), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[room] {
		client.trySend(data)
	}
}

func (h *Hub) Register(client *Client)   { h.register <- client }
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

func (c *Client) trySend(message []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- message:
	default:
		// Slow consumer: drop rather than block the hub.
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

// ReadPump drains (and ignores) inbound frames so pong handling works, and
// unregisters the client when the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
