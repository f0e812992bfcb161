package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
)

// pingInterval is how often an idle connection receives a keep-alive
const pingInterval = 30 * time.Second

// Client represents one connected WebSocket client
type Client struct {
	Conn *websocket.Conn
	Send chan []byte

	mu     sync.Mutex
	closed bool
}

// trySend queues a message without blocking. Returns false when the
// client is closed or its buffer is full.
func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// closeSend marks the client closed and closes its send channel. Safe to
// call more than once; the flag keeps late pong writes from hitting a
// closed channel.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Hub fans broadcast events out to every connected client. Delivery is
// best-effort: a client whose send buffer is full or whose transport
// fails is dropped, and the broadcast continues for the rest. There is
// no replay; clients that connect late re-fetch state over HTTP.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client connected (%d active)", h.count())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected (%d active)", h.count())

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.trySend(msg) {
					// Slow client: drop it rather than block the rest
					client.closeSend()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastSunoUpdate pushes a normalized generation status to all clients
func (h *Hub) BroadcastSunoUpdate(jobID string, status model.NormalizedStatus) {
	msg := model.WSSunoUpdate{
		Type:             model.WSEventSunoUpdate,
		JobID:            jobID,
		NormalizedStatus: status,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal suno-update message: %v", err)
		return
	}

	h.broadcast <- data
}

// BroadcastMixtapeReady pushes a mixtape outcome to all clients. Either
// downloadURL or errMsg is set, never both.
func (h *Hub) BroadcastMixtapeReady(taskID, downloadURL, errMsg string) {
	msg := model.WSMixtapeReady{
		Type:        model.WSEventMixtapeReady,
		TaskID:      taskID,
		DownloadURL: downloadURL,
		Error:       errMsg,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal mixtape-ready message: %v", err)
		return
	}

	h.broadcast <- data
}

// HandleConnection handles a WebSocket connection until it closes
func (h *Hub) HandleConnection(c *websocket.Conn) {
	client := &Client{
		Conn: c,
		Send: make(chan []byte, 256),
	}

	h.register <- client
	defer func() { h.unregister <- client }()

	// Writer goroutine: outgoing messages plus keep-alive pings
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong := model.WSMessage{Type: model.WSMessageTypePong}
			data, _ := json.Marshal(pong)
			client.trySend(data)
		}
	}
}
