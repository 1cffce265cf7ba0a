package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one UI socket subscribed to the live state stream.
type Client struct {
	ID   string          // Generated per connection, used in logs
	Send chan []byte     // Buffered outbound frames
	Conn *websocket.Conn // interface for Gorilla/WebSocket
}

// Hub fans state frames out to every connected UI client. New clients get
// the latest frame immediately.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan []byte

	logger  *log.Logger
	mu      sync.RWMutex     // Guards clients and latest
	clients map[*Client]bool // Registered UI sockets
	latest  []byte           // Last broadcast frame, replayed to new clients
	done    chan struct{}    // Closed when Run returns
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []byte),
		logger:     logger,
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Run services the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			// Shut down: closing Send ends every write pump
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			if h.latest != nil {
				client.Send <- h.latest // Send buffer is empty, so this never blocks
			}
			h.mu.Unlock()
			h.logger.Printf("[Hub] client %s registered", client.ID)
		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
		case frame := <-h.Broadcast:
			h.mu.Lock()
			h.latest = frame
			for client := range h.clients {
				select {
				case client.Send <- frame:
				default:
					// Buffer full: drop the slow client
					h.logger.Printf("[Hub] dropping slow client %s", client.ID)
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues frame for broadcast, giving up when ctx is done.
func (h *Hub) Publish(ctx context.Context, frame []byte) {
	select {
	case h.Broadcast <- frame:
	case <-ctx.Done():
	case <-h.done:
	}
}

// ServeWS upgrades r and streams hub frames to it. Anything the UI sends is
// ignored; reads only detect the socket closing.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[Hub] upgrade failed: %v", err)
		return
	}
	client := &Client{
		ID:   uuid.NewString(),
		Send: make(chan []byte, 16),
		Conn: conn,
	}
	select {
	case h.Register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Read pump
	go func() {
		defer func() {
			select {
			case h.Unregister <- client:
			case <-h.done:
			}
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	// Write pump
	go func() {
		for frame := range client.Send {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				conn.Close()
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()
}
