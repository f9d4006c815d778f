// Package websocket streams monitor snapshots to browser clients
package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/abelzeko/awlr-monitor/internal/monitoring"
)

// Message is the envelope of everything sent to clients
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub. Call Run before registering clients.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 32),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			log.Println("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client registered: %s", client.Conn.RemoteAddr())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("WebSocket client unregistered: %s", client.Conn.RemoteAddr())
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					log.Printf("WebSocket client %s send buffer full, removing.", client.Conn.RemoteAddr())
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// RegisterClient registers a new client with the hub. It reports false once the hub has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastSnapshot queues a snapshot for every client. It never blocks the
// monitor: when the queue is full the snapshot is dropped.
func (h *Hub) BroadcastSnapshot(snap monitoring.Snapshot) {
	messageBytes, err := EncodeSnapshot(snap)
	if err != nil {
		log.Printf("Error marshalling snapshot for broadcast: %v", err)
		return
	}

	select {
	case h.broadcast <- messageBytes:
	default:
		log.Printf("Warning: broadcast queue full, dropping %s snapshot", snap.Event)
	}
}

// EncodeSnapshot wraps a snapshot in the snapshot envelope
func EncodeSnapshot(snap monitoring.Snapshot) ([]byte, error) {
	return json.Marshal(Message{Type: "snapshot", Payload: snap})
}
