// Package ws broadcasts live snapshot.tick and run.completed events to
// dashboard clients over WebSocket, mirroring the AMR demo's viewer-service
// bridge one connection manager instance at a time.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/amrfleet/core/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub tracks connected WebSocket clients and broadcasts JSON payloads to all
// of them.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	log     logger.Logger
}

// NewHub builds an empty Hub.
func NewHub(log logger.Logger) *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{}), log: log}
}

// ServeHTTP upgrades the request to a WebSocket connection and tracks it
// until the client disconnects. The dashboard only receives; it never sends
// anything the hub acts on, so incoming frames are read and discarded purely
// to detect disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("ws: upgrade failed: %v", err)
		return
	}
	h.add(conn)
	defer h.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	_ = conn.Close()
}

// Broadcast sends payload, marshaled as JSON, to every connected client.
// Clients whose write fails are dropped rather than retried.
func (h *Hub) Broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Errorf("ws: marshal broadcast payload failed: %v", err)
		return
	}

	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	var stale []*websocket.Conn
	for _, c := range clients {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			stale = append(stale, c)
		}
	}
	for _, c := range stale {
		h.remove(c)
	}
}
