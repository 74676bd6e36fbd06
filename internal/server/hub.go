package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"aqualink/internal/view"
)

// Hub pushes view snapshots to connected display clients over
// WebSocket. Every orchestrator state change broadcasts the full
// snapshot; clients need no incremental-merge logic.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Display clients live on the plant intranet; origin is not checked
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Broadcast sends a snapshot to every connected client, dropping
// clients whose connection errors
func (h *Hub) Broadcast(snap view.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if err := client.WriteJSON(snap); err != nil {
			h.logger.Warn("dropping websocket client",
				slog.Any("error", err),
			)
			client.Close()
			delete(h.clients, client)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client, used at shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

// HandleWebSocket upgrades the request and registers the client. An
// initial snapshot is sent immediately so a freshly connected display
// renders without waiting for the next state change.
func (h *Hub) HandleWebSocket(snapshot func() view.Snapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !websocket.IsWebSocketUpgrade(r) {
			http.Error(w, "websocket upgrade required", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error("websocket upgrade failed", slog.Any("error", err))
			return
		}

		// The initial write and registration share the hub lock:
		// Broadcast holds the same lock for its writes, so the
		// connection never has two concurrent writers.
		snap := snapshot()
		h.mu.Lock()
		if err := conn.WriteJSON(snap); err != nil {
			h.mu.Unlock()
			conn.Close()
			return
		}
		h.clients[conn] = true
		count := len(h.clients)
		h.mu.Unlock()
		h.logger.Info("websocket client connected", slog.Int("clients", count))

		// Reader loop: the protocol is push-only, so inbound messages
		// are discarded; the loop exists to detect disconnects.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err,
						websocket.CloseGoingAway,
						websocket.CloseNormalClosure,
						websocket.CloseAbnormalClosure) {
						h.logger.Warn("websocket read error", slog.Any("error", err))
					}
					h.unregister(conn)
					return
				}
			}
		}()
	}
}

// unregister removes and closes one client
func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[conn]; ok {
		conn.Close()
		delete(h.clients, conn)
		h.logger.Info("websocket client disconnected", slog.Int("clients", len(h.clients)))
	}
}
