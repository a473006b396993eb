// Package notify broadcasts pipeline events to connected websocket
// clients. Delivery is fire-and-forget: no persistence, no replay.
package notify

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is one broadcast message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Notifier is the broadcast surface the pipeline uses.
type Notifier interface {
	// Notify broadcasts a pipeline progress event for a resource.
	Notify(resourceID, message string)

	// AskResponse broadcasts an answer to a previously asked question.
	AskResponse(resourceID, question, response string)
}

// Hub tracks connected websocket clients and fans events out to them.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, same trust domain as the REST API
			},
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// HandleWS upgrades the request and registers the client until it
// disconnects. Inbound messages are drained and discarded; the socket
// is broadcast-only.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", count)

	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Notify broadcasts a notification event.
func (h *Hub) Notify(resourceID, message string) {
	h.broadcast(Event{
		Type: "notification",
		Payload: map[string]string{
			"resourceId": resourceID,
			"message":    message,
		},
	})
}

// AskResponse broadcasts an answer event.
func (h *Hub) AskResponse(resourceID, question, response string) {
	h.broadcast(Event{
		Type: "askResponse",
		Payload: map[string]string{
			"resourceId": resourceID,
			"question":   question,
			"response":   response,
		},
	})
}

// broadcast writes to every client under the lock, which also
// serializes writes per connection as gorilla requires. Clients that
// fail a write are dropped.
func (h *Hub) broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Debug("dropping websocket client", "error", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
