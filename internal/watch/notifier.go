package watch

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ReloadEvent is broadcast to connected clients after a reload.
type ReloadEvent struct {
	Kind      string    `json:"kind"` // "reloaded" or "failed"
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier broadcasts reload events to WebSocket subscribers.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string]chan ReloadEvent
	upgrader    websocket.Upgrader
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		subscribers: make(map[string]chan ReloadEvent),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Notify broadcasts an event without blocking on slow subscribers.
func (n *Notifier) Notify(event ReloadEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	n.mu.RLock()
	channels := make([]chan ReloadEvent, 0, len(n.subscribers))
	for _, ch := range n.subscribers {
		channels = append(channels, ch)
	}
	n.mu.RUnlock()

	for _, ch := range channels {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a subscriber channel.
func (n *Notifier) Subscribe() (string, <-chan ReloadEvent) {
	ch := make(chan ReloadEvent, 8)
	id := uuid.New().String()

	n.mu.Lock()
	n.subscribers[id] = ch
	n.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	if ch, ok := n.subscribers[id]; ok {
		delete(n.subscribers, id)
		close(ch)
	}
	n.mu.Unlock()
}

// ServeHTTP upgrades the connection and streams reload events until the
// client disconnects.
func (n *Notifier) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id, events := n.Subscribe()
	defer n.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
