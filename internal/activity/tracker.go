// Package activity broadcasts gallery activity (page fetches, like toggles,
// sign-ins) to connected websocket clients so an attached UI can reflect
// loading state in real time.
package activity

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Event types.
const (
	TypeFetch = "fetch"
	TypeLike  = "like"
	TypeAuth  = "auth"
)

// recentLimit bounds the replay buffer sent to newly connected clients.
const recentLimit = 50

// Event is one unit of gallery activity.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Variant   string    `json:"variant,omitempty"`
	Page      int       `json:"page,omitempty"`
	Count     int       `json:"count,omitempty"`
	Total     int       `json:"total,omitempty"`
	ContentID string    `json:"content_id,omitempty"`
	Liked     bool      `json:"liked,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	ElapsedMS int64     `json:"elapsed_ms,omitempty"`
	At        time.Time `json:"at"`
}

// Tracker fans activity events out to websocket clients.
type Tracker struct {
	mu         sync.RWMutex
	recent     []Event
	clients    map[*websocket.Conn]bool
	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

// NewTracker creates a tracker and starts its broadcast loop.
func NewTracker() *Tracker {
	t := &Tracker{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Event, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}

	go t.run()

	return t
}

// run handles client registration and event fan-out.
func (t *Tracker) run() {
	for {
		select {
		case client := <-t.register:
			t.mu.Lock()
			t.clients[client] = true
			replay := make([]Event, len(t.recent))
			copy(replay, t.recent)
			t.mu.Unlock()

			for _, event := range replay {
				t.sendToClient(client, event)
			}

		case client := <-t.unregister:
			t.mu.Lock()
			if _, ok := t.clients[client]; ok {
				delete(t.clients, client)
				client.Close()
			}
			t.mu.Unlock()

		case event := <-t.broadcast:
			t.mu.RLock()
			for client := range t.clients {
				t.sendToClient(client, event)
			}
			t.mu.RUnlock()
		}
	}
}

// sendToClient writes one event to a single client.
func (t *Tracker) sendToClient(client *websocket.Conn, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Failed to marshal activity event: %v", err)
		return
	}

	client.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debugf("Failed to send to activity client: %v", err)
		// Client will be unregistered on its next read error.
	}
}

// Publish stamps and broadcasts an event. Safe to call on a nil tracker so
// callers don't have to guard the wiring.
func (t *Tracker) Publish(event Event) {
	if t == nil {
		return
	}

	event.ID = uuid.NewString()
	event.At = time.Now()

	t.mu.Lock()
	t.recent = append(t.recent, event)
	if len(t.recent) > recentLimit {
		t.recent = t.recent[len(t.recent)-recentLimit:]
	}
	t.mu.Unlock()

	// Non-blocking send; a full channel drops the update.
	select {
	case t.broadcast <- event:
	default:
	}
}

// Recent returns a copy of the replay buffer.
func (t *Tracker) Recent() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	recent := make([]Event, len(t.recent))
	copy(recent, t.recent)
	return recent
}

// RegisterClient attaches a websocket client.
func (t *Tracker) RegisterClient(client *websocket.Conn) {
	t.register <- client
}

// UnregisterClient detaches a websocket client.
func (t *Tracker) UnregisterClient(client *websocket.Conn) {
	t.unregister <- client
}

// ClientCount returns the number of connected clients.
func (t *Tracker) ClientCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.clients)
}
