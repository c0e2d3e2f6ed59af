package serve

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one message on the websocket feed.
type Event struct {
	Type      string    `json:"type"`
	TaskID    string    `json:"task_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// eventHub fans task lifecycle events out to websocket subscribers. Slow
// subscribers are dropped rather than allowed to stall the publisher.
type eventHub struct {
	mu     sync.Mutex
	subs   map[*websocket.Conn]chan Event
	closed bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is local tooling; same-origin enforcement is left to the
	// deployment in front of it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[*websocket.Conn]chan Event)}
}

func (h *eventHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	ch := make(chan Event, 32)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.subs[conn] = ch
	h.mu.Unlock()

	go h.writeLoop(conn, ch)

	// Reads are discarded; the feed is one-way. The loop exits when the
	// client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

func (h *eventHub) writeLoop(conn *websocket.Conn, ch chan Event) {
	for ev := range ch {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(conn)
			return
		}
	}
	conn.Close()
}

func (h *eventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	ch, ok := h.subs[conn]
	if ok {
		delete(h.subs, conn)
		close(ch)
	}
	h.mu.Unlock()
	conn.Close()
}

// publish sends an event to every subscriber, skipping any with a full
// buffer.
func (h *eventHub) publish(ev Event) {
	ev.Timestamp = time.Now().UTC()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for conn, ch := range h.subs {
		delete(h.subs, conn)
		close(ch)
		conn.Close()
	}
}
