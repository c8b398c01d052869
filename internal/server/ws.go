package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/facewatch/internal/pipeline"
	"github.com/gorilla/websocket"
)

const (
	eventBuffer  = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventHub broadcasts dispatched detections to websocket clients.
// It is a pipeline.Observer; Observe never blocks the detection loop.
type EventHub struct {
	events  chan []byte
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex

	dropped atomic.Uint64
	done    chan struct{}
	once    sync.Once
}

// NewEventHub creates a hub and starts its broadcast goroutine.
func NewEventHub() *EventHub {
	h := &EventHub{
		events:  make(chan []byte, eventBuffer),
		clients: make(map[*websocket.Conn]bool),
		done:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

type eventMessage struct {
	Type  string         `json:"type"`
	Event pipeline.Event `json:"event"`
}

// Observe queues ev for broadcast, dropping it when the queue is full.
func (h *EventHub) Observe(ev pipeline.Event) {
	msg, err := json.Marshal(eventMessage{Type: "detection", Event: ev})
	if err != nil {
		return
	}

	select {
	case <-h.done:
	case h.events <- msg:
	default:
		h.dropped.Add(1)
	}
}

// Clients returns the number of connected websocket clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends queued events to all connected clients.
func (h *EventHub) broadcast() {
	for {
		select {
		case <-h.done:
			return
		case msg := <-h.events:
			h.mu.RLock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Printf("server: websocket write error: %v", err)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Close stops broadcasting and disconnects every client.
func (h *EventHub) Close() {
	h.once.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for conn := range h.clients {
			conn.Close()
		}
	})
}
