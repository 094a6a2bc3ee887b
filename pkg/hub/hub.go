package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub maintains the set of active subscribers and broadcasts messages to them.
type Hub struct {
	name   string
	logger *slog.Logger

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // Closed when Run returns

	// OnCount, when set, is called from the hub loop whenever the number of
	// subscribers changes.
	OnCount func(n int)

	mu      sync.RWMutex // Guards clients for ClientCount
	running bool
}

// New creates a Hub. Call Run to start it.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger.With("component", "hub", "hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's loop. It returns when ctx is cancelled, closing every
// subscriber. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.running = false
			h.mu.Unlock()
			h.counted()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("client connected", "topic", c.topic, "clients", h.ClientCount())
			h.counted()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected", "clients", h.ClientCount())
			h.counted()

		case msg := <-h.broadcast:
			dropped := false
			h.mu.Lock()
			for c := range h.clients {
				if c.topic != "" && msg.Topic != "" && c.topic != msg.Topic {
					continue
				}
				select {
				case c.send <- msg:
				default:
					// Subscriber is too slow; drop it rather than block everyone.
					close(c.send)
					delete(h.clients, c)
					dropped = true
					h.logger.Warn("dropped slow client", "topic", c.topic)
				}
			}
			h.mu.Unlock()
			if dropped {
				h.counted()
			}
		}
	}
}

func (h *Hub) counted() {
	if h.OnCount != nil {
		h.OnCount(h.ClientCount())
	}
}

// Broadcast queues msg for every matching subscriber. It never blocks.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it on topic.
func (h *Hub) BroadcastJSON(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(topic, data))
	return nil
}

// BroadcastBinary broadcasts binary data on topic.
func (h *Hub) BroadcastBinary(topic string, data []byte) {
	h.Broadcast(NewBinaryMessage(topic, data))
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}
