package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownClient is returned when replying to a connection that is gone.
var ErrUnknownClient = errors.New("unknown client")

// EventHandler consumes tally socket events one at a time.
type EventHandler interface {
	HandleEvent(event types.Event)
}

// Hub tracks tally clients and funnels their events into one queue. Run
// drains the queue on a single goroutine, so the handler never sees two
// events at once.
type Hub struct {
	// Registered clients
	clients map[uuid.UUID]*Client

	// Connect, disconnect and message events in arrival order
	events chan types.Event

	// Closed when Run returns
	done     chan struct{}
	doneOnce sync.Once

	mu     sync.RWMutex
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		events:  make(chan types.Event, 256),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// Run delivers queued events to handler until ctx is cancelled, then closes
// every client connection.
func (h *Hub) Run(ctx context.Context, handler EventHandler) {
	h.logger.Info("Tally hub started")
	defer h.stop()

	for {
		select {
		case event := <-h.events:
			handler.HandleEvent(event)
		case <-ctx.Done():
			h.logger.Info("Tally hub stopped")
			return
		}
	}
}

func (h *Hub) stop() {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		close(client.send)
		client.conn.Close()
		delete(h.clients, id)
	}
}

func (h *Hub) enqueue(event types.Event) {
	select {
	case h.events <- event:
	case <-h.done:
	}
}

func (h *Hub) register(client *Client) bool {
	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		return false
	default:
	}
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Tally client connected",
		zap.String("remote_addr", client.remoteAddr),
		zap.Int("total_clients", total))

	h.enqueue(types.Event{Kind: types.EventConnected, Conn: client.id, RemoteAddr: client.remoteAddr})
	return true
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.id]
	if ok {
		delete(h.clients, client.id)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}

	h.logger.Info("Tally client disconnected",
		zap.String("remote_addr", client.remoteAddr),
		zap.Int("total_clients", total))

	h.enqueue(types.Event{Kind: types.EventDisconnected, Conn: client.id, RemoteAddr: client.remoteAddr})
}

// SendText queues a text frame for one client. It never blocks; a client
// whose buffer is full loses the frame.
func (h *Hub) SendText(id uuid.UUID, text string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[id]
	if !ok {
		return ErrUnknownClient
	}

	select {
	case client.send <- []byte(text):
		return nil
	default:
		h.logger.Warn("Client send buffer full, frame dropped",
			zap.String("remote_addr", client.remoteAddr))
		return nil
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
