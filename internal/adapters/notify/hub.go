package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/fantasycricket/pkg/logger"
	"github.com/okian/fantasycricket/pkg/metrics"
)

// Client is one subscription. Send is closed when the client is unregistered.
type Client struct {
	ID     string
	UserID string
	Send   chan []byte

	conn *websocket.Conn
	hub  *Hub
}

// Hub routes messages to the clients of each user. It is an explicit value
// owned by whoever builds the server; there is no package-level instance.
type Hub struct {
	mu     sync.RWMutex
	users  map[string]map[*Client]struct{}
	count  int
	closed bool
	cfg    settings
}

// NewHub returns an empty hub.
func NewHub(opts ...Option) *Hub {
	return &Hub{
		users: make(map[string]map[*Client]struct{}),
		cfg:   newSettings("hub", opts),
	}
}

// NewClient builds an unconnected client for userID.
func (h *Hub) NewClient(userID string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Send:   make(chan []byte, h.cfg.sendBuffer),
		hub:    h,
	}
}

// Register adds c to the hub.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	set, ok := h.users[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[c.UserID] = set
	}
	set[c] = struct{}{}
	h.count++
	metrics.UpdateWebsocketClients(h.count)
	h.cfg.log.Debug(context.Background(), "client registered", logger.String("client_id", c.ID), logger.String("user_id", c.UserID))
	return nil
}

// Unregister removes c and closes its Send channel. Repeated calls are no-ops.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

// remove reports whether c was still registered. Caller holds h.mu.
func (h *Hub) remove(c *Client) bool {
	set, ok := h.users[c.UserID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.UserID)
	}
	close(c.Send)
	h.count--
	metrics.UpdateWebsocketClients(h.count)
	return true
}

// Publish queues data for every client of userID and returns how many
// accepted it. A client whose buffer is full is disconnected.
func (h *Hub) Publish(userID string, data []byte) int {
	var delivered int
	var slow []*Client

	h.mu.RLock()
	for c := range h.users[userID] {
		select {
		case c.Send <- data:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.drop(slow)
	}
	return delivered
}

// drop disconnects slow clients and returns how many it removed. A client
// already gone by the time the write lock is taken is not counted.
func (h *Hub) drop(slow []*Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var n int
	for _, c := range slow {
		if h.remove(c) {
			metrics.RecordNotification("dropped")
			n++
		}
	}
	return n
}

// NotifyUser implements the ledger notifier for a single process.
func (h *Hub) NotifyUser(ctx context.Context, userID, eventType string, payload any) error {
	data, err := encode(userID, eventType, payload, h.cfg.now())
	if err != nil {
		metrics.RecordNotification("failed")
		return err
	}
	if h.Publish(userID, data) == 0 {
		metrics.RecordNotification("no_subscriber")
		return nil
	}
	metrics.RecordNotification("delivered")
	return nil
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, set := range h.users {
		for c := range set {
			h.remove(c)
		}
	}
}
