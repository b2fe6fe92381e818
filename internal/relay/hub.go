package relay

import (
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/01moynul/stepup-orders/internal/auth"
)

// AdminScope receives every order event.
const AdminScope = "admins"

// UserScope is the scope holding one customer's connections.
func UserScope(userID int64) string {
	return "user_" + strconv.FormatInt(userID, 10)
}

// ScopesFor derives subscriptions from a verified identity.
func ScopesFor(id auth.Identity) []string {
	if id.IsAdmin() {
		return []string{AdminScope}
	}
	return []string{UserScope(id.UserID)}
}

// Hub tracks live subscribers by scope.
type Hub struct {
	mu      sync.RWMutex
	scopes  map[string]map[*client]struct{}
	clients map[*client]struct{}
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		scopes:  make(map[string]map[*client]struct{}),
		clients: make(map[*client]struct{}),
		log:     log,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	for _, scope := range c.scopes {
		members, ok := h.scopes[scope]
		if !ok {
			members = make(map[*client]struct{})
			h.scopes[scope] = members
		}
		members[c] = struct{}{}
	}
}

// unregister removes c from every scope and closes its send channel.
// Calling it twice is safe.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for _, scope := range c.scopes {
		members := h.scopes[scope]
		delete(members, c)
		if len(members) == 0 {
			delete(h.scopes, scope)
		}
	}
	close(c.send)
}

// Emit queues frame for every subscriber of scope and returns how many
// accepted it. Subscribers with a full buffer miss the frame.
func (h *Hub) Emit(scope string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.scopes[scope] {
		select {
		case c.send <- frame:
			delivered++
		default:
			h.log.Warn("subscriber buffer full, frame dropped",
				zap.String("conn_id", c.id),
				zap.String("scope", scope),
			)
		}
	}
	return delivered
}

// Connections is the number of live subscribers.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers is the number of live subscribers in scope.
func (h *Hub) Subscribers(scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes[scope])
}
