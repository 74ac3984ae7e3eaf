// Package hub fans bus frames out to connected TCP clients.
package hub

import (
	"sync"

	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/logging"
	"github.com/vehnet/go-icsneo/internal/metrics"
)

// BackpressurePolicy decides what happens when a client queue is full.
type BackpressurePolicy int

const (
	// PolicyDrop silently drops frames for the slow client.
	PolicyDrop BackpressurePolicy = iota
	// PolicyKick disconnects the slow client.
	PolicyKick
)

// Client is one fan-out target. Out carries broadcast frames; Closed is
// closed exactly once when the client is kicked or torn down.
type Client struct {
	Out       chan can.Frame
	Closed    chan struct{}
	closeOnce sync.Once
}

// Close signals the client is done (idempotent).
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.Closed) })
}

// Hub tracks the connected clients and applies the backpressure policy.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	OutBufSize int
	Policy     BackpressurePolicy
}

func New() *Hub { return &Hub{clients: make(map[*Client]struct{})} }

// Add registers a client.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	wasEmpty := len(h.clients) == 0
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	if wasEmpty {
		logging.L().Info("clients_first_connected")
	}
}

// Remove unregisters a client and closes it; safe to call repeatedly.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	remaining := len(h.clients)
	h.mu.Unlock()
	c.Close()
	metrics.SetHubClients(remaining)
	if existed && remaining == 0 {
		logging.L().Info("clients_last_disconnected")
	}
}

// Broadcast delivers fr to every client, dropping or kicking the slow ones
// per the configured policy, and samples queue depth for the metrics.
func (h *Hub) Broadcast(fr can.Frame) {
	clients := h.Snapshot()
	metrics.SetBroadcastFanout(len(clients))
	metrics.SetHubClients(len(clients))
	if len(clients) > 0 {
		maxDepth, sum := 0, 0
		for _, c := range clients {
			depth := len(c.Out)
			if depth > maxDepth {
				maxDepth = depth
			}
			sum += depth
		}
		metrics.SetQueueDepth(maxDepth, sum/len(clients))
	}
	for _, c := range clients {
		select {
		case c.Out <- fr:
		default:
			if h.Policy == PolicyKick {
				metrics.IncHubKick()
				// Writer notices Closed and disconnects; server removes it.
				c.Close()
			} else {
				metrics.IncHubDrop()
			}
		}
	}
}

// Snapshot returns a copy of the current client set.
func (h *Hub) Snapshot() []*Client {
	h.mu.RLock()
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	h.mu.RUnlock()
	return out
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
