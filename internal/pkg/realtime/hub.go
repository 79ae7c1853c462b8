package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/pkg/metrics"
)

// ErrHubStopped is returned when delivering to a hub whose Run loop has exited
var ErrHubStopped = errors.New("realtime hub stopped")

type delivery struct {
	userID int64
	data   []byte
}

// Hub maintains the set of active clients and delivers events to them
type Hub struct {
	// Registered clients organized by user ID
	clients map[int64]map[*Client]bool
	total   int

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Encoded events waiting for delivery
	deliver chan delivery

	// Closed when Run returns
	done chan struct{}

	// Guards clients for readers outside the Run loop
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registrations and deliveries until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case d := <-h.deliver:
			h.deliverToUser(d)
		}
	}
}

// SendToUser queues ev for every connection of userID on this instance
func (h *Hub) SendToUser(ctx context.Context, userID int64, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	select {
	case h.deliver <- delivery{userID: userID, data: data}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientsCount returns the number of connections of userID
func (h *Hub) ClientsCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// TotalClients returns the number of connections on this instance
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// IsOnline reports whether userID has at least one connection
func (h *Hub) IsOnline(userID int64) bool {
	return h.ClientsCount(userID) > 0
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	h.total++
	total := h.total
	h.mu.Unlock()

	metrics.SetRealtimeClients(total)
	h.logger.Info().
		Int64("userID", client.userID).
		Str("addr", client.remoteAddr).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	if h.removeClient(client) {
		h.logger.Info().
			Int64("userID", client.userID).
			Str("addr", client.remoteAddr).
			Msg("Client unregistered")
	}
}

// removeClient must only be called from the Run loop
func (h *Hub) removeClient(client *Client) bool {
	h.mu.Lock()
	clients, ok := h.clients[client.userID]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return false
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)
	h.total--
	total := h.total
	h.mu.Unlock()

	metrics.SetRealtimeClients(total)
	return true
}

func (h *Hub) deliverToUser(d delivery) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[d.userID]))
	for client := range h.clients[d.userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		h.logger.Debug().Int64("userID", d.userID).Msg("No local clients for user")
		return
	}

	for _, client := range targets {
		select {
		case client.send <- d.data:
		default:
			// Client's send buffer is full, drop the connection
			if h.removeClient(client) {
				metrics.RecordDroppedClient()
				h.logger.Warn().
					Int64("userID", client.userID).
					Str("addr", client.remoteAddr).
					Msg("Dropped slow client")
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for userID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, userID)
	}
	h.total = 0
	h.mu.Unlock()

	metrics.SetRealtimeClients(0)
	h.logger.Info().Msg("Realtime hub stopped")
}
