package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"gatechat/internal/models"
	"gatechat/internal/observability"
)

var ErrHubClosed = errors.New("hub is shut down")

// Hub owns the registry and rooms for the process and broadcasts presence.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	logger   *slog.Logger

	// presenceMu orders snapshots with their delivery.
	presenceMu sync.Mutex

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		rooms:    NewRooms(),
		logger:   logger.With(slog.String("component", "hub")),
		clients:  make(map[*Client]struct{}),
	}
}

// Connect registers c as its user's current socket and broadcasts presence.
func (h *Hub) Connect(c *Client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	prev, err := h.registry.Register(c.UserID(), c)
	if err != nil {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		return err
	}
	if prev != nil {
		h.logger.Debug("socket superseded", slog.Int("user_id", c.UserID()), slog.String("previous", prev.ID()), slog.String("current", c.ID()))
	}

	observability.SocketOpened()
	h.broadcastPresence()
	return nil
}

// Disconnect drops c with its rooms. It is safe to call more than once.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.mu.Unlock()

	removed := h.registry.RemoveIf(c.UserID(), c)
	left := h.rooms.DropAll(c)
	c.close()
	observability.SocketClosed()
	h.logger.Debug("socket disconnected", slog.Int("user_id", c.UserID()), slog.String("conn_id", c.ID()), slog.Int("rooms", len(left)))

	if removed {
		h.broadcastPresence()
	}
}

// JoinGroups adds c to the rooms of groupIDs.
func (h *Hub) JoinGroups(c *Client, groupIDs []int) {
	if !h.connected(c) {
		return
	}
	for _, id := range groupIDs {
		if id <= 0 {
			continue
		}
		h.rooms.Join(c, id)
	}
}

// HandleFrame dispatches one inbound envelope.
func (h *Hub) HandleFrame(c *Client, raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.logger.Debug("invalid frame", slog.String("conn_id", c.ID()), slog.Any("error", err))
		return
	}

	switch env.Event {
	case models.EventJoinGroups:
		var ids []int
		if err := json.Unmarshal(env.Data, &ids); err != nil {
			h.logger.Debug("invalid join-groups payload", slog.String("conn_id", c.ID()), slog.Any("error", err))
			return
		}
		h.JoinGroups(c, ids)
		observability.CountSocketEvent("frame", models.EventJoinGroups)
	default:
		h.logger.Debug("unknown event", slog.String("event", env.Event))
	}
}

// SendToUser pushes an event to the user's current socket. It reports false
// when the user is offline or the frame could not be queued.
func (h *Hub) SendToUser(userID int, event string, data any) bool {
	c, ok := h.registry.Lookup(userID)
	if !ok {
		return false
	}
	payload, err := models.EncodeEnvelope(event, data)
	if err != nil {
		h.logger.Error("encode push", slog.String("event", event), slog.Any("error", err))
		return false
	}
	return c.Enqueue(payload)
}

// OnlineUsers is the presence snapshot.
func (h *Hub) OnlineUsers() []int {
	return h.registry.ListOnline()
}

func (h *Hub) RoomSizes() map[int]int {
	return h.rooms.Sizes()
}

// Shutdown disconnects every client and refuses new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.Disconnect(c)
	}
	h.logger.Info("hub stopped", slog.Int("clients", len(clients)))
}

func (h *Hub) connected(c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[c]
	return ok
}

// broadcastPresence sends the online list to every live socket, including
// superseded ones that are still open.
func (h *Hub) broadcastPresence() {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	online := h.registry.ListOnline()

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	payload, err := models.EncodeEnvelope(models.EventOnlineUsers, online)
	if err != nil {
		h.logger.Error("encode presence", slog.Any("error", err))
		return
	}
	for _, c := range clients {
		c.Enqueue(payload)
	}
	observability.ObservePresence(len(online), len(clients))
}
