package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/anonto42/studyhub/backend/pkg/metrics"
)

// RoomBroadcaster pushes an ephemeral event to every connection in a room
// except exceptConnID (empty excludes nobody). Delivery is best effort.
type RoomBroadcaster interface {
	Emit(roomID, event string, payload interface{}, exceptConnID string)
}

// RoomAuthorizer reports whether userID may join roomID.
type RoomAuthorizer func(ctx context.Context, userID, roomID string) bool

const authorizeTimeout = 5 * time.Second

// Hub tracks live connections and the conversation rooms they joined. It
// holds no durable state: a restart forgets every room and clients re-join
// on reconnect.
type Hub struct {
	mu          sync.RWMutex
	conns       map[string]*Client
	rooms       map[string]map[string]*Client
	memberships map[string]map[string]struct{}
	authorize   RoomAuthorizer

	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		conns:       make(map[string]*Client),
		rooms:       make(map[string]map[string]*Client),
		memberships: make(map[string]map[string]struct{}),
		metrics:     m,
	}
}

// SetAuthorizer installs the check run on every client join request. A hub
// without one admits every join.
func (h *Hub) SetAuthorizer(fn RoomAuthorizer) {
	h.mu.Lock()
	h.authorize = fn
	h.mu.Unlock()
}

func (h *Hub) mayJoin(userID, roomID string) bool {
	h.mu.RLock()
	fn := h.authorize
	h.mu.RUnlock()
	if fn == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
	defer cancel()
	return fn(ctx, userID, roomID)
}

// Register makes a connection addressable by its id.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.conns[c.ID] = c
	h.memberships[c.ID] = make(map[string]struct{})
	h.mu.Unlock()
	h.metrics.ConnectionOpened()
}

// Join adds the connection to the room, creating the room on first join.
// Joining twice is a no-op; unknown connections are ignored.
func (h *Hub) Join(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return
	}
	room := h.rooms[roomID]
	if room == nil {
		room = make(map[string]*Client)
		h.rooms[roomID] = room
	}
	room[connID] = c
	h.memberships[connID][roomID] = struct{}{}
	h.metrics.SetRooms(len(h.rooms))
}

// Leave removes the connection from the room; an emptied room is dropped.
func (h *Hub) Leave(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(connID, roomID)
	h.metrics.SetRooms(len(h.rooms))
}

func (h *Hub) leaveLocked(connID, roomID string) {
	if room, ok := h.rooms[roomID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if rooms, ok := h.memberships[connID]; ok {
		delete(rooms, roomID)
	}
}

// Disconnect leaves every room the connection joined and closes its send
// queue, which stops its write loop. Safe to call more than once.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	for roomID := range h.memberships[connID] {
		h.leaveLocked(connID, roomID)
	}
	delete(h.memberships, connID)
	delete(h.conns, connID)
	close(c.send)
	h.metrics.SetRooms(len(h.rooms))
	h.mu.Unlock()

	h.metrics.ConnectionClosed()
}

// Close disconnects every registered connection.
func (h *Hub) Close() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Disconnect(id)
	}
}

// Emit implements RoomBroadcaster. The frame is encoded once and queued on
// each peer without blocking; a peer with a full queue misses the event.
func (h *Hub) Emit(roomID, event string, payload interface{}, exceptConnID string) {
	frame, err := encode(event, payload)
	if err != nil {
		slog.Warn("relay: encode event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, c := range h.rooms[roomID] {
		if id == exceptConnID {
			continue
		}
		select {
		case c.send <- frame:
			delivered++
		default:
			h.metrics.EventDropped()
			slog.Debug("relay: peer queue full, event dropped", "conn_id", id, "event", event)
		}
	}
	h.metrics.EventRelayed(event, delivered)
}

// RoomSize returns the number of connections in the room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) isMember(connID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.memberships[connID][roomID]
	return ok
}

// RoomCount returns the number of non-empty rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// HandleEvent applies one client frame sent on connection connID, whose
// authenticated user is userID. Malformed, unknown and unauthorized events
// are dropped without a reply. Typing events carry userID whatever the
// payload claims, and only reach rooms the connection joined.
func (h *Hub) HandleEvent(connID, userID string, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		slog.Debug("relay: malformed frame", "conn_id", connID, "error", err)
		return
	}

	switch env.Event {
	case EventJoinConversation:
		roomID, err := decodeRoomID(env.Data)
		if err != nil {
			slog.Debug("relay: bad join", "conn_id", connID, "error", err)
			return
		}
		if !h.mayJoin(userID, roomID) {
			slog.Debug("relay: join denied", "conn_id", connID, "user_id", userID, "room", roomID)
			return
		}
		h.Join(connID, roomID)

	case EventLeaveConversation:
		roomID, err := decodeRoomID(env.Data)
		if err != nil {
			slog.Debug("relay: bad leave", "conn_id", connID, "error", err)
			return
		}
		h.Leave(connID, roomID)

	case EventTypingStart:
		var p TypingStart
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ConversationID == "" {
			slog.Debug("relay: bad typing-start", "conn_id", connID)
			return
		}
		if !h.isMember(connID, p.ConversationID) {
			return
		}
		h.Emit(p.ConversationID, EventUserTyping, UserTyping{UserID: userID, UserName: p.UserName}, connID)

	case EventTypingStop:
		var p TypingStop
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ConversationID == "" {
			slog.Debug("relay: bad typing-stop", "conn_id", connID)
			return
		}
		if !h.isMember(connID, p.ConversationID) {
			return
		}
		h.Emit(p.ConversationID, EventUserStopTyping, UserStopTyping{UserID: userID}, connID)

	default:
		slog.Debug("relay: unknown event", "conn_id", connID, "event", env.Event)
	}
}
