package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hixa-chat-service/internal/models"
	"hixa-chat-service/internal/observability"
)

// client wraps a websocket connection. Writes are serialized because gorilla
// connections do not allow concurrent writers.
type client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub is the realtime delivery layer: it maps each user to at most one live
// connection and tracks which chat rooms each connection currently views.
// Membership here is advisory for live delivery only; the persisted
// participant rows remain the source of truth for who belongs to a room.
//
// All state is per-process. A horizontally scaled deployment would need a
// shared registry; this service does not provide one.
type Hub struct {
	mu          sync.RWMutex
	clients     map[int]*client
	roomMembers map[int]map[int]struct{}
	userRooms   map[int]map[int]struct{}
	closed      bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[int]*client),
		roomMembers: make(map[int]map[int]struct{}),
		userRooms:   make(map[int]map[int]struct{}),
	}
}

// Register binds a connection to a user. A prior connection for the same
// user is closed and its room memberships dropped: last writer wins.
func (h *Hub) Register(userID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	prior, hadPrior := h.clients[userID]
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[userID] = &client{conn: conn, info: info}
	h.leaveAllLocked(userID)
	h.mu.Unlock()

	if hadPrior {
		prior.conn.Close()
	}
}

// Unregister removes the user's connection if it is still the given one, and
// cascades room membership cleanup. A stale unregister from a replaced
// connection's read loop is a no-op.
func (h *Hub) Unregister(userID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	current, ok := h.clients[userID]
	if !ok || current.conn != conn {
		return
	}
	delete(h.clients, userID)
	h.leaveAllLocked(userID)
}

// IsOnline reports whether a user has a live connection.
func (h *Hub) IsOnline(userID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// JoinRoom records that the user's connection is viewing the room. The
// caller must have verified room authorization first.
func (h *Hub) JoinRoom(userID int, roomID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; !ok {
		return
	}
	if _, ok := h.roomMembers[roomID]; !ok {
		h.roomMembers[roomID] = make(map[int]struct{})
	}
	h.roomMembers[roomID][userID] = struct{}{}
	if _, ok := h.userRooms[userID]; !ok {
		h.userRooms[userID] = make(map[int]struct{})
	}
	h.userRooms[userID][roomID] = struct{}{}
}

// LeaveRoom removes the user from the room, deleting empty entries in both
// direction maps.
func (h *Hub) LeaveRoom(userID int, roomID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(userID, roomID)
}

// IsJoined reports whether the user currently views the room.
func (h *Hub) IsJoined(userID int, roomID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.roomMembers[roomID][userID]
	return ok
}

// RoomMembers returns a snapshot of the user ids joined to a room.
func (h *Hub) RoomMembers(roomID int) []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]int, 0, len(h.roomMembers[roomID]))
	for userID := range h.roomMembers[roomID] {
		members = append(members, userID)
	}
	return members
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToUser delivers an event to the user's live connection. Offline users
// are a silent no-op: durable state is persisted by the caller before any
// push is attempted, so a miss is not an error.
func (h *Hub) SendToUser(userID int, event models.ServerEvent) {
	h.mu.RLock()
	target, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload, _ := json.Marshal(event)
	if err := target.write(payload); err != nil {
		log.Printf("websocket write error: %v", err)
		target.conn.Close()
		h.Unregister(userID, target.conn)
		h.publishWSError(target.info, err)
	}
}

// BroadcastToRoom delivers an event to every currently-joined member of the
// room except excludeUserID (0 excludes nobody). Liveness is checked per
// member at send time; one dead socket never aborts the rest.
func (h *Hub) BroadcastToRoom(roomID int, event models.ServerEvent, excludeUserID int) {
	members := h.RoomMembers(roomID)
	payload, _ := json.Marshal(event)

	for _, userID := range members {
		if userID == excludeUserID {
			continue
		}
		h.mu.RLock()
		target, ok := h.clients[userID]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		if err := target.write(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			target.conn.Close()
			h.Unregister(userID, target.conn)
			h.publishWSError(target.info, err)
		}
	}
}

// Close tears down every connection and clears all state. Subsequent
// registrations are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[int]*client)
	h.roomMembers = make(map[int]map[int]struct{})
	h.userRooms = make(map[int]map[int]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, target := range clients {
		target.conn.Close()
	}
}

func (h *Hub) leaveRoomLocked(userID int, roomID int) {
	if members, ok := h.roomMembers[roomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.roomMembers, roomID)
		}
	}
	if rooms, ok := h.userRooms[userID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(h.userRooms, userID)
		}
	}
}

func (h *Hub) leaveAllLocked(userID int) {
	for roomID := range h.userRooms[userID] {
		h.leaveRoomLocked(userID, roomID)
	}
	delete(h.userRooms, userID)
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
