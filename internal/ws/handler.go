package ws

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"hixa-chat-service/internal/auth"
	"hixa-chat-service/internal/models"
	"hixa-chat-service/internal/observability"
	"hixa-chat-service/internal/repositories"
	"hixa-chat-service/internal/rooms"
)

// Handler owns the single realtime endpoint: it authenticates the handshake,
// registers the connection and serves the client event loop
// (join_room / leave_room / typing / read_receipt).
type Handler struct {
	hub         *Hub
	access      *rooms.AccessChecker
	userRepo    repositories.UserRepository
	messageRepo repositories.MessageRepository
	verifier    auth.TokenVerifier
}

// NewHandler constructs a websocket Handler.
func NewHandler(hub *Hub, access *rooms.AccessChecker, userRepo repositories.UserRepository, messageRepo repositories.MessageRepository, verifier auth.TokenVerifier) *Handler {
	return &Handler{hub: hub, access: access, userRepo: userRepo, messageRepo: messageRepo, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client. A failed
// handshake is refused before registration; a failed room join later only
// produces an error event on the open connection.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("hixa-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	claims, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := h.userRepo.GetUser(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := ""
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		Role:        user.Role,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.Register(user.ID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   connPayload(info, "ws_connect", ""),
	}, observability.BuildHeaders(requestID, traceID))

	go h.readLoop(ctx, conn, info)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.Unregister(info.UserID, conn)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   connPayload(info, "ws_disconnect", closeReason),
		}, observability.BuildHeaders(info.RequestID, info.TraceID))
		conn.Close()
	}()

	for {
		var event models.ClientEvent
		if err := conn.ReadJSON(&event); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}
		h.dispatch(ctx, info, event)
	}
}

func (h *Handler) dispatch(ctx context.Context, info ConnInfo, event models.ClientEvent) {
	switch event.Type {
	case models.ClientJoinRoom:
		h.handleJoin(ctx, info, event.RoomID)
	case models.ClientLeaveRoom:
		h.hub.LeaveRoom(info.UserID, event.RoomID)
		h.hub.SendToUser(info.UserID, models.ServerEvent{Type: models.EventLeftRoom, RoomID: event.RoomID})
		observability.IncWSEvent("leave_room")
	case models.ClientTyping:
		if h.hub.IsJoined(info.UserID, event.ChatRoomID) {
			h.hub.BroadcastToRoom(event.ChatRoomID, models.ServerEvent{
				Type:       models.EventUserTyping,
				ChatRoomID: event.ChatRoomID,
				UserID:     info.UserID,
				IsTyping:   event.IsTyping,
			}, info.UserID)
		}
	case models.ClientReadReceipt:
		h.handleReadReceipt(ctx, info, event)
	default:
		h.hub.SendToUser(info.UserID, models.ServerEvent{Type: models.EventError, Error: "unknown event type"})
	}
}

// handleJoin re-derives authorization from persisted state on every attempt;
// admins pass unconditionally inside the checker.
func (h *Handler) handleJoin(ctx context.Context, info ConnInfo, roomID int) {
	allowed, err := h.access.CanAccess(ctx, roomID, info.UserID, info.Role)
	if err != nil || !allowed {
		if err != nil {
			log.Printf("ws join authorization failed for user %d room %d: %v", info.UserID, roomID, err)
		}
		h.hub.SendToUser(info.UserID, models.ServerEvent{Type: models.EventError, RoomID: roomID, Error: "not authorized for room"})
		return
	}
	h.hub.JoinRoom(info.UserID, roomID)
	h.hub.SendToUser(info.UserID, models.ServerEvent{Type: models.EventJoinedRoom, RoomID: roomID})
	observability.IncWSEvent("join_room")
}

func (h *Handler) handleReadReceipt(ctx context.Context, info ConnInfo, event models.ClientEvent) {
	if err := h.messageRepo.MarkMessagesRead(ctx, event.ChatRoomID, info.UserID, event.MessageIDs); err != nil {
		log.Printf("ws read receipt failed for user %d room %d: %v", info.UserID, event.ChatRoomID, err)
		h.hub.SendToUser(info.UserID, models.ServerEvent{Type: models.EventError, ChatRoomID: event.ChatRoomID, Error: "could not mark messages read"})
		return
	}
	h.hub.BroadcastToRoom(event.ChatRoomID, models.ServerEvent{
		Type:       models.EventMessagesRead,
		ChatRoomID: event.ChatRoomID,
		UserID:     info.UserID,
		MessageIDs: event.MessageIDs,
	}, info.UserID)
	observability.IncWSEvent("read_receipt")
}

func (h *Handler) validateToken(header string) (auth.Claims, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.verifier.Verify(parts[1])
	}
	return auth.Claims{}, auth.ErrInvalidToken
}

func connPayload(info ConnInfo, event, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
