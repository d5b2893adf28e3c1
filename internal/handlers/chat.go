package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hixa-chat-service/internal/models"
	"hixa-chat-service/internal/notifications"
	"hixa-chat-service/internal/observability"
	"hixa-chat-service/internal/repositories"
	"hixa-chat-service/internal/rooms"
	"hixa-chat-service/internal/telemetry"
	"hixa-chat-service/internal/ws"
)

// lastMessageSnippetLimit bounds the denormalized last-message cache.
const lastMessageSnippetLimit = 140

// ChatHandler manages room and message endpoints.
type ChatHandler struct {
	roomRepo    repositories.RoomRepository
	messageRepo repositories.MessageRepository
	access      *rooms.AccessChecker
	notifier    *notifications.Notifier
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(roomRepo repositories.RoomRepository, messageRepo repositories.MessageRepository, access *rooms.AccessChecker, notifier *notifications.Notifier, hub *ws.Hub, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		access:      access,
		notifier:    notifier,
		hub:         hub,
		audit:       audit,
	}
}

// ListProjectRooms returns the project rooms visible to the caller with
// unread counts.
func (h *ChatHandler) ListProjectRooms(c *gin.Context) {
	userID := c.GetInt("userID")

	projectRooms, err := h.roomRepo.ListProjectRoomsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}

	summaries := make([]models.ProjectRoomSummary, 0, len(projectRooms))
	for _, room := range projectRooms {
		unread, err := h.messageRepo.CountUnreadForProjectRoom(c.Request.Context(), room.ID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread"})
			return
		}
		summaries = append(summaries, models.ProjectRoomSummary{ProjectRoom: room, UnreadCount: unread})
	}

	c.JSON(http.StatusOK, gin.H{"rooms": summaries})
}

// ListChatRooms returns the chat rooms of a project room visible to the
// caller, each with its unread count.
func (h *ChatHandler) ListChatRooms(c *gin.Context) {
	projectRoomID, err := strconv.Atoi(c.Param("project_room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project room id"})
		return
	}

	userID := c.GetInt("userID")
	if _, err := h.roomRepo.GetProjectRoom(c.Request.Context(), projectRoomID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "project room not found"})
		return
	}

	var chatRooms []models.ChatRoom
	if roleFromContext(c) == models.RoleAdmin {
		chatRooms, err = h.roomRepo.ListChatRooms(c.Request.Context(), projectRoomID)
	} else {
		chatRooms, err = h.roomRepo.ListChatRoomsForUser(c.Request.Context(), projectRoomID, userID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat rooms"})
		return
	}

	summaries := make([]models.ChatRoomSummary, 0, len(chatRooms))
	for _, room := range chatRooms {
		unread, err := h.messageRepo.CountUnreadForChatRoom(c.Request.Context(), room.ID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread"})
			return
		}
		summaries = append(summaries, models.ChatRoomSummary{ChatRoom: room, UnreadCount: unread})
	}

	c.JSON(http.StatusOK, gin.H{"chat_rooms": summaries})
}

// GetChatRoomMessages returns the room history. Archived rooms still serve
// history reads.
func (h *ChatHandler) GetChatRoomMessages(c *gin.Context) {
	chatRoomID, err := strconv.Atoi(c.Param("chat_room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat room id"})
		return
	}

	userID := c.GetInt("userID")
	if !h.authorize(c, chatRoomID, userID) {
		return
	}

	msgs, err := h.messageRepo.ListRoomMessages(c.Request.Context(), chatRoomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage stores a message, refreshes the last-message cache,
// broadcasts it to joined members and notifies absent participants.
// Persistence failures propagate; delivery failures never do.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatRoomID, err := strconv.Atoi(c.Param("chat_room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat room id"})
		return
	}

	userID := c.GetInt("userID")
	if !h.authorize(c, chatRoomID, userID) {
		return
	}

	var req struct {
		Content     string             `json:"content" binding:"required"`
		Type        models.MessageType `json:"type"`
		Attachments models.Attachments `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msgType := req.Type
	if msgType == "" {
		msgType = models.MessageText
	}
	if msgType == models.MessageSystem {
		c.JSON(http.StatusBadRequest, gin.H{"error": "system messages are reserved"})
		return
	}

	room, err := h.roomRepo.GetChatRoom(c.Request.Context(), chatRoomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat room not found"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), chatRoomID, userID, msgType, req.Content, req.Attachments)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	observability.IncMessageSent(string(msg.Type))

	if err := h.roomRepo.UpdateLastMessage(c.Request.Context(), chatRoomID, snippet(msg.Content), msg.SenderID, msg.CreatedAt); err != nil {
		log.Printf("last message cache update failed for room %d: %v", chatRoomID, err)
	}

	h.hub.BroadcastToRoom(chatRoomID, models.ServerEvent{
		Type:       models.EventNewMessage,
		ChatRoomID: chatRoomID,
		Message:    &msg,
	}, userID)

	h.notifyAbsentParticipants(c, room, msg)

	h.emitAuditEntity(c, "INFO", "Chat message sent", "message", int64(msg.ID))
	c.JSON(http.StatusCreated, msg)
}

// MarkRoomRead advances the caller's read watermark to now.
func (h *ChatHandler) MarkRoomRead(c *gin.Context) {
	chatRoomID, err := strconv.Atoi(c.Param("chat_room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat room id"})
		return
	}

	userID := c.GetInt("userID")
	if err := h.roomRepo.UpdateLastReadAt(c.Request.Context(), chatRoomID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrNotParticipant) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": "could not mark room read"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetChatRoomUnread returns the caller's unread count for one room.
func (h *ChatHandler) GetChatRoomUnread(c *gin.Context) {
	chatRoomID, err := strconv.Atoi(c.Param("chat_room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat room id"})
		return
	}

	userID := c.GetInt("userID")
	count, err := h.messageRepo.CountUnreadForChatRoom(c.Request.Context(), chatRoomID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// ArchiveChatRoom moves a room to the archived state (admin only).
func (h *ChatHandler) ArchiveChatRoom(c *gin.Context) {
	if roleFromContext(c) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}

	chatRoomID, err := strconv.Atoi(c.Param("chat_room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat room id"})
		return
	}

	if err := h.roomRepo.ArchiveChatRoom(c.Request.Context(), chatRoomID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not archive room"})
		return
	}

	h.emitAuditEntity(c, "INFO", "Chat room archived", "chat_room", int64(chatRoomID))
	c.Status(http.StatusNoContent)
}

// notifyAbsentParticipants persists a notification for every participant who
// is neither the sender nor currently viewing the room. Failures are logged
// and swallowed so they never fail the message request.
func (h *ChatHandler) notifyAbsentParticipants(c *gin.Context, room models.ChatRoom, msg models.Message) {
	participants, err := h.roomRepo.ListParticipants(c.Request.Context(), room.ID)
	if err != nil {
		log.Printf("participant lookup failed for room %d: %v", room.ID, err)
		return
	}

	for _, p := range participants {
		if p.UserID == msg.SenderID || h.hub.IsJoined(p.UserID, room.ID) {
			continue
		}
		_, err := h.notifier.Notify(c.Request.Context(), p.UserID, models.NotificationNewMessage,
			"New message", snippet(msg.Content), models.MessageNotificationData{
				ProjectID:  room.ProjectID,
				ChatRoomID: room.ID,
				MessageID:  msg.ID,
				SenderID:   msg.SenderID,
			})
		if err != nil {
			log.Printf("notification failed for user %d: %v", p.UserID, err)
		}
	}
}

func (h *ChatHandler) authorize(c *gin.Context, chatRoomID int, userID int) bool {
	allowed, err := h.access.CanAccess(c.Request.Context(), chatRoomID, userID, roleFromContext(c))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat room not found"})
		return false
	}
	if !allowed {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for room"})
		return false
	}
	return true
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func (h *ChatHandler) emitAuditEntity(c *gin.Context, level, text, entity string, entityID int64) {
	if h.audit == nil {
		return
	}
	h.audit.EmitEntity(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c), entity, entityID)
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= lastMessageSnippetLimit {
		return content
	}
	return string(runes[:lastMessageSnippetLimit])
}
