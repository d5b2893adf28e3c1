package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hixa-chat-service/internal/mocks"
	"hixa-chat-service/internal/models"
	"hixa-chat-service/internal/notifications"
	"hixa-chat-service/internal/repositories"
	"hixa-chat-service/internal/rooms"
	"hixa-chat-service/internal/ws"
)

func setupChatRouter(handler *ChatHandler, userID int, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", string(role))
		c.Next()
	})
	r.GET("/rooms", handler.ListProjectRooms)
	r.GET("/rooms/:project_room_id/chat-rooms", handler.ListChatRooms)
	r.GET("/chat-rooms/:chat_room_id/messages", handler.GetChatRoomMessages)
	r.POST("/chat-rooms/:chat_room_id/messages", handler.PostChatMessage)
	r.POST("/chat-rooms/:chat_room_id/read", handler.MarkRoomRead)
	r.GET("/chat-rooms/:chat_room_id/unread", handler.GetChatRoomUnread)
	r.PATCH("/chat-rooms/:chat_room_id/archive", handler.ArchiveChatRoom)
	return r
}

func newChatHandler(roomRepo *mocks.RoomRepositoryMock, messageRepo *mocks.MessageRepositoryMock, projectRepo *mocks.ProjectRepositoryMock, notificationRepo *mocks.NotificationRepositoryMock, hub *ws.Hub) *ChatHandler {
	access := rooms.NewAccessChecker(roomRepo, projectRepo)
	notifier := notifications.NewNotifier(notificationRepo, hub)
	return NewChatHandler(roomRepo, messageRepo, access, notifier, hub, nil)
}

func TestListProjectRoomsSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newChatHandler(roomRepo, messageRepo, new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 1, models.RoleClient)

	roomRepo.On("ListProjectRoomsForUser", mock.Anything, 1).Return([]models.ProjectRoom{{ID: 4, ProjectID: 9}}, nil).Once()
	messageRepo.On("CountUnreadForProjectRoom", mock.Anything, 4, 1).Return(2, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Rooms []models.ProjectRoomSummary `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Rooms, 1)
	assert.Equal(t, 4, resp.Rooms[0].ID)
	assert.Equal(t, 2, resp.Rooms[0].UnreadCount)

	roomRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestListChatRoomsAdminSeesAll(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newChatHandler(roomRepo, messageRepo, new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 1, models.RoleAdmin)

	roomRepo.On("GetProjectRoom", mock.Anything, 4).Return(models.ProjectRoom{ID: 4, ProjectID: 9}, nil).Once()
	roomRepo.On("ListChatRooms", mock.Anything, 4).Return([]models.ChatRoom{
		{ID: 10, ProjectRoomID: 4, Type: models.RoomAdminClient},
		{ID: 11, ProjectRoomID: 4, Type: models.RoomAdminEngineer},
	}, nil).Once()
	messageRepo.On("CountUnreadForChatRoom", mock.Anything, 10, 1).Return(0, nil).Once()
	messageRepo.On("CountUnreadForChatRoom", mock.Anything, 11, 1).Return(5, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/4/chat-rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	roomRepo.AssertNotCalled(t, "ListChatRoomsForUser", mock.Anything, mock.Anything, mock.Anything)
	roomRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestListChatRoomsMemberFiltered(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newChatHandler(roomRepo, messageRepo, new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 2, models.RoleEngineer)

	roomRepo.On("GetProjectRoom", mock.Anything, 4).Return(models.ProjectRoom{ID: 4, ProjectID: 9}, nil).Once()
	roomRepo.On("ListChatRoomsForUser", mock.Anything, 4, 2).Return([]models.ChatRoom{
		{ID: 11, ProjectRoomID: 4, Type: models.RoomAdminEngineer},
	}, nil).Once()
	messageRepo.On("CountUnreadForChatRoom", mock.Anything, 11, 2).Return(1, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/4/chat-rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	roomRepo.AssertNotCalled(t, "ListChatRooms", mock.Anything, mock.Anything)
	roomRepo.AssertExpectations(t)
}

func TestListChatRoomsUnknownProjectRoom(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := newChatHandler(roomRepo, new(mocks.MessageRepositoryMock), new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 1, models.RoleClient)

	roomRepo.On("GetProjectRoom", mock.Anything, 99).Return(models.ProjectRoom{}, repositories.ErrRoomNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/99/chat-rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestGetChatRoomMessagesForbidden(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := newChatHandler(roomRepo, new(mocks.MessageRepositoryMock), new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 7, models.RoleCustomer)

	roomRepo.On("GetChatRoom", mock.Anything, 5).Return(models.ChatRoom{ID: 5, ProjectID: 9}, nil).Once()
	roomRepo.On("IsParticipant", mock.Anything, 5, 7).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat-rooms/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestGetChatRoomMessagesSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newChatHandler(roomRepo, messageRepo, new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 1, models.RoleAdmin)

	roomRepo.On("GetChatRoom", mock.Anything, 5).Return(models.ChatRoom{ID: 5, ProjectID: 9}, nil).Once()
	messageRepo.On("ListRoomMessages", mock.Anything, 5).Return([]models.Message{{ID: 1, ChatRoomID: 5, Content: "hi"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat-rooms/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	roomRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestPostChatMessageSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	projectRepo := new(mocks.ProjectRepositoryMock)
	notificationRepo := new(mocks.NotificationRepositoryMock)
	hub := ws.NewHub()
	handler := newChatHandler(roomRepo, messageRepo, projectRepo, notificationRepo, hub)
	router := setupChatRouter(handler, 1, models.RoleClient)

	room := models.ChatRoom{ID: 5, ProjectRoomID: 4, ProjectID: 9, Type: models.RoomAdminClient}
	roomRepo.On("GetChatRoom", mock.Anything, 5).Return(room, nil).Twice()
	projectRepo.On("GetProject", mock.Anything, 9).Return(models.Project{ID: 9, ClientID: 1}, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, 5, 1, models.MessageText, "hello there", models.Attachments(nil)).
		Return(models.Message{ID: 7, ChatRoomID: 5, SenderID: 1, Type: models.MessageText, Content: "hello there"}, nil).Once()
	roomRepo.On("UpdateLastMessage", mock.Anything, 5, "hello there", 1, mock.Anything).Return(nil).Once()
	roomRepo.On("ListParticipants", mock.Anything, 5).Return([]models.Participant{
		{ChatRoomID: 5, UserID: 1, Role: models.RoleClient},
		{ChatRoomID: 5, UserID: 2, Role: models.RoleAdmin},
	}, nil).Once()
	notificationRepo.On("CreateNotification", mock.Anything, 2, models.NotificationNewMessage, "New message", "hello there", mock.Anything).
		Return(models.Notification{ID: 30, UserID: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chat-rooms/5/messages", bytes.NewBufferString(`{"content":"hello there"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	roomRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	notificationRepo.AssertExpectations(t)
}

func TestPostChatMessageRejectsSystemType(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := newChatHandler(roomRepo, new(mocks.MessageRepositoryMock), new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 1, models.RoleAdmin)

	roomRepo.On("GetChatRoom", mock.Anything, 5).Return(models.ChatRoom{ID: 5, ProjectID: 9}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chat-rooms/5/messages", bytes.NewBufferString(`{"content":"x","type":"system"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestPostChatMessageNotificationFailureIsSoft(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	notificationRepo := new(mocks.NotificationRepositoryMock)
	handler := newChatHandler(roomRepo, messageRepo, new(mocks.ProjectRepositoryMock), notificationRepo, ws.NewHub())
	router := setupChatRouter(handler, 1, models.RoleAdmin)

	room := models.ChatRoom{ID: 5, ProjectRoomID: 4, ProjectID: 9}
	roomRepo.On("GetChatRoom", mock.Anything, 5).Return(room, nil).Twice()
	messageRepo.On("CreateMessage", mock.Anything, 5, 1, models.MessageText, "hi", models.Attachments(nil)).
		Return(models.Message{ID: 7, ChatRoomID: 5, SenderID: 1, Content: "hi"}, nil).Once()
	roomRepo.On("UpdateLastMessage", mock.Anything, 5, "hi", 1, mock.Anything).Return(nil).Once()
	roomRepo.On("ListParticipants", mock.Anything, 5).Return([]models.Participant{
		{ChatRoomID: 5, UserID: 2},
	}, nil).Once()
	notificationRepo.On("CreateNotification", mock.Anything, 2, models.NotificationNewMessage, "New message", "hi", mock.Anything).
		Return(models.Notification{}, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/chat-rooms/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	notificationRepo.AssertExpectations(t)
}

func TestMarkRoomReadSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := newChatHandler(roomRepo, new(mocks.MessageRepositoryMock), new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 1, models.RoleClient)

	roomRepo.On("UpdateLastReadAt", mock.Anything, 5, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chat-rooms/5/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestMarkRoomReadNotParticipant(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := newChatHandler(roomRepo, new(mocks.MessageRepositoryMock), new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 3, models.RoleEngineer)

	roomRepo.On("UpdateLastReadAt", mock.Anything, 5, 3).Return(repositories.ErrNotParticipant).Once()

	req := httptest.NewRequest(http.MethodPost, "/chat-rooms/5/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestGetChatRoomUnread(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newChatHandler(new(mocks.RoomRepositoryMock), messageRepo, new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 1, models.RoleClient)

	messageRepo.On("CountUnreadForChatRoom", mock.Anything, 5, 1).Return(3, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat-rooms/5/unread", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp["unread_count"])
	messageRepo.AssertExpectations(t)
}

func TestArchiveChatRoomRequiresAdmin(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := newChatHandler(roomRepo, new(mocks.MessageRepositoryMock), new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 1, models.RoleClient)

	req := httptest.NewRequest(http.MethodPatch, "/chat-rooms/5/archive", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	roomRepo.AssertNotCalled(t, "ArchiveChatRoom", mock.Anything, mock.Anything)
}

func TestArchiveChatRoomSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := newChatHandler(roomRepo, new(mocks.MessageRepositoryMock), new(mocks.ProjectRepositoryMock), new(mocks.NotificationRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, 1, models.RoleAdmin)

	roomRepo.On("ArchiveChatRoom", mock.Anything, 5).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/chat-rooms/5/archive", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	roomRepo.AssertExpectations(t)
}
