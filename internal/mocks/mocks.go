package mocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"hixa-chat-service/internal/models"
	"hixa-chat-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) EnsureProjectRoom(ctx context.Context, projectID int) (models.ProjectRoom, error) {
	args := m.Called(ctx, projectID)
	var room models.ProjectRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ProjectRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetProjectRoom(ctx context.Context, projectRoomID int) (models.ProjectRoom, error) {
	args := m.Called(ctx, projectRoomID)
	var room models.ProjectRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ProjectRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) EnsureChatRoom(ctx context.Context, projectRoomID int, projectID int, roomType models.ChatRoomType, engineerID *int) (models.ChatRoom, bool, error) {
	args := m.Called(ctx, projectRoomID, projectID, roomType, engineerID)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Bool(1), args.Error(2)
}

func (m *RoomRepositoryMock) GetChatRoom(ctx context.Context, chatRoomID int) (models.ChatRoom, error) {
	args := m.Called(ctx, chatRoomID)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) AddParticipant(ctx context.Context, chatRoomID int, userID int, role models.Role) error {
	args := m.Called(ctx, chatRoomID, userID, role)
	return args.Error(0)
}

func (m *RoomRepositoryMock) IsParticipant(ctx context.Context, chatRoomID int, userID int) (bool, error) {
	args := m.Called(ctx, chatRoomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) GetParticipant(ctx context.Context, chatRoomID int, userID int) (models.Participant, error) {
	args := m.Called(ctx, chatRoomID, userID)
	var p models.Participant
	if val := args.Get(0); val != nil {
		p = val.(models.Participant)
	}
	return p, args.Error(1)
}

func (m *RoomRepositoryMock) ListParticipants(ctx context.Context, chatRoomID int) ([]models.Participant, error) {
	args := m.Called(ctx, chatRoomID)
	var list []models.Participant
	if val := args.Get(0); val != nil {
		list = val.([]models.Participant)
	}
	return list, args.Error(1)
}

func (m *RoomRepositoryMock) ListProjectRoomsForUser(ctx context.Context, userID int) ([]models.ProjectRoom, error) {
	args := m.Called(ctx, userID)
	var list []models.ProjectRoom
	if val := args.Get(0); val != nil {
		list = val.([]models.ProjectRoom)
	}
	return list, args.Error(1)
}

func (m *RoomRepositoryMock) ListChatRooms(ctx context.Context, projectRoomID int) ([]models.ChatRoom, error) {
	args := m.Called(ctx, projectRoomID)
	var list []models.ChatRoom
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatRoom)
	}
	return list, args.Error(1)
}

func (m *RoomRepositoryMock) ListChatRoomsForUser(ctx context.Context, projectRoomID int, userID int) ([]models.ChatRoom, error) {
	args := m.Called(ctx, projectRoomID, userID)
	var list []models.ChatRoom
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatRoom)
	}
	return list, args.Error(1)
}

func (m *RoomRepositoryMock) UpdateLastReadAt(ctx context.Context, chatRoomID int, userID int) error {
	args := m.Called(ctx, chatRoomID, userID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) UpdateLastMessage(ctx context.Context, chatRoomID int, snippet string, senderID int, at time.Time) error {
	args := m.Called(ctx, chatRoomID, snippet, senderID, at)
	return args.Error(0)
}

func (m *RoomRepositoryMock) ArchiveChatRoom(ctx context.Context, chatRoomID int) error {
	args := m.Called(ctx, chatRoomID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, chatRoomID int, senderID int, msgType models.MessageType, content string, attachments models.Attachments) (models.Message, error) {
	args := m.Called(ctx, chatRoomID, senderID, msgType, content, attachments)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListRoomMessages(ctx context.Context, chatRoomID int) ([]models.Message, error) {
	args := m.Called(ctx, chatRoomID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkMessagesRead(ctx context.Context, chatRoomID int, userID int, messageIDs []int) error {
	args := m.Called(ctx, chatRoomID, userID, messageIDs)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListReads(ctx context.Context, messageID int) ([]models.MessageRead, error) {
	args := m.Called(ctx, messageID)
	var reads []models.MessageRead
	if val := args.Get(0); val != nil {
		reads = val.([]models.MessageRead)
	}
	return reads, args.Error(1)
}

func (m *MessageRepositoryMock) CountUnreadForChatRoom(ctx context.Context, chatRoomID int, userID int) (int, error) {
	args := m.Called(ctx, chatRoomID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) CountUnreadForProjectRoom(ctx context.Context, projectRoomID int, userID int) (int, error) {
	args := m.Called(ctx, projectRoomID, userID)
	return args.Int(0), args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) CreateNotification(ctx context.Context, userID int, notifType models.NotificationType, title string, message string, data json.RawMessage) (models.Notification, error) {
	args := m.Called(ctx, userID, notifType, title, message, data)
	var n models.Notification
	if val := args.Get(0); val != nil {
		n = val.(models.Notification)
	}
	return n, args.Error(1)
}

func (m *NotificationRepositoryMock) ListNotifications(ctx context.Context, userID int, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationRepositoryMock) CountUnread(ctx context.Context, userID int) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, notificationID int, userID int) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type ProjectRepositoryMock struct {
	mock.Mock
}

func (m *ProjectRepositoryMock) CreateProject(ctx context.Context, clientID int, title string) (models.Project, error) {
	args := m.Called(ctx, clientID, title)
	var p models.Project
	if val := args.Get(0); val != nil {
		p = val.(models.Project)
	}
	return p, args.Error(1)
}

func (m *ProjectRepositoryMock) GetProject(ctx context.Context, projectID int) (models.Project, error) {
	args := m.Called(ctx, projectID)
	var p models.Project
	if val := args.Get(0); val != nil {
		p = val.(models.Project)
	}
	return p, args.Error(1)
}

func (m *ProjectRepositoryMock) CreateProposal(ctx context.Context, projectID int, engineerID int) (models.Proposal, error) {
	args := m.Called(ctx, projectID, engineerID)
	var p models.Proposal
	if val := args.Get(0); val != nil {
		p = val.(models.Proposal)
	}
	return p, args.Error(1)
}

func (m *ProjectRepositoryMock) GetProposal(ctx context.Context, proposalID int) (models.Proposal, error) {
	args := m.Called(ctx, proposalID)
	var p models.Proposal
	if val := args.Get(0); val != nil {
		p = val.(models.Proposal)
	}
	return p, args.Error(1)
}

func (m *ProjectRepositoryMock) SetProposalStatus(ctx context.Context, proposalID int, status models.ProposalStatus) error {
	args := m.Called(ctx, proposalID, status)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

func (m *UserRepositoryMock) EnsureSystemUser(ctx context.Context) (models.User, error) {
	args := m.Called(ctx)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

var (
	_ repositories.RoomRepository         = (*RoomRepositoryMock)(nil)
	_ repositories.MessageRepository      = (*MessageRepositoryMock)(nil)
	_ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
	_ repositories.ProjectRepository      = (*ProjectRepositoryMock)(nil)
	_ repositories.UserRepository         = (*UserRepositoryMock)(nil)
)
