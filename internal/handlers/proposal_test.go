package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hixa-chat-service/internal/mocks"
	"hixa-chat-service/internal/models"
	"hixa-chat-service/internal/notifications"
	"hixa-chat-service/internal/repositories"
	"hixa-chat-service/internal/rooms"
	"hixa-chat-service/internal/ws"
)

type proposalDeps struct {
	projectRepo      *mocks.ProjectRepositoryMock
	userRepo         *mocks.UserRepositoryMock
	roomRepo         *mocks.RoomRepositoryMock
	messageRepo      *mocks.MessageRepositoryMock
	notificationRepo *mocks.NotificationRepositoryMock
}

func setupProposalRouter(userID int, role models.Role) (*gin.Engine, proposalDeps) {
	deps := proposalDeps{
		projectRepo:      new(mocks.ProjectRepositoryMock),
		userRepo:         new(mocks.UserRepositoryMock),
		roomRepo:         new(mocks.RoomRepositoryMock),
		messageRepo:      new(mocks.MessageRepositoryMock),
		notificationRepo: new(mocks.NotificationRepositoryMock),
	}
	provisioner := rooms.NewProvisioner(deps.userRepo, deps.roomRepo, deps.messageRepo)
	notifier := notifications.NewNotifier(deps.notificationRepo, ws.NewHub())
	handler := NewProposalHandler(deps.projectRepo, provisioner, notifier, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", string(role))
		c.Next()
	})
	r.POST("/projects", handler.CreateProject)
	r.POST("/projects/:project_id/proposals", handler.SubmitProposal)
	r.POST("/proposals/:proposal_id/accept", handler.AcceptProposal)
	return r, deps
}

func TestCreateProjectSuccess(t *testing.T) {
	router, deps := setupProposalRouter(1, models.RoleClient)

	deps.projectRepo.On("CreateProject", mock.Anything, 1, "Site").
		Return(models.Project{ID: 9, ClientID: 1, Title: "Site"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBufferString(`{"title":"Site"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	deps.projectRepo.AssertExpectations(t)
}

func TestCreateProjectForbiddenForEngineer(t *testing.T) {
	router, deps := setupProposalRouter(2, models.RoleEngineer)

	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBufferString(`{"title":"Site"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	deps.projectRepo.AssertNotCalled(t, "CreateProject", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitProposalProvisionsAndNotifies(t *testing.T) {
	router, deps := setupProposalRouter(2, models.RoleEngineer)

	project := models.Project{ID: 9, ClientID: 1, Title: "Site"}
	deps.projectRepo.On("GetProject", mock.Anything, 9).Return(project, nil).Once()
	deps.projectRepo.On("CreateProposal", mock.Anything, 9, 2).
		Return(models.Proposal{ID: 15, ProjectID: 9, EngineerID: 2, Status: models.ProposalPending}, nil).Once()

	deps.userRepo.On("EnsureSystemUser", mock.Anything).Return(models.User{ID: 99}, nil).Once()
	deps.roomRepo.On("EnsureProjectRoom", mock.Anything, 9).Return(models.ProjectRoom{ID: 4, ProjectID: 9}, nil).Once()
	deps.roomRepo.On("EnsureChatRoom", mock.Anything, 4, 9, models.RoomAdminClient, (*int)(nil)).
		Return(models.ChatRoom{ID: 10}, false, nil).Once()
	deps.roomRepo.On("AddParticipant", mock.Anything, 10, 1, models.RoleClient).Return(nil).Once()
	deps.roomRepo.On("EnsureChatRoom", mock.Anything, 4, 9, models.RoomAdminEngineer, engineerPointerArg(2)).
		Return(models.ChatRoom{ID: 11}, false, nil).Once()
	deps.roomRepo.On("AddParticipant", mock.Anything, 11, 2, models.RoleEngineer).Return(nil).Once()

	deps.notificationRepo.On("CreateNotification", mock.Anything, 1, models.NotificationProposalSubmitted, "New proposal", mock.Anything, mock.Anything).
		Return(models.Notification{ID: 40, UserID: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/projects/9/proposals", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	deps.projectRepo.AssertExpectations(t)
	deps.roomRepo.AssertExpectations(t)
	deps.notificationRepo.AssertExpectations(t)
}

func TestSubmitProposalForbiddenForClient(t *testing.T) {
	router, deps := setupProposalRouter(1, models.RoleClient)

	req := httptest.NewRequest(http.MethodPost, "/projects/9/proposals", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	deps.projectRepo.AssertNotCalled(t, "CreateProposal", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitProposalUnknownProject(t *testing.T) {
	router, deps := setupProposalRouter(2, models.RoleEngineer)

	deps.projectRepo.On("GetProject", mock.Anything, 9).Return(models.Project{}, repositories.ErrProjectNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/projects/9/proposals", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	deps.projectRepo.AssertExpectations(t)
}

func TestSubmitProposalSurvivesProvisioningFailure(t *testing.T) {
	router, deps := setupProposalRouter(2, models.RoleEngineer)

	project := models.Project{ID: 9, ClientID: 1, Title: "Site"}
	deps.projectRepo.On("GetProject", mock.Anything, 9).Return(project, nil).Once()
	deps.projectRepo.On("CreateProposal", mock.Anything, 9, 2).
		Return(models.Proposal{ID: 15, ProjectID: 9, EngineerID: 2}, nil).Once()

	deps.userRepo.On("EnsureSystemUser", mock.Anything).Return(models.User{}, repositories.ErrUserNotFound).Once()
	deps.notificationRepo.On("CreateNotification", mock.Anything, 1, models.NotificationProposalSubmitted, "New proposal", mock.Anything, mock.Anything).
		Return(models.Notification{ID: 40, UserID: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/projects/9/proposals", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	deps.notificationRepo.AssertExpectations(t)
}

func TestAcceptProposalAsAdmin(t *testing.T) {
	router, deps := setupProposalRouter(8, models.RoleAdmin)

	deps.projectRepo.On("GetProposal", mock.Anything, 15).
		Return(models.Proposal{ID: 15, ProjectID: 9, EngineerID: 2, Status: models.ProposalPending}, nil).Once()
	deps.projectRepo.On("GetProject", mock.Anything, 9).
		Return(models.Project{ID: 9, ClientID: 1, Title: "Site"}, nil).Once()
	deps.projectRepo.On("SetProposalStatus", mock.Anything, 15, models.ProposalAccepted).Return(nil).Once()

	deps.userRepo.On("EnsureSystemUser", mock.Anything).Return(models.User{ID: 99}, nil).Once()
	deps.roomRepo.On("EnsureProjectRoom", mock.Anything, 9).Return(models.ProjectRoom{ID: 4, ProjectID: 9}, nil).Once()
	deps.roomRepo.On("EnsureChatRoom", mock.Anything, 4, 9, models.RoomGroup, (*int)(nil)).
		Return(models.ChatRoom{ID: 13}, false, nil).Once()
	deps.roomRepo.On("AddParticipant", mock.Anything, 13, 1, models.RoleClient).Return(nil).Once()
	deps.roomRepo.On("AddParticipant", mock.Anything, 13, 2, models.RoleEngineer).Return(nil).Once()

	deps.notificationRepo.On("CreateNotification", mock.Anything, 2, models.NotificationProposalAccepted, "Proposal accepted", mock.Anything, mock.Anything).
		Return(models.Notification{ID: 41, UserID: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/proposals/15/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	deps.projectRepo.AssertExpectations(t)
	deps.roomRepo.AssertExpectations(t)
	deps.notificationRepo.AssertExpectations(t)
}

func TestAcceptProposalForbiddenForOtherClient(t *testing.T) {
	router, deps := setupProposalRouter(7, models.RoleClient)

	deps.projectRepo.On("GetProposal", mock.Anything, 15).
		Return(models.Proposal{ID: 15, ProjectID: 9, EngineerID: 2}, nil).Once()
	deps.projectRepo.On("GetProject", mock.Anything, 9).
		Return(models.Project{ID: 9, ClientID: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/proposals/15/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	deps.projectRepo.AssertNotCalled(t, "SetProposalStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcceptProposalUnknown(t *testing.T) {
	router, deps := setupProposalRouter(8, models.RoleAdmin)

	deps.projectRepo.On("GetProposal", mock.Anything, 15).
		Return(models.Proposal{}, repositories.ErrProposalNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/proposals/15/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	deps.projectRepo.AssertExpectations(t)
}

func engineerPointerArg(id int) interface{} {
	return mock.MatchedBy(func(p *int) bool { return p != nil && *p == id })
}
