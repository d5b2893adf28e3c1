package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hixa-chat-service/internal/models"
	"hixa-chat-service/internal/notifications"
	"hixa-chat-service/internal/repositories"
	"hixa-chat-service/internal/rooms"
	"hixa-chat-service/internal/telemetry"
)

// ProposalHandler owns the project and proposal endpoints that trigger the
// room-creation protocol.
type ProposalHandler struct {
	projectRepo repositories.ProjectRepository
	provisioner *rooms.Provisioner
	notifier    *notifications.Notifier
	audit       *telemetry.AuditEmitter
}

// NewProposalHandler builds a ProposalHandler.
func NewProposalHandler(projectRepo repositories.ProjectRepository, provisioner *rooms.Provisioner, notifier *notifications.Notifier, audit *telemetry.AuditEmitter) *ProposalHandler {
	return &ProposalHandler{
		projectRepo: projectRepo,
		provisioner: provisioner,
		notifier:    notifier,
		audit:       audit,
	}
}

// CreateProject stores a client project.
func (h *ProposalHandler) CreateProject(c *gin.Context) {
	role := roleFromContext(c)
	if role != models.RoleClient && role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "clients only"})
		return
	}

	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projectRepo.CreateProject(c.Request.Context(), c.GetInt("userID"), req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create project"})
		return
	}

	h.emitAudit(c, "INFO", "Project created")
	c.JSON(http.StatusCreated, project)
}

// SubmitProposal stores an engineer's proposal and lazily provisions the
// project's chat rooms. Room provisioning and the client notification are
// soft-fail side effects: they never fail the proposal response.
func (h *ProposalHandler) SubmitProposal(c *gin.Context) {
	if roleFromContext(c) != models.RoleEngineer {
		c.JSON(http.StatusForbidden, gin.H{"error": "engineers only"})
		return
	}

	projectID, err := strconv.Atoi(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	project, err := h.projectRepo.GetProject(c.Request.Context(), projectID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProjectNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "project not found"})
		return
	}

	engineerID := c.GetInt("userID")
	proposal, err := h.projectRepo.CreateProposal(c.Request.Context(), projectID, engineerID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create proposal"})
		return
	}

	if err := h.provisioner.ProposalSubmitted(c.Request.Context(), project, engineerID); err != nil {
		log.Printf("room provisioning failed for project %d: %v", projectID, err)
	}

	if _, err := h.notifier.Notify(c.Request.Context(), project.ClientID, models.NotificationProposalSubmitted,
		"New proposal", "An engineer submitted a proposal on your project.", models.ProposalNotificationData{
			ProjectID:  projectID,
			ProposalID: proposal.ID,
			EngineerID: engineerID,
		}); err != nil {
		log.Printf("proposal notification failed for project %d: %v", projectID, err)
	}

	h.emitAuditEntity(c, "INFO", "Proposal submitted", "proposal", int64(proposal.ID))
	c.JSON(http.StatusCreated, proposal)
}

// AcceptProposal marks a proposal accepted and provisions the group room.
func (h *ProposalHandler) AcceptProposal(c *gin.Context) {
	proposalID, err := strconv.Atoi(c.Param("proposal_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	proposal, err := h.projectRepo.GetProposal(c.Request.Context(), proposalID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProposalNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "proposal not found"})
		return
	}

	project, err := h.projectRepo.GetProject(c.Request.Context(), proposal.ProjectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "project lookup failed"})
		return
	}

	userID := c.GetInt("userID")
	if roleFromContext(c) != models.RoleAdmin && project.ClientID != userID {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	if err := h.projectRepo.SetProposalStatus(c.Request.Context(), proposalID, models.ProposalAccepted); err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not accept proposal"})
		return
	}

	if err := h.provisioner.ProposalAccepted(c.Request.Context(), project, proposal.EngineerID); err != nil {
		log.Printf("group room provisioning failed for project %d: %v", project.ID, err)
	}

	if _, err := h.notifier.Notify(c.Request.Context(), proposal.EngineerID, models.NotificationProposalAccepted,
		"Proposal accepted", "Your proposal was accepted.", models.ProposalNotificationData{
			ProjectID:  project.ID,
			ProposalID: proposal.ID,
			EngineerID: proposal.EngineerID,
		}); err != nil {
		log.Printf("acceptance notification failed for proposal %d: %v", proposalID, err)
	}

	h.emitAuditEntity(c, "INFO", "Proposal accepted", "proposal", int64(proposalID))
	c.JSON(http.StatusOK, gin.H{"proposal_id": proposalID, "status": models.ProposalAccepted})
}

func (h *ProposalHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func (h *ProposalHandler) emitAuditEntity(c *gin.Context, level, text, entity string, entityID int64) {
	if h.audit == nil {
		return
	}
	h.audit.EmitEntity(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c), entity, entityID)
}
