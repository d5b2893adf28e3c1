package rooms

import (
	"context"
	"fmt"

	"hixa-chat-service/internal/models"
	"hixa-chat-service/internal/observability"
	"hixa-chat-service/internal/repositories"
)

// Provisioner runs the lazy room-creation protocol triggered by proposal
// submission and acceptance. Every step is idempotent, so a replay after a
// partial failure converges on the same rooms and messages.
//
// Callers treat provisioning errors as soft failures: they are logged and
// must never fail the proposal request that triggered them.
type Provisioner struct {
	userRepo    repositories.UserRepository
	roomRepo    repositories.RoomRepository
	messageRepo repositories.MessageRepository
}

// NewProvisioner constructs a Provisioner.
func NewProvisioner(userRepo repositories.UserRepository, roomRepo repositories.RoomRepository, messageRepo repositories.MessageRepository) *Provisioner {
	return &Provisioner{userRepo: userRepo, roomRepo: roomRepo, messageRepo: messageRepo}
}

// ProposalSubmitted ensures the project room, the per-project admin-client
// room and the per-engineer admin-engineer room exist, emitting one system
// message into each room this call created.
func (p *Provisioner) ProposalSubmitted(ctx context.Context, project models.Project, engineerID int) error {
	system, err := p.userRepo.EnsureSystemUser(ctx)
	if err != nil {
		return fmt.Errorf("ensure system user: %w", err)
	}

	projectRoom, err := p.roomRepo.EnsureProjectRoom(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("ensure project room: %w", err)
	}

	clientRoom, created, err := p.roomRepo.EnsureChatRoom(ctx, projectRoom.ID, project.ID, models.RoomAdminClient, nil)
	if err != nil {
		return fmt.Errorf("ensure admin-client room: %w", err)
	}
	if err := p.roomRepo.AddParticipant(ctx, clientRoom.ID, project.ClientID, models.RoleClient); err != nil {
		return fmt.Errorf("add client participant: %w", err)
	}
	if created {
		if err := p.systemMessage(ctx, clientRoom.ID, system.ID,
			fmt.Sprintf("Discussion for project %q opened.", project.Title)); err != nil {
			return err
		}
	}

	engineerRoom, created, err := p.roomRepo.EnsureChatRoom(ctx, projectRoom.ID, project.ID, models.RoomAdminEngineer, &engineerID)
	if err != nil {
		return fmt.Errorf("ensure admin-engineer room: %w", err)
	}
	if err := p.roomRepo.AddParticipant(ctx, engineerRoom.ID, engineerID, models.RoleEngineer); err != nil {
		return fmt.Errorf("add engineer participant: %w", err)
	}
	if created {
		if err := p.systemMessage(ctx, engineerRoom.ID, system.ID,
			fmt.Sprintf("A proposal was submitted on project %q.", project.Title)); err != nil {
			return err
		}
	}

	return nil
}

// ProposalAccepted ensures the single group room of the project exists with
// the client and the accepted engineer as participants. Accepting another
// proposal reuses the room and only adds the new engineer.
func (p *Provisioner) ProposalAccepted(ctx context.Context, project models.Project, engineerID int) error {
	system, err := p.userRepo.EnsureSystemUser(ctx)
	if err != nil {
		return fmt.Errorf("ensure system user: %w", err)
	}

	projectRoom, err := p.roomRepo.EnsureProjectRoom(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("ensure project room: %w", err)
	}

	groupRoom, created, err := p.roomRepo.EnsureChatRoom(ctx, projectRoom.ID, project.ID, models.RoomGroup, nil)
	if err != nil {
		return fmt.Errorf("ensure group room: %w", err)
	}
	if err := p.roomRepo.AddParticipant(ctx, groupRoom.ID, project.ClientID, models.RoleClient); err != nil {
		return fmt.Errorf("add client participant: %w", err)
	}
	if err := p.roomRepo.AddParticipant(ctx, groupRoom.ID, engineerID, models.RoleEngineer); err != nil {
		return fmt.Errorf("add engineer participant: %w", err)
	}
	if created {
		if err := p.systemMessage(ctx, groupRoom.ID, system.ID,
			fmt.Sprintf("Proposal accepted on project %q. Welcome aboard.", project.Title)); err != nil {
			return err
		}
	}

	return nil
}

func (p *Provisioner) systemMessage(ctx context.Context, chatRoomID int, systemID int, content string) error {
	msg, err := p.messageRepo.CreateMessage(ctx, chatRoomID, systemID, models.MessageSystem, content, nil)
	if err != nil {
		return fmt.Errorf("create system message: %w", err)
	}
	observability.IncMessageSent(string(models.MessageSystem))
	if err := p.roomRepo.UpdateLastMessage(ctx, chatRoomID, msg.Content, msg.SenderID, msg.CreatedAt); err != nil {
		return fmt.Errorf("update last message: %w", err)
	}
	return nil
}
