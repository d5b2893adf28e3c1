package rooms

import (
	"context"

	"hixa-chat-service/internal/models"
	"hixa-chat-service/internal/repositories"
)

// AccessChecker decides whether a user may join or read a chat room. The
// decision is re-derived from persisted state on every call; nothing here is
// cached past the ephemeral membership tracker.
type AccessChecker struct {
	roomRepo    repositories.RoomRepository
	projectRepo repositories.ProjectRepository
}

// NewAccessChecker constructs an AccessChecker.
func NewAccessChecker(roomRepo repositories.RoomRepository, projectRepo repositories.ProjectRepository) *AccessChecker {
	return &AccessChecker{roomRepo: roomRepo, projectRepo: projectRepo}
}

// CanAccess applies the room authorization rule: admins may access any room;
// a client may access rooms of projects they own; an engineer only rooms
// where they are the room's engineer or a participant. Everyone else needs a
// participant row.
func (a *AccessChecker) CanAccess(ctx context.Context, chatRoomID int, userID int, role models.Role) (bool, error) {
	room, err := a.roomRepo.GetChatRoom(ctx, chatRoomID)
	if err != nil {
		return false, err
	}

	switch role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleClient:
		project, err := a.projectRepo.GetProject(ctx, room.ProjectID)
		if err != nil {
			return false, err
		}
		if project.ClientID == userID {
			return true, nil
		}
	case models.RoleEngineer:
		if room.EngineerID != nil && *room.EngineerID == userID {
			return true, nil
		}
	}

	return a.roomRepo.IsParticipant(ctx, chatRoomID, userID)
}
