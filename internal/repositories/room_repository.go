package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"hixa-chat-service/internal/models"
)

var (
	ErrRoomNotFound   = errors.New("chat room not found")
	ErrNotParticipant = errors.New("not a room participant")
)

// RoomRepository abstracts project room and chat room persistence.
type RoomRepository interface {
	EnsureProjectRoom(ctx context.Context, projectID int) (models.ProjectRoom, error)
	GetProjectRoom(ctx context.Context, projectRoomID int) (models.ProjectRoom, error)
	EnsureChatRoom(ctx context.Context, projectRoomID int, projectID int, roomType models.ChatRoomType, engineerID *int) (models.ChatRoom, bool, error)
	GetChatRoom(ctx context.Context, chatRoomID int) (models.ChatRoom, error)
	AddParticipant(ctx context.Context, chatRoomID int, userID int, role models.Role) error
	IsParticipant(ctx context.Context, chatRoomID int, userID int) (bool, error)
	GetParticipant(ctx context.Context, chatRoomID int, userID int) (models.Participant, error)
	ListParticipants(ctx context.Context, chatRoomID int) ([]models.Participant, error)
	ListProjectRoomsForUser(ctx context.Context, userID int) ([]models.ProjectRoom, error)
	ListChatRooms(ctx context.Context, projectRoomID int) ([]models.ChatRoom, error)
	ListChatRoomsForUser(ctx context.Context, projectRoomID int, userID int) ([]models.ChatRoom, error)
	UpdateLastReadAt(ctx context.Context, chatRoomID int, userID int) error
	UpdateLastMessage(ctx context.Context, chatRoomID int, snippet string, senderID int, at time.Time) error
	ArchiveChatRoom(ctx context.Context, chatRoomID int) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const projectRoomColumns = `id, project_id, last_activity_at, created_at`

const chatRoomColumns = `id, project_room_id, project_id, type, engineer_id, status,
    last_message_content, last_message_sender_id, last_message_at, created_at`

// EnsureProjectRoom creates the project room if absent. The unique constraint
// on project_id makes concurrent calls converge on one row.
func (r *RoomRepo) EnsureProjectRoom(ctx context.Context, projectID int) (models.ProjectRoom, error) {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO project_rooms (project_id) VALUES ($1)
        ON CONFLICT (project_id) DO NOTHING`, projectID); err != nil {
		return models.ProjectRoom{}, err
	}

	var room models.ProjectRoom
	err := r.db.GetContext(ctx, &room, `SELECT `+projectRoomColumns+` FROM project_rooms WHERE project_id=$1`, projectID)
	return room, err
}

// GetProjectRoom fetches a project room by id.
func (r *RoomRepo) GetProjectRoom(ctx context.Context, projectRoomID int) (models.ProjectRoom, error) {
	var room models.ProjectRoom
	err := r.db.GetContext(ctx, &room, `SELECT `+projectRoomColumns+` FROM project_rooms WHERE id=$1`, projectRoomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProjectRoom{}, ErrRoomNotFound
	}
	return room, err
}

// EnsureChatRoom creates a chat room if absent and reports whether this call
// created it. Uniqueness is enforced per (project, type, engineer).
func (r *RoomRepo) EnsureChatRoom(ctx context.Context, projectRoomID int, projectID int, roomType models.ChatRoomType, engineerID *int) (models.ChatRoom, bool, error) {
	var room models.ChatRoom
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_rooms (project_room_id, project_id, type, engineer_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (project_id, type, COALESCE(engineer_id, 0)) DO NOTHING
        RETURNING `+chatRoomColumns, projectRoomID, projectID, roomType, engineerID).StructScan(&room)
	if err == nil {
		return room, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, false, err
	}

	// lost the race or the room already existed
	query := `SELECT ` + chatRoomColumns + ` FROM chat_rooms WHERE project_id=$1 AND type=$2 AND COALESCE(engineer_id, 0)=COALESCE($3, 0)`
	if err := r.db.GetContext(ctx, &room, query, projectID, roomType, engineerID); err != nil {
		return models.ChatRoom{}, false, err
	}
	return room, false, nil
}

// GetChatRoom fetches a chat room by id.
func (r *RoomRepo) GetChatRoom(ctx context.Context, chatRoomID int) (models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.GetContext(ctx, &room, `SELECT `+chatRoomColumns+` FROM chat_rooms WHERE id=$1`, chatRoomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, ErrRoomNotFound
	}
	return room, err
}

// AddParticipant adds a participant if absent. Existing rows keep their
// joined_at and watermark.
func (r *RoomRepo) AddParticipant(ctx context.Context, chatRoomID int, userID int, role models.Role) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO chat_room_participants (chat_room_id, user_id, role)
        VALUES ($1, $2, $3) ON CONFLICT (chat_room_id, user_id) DO NOTHING`, chatRoomID, userID, role)
	return err
}

// IsParticipant checks whether a user has a participant row in the room.
func (r *RoomRepo) IsParticipant(ctx context.Context, chatRoomID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chat_room_participants WHERE chat_room_id=$1 AND user_id=$2)`, chatRoomID, userID)
	return exists, err
}

// GetParticipant fetches one participant row.
func (r *RoomRepo) GetParticipant(ctx context.Context, chatRoomID int, userID int) (models.Participant, error) {
	var p models.Participant
	err := r.db.GetContext(ctx, &p, `SELECT chat_room_id, user_id, role, joined_at, last_read_at
        FROM chat_room_participants WHERE chat_room_id=$1 AND user_id=$2`, chatRoomID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Participant{}, ErrNotParticipant
	}
	return p, err
}

// ListParticipants returns every participant of the room.
func (r *RoomRepo) ListParticipants(ctx context.Context, chatRoomID int) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.SelectContext(ctx, &participants, `SELECT chat_room_id, user_id, role, joined_at, last_read_at
        FROM chat_room_participants WHERE chat_room_id=$1 ORDER BY joined_at ASC`, chatRoomID)
	return participants, err
}

// ListProjectRoomsForUser returns project rooms where the user participates
// in at least one chat room, most recently active first.
func (r *RoomRepo) ListProjectRoomsForUser(ctx context.Context, userID int) ([]models.ProjectRoom, error) {
	query := `SELECT DISTINCT pr.id, pr.project_id, pr.last_activity_at, pr.created_at
        FROM project_rooms pr
        JOIN chat_rooms cr ON cr.project_room_id = pr.id
        JOIN chat_room_participants p ON p.chat_room_id = cr.id AND p.user_id=$1
        ORDER BY pr.last_activity_at DESC`
	var rooms []models.ProjectRoom
	err := r.db.SelectContext(ctx, &rooms, query, userID)
	return rooms, err
}

// ListChatRooms returns every chat room in a project room.
func (r *RoomRepo) ListChatRooms(ctx context.Context, projectRoomID int) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.SelectContext(ctx, &rooms, `SELECT `+chatRoomColumns+` FROM chat_rooms
        WHERE project_room_id=$1 ORDER BY created_at ASC`, projectRoomID)
	return rooms, err
}

// ListChatRoomsForUser returns the chat rooms of a project room where the
// user has a participant row.
func (r *RoomRepo) ListChatRoomsForUser(ctx context.Context, projectRoomID int, userID int) ([]models.ChatRoom, error) {
	query := `SELECT cr.id, cr.project_room_id, cr.project_id, cr.type, cr.engineer_id, cr.status,
            cr.last_message_content, cr.last_message_sender_id, cr.last_message_at, cr.created_at
        FROM chat_rooms cr
        JOIN chat_room_participants p ON p.chat_room_id = cr.id AND p.user_id=$2
        WHERE cr.project_room_id=$1 ORDER BY cr.created_at ASC`
	var rooms []models.ChatRoom
	err := r.db.SelectContext(ctx, &rooms, query, projectRoomID, userID)
	return rooms, err
}

// UpdateLastReadAt advances the participant watermark to now. GREATEST keeps
// it monotonically non-decreasing under replays.
func (r *RoomRepo) UpdateLastReadAt(ctx context.Context, chatRoomID int, userID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_room_participants
        SET last_read_at = GREATEST(COALESCE(last_read_at, 'epoch'::timestamptz), NOW())
        WHERE chat_room_id=$1 AND user_id=$2`, chatRoomID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotParticipant
	}
	return nil
}

// UpdateLastMessage refreshes the denormalized last-message cache and bumps
// the project room activity timestamp.
func (r *RoomRepo) UpdateLastMessage(ctx context.Context, chatRoomID int, snippet string, senderID int, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE chat_rooms
        SET last_message_content=$2, last_message_sender_id=$3, last_message_at=$4
        WHERE id=$1`, chatRoomID, snippet, senderID, at); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE project_rooms SET last_activity_at=$2
        WHERE id = (SELECT project_room_id FROM chat_rooms WHERE id=$1)`, chatRoomID, at)
	return err
}

// ArchiveChatRoom moves the room into the archived state.
func (r *RoomRepo) ArchiveChatRoom(ctx context.Context, chatRoomID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_rooms SET status='archived' WHERE id=$1`, chatRoomID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}
	return nil
}
