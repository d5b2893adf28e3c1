package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"hixa-chat-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for chat messages and read receipts.
type MessageRepository interface {
	CreateMessage(ctx context.Context, chatRoomID int, senderID int, msgType models.MessageType, content string, attachments models.Attachments) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	ListRoomMessages(ctx context.Context, chatRoomID int) ([]models.Message, error)
	MarkMessagesRead(ctx context.Context, chatRoomID int, userID int, messageIDs []int) error
	ListReads(ctx context.Context, messageID int) ([]models.MessageRead, error)
	CountUnreadForChatRoom(ctx context.Context, chatRoomID int, userID int) (int, error)
	CountUnreadForProjectRoom(ctx context.Context, projectRoomID int, userID int) (int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, chat_room_id, sender_id, type, content, attachments, deleted, created_at`

// CreateMessage stores a message in a chat room.
func (r *MessageRepo) CreateMessage(ctx context.Context, chatRoomID int, senderID int, msgType models.MessageType, content string, attachments models.Attachments) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (chat_room_id, sender_id, type, content, attachments)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+messageColumns, chatRoomID, senderID, msgType, content, attachments).StructScan(&msg)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListRoomMessages returns the room history in send order, excluding
// soft-deleted messages.
func (r *MessageRepo) ListRoomMessages(ctx context.Context, chatRoomID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE chat_room_id=$1 AND deleted = FALSE ORDER BY created_at ASC, id ASC`, chatRoomID)
	return msgs, err
}

// MarkMessagesRead appends read receipts for the given messages. Marking is
// idempotent: replays leave exactly one row per (message, user). Only
// messages belonging to the room and sent by someone else are marked.
func (r *MessageRepo) MarkMessagesRead(ctx context.Context, chatRoomID int, userID int, messageIDs []int) error {
	if len(messageIDs) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(messageIDs))
	for _, id := range messageIDs {
		ids = append(ids, int64(id))
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_reads (message_id, user_id)
        SELECT m.id, $2 FROM messages m
        WHERE m.id = ANY($3) AND m.chat_room_id=$1 AND m.sender_id<>$2
        ON CONFLICT (message_id, user_id) DO NOTHING`, chatRoomID, userID, pq.Array(ids))
	return err
}

// ListReads returns the read receipts of one message.
func (r *MessageRepo) ListReads(ctx context.Context, messageID int) ([]models.MessageRead, error) {
	var reads []models.MessageRead
	err := r.db.SelectContext(ctx, &reads, `SELECT message_id, user_id, read_at FROM message_reads
        WHERE message_id=$1 ORDER BY read_at ASC`, messageID)
	return reads, err
}

// CountUnreadForChatRoom counts messages from other senders that both the
// participant watermark and the per-message read list miss. System and
// soft-deleted messages never count. A user without a participant row gets 0.
func (r *MessageRepo) CountUnreadForChatRoom(ctx context.Context, chatRoomID int, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages m
        JOIN chat_room_participants p ON p.chat_room_id = m.chat_room_id AND p.user_id=$2
        WHERE m.chat_room_id=$1
          AND m.sender_id<>$2
          AND m.type<>'system'
          AND m.deleted = FALSE
          AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at)
          AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id=m.id AND r.user_id=$2)`,
		chatRoomID, userID)
	return count, err
}

// CountUnreadForProjectRoom sums unread over the active chat rooms of the
// project room where the user participates.
func (r *MessageRepo) CountUnreadForProjectRoom(ctx context.Context, projectRoomID int, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages m
        JOIN chat_rooms cr ON cr.id = m.chat_room_id
        JOIN chat_room_participants p ON p.chat_room_id = cr.id AND p.user_id=$2
        WHERE cr.project_room_id=$1
          AND cr.status='active'
          AND m.sender_id<>$2
          AND m.type<>'system'
          AND m.deleted = FALSE
          AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at)
          AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id=m.id AND r.user_id=$2)`,
		projectRoomID, userID)
	return count, err
}
