package models

import "time"

// ChatRoomType distinguishes the conversations inside a project room.
type ChatRoomType string

const (
	RoomAdminEngineer ChatRoomType = "admin-engineer"
	RoomAdminClient   ChatRoomType = "admin-client"
	RoomGroup         ChatRoomType = "group"
)

// RoomStatus is the chat room state machine: active -> archived. Archived
// rooms still serve history reads.
type RoomStatus string

const (
	RoomActive   RoomStatus = "active"
	RoomArchived RoomStatus = "archived"
)

// ProjectRoom aggregates all chat rooms of one project. Created lazily when
// the first proposal arrives.
type ProjectRoom struct {
	ID             int       `db:"id" json:"id"`
	ProjectID      int       `db:"project_id" json:"project_id"`
	LastActivityAt time.Time `db:"last_activity_at" json:"last_activity_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ChatRoom is a durable conversation scoped to a subset of participants.
// The last-message columns are a denormalized cache of the most recent
// message, kept consistent on every send.
type ChatRoom struct {
	ID                  int          `db:"id" json:"id"`
	ProjectRoomID       int          `db:"project_room_id" json:"project_room_id"`
	ProjectID           int          `db:"project_id" json:"project_id"`
	Type                ChatRoomType `db:"type" json:"type"`
	EngineerID          *int         `db:"engineer_id" json:"engineer_id,omitempty"`
	Status              RoomStatus   `db:"status" json:"status"`
	LastMessageContent  *string      `db:"last_message_content" json:"last_message_content,omitempty"`
	LastMessageSenderID *int         `db:"last_message_sender_id" json:"last_message_sender_id,omitempty"`
	LastMessageAt       *time.Time   `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt           time.Time    `db:"created_at" json:"created_at"`
}

// Participant is a chat room membership row. Entries are added, never
// removed; LastReadAt is the monotonic read watermark.
type Participant struct {
	ChatRoomID int        `db:"chat_room_id" json:"chat_room_id"`
	UserID     int        `db:"user_id" json:"user_id"`
	Role       Role       `db:"role" json:"role"`
	JoinedAt   time.Time  `db:"joined_at" json:"joined_at"`
	LastReadAt *time.Time `db:"last_read_at" json:"last_read_at,omitempty"`
}

// ChatRoomSummary is the list view of a chat room for one user.
type ChatRoomSummary struct {
	ChatRoom
	UnreadCount int `db:"unread_count" json:"unread_count"`
}

// ProjectRoomSummary is the list view of a project room for one user.
type ProjectRoomSummary struct {
	ProjectRoom
	UnreadCount int `db:"unread_count" json:"unread_count"`
}
