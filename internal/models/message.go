package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MessageType classifies chat messages.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// Attachment is a file reference carried by a message.
type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
}

// Attachments is stored as a jsonb column.
type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *Attachments) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("attachments: unsupported scan type %T", src)
	}
}

// Message is a chat room message. Created on send; the only later mutations
// are read-receipt rows and the soft-delete flag.
type Message struct {
	ID          int         `db:"id" json:"id"`
	ChatRoomID  int         `db:"chat_room_id" json:"chat_room_id"`
	SenderID    int         `db:"sender_id" json:"sender_id"`
	Type        MessageType `db:"type" json:"type"`
	Content     string      `db:"content" json:"content"`
	Attachments Attachments `db:"attachments" json:"attachments,omitempty"`
	Deleted     bool        `db:"deleted" json:"deleted"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// MessageRead records that a user individually acknowledged a message.
// At most one row per (message, user).
type MessageRead struct {
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}
