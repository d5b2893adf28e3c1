package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType selects the shape of the notification data payload.
type NotificationType string

const (
	NotificationNewMessage        NotificationType = "new_message"
	NotificationProposalSubmitted NotificationType = "proposal_submitted"
	NotificationProposalAccepted  NotificationType = "proposal_accepted"
)

// NotificationData is the tagged union of per-type payloads.
type NotificationData interface {
	notificationData()
}

// MessageNotificationData accompanies new_message notifications.
type MessageNotificationData struct {
	ProjectID  int `json:"project_id"`
	ChatRoomID int `json:"chat_room_id"`
	MessageID  int `json:"message_id"`
	SenderID   int `json:"sender_id"`
}

// ProposalNotificationData accompanies proposal lifecycle notifications.
type ProposalNotificationData struct {
	ProjectID  int `json:"project_id"`
	ProposalID int `json:"proposal_id"`
	EngineerID int `json:"engineer_id"`
}

func (MessageNotificationData) notificationData()  {}
func (ProposalNotificationData) notificationData() {}

// Notification is a durable per-user notification row. It is persisted before
// any realtime push is attempted.
type Notification struct {
	ID        int              `db:"id" json:"id"`
	UserID    int              `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Data      json.RawMessage  `db:"data" json:"data,omitempty"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	ReadAt    *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// EncodeNotificationData serializes a payload variant for storage.
func EncodeNotificationData(data NotificationData) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}

// DecodeData returns the typed payload variant for the notification type.
func (n Notification) DecodeData() (NotificationData, error) {
	if len(n.Data) == 0 {
		return nil, nil
	}
	switch n.Type {
	case NotificationNewMessage:
		var d MessageNotificationData
		if err := json.Unmarshal(n.Data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case NotificationProposalSubmitted, NotificationProposalAccepted:
		var d ProposalNotificationData
		if err := json.Unmarshal(n.Data, &d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown notification type %q", n.Type)
	}
}
