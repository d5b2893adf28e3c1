package models

// Server event types pushed over websocket connections.
const (
	EventNewMessage      = "new_message"
	EventUserTyping      = "user_typing"
	EventMessagesRead    = "messages_read"
	EventNewNotification = "new_notification"
	EventJoinedRoom      = "joined_room"
	EventLeftRoom        = "left_room"
	EventError           = "error"
)

// Client event types consumed from websocket connections.
const (
	ClientJoinRoom    = "join_room"
	ClientLeaveRoom   = "leave_room"
	ClientTyping      = "typing"
	ClientReadReceipt = "read_receipt"
)

// ServerEvent is broadcasted through websockets.
type ServerEvent struct {
	Type         string        `json:"type"`
	RoomID       int           `json:"room_id,omitempty"`
	ChatRoomID   int           `json:"chat_room_id,omitempty"`
	UserID       int           `json:"user_id,omitempty"`
	IsTyping     bool          `json:"is_typing,omitempty"`
	MessageIDs   []int         `json:"message_ids,omitempty"`
	Message      *Message      `json:"message,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// ClientEvent is a request received from a websocket client.
type ClientEvent struct {
	Type       string `json:"type"`
	RoomID     int    `json:"room_id,omitempty"`
	ChatRoomID int    `json:"chat_room_id,omitempty"`
	IsTyping   bool   `json:"is_typing,omitempty"`
	MessageIDs []int  `json:"message_ids,omitempty"`
}
