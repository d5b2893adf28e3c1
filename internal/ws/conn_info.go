package ws

import (
	"time"

	"hixa-chat-service/internal/models"
)

type ConnInfo struct {
	ConnID      string
	UserID      int
	Role        models.Role
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
