package notifications

import (
	"context"
	"fmt"

	"hixa-chat-service/internal/models"
	"hixa-chat-service/internal/observability"
	"hixa-chat-service/internal/repositories"
	"hixa-chat-service/internal/ws"
)

// Notifier persists notifications and pushes them to connected users.
// Persistence comes first; the realtime push is best-effort and its failure
// is invisible to the producer. A client can always recover the row through
// the REST listing.
type Notifier struct {
	repo repositories.NotificationRepository
	hub  *ws.Hub
}

// NewNotifier constructs a Notifier.
func NewNotifier(repo repositories.NotificationRepository, hub *ws.Hub) *Notifier {
	return &Notifier{repo: repo, hub: hub}
}

// Notify stores a notification for the user and attempts a realtime push.
// Only the persistence step can fail.
func (n *Notifier) Notify(ctx context.Context, userID int, notifType models.NotificationType, title string, message string, data models.NotificationData) (models.Notification, error) {
	raw, err := models.EncodeNotificationData(data)
	if err != nil {
		return models.Notification{}, fmt.Errorf("encode notification data: %w", err)
	}

	notif, err := n.repo.CreateNotification(ctx, userID, notifType, title, message, raw)
	if err != nil {
		return models.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	observability.IncNotificationCreated(string(notifType))

	n.hub.SendToUser(userID, models.ServerEvent{
		Type:         models.EventNewNotification,
		Notification: &notif,
	})

	_ = observability.PublishEvent(ctx, "notifications.created", observability.EventEnvelope{
		EventType: "notifications",
		EventName: string(notifType),
		Payload: map[string]interface{}{
			"notification_id": notif.ID,
			"user_id":         userID,
			"delivered_live":  n.hub.IsOnline(userID),
		},
	}, nil)

	return notif, nil
}
