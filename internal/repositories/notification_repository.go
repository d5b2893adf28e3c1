package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"hixa-chat-service/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository abstracts notification persistence.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, userID int, notifType models.NotificationType, title string, message string, data json.RawMessage) (models.Notification, error)
	ListNotifications(ctx context.Context, userID int, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID int) (int, error)
	MarkRead(ctx context.Context, notificationID int, userID int) error
	MarkAllRead(ctx context.Context, userID int) error
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const notificationColumns = `id, user_id, type, title, message, data, is_read, read_at, created_at`

// CreateNotification stores a notification row.
func (r *NotificationRepo) CreateNotification(ctx context.Context, userID int, notifType models.NotificationType, title string, message string, data json.RawMessage) (models.Notification, error) {
	var n models.Notification
	err := r.db.QueryRowxContext(ctx, `INSERT INTO notifications (user_id, type, title, message, data)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+notificationColumns, userID, notifType, title, message, []byte(data)).StructScan(&n)
	return n, err
}

// ListNotifications returns the user's notifications, newest first.
func (r *NotificationRepo) ListNotifications(ctx context.Context, userID int, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, `SELECT `+notificationColumns+` FROM notifications
        WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	return list, err
}

// CountUnread returns the number of unread notifications for the user.
func (r *NotificationRepo) CountUnread(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND is_read = FALSE`, userID)
	return count, err
}

// MarkRead marks one notification as read. Repeats keep the original read_at.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID int, userID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications
        SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
        WHERE id=$1 AND user_id=$2`, notificationID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications
        SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
        WHERE user_id=$1 AND is_read = FALSE`, userID)
	return err
}
