package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/potluck/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationCols = `id, event_type, title, message, read, created_at`

func scanNotification(sc scanner) (*model.Notification, error) {
	var n model.Notification
	var read int
	if err := sc.Scan(&n.ID, &n.EventType, &n.Title, &n.Message, &read, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Read = read != 0
	return &n, nil
}

func (s *NotificationStore) Create(ctx context.Context, eventType, title, message string) (*model.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO notifications (event_type, title, message) VALUES (?, ?, ?) RETURNING `+notificationCols,
		eventType, title, message,
	)
	n, err := scanNotification(row)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// Recent returns up to limit notifications, newest first.
func (s *NotificationStore) Recent(ctx context.Context, limit int) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationCols+` FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// MarkAllRead flags every unread notification as read and returns how many
// changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE read = 0`)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

func (s *NotificationStore) UnreadCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE read = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
