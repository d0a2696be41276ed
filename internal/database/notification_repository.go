package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingoleague/pkg/models"
)

type notificationRepository struct{ c *conn }

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.CreatedAt = utc(n.CreatedAt)
	q := r.c.q(ctx)
	err := q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO notifications (recipient_id, message, importance, read, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		n.RecipientID, n.Message, string(n.Importance), n.Read, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	q := r.c.q(ctx)
	query := "SELECT id, recipient_id, message, importance, read, created_at FROM notifications WHERE recipient_id = ?"
	if unreadOnly {
		query += " AND read = FALSE"
	}
	query += " ORDER BY id"

	var out []models.Notification
	if err := sqlx.SelectContext(ctx, q, &out, q.Rebind(query), userID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, notificationID int64) error {
	q := r.c.q(ctx)
	res, err := q.ExecContext(ctx, q.Rebind("UPDATE notifications SET read = TRUE WHERE id = ? AND recipient_id = ?"),
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return expectRow(res)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	q := r.c.q(ctx)
	if _, err := q.ExecContext(ctx, q.Rebind("UPDATE notifications SET read = TRUE WHERE recipient_id = ? AND read = FALSE"), userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
