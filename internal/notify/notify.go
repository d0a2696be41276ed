// Package notify delivers user notifications: persisted in the store and
// optionally forwarded to Telegram.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

// Sink accepts notifications addressed to a user.
type Sink interface {
	Notify(ctx context.Context, recipientID int64, message string, importance models.Importance) error
}

// StoreSink persists notifications so users can list and mark them read.
type StoreSink struct {
	notifications store.Notifications
	now           func() time.Time
}

func NewStoreSink(notifications store.Notifications) *StoreSink {
	return &StoreSink{notifications: notifications, now: time.Now}
}

// WithClock replaces the time source used for CreatedAt.
func (s *StoreSink) WithClock(now func() time.Time) *StoreSink {
	s.now = now
	return s
}

func (s *StoreSink) Notify(ctx context.Context, recipientID int64, message string, importance models.Importance) error {
	n := &models.Notification{
		RecipientID: recipientID,
		Message:     message,
		Importance:  importance,
		CreatedAt:   s.now(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to save notification for user %d: %w", recipientID, err)
	}
	return nil
}

// List returns the user's notifications, newest last.
func (s *StoreSink) List(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, unreadOnly)
}

func (s *StoreSink) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return s.notifications.MarkRead(ctx, userID, notificationID)
}

func (s *StoreSink) MarkAllRead(ctx context.Context, userID int64) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, int64, string, models.Importance) error { return nil }
