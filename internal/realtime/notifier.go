// Package realtime broadcasts "notification created" events to per-user
// channels so connected clients can refresh without polling.
package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/google/uuid"
)

const (
	EventNotificationCreated = "notification.created"
	EventNotificationRead    = "notification.read"
)

// Envelope wraps every message published on a user channel. Created events
// carry the notification; read events carry its id, or All when every
// notification was marked read.
type Envelope struct {
	ID             uuid.UUID            `json:"id"`
	Type           string               `json:"type"`
	Timestamp      time.Time            `json:"timestamp"`
	Payload        *models.Notification `json:"payload,omitempty"`
	NotificationID uint                 `json:"notification_id,omitempty"`
	All            bool                 `json:"all,omitempty"`
}

func NewEnvelope(n *models.Notification) Envelope {
	return Envelope{
		ID:        uuid.New(),
		Type:      EventNotificationCreated,
		Timestamp: time.Now().UTC(),
		Payload:   n,
	}
}

// NewReadEnvelope announces that notificationID was read. Zero means all of
// the user's notifications.
func NewReadEnvelope(notificationID uint) Envelope {
	return Envelope{
		ID:             uuid.New(),
		Type:           EventNotificationRead,
		Timestamp:      time.Now().UTC(),
		NotificationID: notificationID,
		All:            notificationID == 0,
	}
}

// UserChannel is the pub/sub channel for one user.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications.user.%d", userID)
}

// Notifier publishes to a user's channel. Delivery is at most once.
type Notifier interface {
	Publish(ctx context.Context, userID uint, n *models.Notification) error
	// PublishRead lets the user's other sessions update their unread badge.
	PublishRead(ctx context.Context, userID, notificationID uint) error
}

// Subscriber streams a user's channel until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, userID uint) (<-chan Envelope, error)
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, uint, *models.Notification) error { return nil }

func (Noop) PublishRead(context.Context, uint, uint) error { return nil }

func (Noop) Subscribe(ctx context.Context, _ uint) (<-chan Envelope, error) {
	ch := make(chan Envelope)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}
