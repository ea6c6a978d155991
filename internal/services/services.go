// Package services holds the registration, event lifecycle, like and push
// subscription use cases. Every state change runs in one gorm transaction
// together with the outbox rows it produces.
package services

import (
	"context"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/notify"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"gorm.io/gorm"
)

// OutboxWriter records notifications inside a transaction and signals the
// dispatcher once the transaction has committed.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx *gorm.DB, payload notify.Payload, audience models.Audience) error
	Wake()
}

// Clock returns the current time.
type Clock func() time.Time

func loadEvent(ctx context.Context, events repositories.EventRepository, id uint) (*models.Event, error) {
	event, err := events.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperrors.NotFound("Event not found")
		}
		return nil, apperrors.Persistence("load event", err)
	}
	return event, nil
}

// canManage reports whether actor may act as a manager of event.
func canManage(ctx context.Context, events repositories.EventRepository, event *models.Event, actor models.Actor) (bool, error) {
	if actor.IsAdmin() || event.AuthorID == actor.UserID {
		return true, nil
	}
	ok, err := events.IsStaff(ctx, event.ID, actor.UserID)
	if err != nil {
		return false, apperrors.Persistence("check event managers", err)
	}
	return ok, nil
}

// appError passes *apperrors.Error through and wraps anything else as a
// persistence failure.
func appError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*apperrors.Error); ok {
		return err
	}
	return apperrors.Persistence(op, err)
}
