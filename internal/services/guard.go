package services

import (
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
)

// CanJoin decides whether a join request against event may be admitted at
// now. Checks run in order and the first failure is returned: existence,
// remaining capacity, start time, then whether the event is open at all.
func CanJoin(event *models.Event, now time.Time) error {
	if event == nil {
		return apperrors.NotFound("Event not found")
	}
	if event.IsFull() {
		return apperrors.CapacityExceeded("Event is full")
	}
	if event.HasStarted(now) {
		return apperrors.WindowClosed("Cannot join event that has already started")
	}
	switch event.Status {
	case models.EventRejected, models.EventCancelled, models.EventExpired:
		return apperrors.WindowClosed("Event is not open for registration")
	}
	return nil
}

// CanLeave decides whether a participant may still leave event at now.
func CanLeave(event *models.Event, now time.Time) error {
	if event == nil {
		return apperrors.NotFound("Event not found")
	}
	if event.HasStarted(now) {
		return apperrors.WindowClosed("Cannot leave event that has already started")
	}
	return nil
}
