package services

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/notify"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegistrationService owns the join request state machine.
type RegistrationService struct {
	db            *gorm.DB
	events        repositories.EventRepository
	registrations repositories.RegistrationRepository
	users         repositories.UserRepository
	outbox        OutboxWriter
	logger        *zap.Logger
	now           Clock
}

func NewRegistrationService(
	db *gorm.DB,
	events repositories.EventRepository,
	registrations repositories.RegistrationRepository,
	users repositories.UserRepository,
	outbox OutboxWriter,
	logger *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		db:            db,
		events:        events,
		registrations: registrations,
		users:         users,
		outbox:        outbox,
		logger:        logger.Named("registrations"),
		now:           time.Now,
	}
}

// RequestJoin creates a pending registration for the actor, or reopens a
// rejected or expired one. The event's managers are notified.
func (s *RegistrationService) RequestJoin(ctx context.Context, actor models.Actor, eventID uint) (*models.Registration, error) {
	senderName := ""
	if user, err := s.users.GetUserByID(ctx, actor.UserID); err == nil {
		senderName = user.Name
	}

	var result *models.Registration
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		registrations := s.registrations.WithTx(tx)

		event, err := events.GetByID(ctx, eventID)
		if err != nil && !repositories.IsNotFound(err) {
			return apperrors.Persistence("load event", err)
		}
		if err := CanJoin(event, s.now()); err != nil {
			return err
		}

		existing, err := registrations.GetByUserAndEvent(ctx, actor.UserID, eventID)
		switch {
		case err == nil:
			switch existing.Status {
			case models.RegistrationPending, models.RegistrationAccepted:
				return apperrors.AlreadyRegistered("You have already registered for this event")
			case models.RegistrationCancelled:
				return apperrors.InvalidTransition("You left this event and cannot register again")
			}
			reopenable := []models.RegistrationStatus{models.RegistrationRejected, models.RegistrationExpired}
			ok, err := registrations.Transition(ctx, existing.ID, reopenable, models.RegistrationPending, nil)
			if err != nil {
				return apperrors.Persistence("reopen registration", err)
			}
			if !ok {
				return apperrors.AlreadyRegistered("You have already registered for this event")
			}
			existing.Status = models.RegistrationPending
			result = existing

		case repositories.IsNotFound(err):
			registration := &models.Registration{
				UserID:  actor.UserID,
				EventID: eventID,
				Status:  models.RegistrationPending,
			}
			if err := registrations.Create(ctx, registration); err != nil {
				if repositories.IsUniqueViolation(err) {
					return apperrors.AlreadyRegistered("You have already registered for this event")
				}
				return apperrors.Persistence("create registration", err)
			}
			result = registration

		default:
			return apperrors.Persistence("load registration", err)
		}

		payload := notify.Compose(models.NotificationEventJoinRequest, notify.Context{
			EventID:    event.ID,
			EventTitle: event.Title,
			SenderID:   actor.UserID,
			SenderName: senderName,
		})
		audience := models.Audience{Kind: models.AudienceEventStaff, EventID: event.ID, Exclude: []uint{actor.UserID}}
		return s.outbox.Enqueue(ctx, tx, payload, audience)
	})
	if err != nil {
		return nil, appError("request join", err)
	}

	s.outbox.Wake()
	s.logger.Info("join requested", zap.Uint("user_id", actor.UserID), zap.Uint("event_id", eventID), zap.Uint("registration_id", result.ID))
	return result, nil
}

// Decide accepts or rejects a pending registration. Accepting takes a seat
// with a conditional update, so concurrent accepts can never overfill the
// event.
func (s *RegistrationService) Decide(ctx context.Context, actor models.Actor, registrationID uint, decision models.Decision) (*models.Registration, error) {
	if decision != models.DecisionAccept && decision != models.DecisionReject {
		return nil, apperrors.Validation(fmt.Sprintf("Unknown decision %q", decision))
	}

	var result *models.Registration
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		registrations := s.registrations.WithTx(tx)

		registration, err := registrations.GetByID(ctx, registrationID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return apperrors.NotFound("Registration not found")
			}
			return apperrors.Persistence("load registration", err)
		}

		event, err := loadEvent(ctx, events, registration.EventID)
		if err != nil {
			return err
		}
		allowed, err := canManage(ctx, events, event, actor)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.Unauthorized("Only the event's managers or an admin can decide on registrations")
		}
		if registration.Status != models.RegistrationPending {
			return apperrors.InvalidTransition(fmt.Sprintf("Registration is already %s", registration.Status))
		}

		pending := []models.RegistrationStatus{models.RegistrationPending}
		kind := models.NotificationEventRejected

		if decision == models.DecisionAccept {
			seated, err := events.IncrementParticipants(ctx, event.ID)
			if err != nil {
				return apperrors.Persistence("take seat", err)
			}
			if !seated {
				return apperrors.CapacityExceeded("Event is full")
			}

			joinedAt := s.now()
			ok, err := registrations.Transition(ctx, registration.ID, pending, models.RegistrationAccepted, &joinedAt)
			if err != nil {
				return apperrors.Persistence("accept registration", err)
			}
			if !ok {
				return apperrors.InvalidTransition("Registration is no longer pending")
			}
			registration.Status = models.RegistrationAccepted
			registration.JoinedAt = &joinedAt
			kind = models.NotificationEventAccepted
		} else {
			ok, err := registrations.Transition(ctx, registration.ID, pending, models.RegistrationRejected, nil)
			if err != nil {
				return apperrors.Persistence("reject registration", err)
			}
			if !ok {
				return apperrors.InvalidTransition("Registration is no longer pending")
			}
			registration.Status = models.RegistrationRejected
		}

		result = registration
		payload := notify.Compose(kind, notify.Context{EventID: event.ID, EventTitle: event.Title, SenderID: actor.UserID})
		return s.outbox.Enqueue(ctx, tx, payload, models.Audience{Kind: models.AudienceUsers, UserIDs: []uint{registration.UserID}})
	})
	if err != nil {
		return nil, appError("decide registration", err)
	}

	s.outbox.Wake()
	s.logger.Info("registration decided",
		zap.Uint("registration_id", registrationID),
		zap.String("decision", string(decision)),
		zap.Uint("actor_id", actor.UserID),
	)
	return result, nil
}

// Leave cancels the actor's active registration before the event starts and
// frees the seat if one was taken.
func (s *RegistrationService) Leave(ctx context.Context, actor models.Actor, eventID uint) (*models.Registration, error) {
	var result *models.Registration
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		registrations := s.registrations.WithTx(tx)

		event, err := loadEvent(ctx, events, eventID)
		if err != nil {
			return err
		}
		if err := CanLeave(event, s.now()); err != nil {
			return err
		}

		registration, err := registrations.GetByUserAndEvent(ctx, actor.UserID, eventID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return apperrors.NotFound("You are not registered for this event")
			}
			return apperrors.Persistence("load registration", err)
		}
		if !registration.Status.IsActive() {
			return apperrors.NotFound("You are not registered for this event")
		}

		wasAccepted := registration.Status == models.RegistrationAccepted
		active := []models.RegistrationStatus{models.RegistrationPending, models.RegistrationAccepted}
		ok, err := registrations.Transition(ctx, registration.ID, active, models.RegistrationCancelled, nil)
		if err != nil {
			return apperrors.Persistence("cancel registration", err)
		}
		if !ok {
			return apperrors.InvalidTransition("Registration changed, please retry")
		}
		if wasAccepted {
			if _, err := events.DecrementParticipants(ctx, eventID); err != nil {
				return apperrors.Persistence("free seat", err)
			}
		}

		registration.Status = models.RegistrationCancelled
		result = registration
		return nil
	})
	if err != nil {
		return nil, appError("leave event", err)
	}

	s.logger.Info("left event", zap.Uint("user_id", actor.UserID), zap.Uint("event_id", eventID))
	return result, nil
}

// ListMine returns the actor's registrations with event details, newest
// first.
func (s *RegistrationService) ListMine(ctx context.Context, actor models.Actor) ([]models.RegistrationWithEvent, error) {
	rows, err := s.registrations.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, apperrors.Persistence("list registrations", err)
	}
	return rows, nil
}

// ListForEvent returns every registration of an event for its managers.
func (s *RegistrationService) ListForEvent(ctx context.Context, actor models.Actor, eventID uint) ([]models.RegistrationWithUser, error) {
	event, err := loadEvent(ctx, s.events, eventID)
	if err != nil {
		return nil, err
	}
	allowed, err := canManage(ctx, s.events, event, actor)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.Unauthorized("Only the event's managers or an admin can view registrations")
	}

	rows, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperrors.Persistence("list event registrations", err)
	}
	return rows, nil
}

// ExpireStarted closes pending requests for events that already started.
func (s *RegistrationService) ExpireStarted(ctx context.Context) (int64, error) {
	n, err := s.registrations.ExpireForStartedEvents(ctx, s.now())
	if err != nil {
		return 0, apperrors.Persistence("expire registrations", err)
	}
	return n, nil
}
