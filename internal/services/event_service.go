package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/notify"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxTrendingLimit     = 50
	defaultTrendingLimit = 10
	defaultPageLimit     = 20
	maxPageLimit         = 100
)

// EventService manages the event lifecycle: creation, moderation, edits,
// cancellation and announcements.
type EventService struct {
	db       *gorm.DB
	events   repositories.EventRepository
	channels repositories.ChannelRepository
	likes    repositories.LikeRepository
	users    repositories.UserRepository
	outbox   OutboxWriter
	logger   *zap.Logger
	now      Clock
}

func NewEventService(
	db *gorm.DB,
	events repositories.EventRepository,
	channels repositories.ChannelRepository,
	likes repositories.LikeRepository,
	users repositories.UserRepository,
	outbox OutboxWriter,
	logger *zap.Logger,
) *EventService {
	return &EventService{
		db:       db,
		events:   events,
		channels: channels,
		likes:    likes,
		users:    users,
		outbox:   outbox,
		logger:   logger.Named("events"),
		now:      time.Now,
	}
}

// CreateEvent stores a pending event with its co-managers and channel, and
// queues the new-event and approval notifications in the same transaction.
func (s *EventService) CreateEvent(ctx context.Context, actor models.Actor, req models.CreateEventRequest) (*models.Event, error) {
	if !actor.CanManageEvents() {
		return nil, apperrors.Unauthorized("Only managers and admins can create events")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, apperrors.Validation("End time must be after start time")
	}
	if !req.StartTime.After(s.now()) {
		return nil, apperrors.Validation("Start time must be in the future")
	}
	if req.MaxParticipants < 1 {
		return nil, apperrors.Validation("Max participants must be at least 1")
	}
	comanagers := notify.Dedupe(req.ComanagerIDs, []uint{actor.UserID})

	senderName := ""
	if user, err := s.users.GetUserByID(ctx, actor.UserID); err == nil {
		senderName = user.Name
	}

	event := &models.Event{
		Title:           strings.TrimSpace(req.Title),
		Content:         req.Content,
		Address:         req.Address,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		AuthorID:        actor.UserID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		if err := events.Create(ctx, event); err != nil {
			return apperrors.Persistence("create event", err)
		}
		if err := events.AddManagers(ctx, event.ID, comanagers); err != nil {
			return apperrors.Persistence("add co-managers", err)
		}
		if _, err := s.channels.WithTx(tx).CreateChannel(ctx, event.ID, "Event channel: "+event.Title); err != nil {
			return apperrors.Persistence("create event channel", err)
		}

		c := notify.Context{EventID: event.ID, EventTitle: event.Title, SenderID: actor.UserID, SenderName: senderName}
		if err := s.outbox.Enqueue(ctx, tx, notify.Compose(models.NotificationEventNew, c),
			models.Audience{Kind: models.AudienceAllUsers, Exclude: []uint{actor.UserID}}); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, notify.Compose(models.NotificationEventApproval, c),
			models.Audience{Kind: models.AudienceAdmins, Exclude: []uint{actor.UserID}})
	})
	if err != nil {
		return nil, appError("create event", err)
	}

	s.outbox.Wake()
	s.logger.Info("event created",
		zap.Uint("event_id", event.ID),
		zap.Uint("author_id", actor.UserID),
		zap.Int("comanagers", len(comanagers)),
	)
	return event, nil
}

// Approve publishes a pending or previously rejected event.
func (s *EventService) Approve(ctx context.Context, actor models.Actor, eventID uint) (*models.Event, error) {
	return s.moderate(ctx, actor, eventID,
		[]models.EventStatus{models.EventPending, models.EventRejected},
		models.EventApproved, models.NotificationEventApproved)
}

// Reject declines a pending or approved event.
func (s *EventService) Reject(ctx context.Context, actor models.Actor, eventID uint) (*models.Event, error) {
	return s.moderate(ctx, actor, eventID,
		[]models.EventStatus{models.EventPending, models.EventApproved},
		models.EventRejected, models.NotificationEventDeclined)
}

func (s *EventService) moderate(ctx context.Context, actor models.Actor, eventID uint, from []models.EventStatus, to models.EventStatus, kind string) (*models.Event, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Unauthorized("Only admins can moderate events")
	}

	var event *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		var err error
		if event, err = loadEvent(ctx, events, eventID); err != nil {
			return err
		}

		ok, err := events.TransitionStatus(ctx, eventID, from, to)
		if err != nil {
			return apperrors.Persistence("update event status", err)
		}
		if !ok {
			return apperrors.InvalidTransition(fmt.Sprintf("Event cannot move from %s to %s", event.Status, to))
		}
		event.Status = to

		payload := notify.Compose(kind, notify.Context{EventID: event.ID, EventTitle: event.Title, SenderID: actor.UserID})
		return s.outbox.Enqueue(ctx, tx, payload, models.Audience{Kind: models.AudienceUsers, UserIDs: []uint{event.AuthorID}})
	})
	if err != nil {
		return nil, appError("moderate event", err)
	}

	s.outbox.Wake()
	s.logger.Info("event moderated", zap.Uint("event_id", eventID), zap.String("status", string(to)), zap.Uint("admin_id", actor.UserID))
	return event, nil
}

// UpdateEvent applies a partial edit and tells accepted participants what
// changed.
func (s *EventService) UpdateEvent(ctx context.Context, actor models.Actor, eventID uint, req models.UpdateEventRequest) (*models.Event, error) {
	var event *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		var err error
		if event, err = loadEvent(ctx, events, eventID); err != nil {
			return err
		}
		allowed, err := canManage(ctx, events, event, actor)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.Unauthorized("Only the event's managers or an admin can edit it")
		}
		if event.Status == models.EventCancelled || event.Status == models.EventExpired {
			return apperrors.InvalidTransition(fmt.Sprintf("Event is %s and can no longer be edited", event.Status))
		}

		changes, labels, err := eventChanges(event, req)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		changes["updated_at"] = s.now()

		ok, err := events.UpdateDetails(ctx, eventID, changes)
		if err != nil {
			return apperrors.Persistence("update event", err)
		}
		if !ok {
			return apperrors.Validation("Max participants cannot be lower than the current number of participants")
		}
		if event, err = loadEvent(ctx, events, eventID); err != nil {
			return err
		}

		payload := notify.Compose(models.NotificationEventUpdated, notify.Context{
			EventID:    event.ID,
			EventTitle: event.Title,
			SenderID:   actor.UserID,
			Changes:    labels,
		})
		return s.outbox.Enqueue(ctx, tx, payload, models.Audience{
			Kind:    models.AudienceEventParticipants,
			EventID: event.ID,
			Exclude: []uint{actor.UserID},
		})
	})
	if err != nil {
		return nil, appError("update event", err)
	}

	s.outbox.Wake()
	s.logger.Info("event updated", zap.Uint("event_id", eventID), zap.Uint("actor_id", actor.UserID))
	return event, nil
}

// eventChanges turns a patch into column updates plus human readable labels.
func eventChanges(event *models.Event, req models.UpdateEventRequest) (map[string]interface{}, []string, error) {
	changes := map[string]interface{}{}
	var labels []string

	if req.Title != nil && strings.TrimSpace(*req.Title) != event.Title {
		changes["title"] = strings.TrimSpace(*req.Title)
		labels = append(labels, "title")
	}
	if req.Content != nil && *req.Content != event.Content {
		changes["content"] = *req.Content
		labels = append(labels, "description")
	}
	if req.Address != nil && *req.Address != event.Address {
		changes["address"] = *req.Address
		labels = append(labels, "location")
	}

	start, end := event.StartTime, event.EndTime
	if req.StartTime != nil && !req.StartTime.Equal(event.StartTime) {
		start = *req.StartTime
		changes["start_time"] = start
		labels = append(labels, "start time")
	}
	if req.EndTime != nil && !req.EndTime.Equal(event.EndTime) {
		end = *req.EndTime
		changes["end_time"] = end
		labels = append(labels, "end time")
	}
	if !end.After(start) {
		return nil, nil, apperrors.Validation("End time must be after start time")
	}

	if req.MaxParticipants != nil && *req.MaxParticipants != event.MaxParticipants {
		if *req.MaxParticipants < 1 {
			return nil, nil, apperrors.Validation("Max participants must be at least 1")
		}
		if *req.MaxParticipants < event.CurrentParticipants {
			return nil, nil, apperrors.Validation("Max participants cannot be lower than the current number of participants")
		}
		changes["max_participants"] = *req.MaxParticipants
		labels = append(labels, "capacity")
	}
	return changes, labels, nil
}

// CancelEvent cancels a pending or approved event and notifies everyone
// holding an active registration.
func (s *EventService) CancelEvent(ctx context.Context, actor models.Actor, eventID uint) (*models.Event, error) {
	var event *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		var err error
		if event, err = loadEvent(ctx, events, eventID); err != nil {
			return err
		}
		if !actor.IsAdmin() && event.AuthorID != actor.UserID {
			return apperrors.Unauthorized("Only the event author or an admin can cancel it")
		}

		ok, err := events.TransitionStatus(ctx, eventID,
			[]models.EventStatus{models.EventPending, models.EventApproved}, models.EventCancelled)
		if err != nil {
			return apperrors.Persistence("cancel event", err)
		}
		if !ok {
			return apperrors.InvalidTransition(fmt.Sprintf("Event is %s and cannot be cancelled", event.Status))
		}
		event.Status = models.EventCancelled

		payload := notify.Compose(models.NotificationEventCancelled, notify.Context{EventID: event.ID, EventTitle: event.Title, SenderID: actor.UserID})
		return s.outbox.Enqueue(ctx, tx, payload, models.Audience{
			Kind:    models.AudienceEventRegistrants,
			EventID: event.ID,
			Exclude: []uint{actor.UserID},
		})
	})
	if err != nil {
		return nil, appError("cancel event", err)
	}

	s.outbox.Wake()
	s.logger.Info("event cancelled", zap.Uint("event_id", eventID), zap.Uint("actor_id", actor.UserID))
	return event, nil
}

// Announce sends a free-form message to the accepted participants.
func (s *EventService) Announce(ctx context.Context, actor models.Actor, eventID uint, req models.AnnouncementRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.Validation("Message is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		event, err := loadEvent(ctx, events, eventID)
		if err != nil {
			return err
		}
		allowed, err := canManage(ctx, events, event, actor)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.Unauthorized("Only the event's managers or an admin can post announcements")
		}

		payload := notify.Compose(models.NotificationEventAnnouncement, notify.Context{
			EventID:    event.ID,
			EventTitle: event.Title,
			SenderID:   actor.UserID,
			Title:      req.Title,
			Message:    req.Message,
		})
		return s.outbox.Enqueue(ctx, tx, payload, models.Audience{
			Kind:    models.AudienceEventParticipants,
			EventID: event.ID,
			Exclude: []uint{actor.UserID},
		})
	})
	if err != nil {
		return appError("announce", err)
	}

	s.outbox.Wake()
	s.logger.Info("announcement queued", zap.Uint("event_id", eventID), zap.Uint("actor_id", actor.UserID))
	return nil
}

// GetEvent returns one event. Unapproved events are only visible to their
// managers and admins.
func (s *EventService) GetEvent(ctx context.Context, viewer models.Actor, eventID uint) (*models.EventView, error) {
	event, err := loadEvent(ctx, s.events, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != models.EventApproved {
		allowed, err := canManage(ctx, s.events, event, viewer)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, apperrors.NotFound("Event not found")
		}
	}

	views, err := s.withLikes(ctx, viewer.UserID, []models.Event{*event})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListEvents pages through events. Admins see every status, everyone else
// sees approved events only.
func (s *EventService) ListEvents(ctx context.Context, viewer models.Actor, page, limit int) ([]models.EventView, int64, error) {
	page, limit = normalizePage(page, limit)

	statuses := []models.EventStatus{models.EventApproved}
	if viewer.IsAdmin() {
		statuses = nil
	}
	events, total, err := s.events.List(ctx, statuses, page, limit)
	if err != nil {
		return nil, 0, apperrors.Persistence("list events", err)
	}
	views, err := s.withLikes(ctx, viewer.UserID, events)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// GetTrending returns the most liked recent events.
func (s *EventService) GetTrending(ctx context.Context, viewerID uint, limit, windowDays int) ([]models.EventView, error) {
	if limit <= 0 {
		limit = defaultTrendingLimit
	}
	if limit > maxTrendingLimit {
		limit = maxTrendingLimit
	}
	if windowDays <= 0 {
		windowDays = 7
	}

	since := s.now().AddDate(0, 0, -windowDays)
	events, err := s.events.ListTrending(ctx, since, limit)
	if err != nil {
		return nil, apperrors.Persistence("list trending events", err)
	}
	return s.withLikes(ctx, viewerID, events)
}

// ListManaged returns the events the actor authored or co-manages.
func (s *EventService) ListManaged(ctx context.Context, actor models.Actor) ([]models.Event, error) {
	events, err := s.events.ListByStaff(ctx, actor.UserID)
	if err != nil {
		return nil, apperrors.Persistence("list managed events", err)
	}
	return events, nil
}

// ExpireStalePending marks pending events that ended without a decision.
func (s *EventService) ExpireStalePending(ctx context.Context) (int64, error) {
	n, err := s.events.ExpirePending(ctx, s.now())
	if err != nil {
		return 0, apperrors.Persistence("expire pending events", err)
	}
	return n, nil
}

func (s *EventService) withLikes(ctx context.Context, viewerID uint, events []models.Event) ([]models.EventView, error) {
	views := make([]models.EventView, len(events))
	if len(events) == 0 {
		return views, nil
	}

	ids := make([]uint, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	liked := map[uint]bool{}
	if viewerID != 0 {
		var err error
		liked, err = s.likes.LikedTargetIDs(ctx, viewerID, models.LikeTargetEvent, ids)
		if err != nil {
			return nil, apperrors.Persistence("load likes", err)
		}
	}
	for i, e := range events {
		views[i] = models.EventView{Event: e, IsLiked: liked[e.ID]}
	}
	return views, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
