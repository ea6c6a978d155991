package repositories

import (
	"context"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"gorm.io/gorm"
)

// EventRepository defines the interface for event data operations
type EventRepository interface {
	WithTx(tx *gorm.DB) EventRepository
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	UpdateDetails(ctx context.Context, id uint, changes map[string]interface{}) (bool, error)
	TransitionStatus(ctx context.Context, id uint, from []models.EventStatus, to models.EventStatus) (bool, error)
	IncrementParticipants(ctx context.Context, id uint) (bool, error)
	DecrementParticipants(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, statuses []models.EventStatus, page, limit int) ([]models.Event, int64, error)
	ListTrending(ctx context.Context, since time.Time, limit int) ([]models.Event, error)
	ListByStaff(ctx context.Context, userID uint) ([]models.Event, error)
	AddManagers(ctx context.Context, eventID uint, userIDs []uint) error
	IsStaff(ctx context.Context, eventID, userID uint) (bool, error)
	ListStaffIDs(ctx context.Context, eventID uint) ([]uint, error)
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

// PostgresEventRepository implements EventRepository with gorm
type PostgresEventRepository struct {
	db *gorm.DB
}

func NewPostgresEventRepository(db *gorm.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

func (r *PostgresEventRepository) WithTx(tx *gorm.DB) EventRepository {
	return &PostgresEventRepository{db: tx}
}

func (r *PostgresEventRepository) Create(ctx context.Context, event *models.Event) error {
	event.Status = models.EventPending
	event.CurrentParticipants = 0
	event.Likes = 0
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *PostgresEventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateDetails applies column changes. When max_participants is among them
// the update only happens if the new maximum still fits the seats taken;
// false means it did not.
func (r *PostgresEventRepository) UpdateDetails(ctx context.Context, id uint, changes map[string]interface{}) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id)
	if newMax, ok := changes["max_participants"]; ok {
		q = q.Where("current_participants <= ?", newMax)
	}
	res := q.Updates(changes)
	return res.RowsAffected > 0, res.Error
}

func (r *PostgresEventRepository) TransitionStatus(ctx context.Context, id uint, from []models.EventStatus, to models.EventStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	return res.RowsAffected > 0, res.Error
}

// IncrementParticipants takes one seat. It returns false when the event is
// already full.
func (r *PostgresEventRepository) IncrementParticipants(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND current_participants < max_participants", id).
		UpdateColumn("current_participants", gorm.Expr("current_participants + ?", 1))
	return res.RowsAffected > 0, res.Error
}

// DecrementParticipants frees one seat without going below zero.
func (r *PostgresEventRepository) DecrementParticipants(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND current_participants > 0", id).
		UpdateColumn("current_participants", gorm.Expr("current_participants - ?", 1))
	return res.RowsAffected > 0, res.Error
}

func (r *PostgresEventRepository) List(ctx context.Context, statuses []models.EventStatus, page, limit int) ([]models.Event, int64, error) {
	var events []models.Event
	var total int64

	byStatus := func(db *gorm.DB) *gorm.DB {
		if len(statuses) > 0 {
			return db.Where("status IN ?", statuses)
		}
		return db
	}
	if err := r.db.WithContext(ctx).Model(&models.Event{}).Scopes(byStatus).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).Scopes(byStatus).Order("start_time ASC").Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&events).Error
	return events, total, err
}

// ListTrending returns non-rejected events created since the given time,
// most liked first.
func (r *PostgresEventRepository) ListTrending(ctx context.Context, since time.Time, limit int) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND status <> ?", since, models.EventRejected).
		Order("likes DESC").Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// ListByStaff returns events authored or co-managed by the user.
func (r *PostgresEventRepository) ListByStaff(ctx context.Context, userID uint) ([]models.Event, error) {
	var events []models.Event
	managed := r.db.Model(&models.EventManager{}).Select("event_id").Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).
		Where("author_id = ? OR id IN (?)", userID, managed).
		Order("created_at DESC").
		Find(&events).Error
	return events, err
}

func (r *PostgresEventRepository) AddManagers(ctx context.Context, eventID uint, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.EventManager, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, models.EventManager{EventID: eventID, UserID: id})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// IsStaff reports whether the user is the author or a co-manager.
func (r *PostgresEventRepository) IsStaff(ctx context.Context, eventID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND author_id = ?", eventID, userID).
		Count(&count).Error
	if err != nil || count > 0 {
		return count > 0, err
	}
	err = r.db.WithContext(ctx).Model(&models.EventManager{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListStaffIDs returns the author followed by the co-managers.
func (r *PostgresEventRepository) ListStaffIDs(ctx context.Context, eventID uint) ([]uint, error) {
	event, err := r.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	var managers []uint
	err = r.db.WithContext(ctx).Model(&models.EventManager{}).
		Where("event_id = ? AND user_id <> ?", eventID, event.AuthorID).
		Order("id").
		Pluck("user_id", &managers).Error
	if err != nil {
		return nil, err
	}
	return append([]uint{event.AuthorID}, managers...), nil
}

// ExpirePending marks pending events that already ended as expired.
func (r *PostgresEventRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("status = ? AND end_time < ?", models.EventPending, now).
		Updates(map[string]interface{}{"status": models.EventExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}
