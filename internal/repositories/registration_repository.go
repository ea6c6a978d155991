package repositories

import (
	"context"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"gorm.io/gorm"
)

// RegistrationRepository defines the interface for registration data operations
type RegistrationRepository interface {
	WithTx(tx *gorm.DB) RegistrationRepository
	Create(ctx context.Context, registration *models.Registration) error
	GetByID(ctx context.Context, id uint) (*models.Registration, error)
	GetByUserAndEvent(ctx context.Context, userID, eventID uint) (*models.Registration, error)
	Transition(ctx context.Context, id uint, from []models.RegistrationStatus, to models.RegistrationStatus, joinedAt *time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]models.RegistrationWithEvent, error)
	ListByEvent(ctx context.Context, eventID uint) ([]models.RegistrationWithUser, error)
	ListUserIDsByEvent(ctx context.Context, eventID uint, statuses []models.RegistrationStatus) ([]uint, error)
	ExpireForStartedEvents(ctx context.Context, now time.Time) (int64, error)
}

// PostgresRegistrationRepository implements RegistrationRepository with gorm
type PostgresRegistrationRepository struct {
	db *gorm.DB
}

func NewPostgresRegistrationRepository(db *gorm.DB) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{db: db}
}

func (r *PostgresRegistrationRepository) WithTx(tx *gorm.DB) RegistrationRepository {
	return &PostgresRegistrationRepository{db: tx}
}

func (r *PostgresRegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	return r.db.WithContext(ctx).Create(registration).Error
}

func (r *PostgresRegistrationRepository) GetByID(ctx context.Context, id uint) (*models.Registration, error) {
	var registration models.Registration
	if err := r.db.WithContext(ctx).First(&registration, id).Error; err != nil {
		return nil, err
	}
	return &registration, nil
}

func (r *PostgresRegistrationRepository) GetByUserAndEvent(ctx context.Context, userID, eventID uint) (*models.Registration, error) {
	var registration models.Registration
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		First(&registration).Error
	if err != nil {
		return nil, err
	}
	return &registration, nil
}

// Transition moves a registration to a new status only if it is currently in
// one of the from statuses. joinedAt is written when non-nil.
func (r *PostgresRegistrationRepository) Transition(ctx context.Context, id uint, from []models.RegistrationStatus, to models.RegistrationStatus, joinedAt *time.Time) (bool, error) {
	changes := map[string]interface{}{"status": to, "updated_at": time.Now()}
	if joinedAt != nil {
		changes["joined_at"] = *joinedAt
	}
	res := r.db.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(changes)
	return res.RowsAffected > 0, res.Error
}

// ListByUser returns the user's registrations with event details, newest
// first.
func (r *PostgresRegistrationRepository) ListByUser(ctx context.Context, userID uint) ([]models.RegistrationWithEvent, error) {
	var rows []models.RegistrationWithEvent
	err := r.db.WithContext(ctx).Table("registrations").
		Select(`registrations.*,
			events.title AS event_title,
			events.address AS event_address,
			events.start_time AS event_start_time,
			events.end_time AS event_end_time,
			events.status AS event_status`).
		Joins("JOIN events ON events.id = registrations.event_id").
		Where("registrations.user_id = ?", userID).
		Order("registrations.created_at DESC").Order("registrations.id DESC").
		Scan(&rows).Error
	return rows, err
}

// ListByEvent returns every registration of an event, pending first.
func (r *PostgresRegistrationRepository) ListByEvent(ctx context.Context, eventID uint) ([]models.RegistrationWithUser, error) {
	var rows []models.RegistrationWithUser
	err := r.db.WithContext(ctx).Table("registrations").
		Select("registrations.*, users.name AS user_name, users.email AS user_email").
		Joins("JOIN users ON users.id = registrations.user_id").
		Where("registrations.event_id = ?", eventID).
		Order(`CASE registrations.status
			WHEN 'pending' THEN 0
			WHEN 'accepted' THEN 1
			WHEN 'rejected' THEN 2
			ELSE 3 END`).
		Order("registrations.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *PostgresRegistrationRepository) ListUserIDsByEvent(ctx context.Context, eventID uint, statuses []models.RegistrationStatus) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Registration{}).
		Where("event_id = ? AND status IN ?", eventID, statuses).
		Order("id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// ExpireForStartedEvents marks pending registrations of events that already
// started as expired.
func (r *PostgresRegistrationRepository) ExpireForStartedEvents(ctx context.Context, now time.Time) (int64, error) {
	started := r.db.Model(&models.Event{}).Select("id").Where("start_time <= ?", now)
	res := r.db.WithContext(ctx).Model(&models.Registration{}).
		Where("status = ? AND event_id IN (?)", models.RegistrationPending, started).
		Updates(map[string]interface{}{"status": models.RegistrationExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}
