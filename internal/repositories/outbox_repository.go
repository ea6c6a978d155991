package repositories

import (
	"context"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"gorm.io/gorm"
)

// OutboxRepository stores notifications waiting to be fanned out.
type OutboxRepository interface {
	WithTx(tx *gorm.DB) OutboxRepository
	Enqueue(ctx context.Context, message *models.OutboxMessage) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.OutboxMessage, error)
	Claim(ctx context.Context, id uint, attempts int, at time.Time) (bool, error)
	MarkDone(ctx context.Context, id uint, at time.Time) error
	MarkRetry(ctx context.Context, id uint, nextAttemptAt time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id uint, at time.Time, lastErr string) error
	ReleaseStale(ctx context.Context, olderThan time.Time) (int64, error)
	GetByID(ctx context.Context, id uint) (*models.OutboxMessage, error)
}

type PostgresOutboxRepository struct {
	db *gorm.DB
}

func NewPostgresOutboxRepository(db *gorm.DB) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{db: db}
}

func (r *PostgresOutboxRepository) WithTx(tx *gorm.DB) OutboxRepository {
	return &PostgresOutboxRepository{db: tx}
}

func (r *PostgresOutboxRepository) Enqueue(ctx context.Context, message *models.OutboxMessage) error {
	message.Status = models.OutboxPending
	if message.NextAttemptAt.IsZero() {
		message.NextAttemptAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(message).Error
}

// ListDue returns pending messages whose next attempt is due, oldest first.
func (r *PostgresOutboxRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.OutboxMessage, error) {
	var messages []models.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.OutboxPending, now).
		Order("next_attempt_at ASC").Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// Claim moves a pending message to processing and stamps the claim time.
// Only one dispatcher can win the claim for a given attempt count.
func (r *PostgresOutboxRepository) Claim(ctx context.Context, id uint, attempts int, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("id = ? AND status = ? AND attempts = ?", id, models.OutboxPending, attempts).
		Updates(map[string]interface{}{
			"status":     models.OutboxProcessing,
			"attempts":   gorm.Expr("attempts + ?", 1),
			"claimed_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *PostgresOutboxRepository) MarkDone(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": models.OutboxDone, "processed_at": at, "last_error": ""}).Error
}

func (r *PostgresOutboxRepository) MarkRetry(ctx context.Context, id uint, nextAttemptAt time.Time, lastErr string) error {
	return r.db.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          models.OutboxPending,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastErr,
		}).Error
}

func (r *PostgresOutboxRepository) MarkFailed(ctx context.Context, id uint, at time.Time, lastErr string) error {
	return r.db.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.OutboxFailed,
			"processed_at": at,
			"last_error":   lastErr,
		}).Error
}

// ReleaseStale returns messages claimed before olderThan and still in
// processing, e.g. after a crash, to pending.
func (r *PostgresOutboxRepository) ReleaseStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("status = ? AND (claimed_at IS NULL OR claimed_at < ?)", models.OutboxProcessing, olderThan).
		Update("status", models.OutboxPending)
	return res.RowsAffected, res.Error
}

func (r *PostgresOutboxRepository) GetByID(ctx context.Context, id uint) (*models.OutboxMessage, error) {
	var message models.OutboxMessage
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}
