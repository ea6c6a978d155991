package repositories

import (
	"context"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushSubscriptionRepository defines the interface for push subscription storage
type PushSubscriptionRepository interface {
	Upsert(ctx context.Context, subscription *models.PushSubscription) error
	GetByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error)
	ListByUser(ctx context.Context, userID uint) ([]models.PushSubscription, error)
	DeleteByUserAndEndpoint(ctx context.Context, userID uint, endpoint string) (int64, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) (int64, error)
	DeleteAllByUser(ctx context.Context, userID uint) (int64, error)
	ExistsForUser(ctx context.Context, userID uint, endpoint string) (bool, error)
}

type PostgresPushSubscriptionRepository struct {
	db *gorm.DB
}

func NewPostgresPushSubscriptionRepository(db *gorm.DB) *PostgresPushSubscriptionRepository {
	return &PostgresPushSubscriptionRepository{db: db}
}

// Upsert inserts the subscription or, when the endpoint is already known,
// rebinds it to the given user with the new keys and device name.
func (r *PostgresPushSubscriptionRepository) Upsert(ctx context.Context, subscription *models.PushSubscription) error {
	if subscription.Provider == "" {
		subscription.Provider = models.PushProviderWebPush
	}
	subscription.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "device_name", "provider", "updated_at"}),
	}).Create(subscription).Error
	if err != nil {
		return err
	}

	// The conflict path leaves the struct without the stored id on some drivers.
	stored, err := r.GetByEndpoint(ctx, subscription.Endpoint)
	if err != nil {
		return err
	}
	*subscription = *stored
	return nil
}

func (r *PostgresPushSubscriptionRepository) GetByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error) {
	var subscription models.PushSubscription
	if err := r.db.WithContext(ctx).Where("endpoint = ?", endpoint).First(&subscription).Error; err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *PostgresPushSubscriptionRepository) ListByUser(ctx context.Context, userID uint) ([]models.PushSubscription, error) {
	var subscriptions []models.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&subscriptions).Error
	return subscriptions, err
}

func (r *PostgresPushSubscriptionRepository) DeleteByUserAndEndpoint(ctx context.Context, userID uint, endpoint string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&models.PushSubscription{})
	return res.RowsAffected, res.Error
}

func (r *PostgresPushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) (int64, error) {
	res := r.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&models.PushSubscription{})
	return res.RowsAffected, res.Error
}

func (r *PostgresPushSubscriptionRepository) DeleteAllByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PushSubscription{})
	return res.RowsAffected, res.Error
}

func (r *PostgresPushSubscriptionRepository) ExistsForUser(ctx context.Context, userID uint, endpoint string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PushSubscription{}).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Count(&count).Error
	return count > 0, err
}
