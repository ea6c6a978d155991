package repositories

import (
	"context"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"gorm.io/gorm"
)

// ChannelRepository creates the discussion channel attached to an event.
type ChannelRepository interface {
	WithTx(tx *gorm.DB) ChannelRepository
	CreateChannel(ctx context.Context, eventID uint, name string) (*models.Channel, error)
	GetByEventID(ctx context.Context, eventID uint) (*models.Channel, error)
}

type PostgresChannelRepository struct {
	db *gorm.DB
}

func NewPostgresChannelRepository(db *gorm.DB) *PostgresChannelRepository {
	return &PostgresChannelRepository{db: db}
}

func (r *PostgresChannelRepository) WithTx(tx *gorm.DB) ChannelRepository {
	return &PostgresChannelRepository{db: tx}
}

func (r *PostgresChannelRepository) CreateChannel(ctx context.Context, eventID uint, name string) (*models.Channel, error) {
	channel := &models.Channel{EventID: eventID, Name: name}
	if err := r.db.WithContext(ctx).Create(channel).Error; err != nil {
		return nil, err
	}
	return channel, nil
}

func (r *PostgresChannelRepository) GetByEventID(ctx context.Context, eventID uint) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}
