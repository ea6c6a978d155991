package repositories

import (
	"context"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
	ListIDs(ctx context.Context) ([]uint, error)
	ListIDsByRole(ctx context.Context, role models.Role) ([]uint, error)
}

// PostgresUserRepository implements UserRepository with gorm
type PostgresUserRepository struct {
	db *gorm.DB
}

func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("firebase_uid = ?", firebaseUID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListIDs returns the id of every user, used for "all users" audiences.
func (r *PostgresUserRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *PostgresUserRepository) ListIDsByRole(ctx context.Context, role models.Role) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Order("id").Pluck("id", &ids).Error
	return ids, err
}
