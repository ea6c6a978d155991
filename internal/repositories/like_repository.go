package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"gorm.io/gorm"
)

// Likeable names the table and counter column a like target keeps its
// like count in.
type Likeable struct {
	Table   string
	Counter string
}

var likeables = map[models.LikeTargetType]Likeable{
	models.LikeTargetEvent: {Table: "events", Counter: "likes"},
	models.LikeTargetPost:  {Table: "posts", Counter: "like_count"},
}

// LikeableFor returns the counter location for a target type.
func LikeableFor(target models.LikeTargetType) (Likeable, bool) {
	l, ok := likeables[target]
	return l, ok
}

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	WithTx(tx *gorm.DB) LikeRepository
	CreateLike(ctx context.Context, like *models.Like) error
	DeleteLike(ctx context.Context, userID uint, target models.LikeTargetType, targetID uint) (bool, error)
	HasLiked(ctx context.Context, userID uint, target models.LikeTargetType, targetID uint) (bool, error)
	LikedTargetIDs(ctx context.Context, userID uint, target models.LikeTargetType, targetIDs []uint) (map[uint]bool, error)
	TargetExists(ctx context.Context, target models.LikeTargetType, targetID uint) (bool, error)
	AdjustCounter(ctx context.Context, target models.LikeTargetType, targetID uint, delta int) error
	GetCounter(ctx context.Context, target models.LikeTargetType, targetID uint) (int, error)
}

// PostgresLikeRepository implements LikeRepository with gorm
type PostgresLikeRepository struct {
	db *gorm.DB
}

func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

func (r *PostgresLikeRepository) WithTx(tx *gorm.DB) LikeRepository {
	return &PostgresLikeRepository{db: tx}
}

func (r *PostgresLikeRepository) CreateLike(ctx context.Context, like *models.Like) error {
	return r.db.WithContext(ctx).Create(like).Error
}

// DeleteLike returns false when there was nothing to delete.
func (r *PostgresLikeRepository) DeleteLike(ctx context.Context, userID uint, target models.LikeTargetType, targetID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
		Delete(&models.Like{})
	return res.RowsAffected > 0, res.Error
}

func (r *PostgresLikeRepository) HasLiked(ctx context.Context, userID uint, target models.LikeTargetType, targetID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
		Count(&count).Error
	return count > 0, err
}

func (r *PostgresLikeRepository) LikedTargetIDs(ctx context.Context, userID uint, target models.LikeTargetType, targetIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, target, targetIDs).
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (r *PostgresLikeRepository) TargetExists(ctx context.Context, target models.LikeTargetType, targetID uint) (bool, error) {
	l, ok := likeables[target]
	if !ok {
		return false, fmt.Errorf("unknown like target %q", target)
	}
	var count int64
	err := r.db.WithContext(ctx).Table(l.Table).Where("id = ?", targetID).Count(&count).Error
	return count > 0, err
}

// AdjustCounter adds delta to the target's like counter. Decrements never
// take the counter below zero.
func (r *PostgresLikeRepository) AdjustCounter(ctx context.Context, target models.LikeTargetType, targetID uint, delta int) error {
	l, ok := likeables[target]
	if !ok {
		return fmt.Errorf("unknown like target %q", target)
	}
	q := r.db.WithContext(ctx).Table(l.Table).Where("id = ?", targetID)
	if delta < 0 {
		q = q.Where(l.Counter+" >= ?", -delta)
	}
	return q.UpdateColumn(l.Counter, gorm.Expr(l.Counter+" + ?", delta)).Error
}

func (r *PostgresLikeRepository) GetCounter(ctx context.Context, target models.LikeTargetType, targetID uint) (int, error) {
	l, ok := likeables[target]
	if !ok {
		return 0, fmt.Errorf("unknown like target %q", target)
	}
	var count int
	err := r.db.WithContext(ctx).Table(l.Table).Where("id = ?", targetID).Pluck(l.Counter, &count).Error
	return count, err
}
