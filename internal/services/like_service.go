package services

import (
	"context"
	"fmt"

	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LikeService toggles likes on any registered Likeable target.
type LikeService struct {
	db     *gorm.DB
	likes  repositories.LikeRepository
	logger *zap.Logger
}

func NewLikeService(db *gorm.DB, likes repositories.LikeRepository, logger *zap.Logger) *LikeService {
	return &LikeService{db: db, likes: likes, logger: logger.Named("likes")}
}

// Toggle likes the target if the user has not liked it yet and unlikes it
// otherwise. The like row and the counter change commit together.
func (s *LikeService) Toggle(ctx context.Context, userID uint, target models.LikeTargetType, targetID uint) (*models.ToggleLikeResult, error) {
	if _, ok := repositories.LikeableFor(target); !ok {
		return nil, apperrors.Validation(fmt.Sprintf("Cannot like a %q", target))
	}

	result := &models.ToggleLikeResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		likes := s.likes.WithTx(tx)

		exists, err := likes.TargetExists(ctx, target, targetID)
		if err != nil {
			return apperrors.Persistence("check like target", err)
		}
		if !exists {
			return apperrors.NotFound(fmt.Sprintf("%s not found", targetLabel(target)))
		}

		removed, err := likes.DeleteLike(ctx, userID, target, targetID)
		if err != nil {
			return apperrors.Persistence("remove like", err)
		}
		delta := -1
		if !removed {
			like := &models.Like{UserID: userID, TargetType: target, TargetID: targetID}
			if err := likes.CreateLike(ctx, like); err != nil {
				if repositories.IsUniqueViolation(err) {
					return apperrors.InvalidTransition("Like changed concurrently, try again")
				}
				return apperrors.Persistence("create like", err)
			}
			delta = 1
			result.Liked = true
		}

		if err := likes.AdjustCounter(ctx, target, targetID, delta); err != nil {
			return apperrors.Persistence("update like counter", err)
		}
		result.Count, err = likes.GetCounter(ctx, target, targetID)
		if err != nil {
			return apperrors.Persistence("read like counter", err)
		}
		return nil
	})
	if err != nil {
		return nil, appError("toggle like", err)
	}

	s.logger.Debug("like toggled",
		zap.Uint("user_id", userID),
		zap.String("target", string(target)),
		zap.Uint("target_id", targetID),
		zap.Bool("liked", result.Liked),
	)
	return result, nil
}

func targetLabel(target models.LikeTargetType) string {
	switch target {
	case models.LikeTargetEvent:
		return "Event"
	case models.LikeTargetPost:
		return "Post"
	}
	return "Target"
}

// Status reports whether the user likes the target and its current count.
func (s *LikeService) Status(ctx context.Context, userID uint, target models.LikeTargetType, targetID uint) (*models.ToggleLikeResult, error) {
	if _, ok := repositories.LikeableFor(target); !ok {
		return nil, apperrors.Validation(fmt.Sprintf("Cannot like a %q", target))
	}
	exists, err := s.likes.TargetExists(ctx, target, targetID)
	if err != nil {
		return nil, apperrors.Persistence("check like target", err)
	}
	if !exists {
		return nil, apperrors.NotFound(fmt.Sprintf("%s not found", targetLabel(target)))
	}

	liked, err := s.likes.HasLiked(ctx, userID, target, targetID)
	if err != nil {
		return nil, apperrors.Persistence("check like", err)
	}
	count, err := s.likes.GetCounter(ctx, target, targetID)
	if err != nil {
		return nil, apperrors.Persistence("read like counter", err)
	}
	return &models.ToggleLikeResult{Liked: liked, Count: count}, nil
}
