package models

import "time"

type LikeTargetType string

const (
	LikeTargetEvent LikeTargetType = "event"
	LikeTargetPost  LikeTargetType = "post"
)

// Like is a user's reaction to an event or a post.
type Like struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	UserID     uint           `json:"user_id" gorm:"uniqueIndex:idx_like_target"`
	TargetType LikeTargetType `json:"target_type" gorm:"size:20;uniqueIndex:idx_like_target;index:idx_like_lookup"`
	TargetID   uint           `json:"target_id" gorm:"uniqueIndex:idx_like_target;index:idx_like_lookup"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ToggleLikeResult is the state after a toggle.
type ToggleLikeResult struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}
