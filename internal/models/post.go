package models

import "time"

// Post is a short message in an event channel or on the general board. It is
// mostly here as a like target.
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AuthorID  uint      `json:"author_id" gorm:"index"`
	EventID   *uint     `json:"event_id" gorm:"index"` // channel the post was made in, if any
	Content   string    `json:"content" gorm:"type:text"`
	LikeCount int       `json:"like_count" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreatePostRequest is the body of POST /posts
type CreatePostRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
	EventID *uint  `json:"event_id,omitempty"`
}
