package models

import "time"

type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventApproved  EventStatus = "approved"
	EventRejected  EventStatus = "rejected"
	EventCancelled EventStatus = "cancelled"
	EventExpired   EventStatus = "expired"
)

// Event is a capacity-limited, time-bounded volunteer event.
// CurrentParticipants and Likes are only changed through conditional
// updates in the repository layer.
type Event struct {
	ID                  uint        `json:"id" gorm:"primaryKey"`
	Title               string      `json:"title" gorm:"size:255;not null"`
	Content             string      `json:"content" gorm:"type:text"`
	Address             string      `json:"address"`
	StartTime           time.Time   `json:"start_time" gorm:"index"`
	EndTime             time.Time   `json:"end_time"`
	MaxParticipants     int         `json:"max_participants" gorm:"not null"`
	CurrentParticipants int         `json:"current_participants" gorm:"not null;default:0"`
	Likes               int         `json:"likes" gorm:"not null;default:0"`
	Status              EventStatus `json:"status" gorm:"size:20;default:pending;index"`
	AuthorID            uint        `json:"author_id" gorm:"index"`
	CreatedAt           time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartTime)
}

func (e *Event) IsFull() bool {
	return e.CurrentParticipants >= e.MaxParticipants
}

// EventManager associates a co-manager with an event.
type EventManager struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	EventID   uint      `json:"event_id" gorm:"uniqueIndex:idx_event_manager"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_event_manager;index"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel is the discussion channel opened for every event.
type Channel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	EventID   uint      `json:"event_id" gorm:"uniqueIndex"`
	Name      string    `json:"name" gorm:"size:300"`
	CreatedAt time.Time `json:"created_at"`
}

// EventView is an event as seen by a specific viewer.
type EventView struct {
	Event
	IsLiked bool `json:"is_liked"`
}

// CreateEventRequest defines the request body for creating an event
type CreateEventRequest struct {
	Title           string    `json:"title" validate:"required,min=3,max=255"`
	Content         string    `json:"content" validate:"required"`
	Address         string    `json:"address" validate:"required"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	EndTime         time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	MaxParticipants int       `json:"max_participants" validate:"required,min=1"`
	ComanagerIDs    []uint    `json:"comanager_ids"`
}

// UpdateEventRequest defines the request body for editing an event. Nil
// fields are left unchanged.
type UpdateEventRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Content         *string    `json:"content"`
	Address         *string    `json:"address"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	MaxParticipants *int       `json:"max_participants" validate:"omitempty,min=1"`
}

// AnnouncementRequest defines the request body for an event announcement
type AnnouncementRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Message string `json:"message" validate:"required"`
}
