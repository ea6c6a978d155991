package models

import "time"

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationAccepted  RegistrationStatus = "accepted"
	RegistrationRejected  RegistrationStatus = "rejected"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationExpired   RegistrationStatus = "expired"
)

// IsActive reports whether the registration holds or is waiting for a seat.
func (s RegistrationStatus) IsActive() bool {
	return s == RegistrationPending || s == RegistrationAccepted
}

// Registration is the single join record for a (user, event) pair.
type Registration struct {
	ID        uint               `json:"id" gorm:"primaryKey"`
	UserID    uint               `json:"user_id" gorm:"uniqueIndex:idx_registration_user_event"`
	EventID   uint               `json:"event_id" gorm:"uniqueIndex:idx_registration_user_event;index"`
	Status    RegistrationStatus `json:"status" gorm:"size:20;default:pending;index"`
	JoinedAt  *time.Time         `json:"joined_at"` // set when accepted
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// RegistrationWithEvent is a registration joined with its event summary.
type RegistrationWithEvent struct {
	Registration
	EventTitle     string      `json:"event_title"`
	EventAddress   string      `json:"event_address"`
	EventStartTime time.Time   `json:"event_start_time"`
	EventEndTime   time.Time   `json:"event_end_time"`
	EventStatus    EventStatus `json:"event_status"`
}

// RegistrationWithUser is a registration joined with the registrant.
type RegistrationWithUser struct {
	Registration
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}
