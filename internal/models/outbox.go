package models

import (
	"time"

	"gorm.io/datatypes"
)

type AudienceKind string

const (
	AudienceUsers             AudienceKind = "users"
	AudienceAllUsers          AudienceKind = "all_users"
	AudienceAdmins            AudienceKind = "admins"
	AudienceEventParticipants AudienceKind = "event_participants" // accepted registrations
	AudienceEventRegistrants  AudienceKind = "event_registrants"  // pending and accepted registrations
	AudienceEventStaff        AudienceKind = "event_staff"        // author and co-managers
)

// Audience describes who a notification is for. It is stored with the
// outbox message and resolved to user ids when the message is dispatched.
type Audience struct {
	Kind    AudienceKind `json:"kind"`
	UserIDs []uint       `json:"user_ids,omitempty"`
	EventID uint         `json:"event_id,omitempty"`
	Exclude []uint       `json:"exclude,omitempty"`
}

type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxDone       OutboxStatus = "done"
	OutboxFailed     OutboxStatus = "failed"
)

// OutboxMessage is a notification waiting to be fanned out. It is written in
// the same transaction as the state change that caused it.
type OutboxMessage struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Kind          string         `json:"kind" gorm:"size:40"`
	Audience      datatypes.JSON `json:"audience"`
	Payload       datatypes.JSON `json:"payload"`
	Status        OutboxStatus   `json:"status" gorm:"size:20;default:pending;index:idx_outbox_due"`
	Attempts      int            `json:"attempts" gorm:"not null;default:0"`
	NextAttemptAt time.Time      `json:"next_attempt_at" gorm:"index:idx_outbox_due"`
	LastError     string         `json:"last_error" gorm:"type:text"`
	ClaimedAt     *time.Time     `json:"claimed_at"`
	CreatedAt     time.Time      `json:"created_at"`
	ProcessedAt   *time.Time     `json:"processed_at"`
}
