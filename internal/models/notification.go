package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationEventNew          = "event_new"
	NotificationEventApproval     = "event_approval"
	NotificationEventApproved     = "event_approved"
	NotificationEventDeclined     = "event_declined"
	NotificationEventJoinRequest  = "event_join_request"
	NotificationEventAccepted     = "event_accepted"
	NotificationEventRejected     = "event_rejected"
	NotificationEventUpdated      = "event_updated"
	NotificationEventCancelled    = "event_cancelled"
	NotificationEventAnnouncement = "event_announcement"
	NotificationGeneral           = "general"
)

// Notification is one in-app notification for one receiver.
type Notification struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Title      string         `json:"title" gorm:"size:255"`
	Message    string         `json:"message" gorm:"type:text"`
	SenderID   *uint          `json:"sender_id" gorm:"index"`
	ReceiverID uint           `json:"receiver_id" gorm:"index"`
	Type       string         `json:"type" gorm:"size:40;index"`
	Data       datatypes.JSON `json:"data"` // {"event_id": 1, "url": "/events/1"}
	IsRead     bool           `json:"is_read" gorm:"default:false;index"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}
