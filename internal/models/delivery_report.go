package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryStats aggregates the outcome of one fan-out.
type DeliveryStats struct {
	Total       int `json:"total" bson:"total"`
	WithPush    int `json:"with_push" bson:"with_push"`       // at least one push accepted
	WithoutPush int `json:"without_push" bson:"without_push"` // in-app only
	DBSaved     int `json:"db_saved" bson:"db_saved"`
	Failed      int `json:"failed" bson:"failed"`           // notification row could not be written
	PushFailed  int `json:"push_failed" bson:"push_failed"` // had subscriptions, none accepted
}

func (s *DeliveryStats) Add(o DeliveryStats) {
	s.Total += o.Total
	s.WithPush += o.WithPush
	s.WithoutPush += o.WithoutPush
	s.DBSaved += o.DBSaved
	s.Failed += o.Failed
	s.PushFailed += o.PushFailed
}

// DeliveryReport archives the stats of a dispatched outbox message (MongoDB)
type DeliveryReport struct {
	ID               primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	OutboxID         uint               `json:"outbox_id" bson:"outbox_id"`
	NotificationType string             `json:"notification_type" bson:"notification_type"`
	AudienceKind     AudienceKind       `json:"audience_kind" bson:"audience_kind"`
	EventID          uint               `json:"event_id,omitempty" bson:"event_id,omitempty"`
	Attempt          int                `json:"attempt" bson:"attempt"`
	Stats            DeliveryStats      `json:"stats" bson:"stats"`
	StartedAt        time.Time          `json:"started_at" bson:"started_at"`
	FinishedAt       time.Time          `json:"finished_at" bson:"finished_at"`
}
