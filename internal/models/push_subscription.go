package models

import "time"

type PushProvider string

const (
	PushProviderWebPush PushProvider = "webpush"
	PushProviderFCM     PushProvider = "fcm"
)

// PushSubscription is one device endpoint a user opted in from. For FCM
// devices the endpoint holds the registration token and the keys are empty.
// The keys encrypt payloads for the device and are never serialized.
type PushSubscription struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	UserID     uint         `json:"user_id" gorm:"index"`
	Endpoint   string       `json:"endpoint" gorm:"size:1000;not null;uniqueIndex"`
	P256dh     string       `json:"-"`
	Auth       string       `json:"-"`
	DeviceName string       `json:"device_name" gorm:"size:255"`
	Provider   PushProvider `json:"provider" gorm:"size:20;default:webpush"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// SubscribeRequest defines the request body for registering a device
type SubscribeRequest struct {
	Endpoint   string       `json:"endpoint" validate:"required,max=1000"`
	Keys       PushKeys     `json:"keys"`
	DeviceName string       `json:"device_name" validate:"max=255"`
	Provider   PushProvider `json:"provider" validate:"push_provider"`
}

// EndpointRequest identifies a single subscription by endpoint
type EndpointRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}
