// Package push delivers notification payloads to device subscriptions over
// WebPush or Firebase Cloud Messaging.
package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
)

const (
	DefaultURL   = "/notifications"
	DefaultIcon  = "/icons/notification-icon.png"
	DefaultBadge = "/icons/badge-icon.png"
	DefaultTag   = "event-notification"
)

// ErrSubscriptionGone means the push service no longer knows the endpoint and
// the subscription should be removed.
var ErrSubscriptionGone = errors.New("push subscription is gone")

// Message is the payload delivered to a device.
type Message struct {
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	URL       string                 `json:"url"`
	Icon      string                 `json:"icon"`
	Badge     string                 `json:"badge"`
	Tag       string                 `json:"tag"`
	Timestamp int64                  `json:"timestamp"` // unix millis
	Data      map[string]interface{} `json:"data,omitempty"`
}

// WithDefaults fills the presentation fields a service worker expects.
func (m Message) WithDefaults() Message {
	if m.URL == "" {
		m.URL = DefaultURL
	}
	if m.Icon == "" {
		m.Icon = DefaultIcon
	}
	if m.Badge == "" {
		m.Badge = DefaultBadge
	}
	if m.Tag == "" {
		m.Tag = DefaultTag
	}
	return m
}

// Transport sends one message to one subscription.
type Transport interface {
	Send(ctx context.Context, subscription models.PushSubscription, msg Message) error
}

// Router dispatches to the transport registered for the subscription's
// provider.
type Router struct {
	transports map[models.PushProvider]Transport
}

func NewRouter() *Router {
	return &Router{transports: make(map[models.PushProvider]Transport)}
}

// Handle registers t for provider. A nil transport is ignored.
func (r *Router) Handle(provider models.PushProvider, t Transport) *Router {
	if t != nil {
		r.transports[provider] = t
	}
	return r
}

func (r *Router) Send(ctx context.Context, subscription models.PushSubscription, msg Message) error {
	provider := subscription.Provider
	if provider == "" {
		provider = models.PushProviderWebPush
	}
	t, ok := r.transports[provider]
	if !ok {
		return fmt.Errorf("no push transport configured for provider %q", provider)
	}
	return t.Send(ctx, subscription, msg)
}

// Enabled reports whether any transport is registered.
func (r *Router) Enabled() bool { return len(r.transports) > 0 }
