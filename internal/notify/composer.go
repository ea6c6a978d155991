// Package notify turns domain events into notifications and fans them out to
// recipients over the in-app, push and real-time channels.
package notify

import (
	"fmt"
	"strings"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/push"
)

// Payload is a composed notification before it is addressed to anyone.
type Payload struct {
	Title    string                 `json:"title"`
	Message  string                 `json:"message"`
	Type     string                 `json:"type"`
	SenderID *uint                  `json:"sender_id,omitempty"`
	Data     map[string]interface{} `json:"data"`
}

// URL returns the link the notification opens.
func (p Payload) URL() string {
	if u, ok := p.Data["url"].(string); ok && u != "" {
		return u
	}
	return push.DefaultURL
}

// Context carries what a template may mention.
type Context struct {
	EventID    uint
	EventTitle string
	SenderID   uint
	SenderName string
	Title      string   // announcements and general notifications
	Message    string   // announcements and general notifications
	Changes    []string // fields touched by an event update
}

// Compose builds the payload for kind. It performs no I/O and always returns
// the same payload for the same input.
func Compose(kind string, c Context) Payload {
	p := Payload{Type: kind, Data: map[string]interface{}{}}
	if c.SenderID != 0 {
		sender := c.SenderID
		p.SenderID = &sender
	}
	if c.EventID != 0 {
		p.Data["event_id"] = c.EventID
		p.Data["event_name"] = c.EventTitle
		p.Data["url"] = fmt.Sprintf("/events/%d", c.EventID)
	}

	title := quote(c.EventTitle)
	switch kind {
	case models.NotificationEventNew:
		p.Title = "New event: " + c.EventTitle
		p.Message = fmt.Sprintf("A new event %s has been created. Check it out!", title)
	case models.NotificationEventApproval:
		p.Title = "Event awaiting approval"
		p.Message = fmt.Sprintf("%s was submitted and needs review before it is published.", title)
		p.Data["url"] = fmt.Sprintf("/admin/events/%d", c.EventID)
	case models.NotificationEventApproved:
		p.Title = "Event approved"
		p.Message = fmt.Sprintf("Your event %s has been approved and is now public.", title)
	case models.NotificationEventDeclined:
		p.Title = "Event declined"
		p.Message = fmt.Sprintf("Your event %s was declined by an administrator.", title)
	case models.NotificationEventJoinRequest:
		p.Title = "New registration request"
		p.Message = fmt.Sprintf("%s wants to join %s.", nameOr(c.SenderName, "A volunteer"), title)
		p.Data["url"] = fmt.Sprintf("/events/%d/registrations", c.EventID)
	case models.NotificationEventAccepted:
		p.Title = "Registration accepted"
		p.Message = fmt.Sprintf("You have been accepted to %s. See you there!", title)
	case models.NotificationEventRejected:
		p.Title = "Registration rejected"
		p.Message = fmt.Sprintf("Your request to join %s was not accepted.", title)
	case models.NotificationEventUpdated:
		p.Title = "Event updated"
		if len(c.Changes) > 0 {
			p.Message = fmt.Sprintf("%s was updated (%s).", title, strings.Join(c.Changes, ", "))
			p.Data["changes"] = c.Changes
		} else {
			p.Message = fmt.Sprintf("%s was updated.", title)
		}
	case models.NotificationEventCancelled:
		p.Title = "Event cancelled"
		p.Message = fmt.Sprintf("%s has been cancelled.", title)
	case models.NotificationEventAnnouncement:
		p.Title = nameOr(c.Title, "Announcement: "+c.EventTitle)
		p.Message = c.Message
	default:
		p.Type = models.NotificationGeneral
		p.Title = nameOr(c.Title, "Notification")
		p.Message = c.Message
		if _, ok := p.Data["url"]; !ok {
			p.Data["url"] = push.DefaultURL
		}
	}
	p.Data["icon"] = push.DefaultIcon
	return p
}

// PushMessage renders the payload for a push transport.
func (p Payload) PushMessage(timestampMillis int64) push.Message {
	return push.Message{
		Title:     p.Title,
		Body:      p.Message,
		URL:       p.URL(),
		Timestamp: timestampMillis,
		Data:      p.Data,
	}.WithDefaults()
}

func quote(s string) string {
	if s == "" {
		return "the event"
	}
	return `"` + s + `"`
}

func nameOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
