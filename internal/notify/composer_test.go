package notify

import (
	"reflect"
	"strings"
	"testing"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/push"
)

func TestComposeEventNew(t *testing.T) {
	p := Compose(models.NotificationEventNew, Context{EventID: 12, EventTitle: "Park planting", SenderID: 4})

	if p.Type != models.NotificationEventNew {
		t.Fatalf("type = %q", p.Type)
	}
	if p.Title != "New event: Park planting" {
		t.Fatalf("title = %q", p.Title)
	}
	if p.SenderID == nil || *p.SenderID != 4 {
		t.Fatalf("sender = %v", p.SenderID)
	}
	if p.Data["event_id"] != uint(12) || p.Data["url"] != "/events/12" || p.Data["event_name"] != "Park planting" {
		t.Fatalf("data = %v", p.Data)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	c := Context{EventID: 3, EventTitle: "Food drive", SenderName: "Linh", Changes: []string{"address"}}
	kinds := []string{
		models.NotificationEventNew,
		models.NotificationEventApproval,
		models.NotificationEventApproved,
		models.NotificationEventDeclined,
		models.NotificationEventJoinRequest,
		models.NotificationEventAccepted,
		models.NotificationEventRejected,
		models.NotificationEventUpdated,
		models.NotificationEventCancelled,
	}
	for _, kind := range kinds {
		a, b := Compose(kind, c), Compose(kind, c)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: compose not deterministic", kind)
		}
		if a.Title == "" || a.Message == "" {
			t.Errorf("%s: empty title or message: %+v", kind, a)
		}
		if a.Type != kind {
			t.Errorf("%s: type = %q", kind, a.Type)
		}
	}
}

func TestComposeJoinRequestLinksToRegistrations(t *testing.T) {
	p := Compose(models.NotificationEventJoinRequest, Context{EventID: 5, EventTitle: "Run", SenderName: "Minh"})
	if !strings.HasPrefix(p.Message, "Minh wants to join") {
		t.Fatalf("message = %q", p.Message)
	}
	if p.URL() != "/events/5/registrations" {
		t.Fatalf("url = %q", p.URL())
	}
}

func TestComposeUnknownKindFallsBackToGeneral(t *testing.T) {
	p := Compose("something_else", Context{Title: "Heads up", Message: "Maintenance tonight"})
	if p.Type != models.NotificationGeneral {
		t.Fatalf("type = %q", p.Type)
	}
	if p.Title != "Heads up" || p.Message != "Maintenance tonight" {
		t.Fatalf("payload = %+v", p)
	}
	if p.URL() != push.DefaultURL {
		t.Fatalf("url = %q", p.URL())
	}
	if p.SenderID != nil {
		t.Fatal("system notification should have no sender")
	}
}

func TestComposeAnnouncement(t *testing.T) {
	p := Compose(models.NotificationEventAnnouncement, Context{EventID: 1, EventTitle: "Clean-up", Message: "Meet at gate B"})
	if p.Title != "Announcement: Clean-up" || p.Message != "Meet at gate B" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestPushMessage(t *testing.T) {
	p := Compose(models.NotificationEventAccepted, Context{EventID: 8, EventTitle: "Shelter"})
	m := p.PushMessage(1700000000000)
	if m.Title != p.Title || m.Body != p.Message || m.URL != "/events/8" {
		t.Fatalf("message = %+v", m)
	}
	if m.Icon != push.DefaultIcon || m.Badge != push.DefaultBadge || m.Tag != push.DefaultTag {
		t.Fatalf("defaults missing: %+v", m)
	}
}
