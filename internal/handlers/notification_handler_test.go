package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/volunteer-hub/backend/internal/middleware"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/realtime"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// scriptedSubscriber replays fixed envelopes and then closes the stream.
type scriptedSubscriber struct {
	envelopes []realtime.Envelope
	gotUser   uint
}

func (s *scriptedSubscriber) Subscribe(_ context.Context, userID uint) (<-chan realtime.Envelope, error) {
	s.gotUser = userID
	ch := make(chan realtime.Envelope, len(s.envelopes))
	for _, env := range s.envelopes {
		ch <- env
	}
	close(ch)
	return ch, nil
}

func TestStreamWritesServerSentEvents(t *testing.T) {
	t.Parallel()
	env := realtime.NewEnvelope(&models.Notification{ID: 7, ReceiverID: 3, Title: "Request accepted"})
	read := realtime.NewReadEnvelope(7)
	sub := &scriptedSubscriber{envelopes: []realtime.Envelope{env, read}}
	h := NewNotificationHandler(nil, nil, nil, sub, zap.NewNop())

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/notifications/stream", nil), rec)
	middleware.SetActor(c, models.Actor{UserID: 3, Role: models.RoleUser})

	if err := h.Stream(c); err != nil {
		t.Fatal(err)
	}
	if sub.gotUser != 3 {
		t.Fatalf("subscribed user = %d, want 3", sub.gotUser)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"id: " + env.ID.String(),
		"event: " + realtime.EventNotificationCreated,
		`"title":"Request accepted"`,
		"event: " + realtime.EventNotificationRead,
		`"notification_id":7`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("stream body missing %q:\n%s", want, body)
		}
	}
}

func TestStreamRequiresActor(t *testing.T) {
	t.Parallel()
	h := NewNotificationHandler(nil, nil, nil, nil, zap.NewNop())
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/notifications/stream", nil), httptest.NewRecorder())

	err := h.Stream(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401", err)
	}
}
