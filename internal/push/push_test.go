package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
)

func testSubscription(t *testing.T, endpoint string) models.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatal(err)
	}
	return models.PushSubscription{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
		Provider: models.PushProviderWebPush,
	}
}

func testTransport(t *testing.T) *WebPushTransport {
	t.Helper()
	priv, pub, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate vapid keys: %v", err)
	}
	return NewWebPushTransport(VAPIDConfig{PublicKey: pub, PrivateKey: priv, Subject: "mailto:ops@example.com"}, nil)
}

func TestWebPushTransportStatusHandling(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantErr  bool
		wantGone bool
	}{
		{"created", http.StatusCreated, false, false},
		{"gone", http.StatusGone, true, true},
		{"not found", http.StatusNotFound, true, true},
		{"server error", http.StatusInternalServerError, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotEncoding string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotEncoding = r.Header.Get("Content-Encoding")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := testTransport(t).Send(context.Background(), testSubscription(t, srv.URL+"/push/1"), Message{Title: "Hi", Body: "There"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrSubscriptionGone) != tt.wantGone {
				t.Fatalf("gone = %v, want %v", errors.Is(err, ErrSubscriptionGone), tt.wantGone)
			}
			if transient := apperrors.IsKind(err, apperrors.KindTransientDelivery); transient != (tt.wantErr && !tt.wantGone) {
				t.Fatalf("transient = %v for %v", transient, err)
			}
			if gotAuth == "" {
				t.Fatal("missing VAPID authorization header")
			}
			if gotEncoding != "aes128gcm" {
				t.Fatalf("content-encoding = %q", gotEncoding)
			}
		})
	}
}

func TestMessageDefaults(t *testing.T) {
	m := Message{Title: "t"}.WithDefaults()
	if m.URL != DefaultURL || m.Icon != DefaultIcon || m.Badge != DefaultBadge || m.Tag != DefaultTag {
		t.Fatalf("defaults not applied: %+v", m)
	}
	m = Message{URL: "/events/3"}.WithDefaults()
	if m.URL != "/events/3" {
		t.Fatalf("url overwritten: %q", m.URL)
	}
}

type recordingTransport struct {
	calls int
	err   error
}

func (r *recordingTransport) Send(context.Context, models.PushSubscription, Message) error {
	r.calls++
	return r.err
}

func TestRouterDispatchesByProvider(t *testing.T) {
	web := &recordingTransport{}
	fcm := &recordingTransport{}
	router := NewRouter().Handle(models.PushProviderWebPush, web).Handle(models.PushProviderFCM, fcm)
	ctx := context.Background()

	if err := router.Send(ctx, models.PushSubscription{}, Message{}); err != nil {
		t.Fatal(err)
	}
	if err := router.Send(ctx, models.PushSubscription{Provider: models.PushProviderFCM}, Message{}); err != nil {
		t.Fatal(err)
	}
	if web.calls != 1 || fcm.calls != 1 {
		t.Fatalf("web=%d fcm=%d", web.calls, fcm.calls)
	}

	empty := NewRouter().Handle(models.PushProviderFCM, nil)
	if empty.Enabled() {
		t.Fatal("nil transport should not enable the router")
	}
	if err := empty.Send(ctx, models.PushSubscription{}, Message{}); err == nil {
		t.Fatal("expected error without a transport")
	}
}

type fakeFCM struct {
	got *messaging.Message
	err error
}

func (f *fakeFCM) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.got = m
	return "projects/x/messages/1", f.err
}

func TestFCMTransport(t *testing.T) {
	sender := &fakeFCM{}
	tr := NewFCMTransport(sender)
	msg := Message{Title: "Accepted", Body: "See you there", URL: "/events/7", Timestamp: 1700000000000, Data: map[string]interface{}{"event_id": float64(7)}}

	if err := tr.Send(context.Background(), models.PushSubscription{Endpoint: "token-1", Provider: models.PushProviderFCM}, msg); err != nil {
		t.Fatal(err)
	}
	if sender.got.Token != "token-1" {
		t.Fatalf("token = %q", sender.got.Token)
	}
	if sender.got.Data["event_id"] != "7" || sender.got.Data["url"] != "/events/7" {
		t.Fatalf("data = %v", sender.got.Data)
	}
	if sender.got.Webpush.FCMOptions != nil {
		t.Fatal("relative link must not be set as FCM link")
	}

	sender.err = errors.New("quota exceeded")
	err := tr.Send(context.Background(), models.PushSubscription{Endpoint: "token-1"}, msg)
	if err == nil || errors.Is(err, ErrSubscriptionGone) {
		t.Fatalf("err = %v", err)
	}
	if !apperrors.IsKind(err, apperrors.KindTransientDelivery) || !errors.Is(err, sender.err) {
		t.Fatalf("fcm failure = %v, want a transient delivery error wrapping the sender's", err)
	}
}
