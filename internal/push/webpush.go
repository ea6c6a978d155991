package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
)

type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string // contact, "mailto:" or https URL
	TTL        int    // seconds
}

func (c VAPIDConfig) Valid() bool {
	return c.PublicKey != "" && c.PrivateKey != ""
}

// WebPushTransport sends VAPID-signed, encrypted WebPush messages.
type WebPushTransport struct {
	cfg    VAPIDConfig
	client *http.Client
}

func NewWebPushTransport(cfg VAPIDConfig, client *http.Client) *WebPushTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 86400
	}
	return &WebPushTransport{cfg: cfg, client: client}
}

func (t *WebPushTransport) Send(ctx context.Context, subscription models.PushSubscription, msg Message) error {
	body, err := json.Marshal(msg.WithDefaults())
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: subscription.P256dh,
			Auth:   subscription.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      strings.TrimPrefix(t.cfg.Subject, "mailto:"),
		VAPIDPublicKey:  t.cfg.PublicKey,
		VAPIDPrivateKey: t.cfg.PrivateKey,
		TTL:             t.cfg.TTL,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return apperrors.TransientDelivery("send webpush", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.TransientDelivery("send webpush",
			fmt.Errorf("push service responded %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}
}

// GenerateVAPIDKeys creates a new key pair for first-time setup.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}
