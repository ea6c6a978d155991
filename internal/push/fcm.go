package push

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
)

// FCMSender is the part of the Firebase messaging client the transport uses.
type FCMSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMTransport delivers to Firebase Cloud Messaging registration tokens.
type FCMTransport struct {
	client FCMSender
}

func NewFCMTransport(client FCMSender) *FCMTransport {
	return &FCMTransport{client: client}
}

func (t *FCMTransport) Send(ctx context.Context, subscription models.PushSubscription, msg Message) error {
	_, err := t.client.Send(ctx, BuildFCMMessage(subscription.Endpoint, msg))
	if err != nil {
		if messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err) {
			return ErrSubscriptionGone
		}
		return apperrors.TransientDelivery("send fcm", err)
	}
	return nil
}

// BuildFCMMessage maps a push message onto an FCM message. FCM data values
// must be strings.
func BuildFCMMessage(token string, msg Message) *messaging.Message {
	msg = msg.WithDefaults()

	data := map[string]string{
		"url":       msg.URL,
		"tag":       msg.Tag,
		"timestamp": strconv.FormatInt(msg.Timestamp, 10),
	}
	for k, v := range msg.Data {
		if _, taken := data[k]; !taken {
			data[k] = fmt.Sprint(v)
		}
	}

	webpushCfg := &messaging.WebpushConfig{
		Notification: &messaging.WebpushNotification{
			Title: msg.Title,
			Body:  msg.Body,
			Icon:  msg.Icon,
			Badge: msg.Badge,
			Tag:   msg.Tag,
		},
	}
	// FCM only accepts absolute https links; relative ones travel in data.
	if strings.HasPrefix(msg.URL, "https://") {
		webpushCfg.FCMOptions = &messaging.WebpushFCMOptions{Link: msg.URL}
	}

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:    data,
		Webpush: webpushCfg,
	}
}
