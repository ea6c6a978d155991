package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/push"
	"github.com/anonto42/volunteer-hub/backend/internal/realtime"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// NotificationStore persists one notification row.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
}

// SubscriptionStore is what the engine needs from the push subscription
// registry.
type SubscriptionStore interface {
	ListByUser(ctx context.Context, userID uint) ([]models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) (int64, error)
}

type EngineConfig struct {
	Concurrency int           // recipients processed at once
	PushTimeout time.Duration // per push call
}

// Engine delivers a payload to many recipients. A failure for one recipient
// never affects another.
type Engine struct {
	notifications NotificationStore
	subscriptions SubscriptionStore
	transport     push.Transport
	realtime      realtime.Notifier
	logger        *zap.Logger
	cfg           EngineConfig
	now           func() time.Time
}

func NewEngine(notifications NotificationStore, subscriptions SubscriptionStore, transport push.Transport, rt realtime.Notifier, logger *zap.Logger, cfg EngineConfig) *Engine {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 5 * time.Second
	}
	if rt == nil {
		rt = realtime.Noop{}
	}
	return &Engine{
		notifications: notifications,
		subscriptions: subscriptions,
		transport:     transport,
		realtime:      rt,
		logger:        logger.Named("fanout"),
		cfg:           cfg,
		now:           time.Now,
	}
}

type recipientResult struct {
	saved      bool
	withPush   bool
	pushFailed bool
}

// Deliver writes one notification per recipient, pushes it to each of the
// recipient's subscriptions and publishes it in real time. It always returns
// aggregate stats; per-recipient errors are logged and counted.
func (e *Engine) Deliver(ctx context.Context, payload Payload, recipients []uint) models.DeliveryStats {
	recipients = Dedupe(recipients, nil)
	stats := models.DeliveryStats{Total: len(recipients)}
	if len(recipients) == 0 {
		return stats
	}

	data, err := json.Marshal(payload.Data)
	if err != nil {
		e.logger.Error("marshal notification data", zap.String("type", payload.Type), zap.Error(err))
		data = []byte("{}")
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)

	for _, userID := range recipients {
		userID := userID
		g.Go(func() error {
			res := e.deliverOne(ctx, payload, data, userID)

			mu.Lock()
			defer mu.Unlock()
			if !res.saved {
				stats.Failed++
				return nil
			}
			stats.DBSaved++
			if res.withPush {
				stats.WithPush++
			} else {
				stats.WithoutPush++
			}
			if res.pushFailed {
				stats.PushFailed++
			}
			return nil
		})
	}
	_ = g.Wait()

	e.logger.Info("fan-out complete",
		zap.String("type", payload.Type),
		zap.Int("total", stats.Total),
		zap.Int("db_saved", stats.DBSaved),
		zap.Int("failed", stats.Failed),
		zap.Int("with_push", stats.WithPush),
		zap.Int("without_push", stats.WithoutPush),
		zap.Int("push_failed", stats.PushFailed),
	)
	return stats
}

func (e *Engine) deliverOne(ctx context.Context, payload Payload, data []byte, userID uint) (res recipientResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recipient delivery panicked", zap.Uint("user_id", userID), zap.Any("panic", r))
		}
	}()

	notification := &models.Notification{
		Title:      payload.Title,
		Message:    payload.Message,
		SenderID:   payload.SenderID,
		ReceiverID: userID,
		Type:       payload.Type,
		Data:       datatypes.JSON(data),
	}
	if err := e.notifications.CreateNotification(ctx, notification); err != nil {
		e.logger.Warn("save notification", zap.Uint("user_id", userID), zap.String("type", payload.Type), zap.Error(err))
		return res
	}
	res.saved = true

	subs, err := e.subscriptions.ListByUser(ctx, userID)
	if err != nil {
		e.logger.Warn("list push subscriptions", zap.Uint("user_id", userID), zap.Error(err))
	} else if len(subs) > 0 && e.transport != nil {
		if e.pushAll(ctx, payload, subs, userID) > 0 {
			res.withPush = true
		} else {
			res.pushFailed = true
		}
	} else if len(subs) > 0 {
		res.pushFailed = true
	}

	if err := e.realtime.Publish(ctx, userID, notification); err != nil {
		e.logger.Debug("real-time publish", zap.Uint("user_id", userID), zap.Error(err))
	}
	return res
}

// pushAll sends to every subscription concurrently, each under its own
// timeout, and returns how many were accepted.
func (e *Engine) pushAll(ctx context.Context, payload Payload, subs []models.PushSubscription, userID uint) int {
	msg := payload.PushMessage(e.now().UnixMilli())

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for _, sub := range subs {
		sub := sub
		wg.Add(1)
		go func() {
			defer wg.Done()

			pushCtx, cancel := context.WithTimeout(ctx, e.cfg.PushTimeout)
			defer cancel()

			err := e.transport.Send(pushCtx, sub, msg)
			if err == nil {
				accepted.Add(1)
				return
			}
			if errors.Is(err, push.ErrSubscriptionGone) {
				if _, delErr := e.subscriptions.DeleteByEndpoint(ctx, sub.Endpoint); delErr != nil {
					e.logger.Warn("remove stale subscription", zap.Uint("user_id", userID), zap.Error(delErr))
				} else {
					e.logger.Info("removed stale subscription", zap.Uint("user_id", userID), zap.Uint("subscription_id", sub.ID))
				}
				return
			}
			e.logger.Warn("push delivery failed",
				zap.Uint("user_id", userID),
				zap.Uint("subscription_id", sub.ID),
				zap.String("provider", string(sub.Provider)),
				zap.String("kind", string(apperrors.KindOf(err))),
				zap.Error(err),
			)
		}()
	}
	wg.Wait()
	return int(accepted.Load())
}
