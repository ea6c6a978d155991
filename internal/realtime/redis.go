package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisNotifier publishes envelopes over Redis pub/sub.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger.Named("realtime")}
}

func (r *RedisNotifier) Publish(ctx context.Context, userID uint, n *models.Notification) error {
	return r.publish(ctx, userID, NewEnvelope(n))
}

func (r *RedisNotifier) PublishRead(ctx context.Context, userID, notificationID uint) error {
	return r.publish(ctx, userID, NewReadEnvelope(notificationID))
}

func (r *RedisNotifier) publish(ctx context.Context, userID uint, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	channel := UserChannel(userID)
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	r.logger.Debug("published envelope", zap.String("channel", channel), zap.String("type", env.Type))
	return nil
}

// Subscribe returns envelopes published for the user. The channel is closed
// once ctx is done.
func (r *RedisNotifier) Subscribe(ctx context.Context, userID uint) (<-chan Envelope, error) {
	channel := UserChannel(userID)
	pubsub := r.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	out := make(chan Envelope, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					r.logger.Warn("dropping malformed envelope", zap.String("channel", channel), zap.Error(err))
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
