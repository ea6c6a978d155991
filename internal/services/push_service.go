package services

import (
	"context"
	"strings"

	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"go.uber.org/zap"
)

// PushService is the registry of devices that opted in to push
// notifications.
type PushService struct {
	subscriptions  repositories.PushSubscriptionRepository
	vapidPublicKey string
	logger         *zap.Logger
}

func NewPushService(subscriptions repositories.PushSubscriptionRepository, vapidPublicKey string, logger *zap.Logger) *PushService {
	return &PushService{
		subscriptions:  subscriptions,
		vapidPublicKey: vapidPublicKey,
		logger:         logger.Named("push"),
	}
}

// Subscribe registers the device for userID. Subscribing an endpoint that
// is already known rebinds it and refreshes its keys.
func (s *PushService) Subscribe(ctx context.Context, userID uint, req models.SubscribeRequest) (*models.PushSubscription, error) {
	endpoint := strings.TrimSpace(req.Endpoint)
	if endpoint == "" {
		return nil, apperrors.Validation("Endpoint is required")
	}
	provider := req.Provider
	if provider == "" {
		provider = models.PushProviderWebPush
	}
	if provider == models.PushProviderWebPush && (req.Keys.P256dh == "" || req.Keys.Auth == "") {
		return nil, apperrors.Validation("Web push subscriptions need p256dh and auth keys")
	}

	subscription := &models.PushSubscription{
		UserID:     userID,
		Endpoint:   endpoint,
		P256dh:     req.Keys.P256dh,
		Auth:       req.Keys.Auth,
		DeviceName: req.DeviceName,
		Provider:   provider,
	}
	if err := s.subscriptions.Upsert(ctx, subscription); err != nil {
		return nil, apperrors.Persistence("save push subscription", err)
	}

	s.logger.Info("push subscription saved",
		zap.Uint("user_id", userID),
		zap.Uint("subscription_id", subscription.ID),
		zap.String("provider", string(provider)),
	)
	return subscription, nil
}

// Unsubscribe removes one of the user's devices. Removing an unknown
// endpoint is not an error.
func (s *PushService) Unsubscribe(ctx context.Context, userID uint, endpoint string) error {
	n, err := s.subscriptions.DeleteByUserAndEndpoint(ctx, userID, strings.TrimSpace(endpoint))
	if err != nil {
		return apperrors.Persistence("delete push subscription", err)
	}
	s.logger.Info("push subscription removed", zap.Uint("user_id", userID), zap.Int64("removed", n))
	return nil
}

// UnsubscribeAll removes every device of the user.
func (s *PushService) UnsubscribeAll(ctx context.Context, userID uint) (int64, error) {
	n, err := s.subscriptions.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, apperrors.Persistence("delete push subscriptions", err)
	}
	s.logger.Info("push subscriptions cleared", zap.Uint("user_id", userID), zap.Int64("removed", n))
	return n, nil
}

func (s *PushService) ListByUser(ctx context.Context, userID uint) ([]models.PushSubscription, error) {
	subscriptions, err := s.subscriptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence("list push subscriptions", err)
	}
	return subscriptions, nil
}

// Verify reports whether endpoint is registered for userID.
func (s *PushService) Verify(ctx context.Context, userID uint, endpoint string) (bool, error) {
	ok, err := s.subscriptions.ExistsForUser(ctx, userID, strings.TrimSpace(endpoint))
	if err != nil {
		return false, apperrors.Persistence("verify push subscription", err)
	}
	return ok, nil
}

// DeleteByEndpoint drops a subscription the push service reported as gone,
// whoever owns it.
func (s *PushService) DeleteByEndpoint(ctx context.Context, endpoint string) (int64, error) {
	return s.subscriptions.DeleteByEndpoint(ctx, endpoint)
}

// VAPIDPublicKey is the application server key browsers subscribe with.
func (s *PushService) VAPIDPublicKey() string { return s.vapidPublicKey }
