package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/realtime"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const streamHeartbeat = 25 * time.Second

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
	notifier               realtime.Notifier
	subscriber             realtime.Subscriber
	logger                 *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, userRepo repositories.UserRepository, notifier realtime.Notifier, subscriber realtime.Subscriber, logger *zap.Logger) *NotificationHandler {
	if notifier == nil {
		notifier = realtime.Noop{}
	}
	if subscriber == nil {
		subscriber = realtime.Noop{}
	}
	return &NotificationHandler{
		notificationRepository: notifRepo,
		userRepository:         userRepo,
		notifier:               notifier,
		subscriber:             subscriber,
		logger:                 logger.Named("notifications"),
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/grouped", h.GetGroupedNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.GET("/notifications/stream", h.Stream)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.DELETE("/notifications/:id", h.DeleteNotification)
}

// EnrichedNotification includes sender info
type EnrichedNotification struct {
	models.Notification
	Sender *models.UserCompact `json:"sender,omitempty"`
}

func (h *NotificationHandler) enrichNotifications(c echo.Context, notifications []models.Notification) []EnrichedNotification {
	enriched := make([]EnrichedNotification, len(notifications))
	userCache := make(map[uint]*models.UserCompact)

	for i, n := range notifications {
		enriched[i] = EnrichedNotification{Notification: n}
		if n.SenderID == nil {
			continue
		}
		if sender, ok := userCache[*n.SenderID]; ok {
			enriched[i].Sender = sender
			continue
		}
		user, err := h.userRepository.GetUserByID(c.Request().Context(), *n.SenderID)
		if err != nil {
			userCache[*n.SenderID] = nil
			continue
		}
		compact := user.ToCompact()
		userCache[*n.SenderID] = &compact
		enriched[i].Sender = &compact
	}
	return enriched
}

// GetNotifications returns paginated notifications
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	page, limit := pageParams(c, 50)

	notifications, total, err := h.notificationRepository.GetByReceiverID(c.Request().Context(), actor.UserID, page, limit)
	if err != nil {
		h.logger.Error("list notifications", zap.Uint("user_id", actor.UserID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load notifications")
	}
	return paginated(c, "notifications", h.enrichNotifications(c, notifications), page, limit, total)
}

// GetGroupedNotifications returns notifications grouped by time period
func (h *NotificationHandler) GetGroupedNotifications(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	today, yesterday, thisWeek, older, err := h.notificationRepository.GetGrouped(ctx, actor.UserID, time.Now())
	if err != nil {
		h.logger.Error("group notifications", zap.Uint("user_id", actor.UserID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load notifications")
	}

	unreadCount, _ := h.notificationRepository.GetUnreadCount(ctx, actor.UserID)

	return respond(c, http.StatusOK, "", echo.Map{
		"notifications": echo.Map{
			"today":     h.enrichNotifications(c, today),
			"yesterday": h.enrichNotifications(c, yesterday),
			"thisWeek":  h.enrichNotifications(c, thisWeek),
			"older":     h.enrichNotifications(c, older),
		},
		"unreadCount": unreadCount,
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	count, err := h.notificationRepository.GetUnreadCount(c.Request().Context(), actor.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to count notifications")
	}
	return respond(c, http.StatusOK, "", echo.Map{"count": count})
}

// MarkAsRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	notifID, err := idParam(c, "id", "notification")
	if err != nil {
		return err
	}

	found, err := h.notificationRepository.MarkAsRead(c.Request().Context(), notifID, actor.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update notification")
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
	}
	h.announceRead(c, actor.UserID, notifID)
	return respond(c, http.StatusOK, "Notification marked as read", nil)
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	updated, err := h.notificationRepository.MarkAllAsRead(c.Request().Context(), actor.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update notifications")
	}
	if updated > 0 {
		h.announceRead(c, actor.UserID, 0)
	}
	return respond(c, http.StatusOK, "All notifications marked as read", echo.Map{"updated": updated})
}

// announceRead tells the user's other open sessions about the change. The
// update is already committed, so a broker failure is only logged.
func (h *NotificationHandler) announceRead(c echo.Context, userID, notificationID uint) {
	if err := h.notifier.PublishRead(c.Request().Context(), userID, notificationID); err != nil {
		h.logger.Warn("publish read event",
			zap.Uint("user_id", userID),
			zap.Uint("notification_id", notificationID),
			zap.Error(err),
		)
	}
}

// DeleteNotification removes one of the caller's notifications
func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	notifID, err := idParam(c, "id", "notification")
	if err != nil {
		return err
	}

	found, err := h.notificationRepository.Delete(c.Request().Context(), notifID, actor.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete notification")
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
	}
	return respond(c, http.StatusOK, "Notification deleted", nil)
}

// Stream pushes the caller's new notifications as server-sent events
func (h *NotificationHandler) Stream(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	envelopes, err := h.subscriber.Subscribe(ctx, actor.UserID)
	if err != nil {
		h.logger.Warn("subscribe to notifications", zap.Uint("user_id", actor.UserID), zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Real-time notifications are unavailable")
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case env, open := <-envelopes:
			if !open {
				return nil
			}
			data, err := json.Marshal(env)
			if err != nil {
				h.logger.Error("marshal notification envelope", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", env.ID, env.Type, data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
