package handlers

import (
	"net/http"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// PushHandler manages the caller's push subscriptions
type PushHandler struct {
	push *services.PushService
}

// NewPushHandler creates a new PushHandler
func NewPushHandler(push *services.PushService) *PushHandler {
	return &PushHandler{push: push}
}

// RegisterPublicPushRoutes registers routes that need no authentication
func (h *PushHandler) RegisterPublicPushRoutes(g *echo.Group) {
	g.GET("/push/vapid-public-key", h.GetVAPIDPublicKey)
}

// RegisterPushRoutes registers push subscription routes
func (h *PushHandler) RegisterPushRoutes(g *echo.Group) {
	g.POST("/push/subscribe", h.Subscribe)
	g.DELETE("/push/subscribe", h.Unsubscribe)
	g.DELETE("/push/subscriptions", h.UnsubscribeAll)
	g.GET("/push/subscriptions", h.ListSubscriptions)
	g.POST("/push/verify", h.Verify)
}

// GetVAPIDPublicKey returns the key browsers need to subscribe
func (h *PushHandler) GetVAPIDPublicKey(c echo.Context) error {
	key := h.push.VAPIDPublicKey()
	if key == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Web push is not configured")
	}
	return respond(c, http.StatusOK, "", echo.Map{"publicKey": key})
}

// Subscribe registers a device for push notifications
func (h *PushHandler) Subscribe(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.SubscribeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	subscription, err := h.push.Subscribe(c.Request().Context(), actor.UserID, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Subscribed to push notifications", echo.Map{"subscription": subscription})
}

// Unsubscribe removes one device
func (h *PushHandler) Unsubscribe(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.EndpointRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.push.Unsubscribe(c.Request().Context(), actor.UserID, req.Endpoint); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Unsubscribed from push notifications", nil)
}

// UnsubscribeAll removes every device of the caller
func (h *PushHandler) UnsubscribeAll(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	removed, err := h.push.UnsubscribeAll(c.Request().Context(), actor.UserID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "All push subscriptions removed", echo.Map{"removed": removed})
}

// ListSubscriptions returns the caller's devices
func (h *PushHandler) ListSubscriptions(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	subscriptions, err := h.push.ListByUser(c.Request().Context(), actor.UserID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", echo.Map{"subscriptions": subscriptions, "count": len(subscriptions)})
}

// Verify reports whether an endpoint is still registered for the caller
func (h *PushHandler) Verify(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.EndpointRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	subscribed, err := h.push.Verify(c.Request().Context(), actor.UserID, req.Endpoint)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", echo.Map{"subscribed": subscribed})
}
