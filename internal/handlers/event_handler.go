package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	events             *services.EventService
	trendingWindowDays int
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(events *services.EventService, trendingWindowDays int) *EventHandler {
	return &EventHandler{events: events, trendingWindowDays: trendingWindowDays}
}

// RegisterEventRoutes registers event routes
func (h *EventHandler) RegisterEventRoutes(g *echo.Group) {
	g.GET("/events", h.ListEvents)
	g.GET("/events/trending", h.GetTrending)
	g.GET("/events/:id", h.GetEvent)
	g.POST("/events", h.CreateEvent)
	g.PUT("/events/:id", h.UpdateEvent)
	g.POST("/events/:id/cancel", h.CancelEvent)
	g.POST("/events/:id/announcements", h.Announce)
	g.GET("/manager/events", h.ListManaged)
}

// ListEvents returns paginated events visible to the caller
func (h *EventHandler) ListEvents(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	page, limit := pageParams(c, 100)

	events, total, err := h.events.ListEvents(c.Request().Context(), actor, page, limit)
	if err != nil {
		return err
	}
	return paginated(c, "events", events, page, limit, total)
}

// GetTrending returns the most liked recent events
func (h *EventHandler) GetTrending(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	events, err := h.events.GetTrending(c.Request().Context(), actor.UserID, limit, h.trendingWindowDays)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", echo.Map{"events": events})
}

// GetEvent returns a single event
func (h *EventHandler) GetEvent(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	eventID, err := idParam(c, "id", "event")
	if err != nil {
		return err
	}

	event, err := h.events.GetEvent(c.Request().Context(), actor, eventID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", echo.Map{"event": event})
}

// CreateEvent creates a pending event
func (h *EventHandler) CreateEvent(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.CreateEventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	event, err := h.events.CreateEvent(c.Request().Context(), actor, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Event created and sent for approval", echo.Map{"event": event})
}

// UpdateEvent edits an event
func (h *EventHandler) UpdateEvent(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	eventID, err := idParam(c, "id", "event")
	if err != nil {
		return err
	}
	var req models.UpdateEventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	event, err := h.events.UpdateEvent(c.Request().Context(), actor, eventID, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Event updated", echo.Map{"event": event})
}

// CancelEvent cancels an event
func (h *EventHandler) CancelEvent(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	eventID, err := idParam(c, "id", "event")
	if err != nil {
		return err
	}

	event, err := h.events.CancelEvent(c.Request().Context(), actor, eventID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Event cancelled", echo.Map{"event": event})
}

// Announce queues an announcement to the event's participants
func (h *EventHandler) Announce(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	eventID, err := idParam(c, "id", "event")
	if err != nil {
		return err
	}
	var req models.AnnouncementRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.events.Announce(c.Request().Context(), actor, eventID, req); err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, "Announcement queued", nil)
}

// ListManaged returns the events the caller authored or co-manages
func (h *EventHandler) ListManaged(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	events, err := h.events.ListManaged(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", echo.Map{"events": events})
}
