package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/anonto42/volunteer-hub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// AdminHandler handles event moderation and delivery reporting. Its routes
// are mounted behind an admin-only group.
type AdminHandler struct {
	events  *services.EventService
	reports repositories.DeliveryReportRepository
}

// NewAdminHandler creates a new AdminHandler. reports may be nil when no
// MongoDB is configured.
func NewAdminHandler(events *services.EventService, reports repositories.DeliveryReportRepository) *AdminHandler {
	return &AdminHandler{events: events, reports: reports}
}

// RegisterAdminRoutes registers admin routes
func (h *AdminHandler) RegisterAdminRoutes(g *echo.Group) {
	g.PUT("/events/:id/approve", h.ApproveEvent)
	g.PUT("/events/:id/reject", h.RejectEvent)
	g.GET("/delivery-reports", h.ListDeliveryReports)
}

// ApproveEvent publishes a pending event
func (h *AdminHandler) ApproveEvent(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	eventID, err := idParam(c, "id", "event")
	if err != nil {
		return err
	}

	event, err := h.events.Approve(c.Request().Context(), actor, eventID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Event approved", echo.Map{"event": event})
}

// RejectEvent declines an event
func (h *AdminHandler) RejectEvent(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	eventID, err := idParam(c, "id", "event")
	if err != nil {
		return err
	}

	event, err := h.events.Reject(c.Request().Context(), actor, eventID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Event rejected", echo.Map{"event": event})
}

// ListDeliveryReports returns archived fan-out statistics, newest first
func (h *AdminHandler) ListDeliveryReports(c echo.Context) error {
	if h.reports == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Delivery reports are not enabled")
	}
	page, limit := pageParams(c, 100)
	eventID, _ := strconv.ParseUint(c.QueryParam("event_id"), 10, 32)

	reports, err := h.reports.List(c.Request().Context(), uint(eventID), int64((page-1)*limit), int64(limit))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load delivery reports")
	}
	return respond(c, http.StatusOK, "", echo.Map{"reports": reports, "page": page, "limit": limit})
}
