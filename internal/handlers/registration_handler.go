package handlers

import (
	"net/http"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// RegistrationHandler handles join requests and their decisions
type RegistrationHandler struct {
	registrations *services.RegistrationService
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(registrations *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// RegisterRegistrationRoutes registers registration routes
func (h *RegistrationHandler) RegisterRegistrationRoutes(g *echo.Group) {
	g.POST("/events/:id/join", h.Join)
	g.DELETE("/events/:id/join", h.Leave)
	g.GET("/events/:id/registrations", h.ListForEvent)
	g.GET("/registrations/me", h.ListMine)
	g.PUT("/registrations/:id/accept", h.decide(models.DecisionAccept))
	g.PUT("/registrations/:id/reject", h.decide(models.DecisionReject))
}

// Join requests a seat at an event
func (h *RegistrationHandler) Join(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	eventID, err := idParam(c, "id", "event")
	if err != nil {
		return err
	}

	registration, err := h.registrations.RequestJoin(c.Request().Context(), actor, eventID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Registration request sent", echo.Map{"registration": registration})
}

// Leave cancels the caller's registration
func (h *RegistrationHandler) Leave(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	eventID, err := idParam(c, "id", "event")
	if err != nil {
		return err
	}

	registration, err := h.registrations.Leave(c.Request().Context(), actor, eventID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "You left the event", echo.Map{"registration": registration})
}

// ListMine returns the caller's registrations
func (h *RegistrationHandler) ListMine(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	registrations, err := h.registrations.ListMine(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", echo.Map{"registrations": registrations})
}

// ListForEvent returns an event's registrations to its managers
func (h *RegistrationHandler) ListForEvent(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	eventID, err := idParam(c, "id", "event")
	if err != nil {
		return err
	}

	registrations, err := h.registrations.ListForEvent(c.Request().Context(), actor, eventID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", echo.Map{"registrations": registrations})
}

func (h *RegistrationHandler) decide(decision models.Decision) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := currentActor(c)
		if err != nil {
			return err
		}
		registrationID, err := idParam(c, "id", "registration")
		if err != nil {
			return err
		}

		registration, err := h.registrations.Decide(c.Request().Context(), actor, registrationID, decision)
		if err != nil {
			return err
		}
		message := "Registration accepted"
		if decision == models.DecisionReject {
			message = "Registration rejected"
		}
		return respond(c, http.StatusOK, message, echo.Map{"registration": registration})
	}
}
