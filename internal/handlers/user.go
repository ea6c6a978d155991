package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/me", h.GetProfile)
	g.GET("/users/:id", h.GetUser)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load profile")
	}
	return respond(c, http.StatusOK, "", echo.Map{"user": user})
}

// GetUser returns the public view of another user
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := idParam(c, "id", "user")
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}
	return respond(c, http.StatusOK, "", echo.Map{"user": user.ToCompact()})
}
