package handlers

import (
	"net/http"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likes *services.LikeService
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likes *services.LikeService) *LikeHandler {
	return &LikeHandler{likes: likes}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/likes/:type/:id/toggle", h.ToggleLike)
	g.GET("/likes/:type/:id/status", h.GetLikeStatus)
}

// ToggleLike likes or unlikes an event or a post
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	targetID, err := idParam(c, "id", "target")
	if err != nil {
		return err
	}

	result, err := h.likes.Toggle(c.Request().Context(), actor.UserID, models.LikeTargetType(c.Param("type")), targetID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", result)
}

// GetLikeStatus returns whether the caller likes the target and its count
func (h *LikeHandler) GetLikeStatus(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	targetID, err := idParam(c, "id", "target")
	if err != nil {
		return err
	}

	result, err := h.likes.Status(c.Request().Context(), actor.UserID, models.LikeTargetType(c.Param("type")), targetID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", result)
}
